// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ackq"
)

// globals holds the persistent flags shared by all subcommands.
type globals struct {
	envFile string
	dir     string
	batch   int
	timeout time.Duration
	fsync   bool
	verbose bool
}

// NewRoot constructs the root `ackq` command with all subcommands.
func NewRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "ackq",
		Short: "Inspect and operate durable ackq queues",
		Long: `ackq operates an at-least-once queue stored in a directory.

Message Lifecycle:
  send → waiting → [recv] → leased → [commit] → done
                                ↓ (fail or lease timeout)
                             waiting again`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.envFile, "env-file", "", "Load environment from this file (default ./.env when present)")
	pf.StringVarP(&g.dir, "dir", "d", "", "Queue directory (ACKQ_DIR)")
	pf.IntVarP(&g.batch, "batch", "b", ackq.DefaultBatchSize, "Messages per batch (ACKQ_BATCH_SIZE)")
	pf.DurationVar(&g.timeout, "timeout", ackq.DefaultTimeout, "Lease duration (ACKQ_TIMEOUT)")
	pf.BoolVar(&g.fsync, "fsync", false, "Fsync durable writes (ACKQ_FSYNC)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log debug events to stderr")

	root.AddCommand(
		newSendCommand(g),
		newRecvCommand(g),
		newDrainCommand(g),
		newStatsCommand(g),
	)
	return root
}

// config resolves the queue settings for cmd: .env file, then
// environment, then flags the user set explicitly.
func (g *globals) config(cmd *cobra.Command) (ackq.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil {
			return ackq.Config{}, fmt.Errorf("load %s: %w", g.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := ackq.LoadConfig()
	if err != nil {
		return ackq.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir = g.dir
	}
	if flags.Changed("batch") {
		cfg.BatchSize = g.batch
	}
	if flags.Changed("timeout") {
		cfg.Timeout = g.timeout
	}
	if flags.Changed("fsync") {
		cfg.Fsync = g.fsync
	}
	if err := cfg.Validate(); err != nil {
		return ackq.Config{}, err
	}
	if cfg.Dir == "" {
		return ackq.Config{}, fmt.Errorf("%w: set --dir or ACKQ_DIR", ackq.ErrNoDirectory)
	}
	return cfg, nil
}

func (g *globals) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// withQueue opens the configured queue, runs fn and closes the queue.
func (g *globals) withQueue(cmd *cobra.Command, fn func(ctx context.Context, q *ackq.Queue) error) error {
	cfg, err := g.config(cmd)
	if err != nil {
		return err
	}
	q, err := cfg.Builder().Logger(g.logger(cmd)).Build()
	if err != nil {
		return err
	}
	return errors.Join(fn(cmd.Context(), q), q.Close())
}

// Execute runs the root command with ctx and returns the process exit
// code.
func Execute(ctx context.Context, args []string) int {
	root := NewRoot()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
