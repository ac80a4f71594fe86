// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ackq"
)

// newSendCommand constructs the `send` subcommand.
func newSendCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send BODY...",
		Short: "Append messages, one per argument, or one from stdin with -",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id != "" && len(args) > 1 {
				return fmt.Errorf("--id needs exactly one message, got %d", len(args))
			}
			return g.withQueue(cmd, func(_ context.Context, q *ackq.Queue) error {
				for _, arg := range args {
					body := []byte(arg)
					if arg == "-" {
						b, err := io.ReadAll(cmd.InOrStdin())
						if err != nil {
							return fmt.Errorf("read stdin: %w", err)
						}
						body = b
					}
					mid := id
					if mid == "" {
						mid = uuid.NewString()
					}
					if err := q.Append(mid, body); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), mid)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("id", "", "Message id (default: random UUID)")
	return cmd
}

// newRecvCommand constructs the `recv` subcommand.
func newRecvCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Lease one batch, print it and commit it",
		Long: `Lease one batch and print each message as "ID<TAB>BODY".

By default every message is committed after printing. --fail rejects
them instead, so they are delivered again by a later recv. --keep leaves
them leased; they are redelivered once the lease times out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fail, _ := cmd.Flags().GetBool("fail")
			keep, _ := cmd.Flags().GetBool("keep")
			if fail && keep {
				return fmt.Errorf("--fail and --keep are mutually exclusive")
			}
			return g.withQueue(cmd, func(_ context.Context, q *ackq.Queue) error {
				msgs, err := q.Poll()
				if err != nil {
					return err
				}
				for _, m := range msgs {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.ID, m.Body)
					switch {
					case keep:
					case fail:
						err = m.Fail()
					default:
						err = m.Commit()
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("fail", false, "Fail the messages instead of committing them")
	cmd.Flags().Bool("keep", false, "Leave the messages leased")
	return cmd
}

// newDrainCommand constructs the `drain` subcommand.
func newDrainCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Receive and commit until nothing is deliverable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			return g.withQueue(cmd, func(ctx context.Context, q *ackq.Queue) error {
				total := 0
				for ctx.Err() == nil {
					msgs, err := q.Poll()
					if err != nil {
						return err
					}
					if len(msgs) == 0 {
						break
					}
					for _, m := range msgs {
						if !quiet {
							_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.ID, m.Body)
						}
						if err := m.Commit(); err != nil {
							return err
						}
						total++
					}
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "drained %d messages\n", total)
				return ctx.Err()
			})
		},
	}
	cmd.Flags().BoolP("quiet", "q", false, "Do not print the messages")
	return cmd
}

// newStatsCommand constructs the `stats` subcommand.
func newStatsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many messages are leased and waiting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withQueue(cmd, func(_ context.Context, q *ackq.Queue) error {
				leased, waiting, err := q.Backlog()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leased:  %d\nwaiting: %d\n", leased, waiting)
				return nil
			})
		},
	}
}
