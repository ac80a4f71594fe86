// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"log/slog"
	"time"

	"code.hybscloud.com/ackq/internal/diskio"
)

const (
	// DefaultBatchSize is the batch size used by [LoadConfig] when
	// ACKQ_BATCH_SIZE is unset.
	DefaultBatchSize = 30

	// DefaultTimeout is the lease duration used when none is configured.
	DefaultTimeout = time.Second
)

// Options configures queue creation.
type Options struct {
	// Messages per delivery batch and per skip segment
	batchSize int

	// Lease duration, also the minimum interval between resends
	timeout time.Duration

	// Durable backend
	durable bool
	dir     string
	fsync   bool

	logger *slog.Logger
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// In-memory queue, batches of 32, 5s lease
//	q, _ := ackq.New(32).Timeout(5 * time.Second).Build()
//
//	// Durable queue rooted at a directory
//	q, err := ackq.New(32).Dir("/var/lib/ackq/orders").Build()
//
//	// Durable queue with fsync'd writes and logging
//	q, err := ackq.New(32).Dir(dir).Fsync().Logger(slog.Default()).Build()
type Builder struct {
	opts Options
}

// New creates a queue builder with the given batch size.
//
// A poll delivers at most batchSize messages, and the timeout sweep
// reclaims at most batchSize leases per poll.
//
// Panics if batchSize < 1.
func New(batchSize int) *Builder {
	if batchSize < 1 {
		panic("ackq: batch size must be >= 1")
	}
	return &Builder{opts: Options{batchSize: batchSize, timeout: DefaultTimeout}}
}

// Timeout sets the lease duration. A delivered message that is neither
// committed nor failed within d becomes eligible for redelivery.
//
// Panics if d <= 0.
func (b *Builder) Timeout(d time.Duration) *Builder {
	if d <= 0 {
		panic("ackq: timeout must be > 0")
	}
	b.opts.timeout = d
	return b
}

// Dir selects the durable backend rooted at dir.
func (b *Builder) Dir(dir string) *Builder {
	b.opts.dir = dir
	b.opts.durable = true
	return b
}

// Durable selects the durable backend. Build fails with [ErrNoDirectory]
// unless [Builder.Dir] is also set.
func (b *Builder) Durable() *Builder {
	b.opts.durable = true
	return b
}

// Fsync makes every durable field write reach stable storage before it
// becomes visible. Without it writes survive a process crash but not
// necessarily a power loss.
func (b *Builder) Fsync() *Builder {
	b.opts.fsync = true
	return b
}

// Logger sets the logger for queue events. The default discards.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.opts.logger = l
	return b
}

// clone returns an independent copy of b.
func (b *Builder) clone() *Builder {
	c := *b
	return &c
}

// Build creates the queue.
//
// A durable queue reopens the structure found in its directory, so
// messages appended before a restart are delivered again; leases that
// were never committed expire through the normal timeout path.
func (b *Builder) Build() (*Queue, error) {
	o := b.opts
	if o.durable && o.dir == "" {
		return nil, ErrNoDirectory
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if !o.durable {
		return newQueue(newMemoryStore(), o, log), nil
	}

	var fsopts []diskio.Option
	if o.fsync {
		fsopts = append(fsopts, diskio.WithFsync())
	}
	s, err := openDiskStore(o.dir, diskio.New(fsopts...))
	if err != nil {
		return nil, err
	}
	log.Info("ackq: queue opened", "dir", o.dir, "resumed", s.resumed, "batch", o.batchSize, "timeout", o.timeout)
	return newQueue(s, o, log), nil
}

// NewMemory creates an in-memory queue.
func NewMemory(batchSize int, timeout time.Duration) *Queue {
	q, _ := New(batchSize).Timeout(timeout).Build()
	return q
}

// OpenDisk opens or creates a durable queue in dir.
func OpenDisk(dir string, batchSize int, timeout time.Duration) (*Queue, error) {
	return New(batchSize).Timeout(timeout).Dir(dir).Build()
}
