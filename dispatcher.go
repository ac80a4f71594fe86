// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"context"
	"errors"
	"log/slog"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"golang.org/x/sync/errgroup"
)

// Source is anything that delivers leased messages. [*Queue] is a Source.
type Source interface {
	Poll() ([]*Message, error)
}

// Handler processes one message. A nil return commits the message; an
// error fails it so it is delivered again.
type Handler func(ctx context.Context, m *Message) error

// Dispatcher runs a poll loop that hands leased messages to a pool of
// worker goroutines through a bounded lock-free ring.
//
// Messages still in the ring when Run returns were never handled; their
// leases expire and they are redelivered.
type Dispatcher struct {
	src     Source
	workers int
	ring    *lfq.SPMC[*Message]
	log     *slog.Logger
}

// NewDispatcher creates a dispatcher with the given number of workers and
// ring capacity. Capacity rounds up to the next power of 2.
//
// Panics if workers < 1 or capacity < 2.
func NewDispatcher(src Source, workers, capacity int) *Dispatcher {
	if workers < 1 {
		panic("ackq: workers must be >= 1")
	}
	return &Dispatcher{
		src:     src,
		workers: workers,
		ring:    lfq.NewSPMC[*Message](capacity),
		log:     slog.New(slog.DiscardHandler),
	}
}

// Logger sets the logger for dispatch events.
func (d *Dispatcher) Logger(l *slog.Logger) *Dispatcher {
	d.log = l
	return d
}

// Run dispatches until ctx is done or a poll, commit or fail returns a
// storage error. Cancellation is not an error.
func (d *Dispatcher) Run(ctx context.Context, h Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.pump(ctx) })
	for range d.workers {
		g.Go(func() error { return d.work(ctx, h) })
	}
	return g.Wait()
}

func (d *Dispatcher) pump(ctx context.Context) error {
	var bo iox.Backoff
	for ctx.Err() == nil {
		msgs, err := d.src.Poll()
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			bo.Wait()
			continue
		}
		bo.Reset()
		for _, m := range msgs {
			for {
				err := d.ring.Enqueue(&m)
				if err == nil {
					break
				}
				if !IsWouldBlock(err) {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				bo.Wait()
			}
			bo.Reset()
		}
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context, h Handler) error {
	var bo iox.Backoff
	for ctx.Err() == nil {
		m, err := d.ring.Dequeue()
		if !IsNonFailure(err) {
			return err
		}
		if IsSemantic(err) {
			bo.Wait()
			continue
		}
		bo.Reset()

		if herr := h(ctx, m); herr != nil {
			d.log.Debug("ackq: handler failed", "message", m.ID, "err", herr)
			err = m.Fail()
		} else {
			err = m.Commit()
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrNotLeased):
			d.log.Warn("ackq: lease expired before handler finished", "message", m.ID)
		default:
			return err
		}
	}
	return nil
}
