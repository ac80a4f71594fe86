// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq_test

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/ackq"
)

// =============================================================================
// Test Helpers
// =============================================================================

// manualClock is a time source that only moves when told to.
type manualClock struct {
	ns atomix.Int64
}

func newManualClock() *manualClock {
	c := &manualClock{}
	c.ns.Store(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano())
	return c
}

func (c *manualClock) Now() time.Time { return time.Unix(0, c.ns.Load()) }

func (c *manualClock) Advance(d time.Duration) { c.ns.Add(int64(d)) }

// backend opens a queue of one storage kind.
type backend struct {
	name string
	open func(t *testing.T, batch int, timeout time.Duration) *ackq.Queue
}

var backends = []backend{
	{
		name: "memory",
		open: func(t *testing.T, batch int, timeout time.Duration) *ackq.Queue {
			return ackq.NewMemory(batch, timeout)
		},
	},
	{
		name: "disk",
		open: func(t *testing.T, batch int, timeout time.Duration) *ackq.Queue {
			q, err := ackq.OpenDisk(t.TempDir(), batch, timeout)
			if err != nil {
				t.Fatalf("OpenDisk: %v", err)
			}
			return q
		},
	},
}

// eachBackend runs f once per backend with a queue on a manual clock.
func eachBackend(t *testing.T, batch int, timeout time.Duration, f func(t *testing.T, q *ackq.Queue, clk *manualClock)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			q := b.open(t, batch, timeout)
			t.Cleanup(func() { q.Close() })
			clk := newManualClock()
			ackq.SetClock(q, clk.Now)
			f(t, q, clk)
		})
	}
}

func msgID(i int) string { return fmt.Sprintf("m-%03d", i) }

func appendN(t *testing.T, q *ackq.Queue, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range n {
		ids[i] = msgID(i)
		if err := q.Append(ids[i], []byte("body-"+ids[i])); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	return ids
}

func poll(t *testing.T, q *ackq.Queue) []*ackq.Message {
	t.Helper()
	msgs, err := q.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	return msgs
}

func ids(msgs []*ackq.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func commitAll(t *testing.T, msgs []*ackq.Message) {
	t.Helper()
	for _, m := range msgs {
		if err := m.Commit(); err != nil {
			t.Fatalf("Commit(%s): %v", m.ID, err)
		}
	}
}

func failAll(t *testing.T, msgs []*ackq.Message) {
	t.Helper()
	for _, m := range msgs {
		if err := m.Fail(); err != nil {
			t.Fatalf("Fail(%s): %v", m.ID, err)
		}
	}
}

// drain polls until a poll returns nothing, committing everything, and
// returns the delivered ids in delivery order.
func drain(t *testing.T, q *ackq.Queue) []string {
	t.Helper()
	var got []string
	for range 1000 {
		msgs := poll(t, q)
		if len(msgs) == 0 {
			return got
		}
		got = append(got, ids(msgs)...)
		commitAll(t, msgs)
	}
	t.Fatalf("drain: queue never emptied, got %d messages", len(got))
	return nil
}

func sorted(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}
