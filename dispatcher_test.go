// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/ackq"
)

// =============================================================================
// Dispatcher
// =============================================================================

func TestDispatcherCommits(t *testing.T) {
	if ackq.RaceEnabled {
		t.Skip("skip: lfq ring orderings are invisible to the race detector")
	}
	const total = 100
	q := ackq.NewMemory(8, time.Minute)
	appendN(t, q, total)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var handled atomix.Int64
	var mu sync.Mutex
	seen := make(map[string]int)
	err := ackq.NewDispatcher(q, 4, 16).Run(ctx, func(ctx context.Context, m *ackq.Message) error {
		mu.Lock()
		seen[m.ID]++
		mu.Unlock()
		if handled.Add(1) == total {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != total {
		t.Fatalf("handled ids: got %d, want %d", len(seen), total)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("message %s handled %d times", id, n)
		}
	}
	if st := q.Stats(); st.Committed != total {
		t.Fatalf("Committed: got %d, want %d", st.Committed, total)
	}
}

func TestDispatcherFailsOnHandlerError(t *testing.T) {
	if ackq.RaceEnabled {
		t.Skip("skip: lfq ring orderings are invisible to the race detector")
	}
	const total = 20
	q := ackq.NewMemory(4, time.Minute)
	appendN(t, q, total)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var mu sync.Mutex
	attempts := make(map[string]int)
	var succeeded atomix.Int64
	errFirst := errors.New("first attempt")
	err := ackq.NewDispatcher(q, 2, 8).Run(ctx, func(ctx context.Context, m *ackq.Message) error {
		mu.Lock()
		attempts[m.ID]++
		n := attempts[m.ID]
		mu.Unlock()
		if n == 1 {
			return errFirst
		}
		if succeeded.Add(1) == total {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for id, n := range attempts {
		if n != 2 {
			t.Fatalf("message %s attempted %d times, want 2", id, n)
		}
	}
	st := q.Stats()
	if st.Failed != total || st.Committed != total {
		t.Fatalf("Stats: got %+v", st)
	}
}

type failingSource struct{ err error }

func (s failingSource) Poll() ([]*ackq.Message, error) { return nil, s.err }

func TestDispatcherPollError(t *testing.T) {
	if ackq.RaceEnabled {
		t.Skip("skip: lfq ring orderings are invisible to the race detector")
	}
	want := errors.New("poll failed")
	err := ackq.NewDispatcher(failingSource{err: want}, 2, 4).Run(context.Background(), func(context.Context, *ackq.Message) error {
		return nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("Run: got %v, want %v", err, want)
	}
}
