// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"code.hybscloud.com/ackq"
)

// =============================================================================
// Durable Backend
// =============================================================================

// TestDiskReopen appends, leases part of the queue, and reopens the
// directory as a fresh queue: undelivered messages come next, and the
// abandoned leases come back after their timeout.
func TestDiskReopen(t *testing.T) {
	dir := t.TempDir()
	clk := newManualClock()

	q, err := ackq.OpenDisk(dir, 2, testTimeout)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	ackq.SetClock(q, clk.Now)
	want := appendN(t, q, 5)
	leased := poll(t, q)
	if got := ids(leased); !slices.Equal(got, want[:2]) {
		t.Fatalf("first poll: got %v, want %v", got, want[:2])
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	q, err = ackq.OpenDisk(dir, 2, testTimeout)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer q.Close()
	ackq.SetClock(q, clk.Now)

	if got := drain(t, q); !slices.Equal(got, want[2:]) {
		t.Fatalf("after reopen: got %v, want %v", got, want[2:])
	}
	clk.Advance(testTimeout + 1)
	if got := drain(t, q); !slices.Equal(got, want[:2]) {
		t.Fatalf("abandoned leases: got %v, want %v", got, want[:2])
	}
}

// TestDiskSharedDirectory opens one directory twice, as two processes
// would, and consumes through both.
func TestDiskSharedDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := ackq.OpenDisk(dir, 3, testTimeout)
	if err != nil {
		t.Fatalf("OpenDisk a: %v", err)
	}
	defer a.Close()
	b, err := ackq.OpenDisk(dir, 3, testTimeout)
	if err != nil {
		t.Fatalf("OpenDisk b: %v", err)
	}
	defer b.Close()

	want := appendN(t, a, 6)
	first := poll(t, b)
	second := poll(t, a)
	commitAll(t, first)
	commitAll(t, second)

	got := append(ids(first), ids(second)...)
	if !slices.Equal(got, want) {
		t.Fatalf("delivered: got %v, want %v", got, want)
	}
	if rest := poll(t, b); len(rest) != 0 {
		t.Fatalf("leftover: got %v", ids(rest))
	}
}

func TestDiskLayout(t *testing.T) {
	dir := t.TempDir()
	q, err := ackq.New(2).Dir(dir).Fsync().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	if err := q.Append("hello", []byte("world")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	head, err := os.ReadFile(filepath.Join(dir, "00", "00000000-0000-0000-0000-000000000000", "this"))
	if err != nil {
		t.Fatalf("head anchor: %v", err)
	}
	if got := string(head); got != "33333333-3333-3333-3333-333333333333" {
		t.Fatalf("head anchor: got %q, want the initial node", got)
	}

	bodies, err := filepath.Glob(filepath.Join(dir, "*", "*", "body"))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range bodies {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "world" {
			continue
		}
		found = true
		nodeDir := filepath.Dir(p)
		id := filepath.Base(nodeDir)
		if shard := filepath.Base(filepath.Dir(nodeDir)); !strings.HasPrefix(id, shard) || len(shard) != 2 {
			t.Fatalf("node %s stored under shard %s", id, shard)
		}
		status, err := os.ReadFile(filepath.Join(nodeDir, "status"))
		if err != nil {
			t.Fatal(err)
		}
		if string(status) != "NEW" {
			t.Fatalf("status: got %q, want NEW", status)
		}
		msg, err := os.ReadFile(filepath.Join(nodeDir, "id"))
		if err != nil {
			t.Fatal(err)
		}
		if string(msg) != "hello" {
			t.Fatalf("id: got %q, want hello", msg)
		}
	}
	if !found {
		t.Fatalf("no node directory holds the appended body")
	}
}

func TestDiskCorruptField(t *testing.T) {
	dir := t.TempDir()
	q, err := ackq.OpenDisk(dir, 2, testTimeout)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	defer q.Close()

	anchor := filepath.Join(dir, "00", "00000000-0000-0000-0000-000000000000", "this")
	if err := os.Remove(anchor); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Poll(); !errors.Is(err, ackq.ErrStorage) {
		t.Fatalf("Poll with missing anchor: got %v, want ErrStorage", err)
	}
}
