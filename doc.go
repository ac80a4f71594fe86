// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ackq provides an embeddable at-least-once message queue.
//
// Producers append messages; consumers poll batches and commit or fail
// each delivered message. A message that is neither committed nor failed
// before its lease times out is delivered again. Two backends share one
// algorithm:
//
//   - Memory: every node field is an atomic register
//   - Disk: every node field is a file, written by atomic rename and
//     guarded by an advisory lock for compare-and-swap
//
// # Quick Start
//
//	q := ackq.NewMemory(32, 5*time.Second)
//
//	q.Append("order-1", []byte(`{"sku":42}`))
//
//	msgs, err := q.Poll()
//	for _, m := range msgs {
//	    if process(m.Body) == nil {
//	        m.Commit()
//	    } else {
//	        m.Fail() // delivered again by a later Poll
//	    }
//	}
//
// Durable queue:
//
//	q, err := ackq.New(32).Timeout(5 * time.Second).Dir("/var/lib/ackq/orders").Build()
//
// Named queues with generated ids:
//
//	b := ackq.NewBroker(ackq.New(ackq.DefaultBatchSize).Dir("/var/lib/ackq"))
//	id, err := b.Send("orders", body)
//	msgs, err := b.Receive("orders")
//
// Worker pool:
//
//	d := ackq.NewDispatcher(q, 8, 64)
//	err := d.Run(ctx, func(ctx context.Context, m *ackq.Message) error {
//	    return process(m.Body)
//	})
//
// # Delivery Semantics
//
// Delivery is at-least-once and FIFO in append order, except that a
// redelivered message re-enters at the tail. A failed message is appended
// again immediately and is delivered by the next Poll, so a message that
// always fails is redelivered on every poll; bounding retries is up to the
// handler. A message whose lease expired is reclaimed by the sweep that
// runs at the start of every Poll.
//
// # Structure
//
// The queue is a singly linked list with append-only forward links. Append
// is a lock-free CAS loop on the tail. Appended nodes are grouped into
// segments of at most batchSize nodes; the first node of a segment keeps a
// pointer to the segment's furthest node, so Poll claims a whole batch with
// one CAS on head.
//
// Commit, Fail and the sweep change a node's status and back link inside a
// short node transaction guarded by two CAS locks. A transaction records an
// undo snapshot before it mutates anything. If its owner stalls or dies,
// another thread repairs the node from its status and snapshot and breaks
// the locks, so no goroutine or process can wedge the queue.
//
// # Durability
//
// A durable queue stores each node in dir/<id[0:2]>/<id>/ with one file per
// field. Fixed anchor ids locate head, tail and the sweep position after a
// restart. Leases held by a process that died are reclaimed by the
// ordinary timeout path. Several processes may share one directory.
// Nodes are never deleted from disk.
//
// # Errors
//
// Storage failures that persist after retries, and lock waits beyond the
// absolute ceiling, are returned as errors wrapping [ErrStorage] or
// [ErrWaitExceeded]. Commit and Fail on a message whose lease is gone
// return [ErrNotLeased].
package ackq
