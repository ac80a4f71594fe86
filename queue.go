// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"log/slog"
	"slices"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is an at-least-once FIFO queue with leased delivery.
//
// Producers append with a lock-free CAS loop. Consumers poll batches of up
// to the batch size; every delivered message is leased until it is
// committed, failed, or its lease times out. Failed and timed-out messages
// are appended again at the tail and delivered in a later poll.
//
// Any number of goroutines may use a Queue concurrently. A durable queue
// may also be shared by several processes opening the same directory.
//
// Layout:
//
//	processed ──▶ … swept, terminal …
//	head      ──▶ last leased node
//	tail      ──▶ last appended node
//
// Nodes between processed and head are leased and wait for commit, fail
// or timeout. Nodes after head have not been delivered.
type Queue struct {
	store                 store
	head, tail, processed atomicCell[*node]

	batchSize int64
	timeout   int64 // lease, ns
	grace     int64 // stale transaction threshold, ns
	ceiling   int64 // absolute transaction wait, ns

	clock  func() time.Time
	log    *slog.Logger
	stats  stats
	closed atomix.Bool
}

func newQueue(s store, o Options, log *slog.Logger) *Queue {
	q := &Queue{
		store:     s,
		batchSize: int64(o.batchSize),
		timeout:   int64(o.timeout),
		clock:     time.Now,
		log:       log,
	}
	q.head, q.tail, q.processed = s.anchors()
	q.grace = max(int64(2*time.Second), 2*q.timeout)
	q.ceiling = 50 * q.grace
	return q
}

func (q *Queue) now() int64 { return q.clock().UnixNano() }

// recent reports whether ts lies within the last lease timeout.
func (q *Queue) recent(ts int64) bool {
	return ts != 0 && q.now()-ts < q.timeout
}

// guard converts a raised fault into *errp at an exported entry point.
func (q *Queue) guard(errp *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(fault)
	if !ok {
		panic(r)
	}
	q.log.Error("ackq: operation failed", "op", op, "err", f.err)
	*errp = f.err
}

// Append adds a message to the tail of the queue. body is copied.
func (q *Queue) Append(id string, body []byte) (err error) {
	if q.closed.Load() {
		return ErrClosed
	}
	defer q.guard(&err, "append")

	n := q.store.create(Item{ID: id, Body: slices.Clone(body)}, q.now())
	q.put(n)
	q.stats.appended.Add(1)
	return nil
}

// put links n after the current last node.
func (q *Queue) put(n *node) {
	sw := spin.Wait{}
	for {
		last := q.tail.Load()
		if next := last.next.Load(); next != nil {
			// Help a lagging tail before appending behind it.
			q.tail.CompareAndSwap(last, next)
			continue
		}
		q.stamp(n, last)
		if last.next.CompareAndSwap(nil, n) {
			q.extend(n)
			q.tail.CompareAndSwap(last, n)
			return
		}
		sw.Once()
	}
}

// stamp places n in a batch segment as if appended after last.
// A node starts a new segment when last is removed or a sentinel, or when
// last's segment is full.
func (q *Queue) stamp(n, last *node) {
	c := last.counter.Load() + 1
	if c <= 0 || c >= q.batchSize {
		n.counter.Store(0)
		n.batchStart.Store(n)
		n.batchEnd.Store(n)
		return
	}
	n.counter.Store(c)
	n.batchStart.Store(last.batchStart.Load())
}

// extend advances the skip pointer of n's segment to n. Concurrent appends
// to one segment may finish out of order, so the pointer only moves to a
// higher counter.
func (q *Queue) extend(n *node) {
	start := n.batchStart.Load()
	if start == nil || start.Is(n) {
		return
	}
	c := n.counter.Load()
	for {
		end := start.batchEnd.Load()
		if end != nil && end.counter.Load() >= c {
			return
		}
		if start.batchEnd.CompareAndSwap(end, n) {
			return
		}
	}
}

// Poll reclaims expired leases and then leases the next batch.
// It returns an empty slice when nothing is deliverable.
func (q *Queue) Poll() (msgs []*Message, err error) {
	if q.closed.Load() {
		return nil, ErrClosed
	}
	defer q.guard(&err, "poll")

	q.sweep()
	from, to := q.cut()
	if from == nil {
		return nil, nil
	}
	msgs = q.lease(from, to)
	q.stats.delivered.Add(uint64(len(msgs)))
	return msgs, nil
}

// sweep walks the leased region after processed and settles expired,
// failed and confirmed nodes, at most one batch per call.
func (q *Queue) sweep() {
	for attempts := int64(0); attempts < q.batchSize; {
		prev := q.processed.Load()
		if prev.Is(q.head.Load()) {
			return
		}
		n := prev.next.Load()
		if n == nil {
			return
		}
		if q.stale(n) {
			q.recoverNode(n)
		}

		st := n.status.Load()
		if st.Done() {
			q.processed.CompareAndSwap(prev, n)
			continue
		}
		if q.recent(n.sent.Load()) || q.recent(n.resent.Load()) {
			return
		}
		attempts++

		switch {
		case st == StatusNew:
			// Leased by a poller that never got to mark it sent.
			if q.recent(n.created.Load()) {
				return
			}
			q.transact(n, func() {
				if n.status.CompareAndSwap(StatusNew, StatusFailure) {
					q.remove(n)
				}
			})
		case st.resending():
			q.transact(n, func() { q.settleResend(n) })
		case q.failedByTimeout(n):
			q.processFailure(n, false)
		case st == StatusConfirmed:
			q.processSuccess(n, false)
		default:
			return
		}

		if !n.status.Load().Done() {
			return
		}
	}
}

// failedByTimeout reports whether n was failed or its lease expired.
func (q *Queue) failedByTimeout(n *node) bool {
	switch n.status.Load() {
	case StatusFailure:
		return true
	case StatusSent:
		return !q.recent(n.sent.Load())
	}
	return false
}

// cut claims the next batch by moving head to its last node.
func (q *Queue) cut() (from, to *node) {
	sw := spin.Wait{}
	for {
		head := q.head.Load()
		first := head.next.Load()
		if first == nil {
			return nil, nil
		}
		last := q.nearest(first)
		if q.head.CompareAndSwap(head, last) {
			return head, last
		}
		sw.Once()
	}
}

// nearest returns the furthest node of first's segment, or first itself
// when the skip pointer does not lead forward from it.
func (q *Queue) nearest(first *node) *node {
	start := first.batchStart.Load()
	if start == nil {
		return first
	}
	end := start.batchEnd.Load()
	if end == nil {
		return first
	}
	c := first.counter.Load()
	if c < 0 || c > end.counter.Load() {
		return first
	}
	return end
}

// lease marks the nodes in (from, to] sent and returns handles for the
// ones that were still new. Nodes already reclaimed by a sweep are
// skipped.
func (q *Queue) lease(from, to *node) []*Message {
	t := q.now()
	msgs := make([]*Message, 0, q.batchSize)
	prev := from
	for n := from.next.Load(); n != nil; n = n.next.Load() {
		n.sent.Store(t)
		n.resent.Store(0)
		n.previous.CompareAndSwap(nil, prev)
		if n.status.CompareAndSwap(StatusNew, StatusSent) {
			it := n.item.Load()
			msgs = append(msgs, &Message{ID: it.ID, Body: it.Body, q: q, n: n})
		}
		if n.Is(to) {
			break
		}
		prev = n
	}
	return msgs
}

// processSuccess confirms a sent node. It removes the node when forced or
// when the lease has expired, and reports whether the node is confirmed.
func (q *Queue) processSuccess(n *node, force bool) (ok bool) {
	q.transact(n, func() {
		n.status.CompareAndSwap(StatusSent, StatusConfirmed)
		if n.status.Load() != StatusConfirmed {
			return
		}
		ok = true
		if force || !q.recent(n.sent.Load()) {
			n.sent.Store(q.now())
			q.remove(n)
		}
	})
	return ok
}

// processFailure is processSuccess for failures.
func (q *Queue) processFailure(n *node, force bool) (ok bool) {
	q.transact(n, func() {
		n.status.CompareAndSwap(StatusSent, StatusFailure)
		if n.status.Load() != StatusFailure {
			return
		}
		ok = true
		if force || !q.recent(n.sent.Load()) {
			n.sent.Store(q.now())
			q.remove(n)
		}
	})
	return ok
}

// remove takes a settled node out of the leased region. A failed node is
// first appended again as a fresh copy carrying the same item. Runs inside
// a transaction on n.
//
// The original never moves back into the list: head only advances by cut,
// and a retired failed node always ends RESENDING_FINISHED_COMPLETED.
func (q *Queue) remove(n *node) {
	if n.status.Load() == StatusFailure {
		if !n.status.CompareAndSwap(StatusFailure, StatusResending) {
			return
		}
		t := q.now()
		n.resent.Store(t)
		n.sent.Store(0)

		it := n.item.Load()
		c := q.store.create(it, t)
		n.replacement.Store(c)
		q.put(c)
		n.status.CompareAndSwap(StatusResending, StatusResendingFinished)
		q.stats.redelivered.Add(1)
		q.log.Debug("ackq: redelivering", "message", it.ID, "node", n.id, "copy", c.id)
	}
	q.unlink(n)
	n.status.CompareAndSwap(StatusResendingFinished, StatusResendingFinishedCompleted)
	n.status.CompareAndSwap(StatusConfirmed, StatusCompleted)
}

// Backlog walks the list and counts the messages leased but not yet
// settled and the messages waiting for delivery. Concurrent operations
// may move messages between the two while it runs.
func (q *Queue) Backlog() (leased, waiting int, err error) {
	if q.closed.Load() {
		return 0, 0, ErrClosed
	}
	defer q.guard(&err, "backlog")

	head := q.head.Load()
	from := q.processed.Load()
	delivered := !from.Is(head)
	for n := from.next.Load(); n != nil; n = n.next.Load() {
		if !n.status.Load().Done() {
			if delivered {
				leased++
			} else {
				waiting++
			}
		}
		if n.Is(head) {
			delivered = false
		}
	}
	return leased, waiting, nil
}

// Stats returns a snapshot of the queue counters of this process.
func (q *Queue) Stats() Stats {
	return q.stats.snapshot()
}

// Close releases the resources of q. Stored messages are kept; a durable
// queue can be reopened from its directory.
func (q *Queue) Close() error {
	if q.closed.Load() {
		return nil
	}
	q.closed.Store(true)
	return q.store.close()
}
