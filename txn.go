// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"fmt"
	"time"

	"code.hybscloud.com/spin"
)

// Node transactions.
//
// A transaction on n owns two locks: the lock cell of n.next (if any) and
// the lock cell of n, taken in that order, each by CAS from nil to n.
// While running it leaves an undo snapshot on n: the successor and
// predecessor at entry, a start time, and the dirty flag. A thread that
// finds a lock held by a dirty node older than the grace period repairs
// the node from its status and snapshot and releases its locks. The data
// is recovered, not the stalled thread.
//
// Transaction bodies never open another transaction.

// transact runs fn while holding the locks of n and its successor.
//
// Raises ErrWaitExceeded when the locks cannot be obtained within the
// wait ceiling.
func (q *Queue) transact(n *node, fn func()) {
	begin := q.now()
	checked := begin
	sw := spin.Wait{}
	wait := func(holder *node) {
		q.tryRecover(holder)
		if t := q.now(); t-checked > q.grace {
			if t-begin > q.ceiling {
				raise(fmt.Errorf("%w: node %s after %v", ErrWaitExceeded, n, time.Duration(t-begin)))
			}
			checked = t
			q.expire(n)
		}
		sw.Once()
	}

	for {
		next := n.next.Load()
		if next != nil && !next.lock.CompareAndSwap(nil, n) {
			wait(next.lock.Load())
			continue
		}
		if !n.lock.CompareAndSwap(nil, n) {
			q.release(next, n)
			wait(n.lock.Load())
			continue
		}
		// The successor may have been linked, or our lock on it broken by
		// a recoverer, between the two acquisitions.
		if !n.next.Load().Is(next) || (next != nil && !next.lock.Load().Is(n)) {
			q.release(n, n)
			q.release(next, n)
			wait(nil)
			continue
		}

		q.run(n, next, fn)
		return
	}
}

func (q *Queue) run(n, next *node, fn func()) {
	n.formerNext.Store(next)
	n.formerPrevious.Store(n.previous.Load())
	n.started.Store(q.now())
	n.dirty.Store(true)

	defer func() {
		if r := recover(); r != nil {
			q.repair(n)
			q.clear(n)
			panic(r)
		}
	}()
	fn()
	q.clear(n)
}

// clear drops the undo snapshot of n and releases the locks n holds.
func (q *Queue) clear(n *node) {
	next := n.formerNext.Load()
	n.formerNext.Store(nil)
	n.formerPrevious.Store(nil)
	n.replacement.Store(nil)
	n.dirty.Store(false)
	n.started.Store(0)
	q.release(n, n)
	q.release(next, n)
	if cur := n.next.Load(); !cur.Is(next) {
		q.release(cur, n)
	}
}

// release frees target's lock if holder owns it.
func (q *Queue) release(target, holder *node) {
	if target != nil {
		target.lock.CompareAndSwap(holder, nil)
	}
}

// stale reports whether n is mid-transaction for longer than the grace
// period.
func (q *Queue) stale(n *node) bool {
	return n.dirty.Load() && q.now()-n.started.Load() > q.grace
}

func (q *Queue) tryRecover(holder *node) {
	if holder != nil && q.stale(holder) {
		q.recoverNode(holder)
	}
}

// expire marks the current lock holders of n and its successor dirty so
// that a holder which stopped without ever starting its body becomes
// recoverable after one more grace period.
func (q *Queue) expire(n *node) {
	holders := [2]*node{n.lock.Load()}
	if next := n.next.Load(); next != nil {
		holders[1] = next.lock.Load()
	}
	for _, h := range holders {
		if h == nil || h.dirty.Load() {
			continue
		}
		h.started.Store(q.now())
		if h.dirty.CompareAndSwap(false, true) {
			q.log.Warn("ackq: forcing consistency check", "holder", h.id, "waiter", n.id)
		}
	}
}

// recoverNode repairs the stalled transaction of n. Only one thread
// recovers a node at a time. A recoverer that itself stalled is displaced
// after three grace periods.
func (q *Queue) recoverNode(n *node) {
	if !n.syncing.CompareAndSwap(false, true) {
		if q.now()-n.started.Load() > 3*q.grace {
			n.started.Store(q.now())
			n.syncing.Store(false)
		}
		return
	}
	defer n.syncing.Store(false)

	if !q.stale(n) {
		return
	}
	age := time.Duration(q.now() - n.started.Load())
	n.started.Store(q.now())

	status := n.status.Load()
	q.repair(n)
	q.clear(n)
	q.stats.recovered.Add(1)
	q.log.Warn("ackq: recovered stalled transaction", "node", n.id, "status", status, "age", age)
}

// repair brings the links and status of n back to a consistent state
// after an interrupted transaction body.
func (q *Queue) repair(n *node) {
	switch n.status.Load() {
	case StatusConfirmed:
		q.unlink(n)
		n.status.CompareAndSwap(StatusConfirmed, StatusCompleted)
	case StatusFailure:
		q.relink(n)
	case StatusResending, StatusResendingFinished:
		q.settleResend(n)
	}
}

// settleResend finishes a resend whose replacement is already linked and
// abandons one whose replacement never made it into the list.
func (q *Queue) settleResend(n *node) {
	if n.status.Load() == StatusResending {
		c := n.replacement.Load()
		if c == nil || !q.linked(c) {
			n.replacement.Store(nil)
			n.status.CompareAndSwap(StatusResending, StatusFailure)
			q.relink(n)
			return
		}
		n.status.CompareAndSwap(StatusResending, StatusResendingFinished)
	}
	if n.status.Load() == StatusResendingFinished {
		q.unlink(n)
		n.status.CompareAndSwap(StatusResendingFinished, StatusResendingFinishedCompleted)
	}
}

// linked reports whether c has been appended. Appenders advance a lagging
// tail before linking, so the last linked node is the tail or its
// successor.
func (q *Queue) linked(c *node) bool {
	if c.next.Load() != nil {
		return true
	}
	t := q.tail.Load()
	return t.Is(c) || t.next.Load().Is(c)
}

// successor returns the successor recorded at transaction start, or the
// current one if none was recorded.
func (q *Queue) successor(n *node) *node {
	if s := n.formerNext.Load(); s != nil {
		return s
	}
	return n.next.Load()
}

// unlink marks n removed and points its successor's back link past it.
func (q *Queue) unlink(n *node) {
	n.counter.Store(-1)
	if s := q.successor(n); s != nil {
		s.previous.CompareAndSwap(n, n.formerPrevious.Load())
	}
}

// relink undoes unlink for a node that stays in the list.
func (q *Queue) relink(n *node) {
	prev := n.formerPrevious.Load()
	if s := q.successor(n); s != nil && prev != nil {
		s.previous.CompareAndSwap(prev, n)
	}
}
