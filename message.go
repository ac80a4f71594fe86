// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import "fmt"

// Message is a leased message returned by Poll.
//
// Exactly one of Commit or Fail should be called before the lease times
// out. A message whose lease expired is redelivered, and Commit or Fail on
// it then returns [ErrNotLeased].
type Message struct {
	ID   string
	Body []byte

	q *Queue
	n *node
}

// Commit acknowledges the message. It is not delivered again.
func (m *Message) Commit() (err error) {
	if m.q.closed.Load() {
		return ErrClosed
	}
	defer m.q.guard(&err, "commit")
	if !m.q.processSuccess(m.n, true) {
		return fmt.Errorf("%w: %s", ErrNotLeased, m.ID)
	}
	m.q.stats.committed.Add(1)
	return nil
}

// Fail rejects the message. It is appended again and delivered by a later
// poll.
func (m *Message) Fail() (err error) {
	if m.q.closed.Load() {
		return ErrClosed
	}
	defer m.q.guard(&err, "fail")
	if !m.q.processFailure(m.n, true) {
		return fmt.Errorf("%w: %s", ErrNotLeased, m.ID)
	}
	m.q.stats.failed.Add(1)
	return nil
}
