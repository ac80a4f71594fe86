// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

// node is one message envelope plus its queue bookkeeping.
//
// Every field is a cell so the same node logic runs over memory and disk.
// next is append-only: once set it never changes. previous, status and the
// transaction fields are mutated inside a node transaction (see txn.go).
type node struct {
	id   string
	item cell[Item]

	next     atomicCell[*node]
	previous atomicCell[*node]
	lock     atomicCell[*node] // node owning the critical section on this node

	status  atomicCell[Status]
	counter atomicCell[int64] // position in the batch segment, -1 once removed

	// batchStart is the first node of this node's segment. batchEnd is
	// only meaningful on a segment's first node: the furthest node
	// appended to the segment so far.
	batchStart cell[*node]
	batchEnd   atomicCell[*node]

	created cell[int64]
	sent    cell[int64]
	resent  cell[int64]

	dirty          atomicCell[bool]
	started        cell[int64]
	formerNext     cell[*node]
	formerPrevious cell[*node]
	replacement    cell[*node] // copy re-appended by an in-flight resend
	syncing        atomicCell[bool]
}

// Is reports whether n and o are the same node.
// Disk nodes may be rehydrated more than once, so identity is the id.
func (n *node) Is(o *node) bool {
	if n == o {
		return true
	}
	return n != nil && o != nil && n.id == o.id
}

func (n *node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.id
}
