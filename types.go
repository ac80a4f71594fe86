// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

// Item is the immutable payload of a queued message.
type Item struct {
	ID   string
	Body []byte
}

// cell is a single stored value.
//
// Every field of a node lives in its own cell, so the queue algorithm is
// written once against this interface and the backend decides whether a
// field is a machine word or a file on disk.
type cell[E any] interface {
	Load() E
	Store(v E)
}

// atomicCell is a cell with compare-and-swap.
//
// CompareAndSwap stores v and reports true iff the current value equals
// old. For node links equality is node identity.
type atomicCell[E comparable] interface {
	cell[E]
	CompareAndSwap(old, v E) bool
}

// store creates and resolves nodes for one backend.
type store interface {
	// create returns a new unlinked node in status New carrying item.
	create(item Item, now int64) *node

	// anchors returns the head, tail and processed references.
	anchors() (head, tail, processed atomicCell[*node])

	close() error
}
