// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"strconv"

	"code.hybscloud.com/atomix"
)

// memoryStore keeps nodes on the Go heap. Unreachable nodes are collected
// by the garbage collector once no cell refers to them.
type memoryStore struct {
	seq                   atomix.Uint64
	head, tail, processed *memAtomic[*node]
}

func newMemoryStore() *memoryStore {
	s := &memoryStore{}
	dummy := s.node("0", Item{}, 0)
	dummy.status.Store(StatusCompleted)
	s.head = newMemAtomic(dummy)
	s.tail = newMemAtomic(dummy)
	s.processed = newMemAtomic(dummy)
	return s
}

func (s *memoryStore) create(item Item, now int64) *node {
	id := strconv.FormatUint(s.seq.AddAcqRel(1), 10)
	return s.node(id, item, now)
}

func (s *memoryStore) node(id string, item Item, now int64) *node {
	return &node{
		id:             id,
		item:           newMemCell(item),
		next:           newMemAtomic[*node](nil),
		previous:       newMemAtomic[*node](nil),
		lock:           newMemAtomic[*node](nil),
		status:         newMemWord(StatusNew),
		counter:        newMemWord[int64](-1),
		batchStart:     newMemCell[*node](nil),
		batchEnd:       newMemAtomic[*node](nil),
		created:        newMemWord(now),
		sent:           newMemWord[int64](0),
		resent:         newMemWord[int64](0),
		dirty:          newMemAtomic(false),
		started:        newMemWord[int64](0),
		formerNext:     newMemCell[*node](nil),
		formerPrevious: newMemCell[*node](nil),
		replacement:    newMemCell[*node](nil),
		syncing:        newMemAtomic(false),
	}
}

func (s *memoryStore) anchors() (head, tail, processed atomicCell[*node]) {
	return s.head, s.tail, s.processed
}

func (s *memoryStore) close() error { return nil }
