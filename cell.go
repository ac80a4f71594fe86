// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// memCell holds an arbitrary value behind an atomic pointer.
// Each Store publishes a fresh box, so a Load never sees a torn value.
type memCell[E any] struct {
	p atomic.Pointer[E]
}

func newMemCell[E any](v E) *memCell[E] {
	c := &memCell[E]{}
	c.p.Store(&v)
	return c
}

func (c *memCell[E]) Load() E { return *c.p.Load() }

func (c *memCell[E]) Store(v E) { c.p.Store(&v) }

// memAtomic adds value-comparing CAS to memCell.
type memAtomic[E comparable] struct {
	memCell[E]
}

func newMemAtomic[E comparable](v E) *memAtomic[E] {
	c := &memAtomic[E]{}
	c.p.Store(&v)
	return c
}

func (c *memAtomic[E]) CompareAndSwap(old, v E) bool {
	box := &v
	for {
		cur := c.p.Load()
		if *cur != old {
			return false
		}
		// A concurrent Store of an equal value swaps the box; retry
		// against the new one.
		if c.p.CompareAndSwap(cur, box) {
			return true
		}
	}
}

// word is the set of field types that fit in one machine word.
type word interface {
	~int64 | ~uint8
}

// memWord is a word-sized field on a single atomix register.
type memWord[E word] struct {
	v atomix.Uint64
}

func newMemWord[E word](v E) *memWord[E] {
	c := &memWord[E]{}
	c.v.StoreRelease(uint64(v))
	return c
}

func (c *memWord[E]) Load() E { return E(c.v.LoadAcquire()) }

func (c *memWord[E]) Store(v E) { c.v.StoreRelease(uint64(v)) }

func (c *memWord[E]) CompareAndSwap(old, v E) bool {
	return c.v.CompareAndSwapAcqRel(uint64(old), uint64(v))
}
