// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"github.com/heistp/advsched/internal/pqueue"
)

// boundedEntry links an entry's handle in one heap to its twin in the
// other, so an eviction on one side can be mirrored on the other.
type boundedEntry[T any] struct {
	tag       T
	minHandle pqueue.Handle
	maxHandle pqueue.Handle
}

// BoundedHeap is a size-capped priority queue backed by two heaps kept
// in lockstep: a min-heap that determines pop order, and a max-heap
// (metric negated) used only to find the lowest-priority entry to
// evict once the queue exceeds its capacity. This bounds memory for
// benchmark workloads where an unbounded WSJF heap would otherwise
// grow without limit under sustained attack traffic.
type BoundedHeap[T any] struct {
	maxSize int
	min     *pqueue.Queue[*boundedEntry[T]]
	max     *pqueue.Queue[*boundedEntry[T]]
}

// NewBoundedHeap returns an empty BoundedHeap with the given maximum size.
func NewBoundedHeap[T any](maxSize int) *BoundedHeap[T] {
	return &BoundedHeap[T]{
		maxSize: maxSize,
		min:     pqueue.New[*boundedEntry[T]](),
		max:     pqueue.New[*boundedEntry[T]](),
	}
}

func (h *BoundedHeap[T]) Len() int    { return h.min.Len() }
func (h *BoundedHeap[T]) Empty() bool { return h.min.Empty() }

// Peek returns the tag at the head of the min side, without popping.
func (h *BoundedHeap[T]) Peek() (T, bool) {
	e, ok := h.min.Top()
	if !ok {
		var zero T
		return zero, false
	}
	return e.tag, true
}

// Pop removes and returns the tag at the head of the min side.
func (h *BoundedHeap[T]) Pop() (T, bool) {
	e, ok := h.min.Pop()
	if !ok {
		var zero T
		return zero, false
	}
	h.max.Remove(e.maxHandle)
	return e.tag, true
}

// Push inserts tag with the given weight (ascending priority on the min
// side). If the queue is now over capacity, the lowest-priority entry
// is evicted and returned as (erased, true) -- this may be the pushed
// entry itself.
func (h *BoundedHeap[T]) Push(tag T, weight, insertTime float64) (erased T, evicted bool) {
	e := &boundedEntry[T]{tag: tag}
	e.minHandle = h.min.Push(e, weight, insertTime)
	e.maxHandle = h.max.Push(e, -weight, insertTime)

	if h.min.Len() > h.maxSize {
		worst, _ := h.max.Pop()
		h.min.Remove(worst.minHandle)
		return worst.tag, true
	}
	var zero T
	return zero, false
}
