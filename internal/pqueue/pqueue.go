// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package pqueue implements a generic indexed binary min-heap with
// decrease-key support, generalizing the container/heap-based packet
// buffer pattern from the teacher simulator into a reusable priority
// queue with stable handles. It plays the role the original C++ core
// filled with boost::heap::binomial_heap handles: the in-order flow
// queues and the fair-queueing queue need to update an entry's key in
// place without losing track of its position.
package pqueue

import "container/heap"

// Handle identifies an entry for later Update/Remove calls. Handles
// remain valid for the lifetime of the entry, even as the heap
// reorders itself.
type Handle int

// entry is one element of the heap.
type entry[T any] struct {
	tag        T
	metric     float64
	insertTime float64
	seq        uint64 // tiebreak for equal (metric, insertTime) pairs
	handle     Handle
	index      int // current position in the backing slice
}

// Queue is a min-heap of (tag, metric) pairs ordered by metric, then by
// insertion time, then by insertion sequence number, matching the
// MinHeapEntry tiebreak rule from the original design: on equal metric,
// the earlier-inserted entry sorts first.
type Queue[T any] struct {
	entries  []*entry[T]
	byHandle map[Handle]*entry[T]
	nextID   Handle
	nextSeq  uint64
}

// New returns an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{byHandle: make(map[Handle]*entry[T])}
}

// Len returns the number of entries in the queue.
func (q *Queue[T]) Len() int { return len(q.entries) }

// Empty reports whether the queue has no entries.
func (q *Queue[T]) Empty() bool { return len(q.entries) == 0 }

// Push inserts tag with the given metric and insertion time, and returns
// a handle for later updates.
func (q *Queue[T]) Push(tag T, metric float64, insertTime float64) Handle {
	h := q.nextID
	q.nextID++
	e := &entry[T]{tag: tag, metric: metric, insertTime: insertTime,
		seq: q.nextSeq, handle: h}
	q.nextSeq++
	q.byHandle[h] = e
	heap.Push((*heapAdapter[T])(q), e)
	return h
}

// Top returns the tag with the smallest metric without removing it.
func (q *Queue[T]) Top() (T, bool) {
	if q.Empty() {
		var zero T
		return zero, false
	}
	return q.entries[0].tag, true
}

// Pop removes and returns the tag with the smallest metric.
func (q *Queue[T]) Pop() (T, bool) {
	if q.Empty() {
		var zero T
		return zero, false
	}
	e := heap.Pop((*heapAdapter[T])(q)).(*entry[T])
	delete(q.byHandle, e.handle)
	return e.tag, true
}

// Update changes the metric of the entry referenced by h and restores
// heap order. It is the decrease-key primitive the in-order flow queues
// rely on.
func (q *Queue[T]) Update(h Handle, metric float64) {
	e, ok := q.byHandle[h]
	if !ok {
		return
	}
	e.metric = metric
	heap.Fix((*heapAdapter[T])(q), e.index)
}

// Remove deletes the entry referenced by h from the queue.
func (q *Queue[T]) Remove(h Handle) (T, bool) {
	e, ok := q.byHandle[h]
	if !ok {
		var zero T
		return zero, false
	}
	removed := heap.Remove((*heapAdapter[T])(q), e.index).(*entry[T])
	delete(q.byHandle, h)
	return removed.tag, true
}

// heapAdapter implements container/heap.Interface over Queue.entries.
type heapAdapter[T any] Queue[T]

func (a *heapAdapter[T]) Len() int { return len(a.entries) }

func (a *heapAdapter[T]) Less(i, j int) bool {
	ei, ej := a.entries[i], a.entries[j]
	if ei.metric != ej.metric {
		return ei.metric < ej.metric
	}
	if ei.insertTime != ej.insertTime {
		return ei.insertTime < ej.insertTime
	}
	return ei.seq < ej.seq
}

func (a *heapAdapter[T]) Swap(i, j int) {
	a.entries[i], a.entries[j] = a.entries[j], a.entries[i]
	a.entries[i].index = i
	a.entries[j].index = j
}

func (a *heapAdapter[T]) Push(x any) {
	e := x.(*entry[T])
	e.index = len(a.entries)
	a.entries = append(a.entries, e)
}

func (a *heapAdapter[T]) Pop() any {
	old := a.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	a.entries = old[:n-1]
	return e
}
