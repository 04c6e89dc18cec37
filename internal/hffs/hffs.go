// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package hffs implements the Hierarchical Find-First-Set Queue: an
// O(1)-per-operation approximate priority queue over a bounded weight
// range, built from a tree of 32-way bitmaps. It is grounded directly on
// scheduler/heaps/hffs_queue/software/hffs_queue.hpp from the original
// design, translated from ctz/clz bit tricks to bits.TrailingZeros32 /
// bits.LeadingZeros32.
package hffs

import (
	"math/bits"

	"github.com/heistp/advsched/internal/simerr"
)

// levelState memoizes the (bitmap index, chosen bit) pair visited at
// each level during a pop, so the upward bitmap clear is O(levels).
type levelState struct {
	bitmapIdx  int
	nonzeroBit int
}

// Queue is a hierarchical find-first-set approximate priority queue over
// Tag values, bucketed by an integer weight in [0, numBuckets).
type Queue[T any] struct {
	scaleFactor float64
	numBuckets  int
	numLevels   int
	levelOffset []int
	bitmaps     []uint32
	buckets     [][]T
	levelStack  []levelState
	size        int
}

// New returns a Queue with numBuckets leaf buckets and the given scale
// factor, used to convert a (numerator, denominator) weight into a
// bucket index: bucket = floor(numerator*scaleFactor / denominator).
func New[T any](numBuckets int, scaleFactor float64) *Queue[T] {
	q := &Queue[T]{scaleFactor: scaleFactor, numBuckets: numBuckets}
	q.init()
	return q
}

func (q *Queue[T]) init() {
	q.numLevels = 1
	numBitmaps := 1
	currentBuckets := 32
	q.levelOffset = []int{0}

	for q.numBuckets > currentBuckets {
		q.levelOffset = append(q.levelOffset, numBitmaps)
		numBitmaps += currentBuckets
		currentBuckets *= 32
		q.numLevels++
	}
	q.bitmaps = make([]uint32, numBitmaps)
	q.levelStack = make([]levelState, q.numLevels)
	q.buckets = make([][]T, q.numBuckets)
}

// Size returns the number of tags currently queued.
func (q *Queue[T]) Size() int { return q.size }

// NumBuckets returns the number of leaf buckets the queue was created with.
func (q *Queue[T]) NumBuckets() int { return q.numBuckets }

// Empty reports whether the queue has no tags.
func (q *Queue[T]) Empty() bool { return q.size == 0 }

// bucketIndex computes floor(numerator*scaleFactor/denominator) and
// validates it is within range.
func (q *Queue[T]) bucketIndex(numerator, denominator float64) (int, error) {
	b := int((numerator * q.scaleFactor) / denominator)
	if b < 0 || b >= q.numBuckets {
		return 0, &simerr.WeightOutOfRangeError{Bucket: b, NumBuckets: q.numBuckets}
	}
	return b, nil
}

// Push inserts tag into the bucket selected by (numerator, denominator).
func (q *Queue[T]) Push(tag T, numerator, denominator float64) error {
	b, err := q.bucketIndex(numerator, denominator)
	if err != nil {
		return err
	}
	q.pushBucket(tag, b)
	return nil
}

// PushBucket inserts tag directly into bucket b, bypassing weight
// scaling. It exists for callers (and tests) that already know the
// target bucket index.
func (q *Queue[T]) PushBucket(tag T, b int) error {
	if b < 0 || b >= q.numBuckets {
		return &simerr.WeightOutOfRangeError{Bucket: b, NumBuckets: q.numBuckets}
	}
	q.pushBucket(tag, b)
	return nil
}

func (q *Queue[T]) pushBucket(tag T, b int) {
	update := len(q.buckets[b]) == 0
	q.buckets[b] = append(q.buckets[b], tag)

	bitIdx := b & 0x1F
	intraLevelBitmapIdx := b / 32
	for level := q.numLevels - 1; level >= 0 && update; level-- {
		bitmapIdx := q.levelOffset[level] + intraLevelBitmapIdx
		update = q.bitmaps[bitmapIdx] == 0
		q.bitmaps[bitmapIdx] |= 1 << uint(bitIdx)

		bitIdx = intraLevelBitmapIdx & 0x1F
		intraLevelBitmapIdx /= 32
	}
	q.size++
}

// PopMin pops (and returns) the tag in the lowest-indexed non-empty
// bucket, FIFO within that bucket.
func (q *Queue[T]) PopMin() (T, error) { return q.pop(true) }

// PopMax pops (and returns) the tag in the highest-indexed non-empty
// bucket, FIFO within that bucket.
func (q *Queue[T]) PopMax() (T, error) { return q.pop(false) }

// PeekMin returns the tag that PopMin would return, without removing it.
func (q *Queue[T]) PeekMin() (T, error) { return q.peek(true) }

// PeekMax returns the tag that PopMax would return, without removing it.
func (q *Queue[T]) PeekMax() (T, error) { return q.peek(false) }

func (q *Queue[T]) peek(isMin bool) (T, error) {
	var zero T
	if q.Empty() {
		return zero, &simerr.EmptyQueueError{Queue: "hffs"}
	}
	intraLevelBitmapIdx := 0
	for level := 0; level < q.numLevels; level++ {
		bitmapIdx := q.levelOffset[level] + intraLevelBitmapIdx
		bm := q.bitmaps[bitmapIdx]

		var bitIdx int
		if isMin {
			bitIdx = bits.TrailingZeros32(bm)
		} else {
			bitIdx = 31 - bits.LeadingZeros32(bm)
		}
		intraLevelBitmapIdx = (intraLevelBitmapIdx * 32) + bitIdx
	}
	return q.buckets[intraLevelBitmapIdx][0], nil
}

func (q *Queue[T]) pop(isMin bool) (T, error) {
	var zero T
	if q.Empty() {
		return zero, &simerr.EmptyQueueError{Queue: "hffs"}
	}
	intraLevelBitmapIdx := 0
	for level := 0; level < q.numLevels; level++ {
		bitmapIdx := q.levelOffset[level] + intraLevelBitmapIdx
		bm := q.bitmaps[bitmapIdx]

		var bitIdx int
		if isMin {
			bitIdx = bits.TrailingZeros32(bm)
		} else {
			bitIdx = 31 - bits.LeadingZeros32(bm)
		}
		q.levelStack[level] = levelState{bitmapIdx: bitmapIdx, nonzeroBit: bitIdx}
		intraLevelBitmapIdx = (intraLevelBitmapIdx * 32) + bitIdx
	}
	bucketIdx := intraLevelBitmapIdx
	bucket := q.buckets[bucketIdx]
	tag := bucket[0]
	q.buckets[bucketIdx] = bucket[1:]

	update := len(q.buckets[bucketIdx]) == 0
	for level := q.numLevels - 1; level >= 0 && update; level-- {
		mask := ^(uint32(1) << uint(q.levelStack[level].nonzeroBit))
		bitmapIdx := q.levelStack[level].bitmapIdx
		q.bitmaps[bitmapIdx] &= mask
		update = q.bitmaps[bitmapIdx] == 0
	}
	q.size--
	return tag, nil
}
