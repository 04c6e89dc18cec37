// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"github.com/heistp/advsched/internal/hffs"
	"github.com/heistp/advsched/internal/packet"
)

// HFFS approximates WSJF ordering with O(1) push/pop by bucketing
// packets on job-size-to-packet-size ratio using a hierarchical
// find-first-set queue, trading exact ordering for constant-time
// operations. Packets within a bucket are FIFO, so relative order
// across widely different ratios is preserved only approximately.
type HFFS struct {
	q    *hffs.Queue[packet.Packet]
	size int
}

// NewHFFS returns an empty HFFS queue with numBuckets buckets spanning
// job-size/packet-size ratios up to numBuckets/scaleFactor.
func NewHFFS(numBuckets int, scaleFactor float64) *HFFS {
	return &HFFS{q: hffs.New[packet.Packet](numBuckets, scaleFactor)}
}

func (q *HFFS) Name() string { return "hffs" }
func (q *HFFS) Size() int    { return q.size }
func (q *HFFS) Empty() bool  { return q.size == 0 }

func (q *HFFS) Peek() (packet.Packet, error) {
	return q.q.PeekMin()
}

func (q *HFFS) Pop() (packet.Packet, error) {
	p, err := q.q.PopMin()
	if err != nil {
		return packet.Packet{}, err
	}
	q.size--
	return p, nil
}

func (q *HFFS) Push(p packet.Packet) error {
	if err := q.q.Push(p, float64(p.JobSizeEstimate), float64(p.SizeBits)); err != nil {
		return err
	}
	q.size++
	return nil
}

func (q *HFFS) FlowOrderMaintained() bool { return false }
