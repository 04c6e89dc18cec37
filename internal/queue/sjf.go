// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/pqueue"
	"github.com/heistp/advsched/internal/simerr"
)

// SJF is a shortest-job-first, per-packet min-heap queue: priority is
// the packet's estimated job size, with push order as the tiebreak (a
// per-queue push counter is passed as the insertion time). It does not
// maintain per-flow ordering.
type SJF struct {
	heap *pqueue.Queue[packet.Packet]
	seq  float64
}

// NewSJF returns an empty SJF queue.
func NewSJF() *SJF {
	return &SJF{heap: pqueue.New[packet.Packet]()}
}

func (q *SJF) Name() string { return "sjf" }
func (q *SJF) Size() int    { return q.heap.Len() }
func (q *SJF) Empty() bool  { return q.heap.Empty() }

func (q *SJF) Peek() (packet.Packet, error) {
	p, ok := q.heap.Top()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return p, nil
}

func (q *SJF) Pop() (packet.Packet, error) {
	p, ok := q.heap.Pop()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return p, nil
}

func (q *SJF) Push(p packet.Packet) error {
	q.heap.Push(p, float64(p.JobSizeEstimate), q.seq)
	q.seq++
	return nil
}

func (q *SJF) FlowOrderMaintained() bool { return false }
