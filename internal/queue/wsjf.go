// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/pqueue"
	"github.com/heistp/advsched/internal/simerr"
)

// WSJF is a weighted-shortest-job-first, per-packet min-heap queue:
// priority is job size divided by packet size (j/p). It does not
// maintain per-flow ordering.
type WSJF struct {
	heap *pqueue.Queue[packet.Packet]
	seq  float64
}

// NewWSJF returns an empty WSJF queue.
func NewWSJF() *WSJF {
	return &WSJF{heap: pqueue.New[packet.Packet]()}
}

func (q *WSJF) Name() string { return "wsjf" }
func (q *WSJF) Size() int    { return q.heap.Len() }
func (q *WSJF) Empty() bool  { return q.heap.Empty() }

func (q *WSJF) Peek() (packet.Packet, error) {
	p, ok := q.heap.Top()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return p, nil
}

func (q *WSJF) Pop() (packet.Packet, error) {
	p, ok := q.heap.Pop()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return p, nil
}

func (q *WSJF) Push(p packet.Packet) error {
	q.heap.Push(p, float64(p.JobSizeEstimate)/float64(p.SizeBits), q.seq)
	q.seq++
	return nil
}

func (q *WSJF) FlowOrderMaintained() bool { return false }
