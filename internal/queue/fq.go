// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/pqueue"
	"github.com/heistp/advsched/internal/simerr"
)

// fqFlowMeta tracks a flow's virtual clock and queued packet count.
type fqFlowMeta struct {
	numPackets   int
	virtualClock float64
}

// FQ implements start-time fair queueing over estimated service time:
// each flow carries a virtual clock that advances by the estimated job
// size on every push, reset to (arrival time + estimate) whenever the
// flow's backlog was empty. Packets are ordered globally by their
// virtual clock at insertion time.
type FQ struct {
	flows map[packet.FlowID]*fqFlowMeta
	heap  *pqueue.Queue[packet.Packet]
	size  int
}

// NewFQ returns an empty FQ queue.
func NewFQ() *FQ {
	return &FQ{
		flows: make(map[packet.FlowID]*fqFlowMeta),
		heap:  pqueue.New[packet.Packet](),
	}
}

func (q *FQ) Name() string { return "fq" }
func (q *FQ) Size() int    { return q.size }
func (q *FQ) Empty() bool  { return q.size == 0 }

func (q *FQ) Peek() (packet.Packet, error) {
	p, ok := q.heap.Top()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return p, nil
}

func (q *FQ) Pop() (packet.Packet, error) {
	p, ok := q.heap.Pop()
	if !ok {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	meta := q.flows[p.FlowID]
	meta.numPackets--
	if meta.numPackets == 0 {
		delete(q.flows, p.FlowID)
	}
	q.size--
	return p, nil
}

func (q *FQ) Push(p packet.Packet) error {
	meta, ok := q.flows[p.FlowID]
	if !ok {
		meta = &fqFlowMeta{}
		q.flows[p.FlowID] = meta
	}
	if meta.numPackets == 0 {
		meta.virtualClock = float64(p.ArriveTime) + float64(p.JobSizeEstimate)
	} else {
		meta.virtualClock += float64(p.JobSizeEstimate)
	}
	meta.numPackets++

	q.heap.Push(p, meta.virtualClock, float64(p.ArriveTime))
	q.size++
	return nil
}

func (q *FQ) FlowOrderMaintained() bool { return true }
