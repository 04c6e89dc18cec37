// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"container/list"

	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/pqueue"
	"github.com/heistp/advsched/internal/simerr"
)

// sjfFlowMeta is the per-flow bookkeeping for SJFInorder: a FIFO of
// queued packets for the flow, the cumulative estimated job size across
// them, and the flow's handle into the priority heap.
type sjfFlowMeta struct {
	fifo       *list.List
	totalJSize float64
	handle     pqueue.Handle
}

func (m *sjfFlowMeta) ratio() float64 {
	return m.totalJSize / float64(m.fifo.Len())
}

// SJFInorder schedules per-flow head-of-line packets in increasing order
// of a flow's mean estimated job size (Sigma(J_i) / n), while preserving
// FIFO order within each flow.
type SJFInorder struct {
	flows      map[packet.FlowID]*sjfFlowMeta
	priorities *pqueue.Queue[packet.FlowID]
	size       int
	seq        float64
}

// NewSJFInorder returns an empty SJFInorder queue.
func NewSJFInorder() *SJFInorder {
	return &SJFInorder{
		flows:      make(map[packet.FlowID]*sjfFlowMeta),
		priorities: pqueue.New[packet.FlowID](),
	}
}

func (q *SJFInorder) Name() string { return "sjf_inorder" }
func (q *SJFInorder) Size() int    { return q.size }
func (q *SJFInorder) Empty() bool  { return q.size == 0 }

func (q *SJFInorder) Peek() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	fid, _ := q.priorities.Top()
	return q.flows[fid].fifo.Front().Value.(packet.Packet), nil
}

func (q *SJFInorder) Pop() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	fid, _ := q.priorities.Top()
	meta := q.flows[fid]

	e := meta.fifo.Front()
	p := e.Value.(packet.Packet)
	meta.fifo.Remove(e)
	meta.totalJSize -= float64(p.JobSizeEstimate)

	if meta.fifo.Len() > 0 {
		q.priorities.Update(meta.handle, meta.ratio())
	} else {
		q.priorities.Pop()
		delete(q.flows, fid)
	}
	q.size--
	return p, nil
}

func (q *SJFInorder) Push(p packet.Packet) error {
	fid := p.FlowID
	meta, ok := q.flows[fid]
	if !ok {
		meta = &sjfFlowMeta{fifo: list.New()}
		meta.fifo.PushBack(p)
		meta.totalJSize = float64(p.JobSizeEstimate)
		meta.handle = q.priorities.Push(fid, meta.ratio(), q.seq)
		q.flows[fid] = meta
	} else {
		meta.fifo.PushBack(p)
		meta.totalJSize += float64(p.JobSizeEstimate)
		q.priorities.Update(meta.handle, meta.ratio())
	}
	q.seq++
	q.size++
	return nil
}

func (q *SJFInorder) FlowOrderMaintained() bool { return true }
