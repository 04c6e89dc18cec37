// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"container/list"

	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/pqueue"
	"github.com/heistp/advsched/internal/simerr"
)

// wsjfFlowMeta is the per-flow bookkeeping for WSJFInorder: a FIFO of
// queued packets for the flow, cumulative estimated job size and packet
// size across them, and the flow's handle into the priority heap.
type wsjfFlowMeta struct {
	fifo       *list.List
	totalJSize float64
	totalPSize float64
	handle     pqueue.Handle
}

func (m *wsjfFlowMeta) ratio() float64 {
	return m.totalJSize / m.totalPSize
}

// WSJFInorder schedules per-flow head-of-line packets in increasing
// order of a flow's aggregate job-size-to-packet-size ratio
// (Sigma(J_i) / Sigma(P_i)), while preserving FIFO order within each
// flow.
type WSJFInorder struct {
	flows      map[packet.FlowID]*wsjfFlowMeta
	priorities *pqueue.Queue[packet.FlowID]
	size       int
	seq        float64
}

// NewWSJFInorder returns an empty WSJFInorder queue.
func NewWSJFInorder() *WSJFInorder {
	return &WSJFInorder{
		flows:      make(map[packet.FlowID]*wsjfFlowMeta),
		priorities: pqueue.New[packet.FlowID](),
	}
}

func (q *WSJFInorder) Name() string { return "wsjf_inorder" }
func (q *WSJFInorder) Size() int    { return q.size }
func (q *WSJFInorder) Empty() bool  { return q.size == 0 }

func (q *WSJFInorder) Peek() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	fid, _ := q.priorities.Top()
	return q.flows[fid].fifo.Front().Value.(packet.Packet), nil
}

func (q *WSJFInorder) Pop() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	fid, _ := q.priorities.Top()
	meta := q.flows[fid]

	e := meta.fifo.Front()
	p := e.Value.(packet.Packet)
	meta.fifo.Remove(e)
	meta.totalJSize -= float64(p.JobSizeEstimate)
	meta.totalPSize -= float64(p.SizeBits)

	if meta.fifo.Len() > 0 {
		q.priorities.Update(meta.handle, meta.ratio())
	} else {
		q.priorities.Pop()
		delete(q.flows, fid)
	}
	q.size--
	return p, nil
}

func (q *WSJFInorder) Push(p packet.Packet) error {
	fid := p.FlowID
	meta, ok := q.flows[fid]
	if !ok {
		meta = &wsjfFlowMeta{fifo: list.New()}
		meta.fifo.PushBack(p)
		meta.totalJSize = float64(p.JobSizeEstimate)
		meta.totalPSize = float64(p.SizeBits)
		meta.handle = q.priorities.Push(fid, meta.ratio(), q.seq)
		q.flows[fid] = meta
	} else {
		meta.fifo.PushBack(p)
		meta.totalJSize += float64(p.JobSizeEstimate)
		meta.totalPSize += float64(p.SizeBits)
		q.priorities.Update(meta.handle, meta.ratio())
	}
	q.seq++
	q.size++
	return nil
}

func (q *WSJFInorder) FlowOrderMaintained() bool { return true }
