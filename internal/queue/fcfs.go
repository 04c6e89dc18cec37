// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"container/list"

	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// FCFS is a first-come-first-served, per-packet FIFO queue.
type FCFS struct {
	packets *list.List
}

// NewFCFS returns an empty FCFS queue.
func NewFCFS() *FCFS {
	return &FCFS{packets: list.New()}
}

func (q *FCFS) Name() string { return "fcfs" }
func (q *FCFS) Size() int    { return q.packets.Len() }
func (q *FCFS) Empty() bool  { return q.packets.Len() == 0 }

func (q *FCFS) Peek() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	return q.packets.Front().Value.(packet.Packet), nil
}

func (q *FCFS) Pop() (packet.Packet, error) {
	if q.Empty() {
		return packet.Packet{}, &simerr.EmptyQueueError{Queue: q.Name()}
	}
	e := q.packets.Front()
	q.packets.Remove(e)
	return e.Value.(packet.Packet), nil
}

func (q *FCFS) Push(p packet.Packet) error {
	q.packets.PushBack(p)
	return nil
}

func (q *FCFS) FlowOrderMaintained() bool { return true }
