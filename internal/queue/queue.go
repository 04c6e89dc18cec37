// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package queue implements the priority queue family: FCFS, SJF, WSJF,
// their in-order (per-flow) variants, fair queueing, and a bounded heap
// used by drop-tail/drop-max benchmark policies. Every variant satisfies
// the Queue interface, generalizing the polymorphic BaseQueue dispatch
// of the original design into a closed set of concrete types selected by
// a factory function.
package queue

import "github.com/heistp/advsched/internal/packet"

// Queue is the capability every scheduling policy exposes to the
// simulator and server.
type Queue interface {
	// Name returns the policy name (eg "fcfs", "wsjf_inorder").
	Name() string

	// Size returns the number of packets currently queued.
	Size() int

	// Empty reports whether the queue holds no packets.
	Empty() bool

	// Peek returns the packet that would be returned by Pop, without
	// removing it. Fails with an EmptyQueueError on an empty queue.
	Peek() (packet.Packet, error)

	// Pop removes and returns the highest-priority packet. Fails with
	// an EmptyQueueError on an empty queue.
	Pop() (packet.Packet, error)

	// Push admits a new packet. Every implementation but HFFS always
	// succeeds; HFFS can fail with a WeightOutOfRangeError when a
	// packet's ratio falls outside its bucket range.
	Push(p packet.Packet) error

	// FlowOrderMaintained reports whether, for any two packets sharing
	// a FlowID and pushed in order p then q, Pop returns p strictly
	// before q.
	FlowOrderMaintained() bool
}
