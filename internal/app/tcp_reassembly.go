// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"container/list"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

const (
	tcpCostBase              = 116
	tcpCostPerTraversal      = 4
	tcpReassemblyWindowBytes = uint32(1) << 16

	// defaultMaxTrackedFlows bounds the flow-state map, since the
	// original design's unbounded per-flow map can grow without limit
	// under a sustained flood of distinct four-tuples.
	defaultMaxTrackedFlows = 65536
)

// psnRange is a half-open byte range [start, end) buffered out of order.
type psnRange struct {
	start, end uint32
}

// tcpFlowState is the out-of-order interval list and expected next
// sequence number for one TCP flow.
type tcpFlowState struct {
	oooList *list.List // of psnRange
	nextPSN uint32
}

func newTCPFlowState() *tcpFlowState {
	return &tcpFlowState{oooList: list.New()}
}

func toServiceTime(numTraversals int) packet.Clock {
	return packet.Clock(tcpCostBase + tcpCostPerTraversal*numTraversals)
}

// insertionPosition returns the element before which packet's range
// should be inserted (nil meaning the tail), and the number of list
// traversals needed to find it.
func (s *tcpFlowState) insertionPosition(nextPSN uint32) (*list.Element, int) {
	traversals := 0
	e := s.oooList.Front()
	for e != nil {
		traversals++
		if nextPSN <= e.Value.(psnRange).end {
			break
		}
		e = e.Next()
	}
	return e, traversals
}

// serviceTimeEstimate computes the expected job size for h without
// mutating flow state, used by the heuristic-mode estimate path.
func (s *tcpFlowState) serviceTimeEstimate(h packet.TCPHeader) packet.Clock {
	start, end := h.Range()

	switch {
	case h.SYN || s.nextPSN == 0:
		return packet.InvalidJobSize
	case s.oooList.Len() == 0 && s.nextPSN >= start:
		return packet.InvalidJobSize
	case start > s.nextPSN+tcpReassemblyWindowBytes:
		return packet.InvalidJobSize
	case s.nextPSN >= end:
		return packet.InvalidJobSize
	}
	return toServiceTime(s.oooList.Len())
}

// process inserts h's range into the OOO list, releasing any segments
// that become in-order, and returns the resulting service time.
func (s *tcpFlowState) process(h packet.TCPHeader) packet.Clock {
	start, end := h.Range()

	switch {
	case h.SYN || s.nextPSN == 0:
		if s.oooList.Len() == 0 {
			s.nextPSN = h.NextPSN
		}
		return packet.InvalidJobSize
	case s.oooList.Len() == 0 && s.nextPSN >= start:
		if end > s.nextPSN {
			s.nextPSN = end
		}
		return packet.InvalidJobSize
	case start > s.nextPSN+tcpReassemblyWindowBytes:
		return packet.InvalidJobSize
	case s.nextPSN >= end:
		return packet.InvalidJobSize
	}

	// Only link-list steps performed while draining released, in-order
	// intervals count toward the returned cost; the search for the
	// insertion point does not.
	nextElem, _ := s.insertionPosition(end)
	traversals := 0
	if s.nextPSN > start {
		start = s.nextPSN
	}

	if nextElem != nil {
		if r := nextElem.Value.(psnRange); end > r.start {
			end = r.start
		}
	}

	if firstElem := s.oooList.Front(); nextElem != firstElem {
		var prev *list.Element
		if nextElem == nil {
			prev = s.oooList.Back()
		} else {
			prev = nextElem.Prev()
		}
		for prev != firstElem && prev.Value.(psnRange).start >= start {
			toRemove := prev
			prev = prev.Prev()
			s.oooList.Remove(toRemove)
		}
		if prev != nil {
			if prev.Value.(psnRange).start >= start {
				s.oooList.Remove(prev)
			} else if prev.Value.(psnRange).end > start {
				start = prev.Value.(psnRange).end
			}
		}
	}

	if end > start {
		if nextElem == nil {
			s.oooList.PushBack(psnRange{start: start, end: end})
		} else {
			s.oooList.InsertBefore(psnRange{start: start, end: end}, nextElem)
		}

		for {
			head := s.oooList.Front()
			if head == nil {
				break
			}
			r := head.Value.(psnRange)
			if r.start != s.nextPSN {
				break
			}
			s.nextPSN = r.end
			s.oooList.Remove(head)
			traversals++
		}
	}
	return toServiceTime(traversals)
}

// TCPReassembly models TCP segment reassembly cost: in-order segments
// are free, while an out-of-order segment costs a fixed base plus a
// per-step charge for each buffered interval that is released in order
// once the segment has been inserted into its flow's interval list. In
// heuristic mode the estimate instead charges one step for every
// interval currently buffered. It requires
// per-flow packet ordering from its queue, since its state advances one
// packet at a time.
type TCPReassembly struct {
	params Parameters
	flows  *lru.Cache[packet.FlowID, *tcpFlowState]
}

// NewTCPReassembly returns a TCPReassembly application, bounding its
// flow-state table to maxTrackedFlows entries (defaultMaxTrackedFlows
// if zero).
func NewTCPReassembly(params Parameters, maxTrackedFlows int) (*TCPReassembly, error) {
	if maxTrackedFlows <= 0 {
		maxTrackedFlows = defaultMaxTrackedFlows
	}
	c, err := lru.New[packet.FlowID, *tcpFlowState](maxTrackedFlows)
	if err != nil {
		return nil, &simerr.ConfigError{Message: "tcp_reassembly: " + err.Error()}
	}
	return &TCPReassembly{params: params, flows: c}, nil
}

func (a *TCPReassembly) Type() string             { return "tcp_reassembly" }
func (a *TCPReassembly) IsFlowOrderRequired() bool { return true }

// processFlow runs the reassembly state machine for p, either mutating
// state (update=true) or just estimating (update=false).
func (a *TCPReassembly) processFlow(p packet.Packet, update bool) packet.Clock {
	h := p.TCPHeader
	if !h.Valid {
		return packet.InvalidJobSize
	}
	if h.IsFinOrRst() {
		if update {
			a.flows.Remove(p.FlowID)
		}
		return packet.InvalidJobSize
	}
	if h.IsPassThrough() {
		return packet.InvalidJobSize
	}

	if update {
		state, ok := a.flows.Get(p.FlowID)
		if !ok {
			state = newTCPFlowState()
			a.flows.Add(p.FlowID, state)
		}
		return a.params.ToJobSize(state.process(h))
	}
	state, ok := a.flows.Get(p.FlowID)
	if !ok {
		return packet.InvalidJobSize
	}
	return a.params.ToJobSize(state.serviceTimeEstimate(h))
}

func (a *TCPReassembly) Process(p packet.Packet) (packet.Clock, error) {
	if p.Class == packet.Attack {
		if p.JobSizeActual < 0 {
			return 0, &simerr.InvalidJobSizeError{}
		}
		return p.JobSizeActual, nil
	}
	if a.params.UseHeuristic {
		return a.processFlow(p, true), nil
	}
	// In oracle mode, processing already happened during estimation.
	return p.JobSizeEstimate, nil
}

func (a *TCPReassembly) JobSizeEstimate(p packet.Packet) (packet.Clock, error) {
	if p.Class == packet.Attack {
		if p.JobSizeEstimate < 0 {
			return 0, &simerr.InvalidJobSizeError{}
		}
		return p.JobSizeEstimate, nil
	}
	// In oracle mode, this is the only point where the packet is
	// actually processed. The queue guarantees same-flow packets are
	// served in arrival order, so flow state stays valid to advance here.
	return a.processFlow(p, !a.params.UseHeuristic), nil
}
