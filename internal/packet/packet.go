// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package packet defines the immutable event record (Packet), its flow
// identity (FlowID) and TCP header, that flow through the scheduling
// subsystem.
package packet

import "fmt"

// Clock represents simulation time, in nanoseconds.
type Clock float64

// ClockInfinity represents an unreachable arrival time, used by
// generators that will never produce another packet (eg a disabled
// attack stream).
const ClockInfinity = Clock(1e18)

// InvalidJobSize is the sentinel job size meaning "this packet produces
// no work" (a SYN, a duplicate, an out-of-window segment, ...). A packet
// whose actual job size is InvalidJobSize is discarded by the simulator
// before it is ever queued.
const InvalidJobSize = Clock(-1)

// TrafficClass distinguishes innocent traffic from adversarial traffic.
type TrafficClass int

const (
	Innocent TrafficClass = iota
	Attack
)

// Tag returns the single-character log tag for the class ("I" or "A").
func (c TrafficClass) Tag() string {
	if c == Attack {
		return "A"
	}
	return "I"
}

func (c TrafficClass) String() string {
	if c == Attack {
		return "attack"
	}
	return "innocent"
}

// FlowID is the four-tuple identifying a flow: (src_ip, dst_ip, src_port,
// dst_port). Two FlowIDs are equal iff all four fields match, so FlowID
// is directly usable as a Go map key.
type FlowID struct {
	SrcIP   uint32
	DstIP   uint32
	SrcPort uint16
	DstPort uint16
}

// FlowIDFromUint32 injects a non-networking workload identifier into the
// low bits of a FlowID, for use by synthetic generators that have no
// real four-tuple.
func FlowIDFromUint32(v uint32) FlowID {
	return FlowID{SrcIP: v}
}

// String renders the hex encoding used by the packet log format:
// %08x%08x%04x%04x over (src_ip, dst_ip, src_port, dst_port).
func (f FlowID) String() string {
	return fmt.Sprintf("%08x%08x%04x%04x", f.SrcIP, f.DstIP, f.SrcPort, f.DstPort)
}

// TCPHeader carries the subset of TCP segment metadata the reassembly
// application needs. A zero-value TCPHeader is not valid (Valid is
// false), matching non-TCP or synthetic packets.
type TCPHeader struct {
	Valid         bool
	SYN, FIN, RST bool
	PSN           uint32 // Sequence number of the first payload byte.
	NextPSN       uint32 // Sequence number one past the last payload byte.
}

// Range returns the payload's half-open byte range [PSN, NextPSN).
func (h TCPHeader) Range() (uint32, uint32) {
	return h.PSN, h.NextPSN
}

// IsPassThrough reports whether this segment carries no payload bytes.
func (h TCPHeader) IsPassThrough() bool {
	return h.PSN == h.NextPSN
}

// IsFinOrRst reports whether the FIN or RST flag is set.
func (h TCPHeader) IsFinOrRst() bool {
	return h.FIN || h.RST
}

// Packet is a value-copy event record: it is owned by whichever
// component currently holds it (generator, simulator, queue, server).
type Packet struct {
	Idx       uint64 // Monotonically increasing identifier.
	FlowID    FlowID
	Class     TrafficClass
	SizeBits  uint32
	TCPHeader TCPHeader

	JobSizeEstimate Clock
	JobSizeActual   Clock

	ArriveTime Clock
	DepartTime Clock
}

// New returns a Packet with both job sizes set to the invalid sentinel.
func New(idx uint64, flow FlowID, class TrafficClass, sizeBits uint32) Packet {
	return Packet{
		Idx:             idx,
		FlowID:          flow,
		Class:           class,
		SizeBits:        sizeBits,
		JobSizeEstimate: InvalidJobSize,
		JobSizeActual:   InvalidJobSize,
	}
}

// Latency returns DepartTime - ArriveTime. The caller must ensure
// DepartTime has been set; the scheduling subsystem's invariant is that
// DepartTime >= ArriveTime once both are set.
func (p Packet) Latency() Clock {
	return p.DepartTime - p.ArriveTime
}

// LogLine renders the semicolon-separated packet log format from the
// external interface spec: arrive;depart;flow_id_hex;class_tag;
// psize_bits;jsize_est;jsize_actual, with two decimal digits.
func (p Packet) LogLine() string {
	return fmt.Sprintf("%.2f;%.2f;%s;%s;%d;%.2f;%.2f",
		p.ArriveTime, p.DepartTime, p.FlowID, p.Class.Tag(),
		p.SizeBits, p.JobSizeEstimate, p.JobSizeActual)
}
