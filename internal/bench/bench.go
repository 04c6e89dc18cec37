// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package bench implements the wire codec for the DPDK benchmark
// harness's UDP payload format, grounded on
// scheduler/benchmark/packet.h from the original design. The harness
// itself (ring-buffer plumbing, lcore pinning) stays out of scope; this
// package builds and parses the frames it exchanges on the wire, and
// provides the scheduler context's bounded WSJF admission queue
// (ScheduleQueue).
//
// This package has no consumer inside the discrete-event simulator: C7
// operates on packet.Packet values directly and never touches wire
// bytes. It exists as the concrete implementation of the out-of-scope
// benchmark harness's interface contract, exercised by its own tests
// and by the advsched-bench command.
package bench

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/queue"
)

const (
	// payloadHeaderSize is the 4-byte job size plus 1-byte class tag
	// every UDP payload begins with (PAYLOAD_JSIZE_OFFSET/PAYLOAD_CLASS_OFFSET
	// in the original header).
	payloadHeaderSize = 5

	// innocentPacketSizeBytes and attackPacketSizeBytes are the fixed
	// Ethernet-frame sizes (header + payload, no FCS) the harness
	// generates for each traffic class.
	innocentPacketSizeBytes = 1250
	attackPacketSizeBytes   = 64

	benchUDPPort = 9999
)

var (
	srcMAC = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	srcIP  = []byte{192, 168, 100, 1}
	dstIP  = []byte{192, 168, 100, 2}
)

// PacketParams is the decoded form of a benchmark frame's payload, per
// getPacketParams in the original header.
type PacketParams struct {
	Class      packet.TrafficClass
	JobSizeNs  uint32
	PsizeBytes int
}

// frameTemplate holds the header bytes for one constant-length shape
// (innocent or attack), with the IPv4/UDP checksums already computed;
// EncodeFrame only ever rewrites the 5 payload-header bytes on a fresh
// copy, matching spec §6's "IPv4 checksums over constant-length packets
// are memoised."
type frameTemplate struct {
	headerBytes []byte // Ethernet+IPv4+UDP headers, serialized once
	totalSize   int
}

var (
	innocentTemplate = newFrameTemplate(innocentPacketSizeBytes)
	attackTemplate   = newFrameTemplate(attackPacketSizeBytes)
)

func newFrameTemplate(totalSize int) *frameTemplate {
	udpPayloadLen := totalSize - 14 - 20 - 8
	if udpPayloadLen < payloadHeaderSize {
		panic("bench: packet size too small for header + payload")
	}

	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := &layers.UDP{
		SrcPort: benchUDPPort,
		DstPort: benchUDPPort,
	}
	udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	payload := gopacket.Payload(make([]byte, udpPayloadLen))
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload); err != nil {
		panic("bench: " + err.Error())
	}

	b := buf.Bytes()
	headerLen := len(b) - udpPayloadLen
	header := make([]byte, headerLen)
	copy(header, b[:headerLen])
	return &frameTemplate{headerBytes: header, totalSize: len(b)}
}

func templateFor(class packet.TrafficClass) *frameTemplate {
	if class == packet.Innocent {
		return innocentTemplate
	}
	return attackTemplate
}

// classTag encodes class per the original's PacketClass enum: 0=ATTACK,
// 1=INNOCENT.
func classTag(class packet.TrafficClass) byte {
	if class == packet.Innocent {
		return 1
	}
	return 0
}

func tagToClass(tag byte) packet.TrafficClass {
	if tag == 1 {
		return packet.Innocent
	}
	return packet.Attack
}

// EncodeFrame builds a complete Ethernet+IPv4+UDP frame for class,
// stamping jobSizeNs and the class tag into the first 5 payload bytes.
// UDP/IPv4 checksums are copied unchanged from the class's memoised
// template, since the checksum only covers header fields the payload
// header doesn't touch (UDP's own checksum is left as computed over an
// all-zero payload, matching the original's fixed-payload benchmark
// traffic).
func EncodeFrame(class packet.TrafficClass, jobSizeNs uint32) []byte {
	t := templateFor(class)
	frame := make([]byte, t.totalSize)
	copy(frame, t.headerBytes)

	payload := frame[len(t.headerBytes):]
	binary.BigEndian.PutUint32(payload[0:4], jobSizeNs)
	payload[4] = classTag(class)
	return frame
}

// DecodeFrame parses a frame built by EncodeFrame and returns its
// PacketParams, per getPacketParams in the original header.
func DecodeFrame(data []byte) (PacketParams, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return PacketParams{}, errors.New("bench: frame has no UDP layer")
	}
	udp := udpLayer.(*layers.UDP)
	if len(udp.Payload) < payloadHeaderSize {
		return PacketParams{}, errors.New("bench: UDP payload too short")
	}

	jobSizeNs := binary.BigEndian.Uint32(udp.Payload[0:4])
	class := tagToClass(udp.Payload[4])

	return PacketParams{
		Class:      class,
		JobSizeNs:  jobSizeNs,
		PsizeBytes: len(data),
	}, nil
}

// BenchQueue documents the interface the out-of-scope benchmark
// harness's server-side ring queue satisfies -- a bounded producer/
// consumer channel of decoded PacketParams. The harness's actual
// implementation (an atomic-indexed ring buffer pinned to a DPDK lcore)
// is not reproduced here; this alias exists only so the wire codec's
// contract with that harness is documented in code, not prose alone.
type BenchQueue = chan PacketParams

// ScheduleQueue is the scheduler context's admission queue for the
// WSJF-drop-max benchmark policy (spec.md §4.1's "Bounded Heap"): frames
// decoded off the ingress ring are admitted by WSJF ratio
// (job size / packet size, ascending), and once the queue exceeds
// capacity the highest-ratio (worst) resident entry is evicted to keep
// the scheduler context's memory bounded under sustained attack load.
// It wraps queue.BoundedHeap directly; as in the simulator's WSJF
// queue, the insertion time handed to the heap is a plain monotonic
// push counter, so frames with equal ratios leave in admission order.
type ScheduleQueue struct {
	heap *queue.BoundedHeap[PacketParams]
	seq  float64
}

// NewScheduleQueue returns a ScheduleQueue capped at maxSize resident
// frames.
func NewScheduleQueue(maxSize int) *ScheduleQueue {
	return &ScheduleQueue{heap: queue.NewBoundedHeap[PacketParams](maxSize)}
}

func wsjfRatio(p PacketParams) float64 {
	if p.PsizeBytes <= 0 {
		return 0
	}
	return float64(p.JobSizeNs) / float64(p.PsizeBytes)
}

// EnqueueBurst admits every decoded frame in burst, in order, returning
// any frames evicted along the way (spec.md §5's "enqueueBurst"). An
// evicted frame may be the one just admitted, if it is itself the
// worst-ratio entry once the queue is over capacity.
func (q *ScheduleQueue) EnqueueBurst(burst []PacketParams) (evicted []PacketParams) {
	for _, p := range burst {
		q.seq++
		if e, ok := q.heap.Push(p, wsjfRatio(p), q.seq); ok {
			evicted = append(evicted, e)
		}
	}
	return evicted
}

// ScheduleBurst releases up to n frames in WSJF order (spec.md §5's
// "scheduleBurst"), stopping early if the queue empties.
func (q *ScheduleQueue) ScheduleBurst(n int) []PacketParams {
	out := make([]PacketParams, 0, n)
	for i := 0; i < n; i++ {
		p, ok := q.heap.Pop()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// Len returns the number of frames currently resident.
func (q *ScheduleQueue) Len() int { return q.heap.Len() }
