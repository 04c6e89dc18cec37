// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package traffic

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/gopacket/pcapgo"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// TraceRecord is one parsed traffic record, independent of whether it
// came from a CSV trace file or a pcap capture.
type TraceRecord struct {
	SizeBits        uint32
	FlowID          packet.FlowID
	TCP             packet.TCPHeader
	JobSizeEstimate packet.Clock // InvalidJobSize if the source has none
}

// RecordSource yields TraceRecords in capture order. Next returns io.EOF
// once exhausted.
type RecordSource interface {
	Next() (TraceRecord, error)
	Close() error
}

// CSVRecordSource reads records from the comma-separated trace format:
// size_bytes,src_ip(hex),dst_ip(hex),src_port(hex),dst_port(hex),
// is_tcp(0/1),tcp_flags,psn,next_psn[,job_size_estimate_ns]
type CSVRecordSource struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenCSVRecordSource opens path as a CSV trace source.
func OpenCSVRecordSource(path string) (*CSVRecordSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &CSVRecordSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

func (s *CSVRecordSource) Close() error { return s.f.Close() }

func (s *CSVRecordSource) Next() (TraceRecord, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return TraceRecord{}, err
		}
		return TraceRecord{}, io.EOF
	}
	s.line++
	return parseCSVLine(s.scanner.Text(), s.line)
}

func parseCSVLine(line string, lineNum int) (TraceRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 9 {
		return TraceRecord{}, &simerr.TraceParseError{
			Line: lineNum, Reason: "expected at least 9 comma-separated fields",
		}
	}
	fail := func(reason string) (TraceRecord, error) {
		return TraceRecord{}, &simerr.TraceParseError{Line: lineNum, Reason: reason}
	}

	sizeBytes, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return fail("invalid size_bytes: " + err.Error())
	}
	srcIP, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 16, 32)
	if err != nil {
		return fail("invalid src_ip: " + err.Error())
	}
	dstIP, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 16, 32)
	if err != nil {
		return fail("invalid dst_ip: " + err.Error())
	}
	srcPort, err := strconv.ParseUint(strings.TrimSpace(fields[3]), 16, 16)
	if err != nil {
		return fail("invalid src_port: " + err.Error())
	}
	dstPort, err := strconv.ParseUint(strings.TrimSpace(fields[4]), 16, 16)
	if err != nil {
		return fail("invalid dst_port: " + err.Error())
	}
	isTCP, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
	if err != nil {
		return fail("invalid is_tcp: " + err.Error())
	}

	rec := TraceRecord{
		SizeBits: uint32(sizeBytes) * 8,
		FlowID: packet.FlowID{
			SrcIP: uint32(srcIP), DstIP: uint32(dstIP),
			SrcPort: uint16(srcPort), DstPort: uint16(dstPort),
		},
		JobSizeEstimate: packet.InvalidJobSize,
	}

	if isTCP == 1 {
		flags, err := strconv.ParseInt(strings.TrimSpace(fields[6]), 10, 64)
		if err != nil {
			return fail("invalid tcp_flags: " + err.Error())
		}
		psn, err := strconv.ParseUint(strings.TrimSpace(fields[7]), 10, 32)
		if err != nil {
			return fail("invalid psn: " + err.Error())
		}
		nextPSN, err := strconv.ParseUint(strings.TrimSpace(fields[8]), 10, 32)
		if err != nil {
			return fail("invalid next_psn: " + err.Error())
		}
		rec.TCP = packet.TCPHeader{
			Valid:   true,
			SYN:     (flags>>2)&0x1 == 1,
			FIN:     (flags>>1)&0x1 == 1,
			RST:     flags&0x1 == 1,
			PSN:     uint32(psn),
			NextPSN: uint32(nextPSN),
		}
	}

	if len(fields) > 9 && strings.TrimSpace(fields[9]) != "" {
		jsize, err := strconv.ParseFloat(strings.TrimSpace(fields[9]), 64)
		if err != nil {
			return fail("invalid job_size_estimate: " + err.Error())
		}
		rec.JobSizeEstimate = packet.Clock(jsize)
	}

	return rec, nil
}

// TraceTrafficGenerator replays a RecordSource with constant inter-
// arrival times. Since its total bit rate depends on the trace's actual
// average packet size, it must run one dry-run pass to discover that
// average before calibrate can be called; isCalibrated reports false
// until then. Grounded on traffic/trace_trafficgen.{h,cpp}.
type TraceTrafficGenerator struct {
	src         RecordSource
	iatNs       float64
	arrivalTime packet.Clock
	pending     TraceRecord
	hasPending  bool
	eof         bool
	avgPsize    float64 // NaN until calibrated
}

// NewTraceTrafficGenerator returns a trace-driven generator reading from
// src with a constant inter-arrival time of iatNs nanoseconds.
func NewTraceTrafficGenerator(src RecordSource, iatNs float64) *TraceTrafficGenerator {
	g := &TraceTrafficGenerator{src: src, iatNs: iatNs, avgPsize: math.NaN()}
	g.updateHasNewArrival()
	return g
}

func (g *TraceTrafficGenerator) Type() string    { return "trace" }
func (g *TraceTrafficGenerator) NumFlows() uint32 { return 0 }

func (g *TraceTrafficGenerator) updateHasNewArrival() {
	if g.eof {
		g.hasPending = false
		return
	}
	rec, err := g.src.Next()
	if err != nil {
		g.eof = true
		g.hasPending = false
		return
	}
	g.pending = rec
	g.hasPending = true
}

func (g *TraceTrafficGenerator) HasNewArrival() bool { return g.hasPending }

func (g *TraceTrafficGenerator) NextArrivalTime() packet.Clock { return g.arrivalTime }

func (g *TraceTrafficGenerator) UpdateArrivalTime() {
	g.arrivalTime += packet.Clock(g.iatNs)
}

func (g *TraceTrafficGenerator) NextArrival(idx uint64) (packet.Packet, error) {
	if !g.hasPending {
		return packet.Packet{}, &simerr.TraceParseError{Reason: "no pending trace record"}
	}
	rec := g.pending
	p := packet.New(idx, rec.FlowID, packet.Innocent, rec.SizeBits)
	p.TCPHeader = rec.TCP
	p.ArriveTime = g.arrivalTime
	if rec.JobSizeEstimate != packet.InvalidJobSize {
		p.JobSizeEstimate = rec.JobSizeEstimate
	}
	g.updateHasNewArrival()
	return p, nil
}

// Reset rewinds the underlying file of a CSVRecordSource or
// PcapTraceSource and restarts the arrival clock, so the trace replays
// from its first record. Other RecordSource implementations are not
// rewound.
func (g *TraceTrafficGenerator) Reset() {
	switch s := g.src.(type) {
	case *CSVRecordSource:
		if _, err := s.f.Seek(0, io.SeekStart); err == nil {
			s.scanner = bufio.NewScanner(s.f)
			s.line = 0
		}
	case *PcapTraceSource:
		if _, err := s.f.Seek(0, io.SeekStart); err == nil {
			if r, err := pcapgo.NewReader(s.f); err == nil {
				s.reader = r
			}
		}
	}
	g.arrivalTime = 0
	g.eof = false
	g.updateHasNewArrival()
}

func (g *TraceTrafficGenerator) IsCalibrated() bool { return !math.IsNaN(g.avgPsize) }

// Calibrate records the trace's true average packet size, discovered by
// a prior dry-run pass. It can only be called once.
func (g *TraceTrafficGenerator) Calibrate(avgPsizeBits float64) error {
	if g.IsCalibrated() {
		return &simerr.CalibrationError{Message: "trace traffic generator was already calibrated"}
	}
	g.avgPsize = avgPsizeBits
	return nil
}

func (g *TraceTrafficGenerator) CalibratedRateBitsPerSecond() (float64, error) {
	if err := requireCalibrated(g.IsCalibrated()); err != nil {
		return 0, err
	}
	return g.avgPsize * nanosecsPerSec / g.iatNs, nil
}

func (g *TraceTrafficGenerator) CalibratedAveragePacketSizeBits() (float64, error) {
	if err := requireCalibrated(g.IsCalibrated()); err != nil {
		return 0, err
	}
	return g.avgPsize, nil
}
