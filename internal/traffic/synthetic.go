// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package traffic

import (
	"math"

	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// syntheticBase is the shared machinery of every distribution-driven
// generator: it round-robins a fixed number of synthetic flow IDs and
// advances an arrival clock by sampling a (typically constant) inter-
// arrival distribution. Grounded on traffic/synthetic_trafficgen.{h,cpp}.
type syntheticBase struct {
	iatDist      dist.Distribution
	numFlows     uint32
	flowIDOffset uint32
	nextFlow     uint32
	arrivalTime  packet.Clock
	calibrated   bool
}

func newSyntheticBase(iatDist dist.Distribution, numFlows, flowIDOffset uint32) syntheticBase {
	return syntheticBase{
		iatDist:      iatDist,
		numFlows:     numFlows,
		flowIDOffset: flowIDOffset,
	}
}

func (s *syntheticBase) NumFlows() uint32 { return s.numFlows }

func (s *syntheticBase) HasNewArrival() bool {
	return s.arrivalTime < packet.ClockInfinity
}

func (s *syntheticBase) NextArrivalTime() packet.Clock { return s.arrivalTime }

func (s *syntheticBase) UpdateArrivalTime() {
	if s.arrivalTime >= packet.ClockInfinity {
		return
	}
	s.arrivalTime += packet.Clock(s.iatDist.Sample())
}

func (s *syntheticBase) Reset() {
	s.nextFlow = 0
	s.arrivalTime = 0
}

func (s *syntheticBase) IsCalibrated() bool { return s.calibrated }

// nextFlowID returns the next round-robin flow identifier, advancing the
// internal cursor.
func (s *syntheticBase) nextFlowID() packet.FlowID {
	id := s.flowIDOffset + s.nextFlow
	s.nextFlow = (s.nextFlow + 1) % s.numFlows
	return packet.FlowIDFromUint32(id)
}

// InnocentTrafficGenerator produces background traffic whose packet
// sizes are drawn i.i.d. from a distribution. Its inter-arrival time is
// fixed at construction (normally a dry-run default, or a rate-derived
// constant once the caller knows the target throughput); Calibrate then
// records that this generator's rate/avg-packet-size are meaningful,
// rather than dry-run placeholders. Grounded on
// traffic/synthetic_trafficgen.cpp's InnocentTrafficGenerator.
type InnocentTrafficGenerator struct {
	syntheticBase
	psizeDist       dist.Distribution
	calibratedRate  float64
	calibratedPsize float64
}

// NewInnocentTrafficGenerator returns an innocent traffic generator
// cycling through numFlows flows, with inter-arrival times drawn from
// iatDist and packet sizes (in bits) drawn from psizeDist.
func NewInnocentTrafficGenerator(iatDist, psizeDist dist.Distribution, numFlows uint32) *InnocentTrafficGenerator {
	return &InnocentTrafficGenerator{
		syntheticBase: newSyntheticBase(iatDist, numFlows, 0),
		psizeDist:     psizeDist,
	}
}

// Calibrate records rateBps as this generator's true target rate, once
// known (it cannot be computed until the packet-size distribution's
// mean is available, which the caller already has by construction time,
// so this simply locks in that the generator is no longer a dry run).
func (g *InnocentTrafficGenerator) Calibrate(rateBps float64) error {
	if g.calibrated {
		return &simerr.CalibrationError{Message: "innocent traffic generator was already calibrated"}
	}
	g.calibratedRate = rateBps
	g.calibratedPsize = g.psizeDist.SampleStats().Mean
	g.calibrated = true
	return nil
}

func (g *InnocentTrafficGenerator) Type() string { return "innocent" }

func (g *InnocentTrafficGenerator) NextArrival(idx uint64) (packet.Packet, error) {
	sizeBits := uint32(math.Max(1, g.psizeDist.Sample()))
	p := packet.New(idx, g.nextFlowID(), packet.Innocent, sizeBits)
	p.ArriveTime = g.arrivalTime
	return p, nil
}

func (g *InnocentTrafficGenerator) CalibratedRateBitsPerSecond() (float64, error) {
	if err := requireCalibrated(g.calibrated); err != nil {
		return 0, err
	}
	return g.calibratedRate, nil
}

func (g *InnocentTrafficGenerator) CalibratedAveragePacketSizeBits() (float64, error) {
	if err := requireCalibrated(g.calibrated); err != nil {
		return 0, err
	}
	return g.calibratedPsize, nil
}

// AttackTrafficGenerator produces adversarial traffic of a fixed packet
// size and encoded job size. An inter-arrival time of +Inf models "zero
// attack bandwidth": HasNewArrival is immediately false and the
// generator never produces an arrival. Grounded on
// traffic/synthetic_trafficgen.cpp's AttackTrafficGenerator.
type AttackTrafficGenerator struct {
	syntheticBase
	packetSizeBits  uint32
	jobSizeNs       float64
	calibratedRate  float64
	calibratedPsize float64
}

// NewAttackTrafficGenerator returns an attack traffic generator with a
// fixed packetSizeBits and jobSizeNs per packet, cycling through
// numFlows flows offset by flowIDOffset (to avoid colliding with
// innocent-traffic flow IDs). An iatDist with an infinite mean disables
// arrivals entirely, per the "zero attack bandwidth" case.
func NewAttackTrafficGenerator(iatDist dist.Distribution, packetSizeBits uint32, jobSizeNs float64, numFlows, flowIDOffset uint32) *AttackTrafficGenerator {
	g := &AttackTrafficGenerator{
		syntheticBase:  newSyntheticBase(iatDist, numFlows, flowIDOffset),
		packetSizeBits: packetSizeBits,
		jobSizeNs:      jobSizeNs,
	}
	if math.IsInf(iatDist.SampleStats().Mean, 1) {
		g.arrivalTime = packet.ClockInfinity
	}
	return g
}

// Calibrate records rateBps as this generator's target rate. Unlike the
// innocent generator, the factory calibrates attack generators
// unconditionally, even in dry-run mode with a zero rate, since an
// attack generator's own packet size is always known up front.
func (g *AttackTrafficGenerator) Calibrate(rateBps float64) error {
	if g.calibrated {
		return &simerr.CalibrationError{Message: "attack traffic generator was already calibrated"}
	}
	g.calibratedRate = rateBps
	g.calibratedPsize = float64(g.packetSizeBits)
	g.calibrated = true
	return nil
}

func (g *AttackTrafficGenerator) Type() string { return "attack" }

// Reset rewinds the flow cursor and arrival clock; a zero-bandwidth
// generator (infinite mean inter-arrival time) stays without arrivals.
func (g *AttackTrafficGenerator) Reset() {
	g.syntheticBase.Reset()
	if math.IsInf(g.iatDist.SampleStats().Mean, 1) {
		g.arrivalTime = packet.ClockInfinity
	}
}

func (g *AttackTrafficGenerator) NextArrival(idx uint64) (packet.Packet, error) {
	p := packet.New(idx, g.nextFlowID(), packet.Attack, g.packetSizeBits)
	p.ArriveTime = g.arrivalTime
	p.JobSizeEstimate = packet.Clock(g.jobSizeNs)
	p.JobSizeActual = packet.Clock(g.jobSizeNs)
	return p, nil
}

func (g *AttackTrafficGenerator) CalibratedRateBitsPerSecond() (float64, error) {
	if err := requireCalibrated(g.calibrated); err != nil {
		return 0, err
	}
	return g.calibratedRate, nil
}

func (g *AttackTrafficGenerator) CalibratedAveragePacketSizeBits() (float64, error) {
	if err := requireCalibrated(g.calibrated); err != nil {
		return 0, err
	}
	return g.calibratedPsize, nil
}
