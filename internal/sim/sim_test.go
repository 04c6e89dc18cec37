// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import (
	"testing"

	"github.com/heistp/advsched/internal/app"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/queue"
	"github.com/heistp/advsched/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedGenerator replays a fixed sequence of arrival times and job
// sizes on a single flow, giving tests exact control over the event
// sequence spec.md's concrete scenarios describe.
type fixedGenerator struct {
	class     packet.TrafficClass
	arrivals  []packet.Clock
	sizeBits  uint32
	jobSizeNs packet.Clock
	flowID    packet.FlowID
	idx       int
}

func (g *fixedGenerator) Type() string     { return "fixed" }
func (g *fixedGenerator) NumFlows() uint32 { return 1 }

func (g *fixedGenerator) HasNewArrival() bool { return g.idx < len(g.arrivals) }

func (g *fixedGenerator) NextArrivalTime() packet.Clock {
	if !g.HasNewArrival() {
		return packet.ClockInfinity
	}
	return g.arrivals[g.idx]
}

func (g *fixedGenerator) UpdateArrivalTime() { g.idx++ }

func (g *fixedGenerator) NextArrival(idx uint64) (packet.Packet, error) {
	p := packet.New(idx, g.flowID, g.class, g.sizeBits)
	p.JobSizeEstimate = g.jobSizeNs
	p.JobSizeActual = g.jobSizeNs
	return p, nil
}

func (g *fixedGenerator) Reset()             { g.idx = 0 }
func (g *fixedGenerator) IsCalibrated() bool { return true }
func (g *fixedGenerator) CalibratedRateBitsPerSecond() (float64, error) {
	return 0, nil
}
func (g *fixedGenerator) CalibratedAveragePacketSizeBits() (float64, error) {
	return 0, nil
}

func TestFCFSIdentityScenario(t *testing.T) {
	// Four innocent packets at arrivals 0, 100, 200, 300 ns, each
	// actual=50ns, policy=fcfs.
	gen := &fixedGenerator{
		class:     packet.Innocent,
		arrivals:  []packet.Clock{0, 100, 200, 300},
		sizeBits:  1000,
		jobSizeNs: 50,
		flowID:    packet.FlowIDFromUint32(1),
	}
	q := queue.NewFCFS()
	a := app.NewEcho()
	srv, err := server.New(a, q)
	require.NoError(t, err)

	s := New(srv, q, gen, nil, 4)
	m, err := s.Run()
	require.NoError(t, err)

	assert.EqualValues(t, 4, m.NumArrivals)
	assert.EqualValues(t, 4, m.NumDepartures)
}

// multiJobGenerator is like fixedGenerator but with a distinct job size
// per arrival index, and records each packet it hands out so tests can
// inspect exact departure order and timing.
type multiJobGenerator struct {
	class    packet.TrafficClass
	flowID   packet.FlowID
	sizeBits uint32
	arrivals []packet.Clock
	jobSizes []packet.Clock
	idx      int
}

func (g *multiJobGenerator) Type() string     { return "multi" }
func (g *multiJobGenerator) NumFlows() uint32 { return 1 }
func (g *multiJobGenerator) HasNewArrival() bool {
	return g.idx < len(g.arrivals)
}
func (g *multiJobGenerator) NextArrivalTime() packet.Clock {
	if !g.HasNewArrival() {
		return packet.ClockInfinity
	}
	return g.arrivals[g.idx]
}
func (g *multiJobGenerator) UpdateArrivalTime() { g.idx++ }
func (g *multiJobGenerator) NextArrival(idx uint64) (packet.Packet, error) {
	p := packet.New(idx, g.flowID, g.class, g.sizeBits)
	p.JobSizeEstimate = g.jobSizes[g.idx]
	p.JobSizeActual = g.jobSizes[g.idx]
	return p, nil
}
func (g *multiJobGenerator) Reset()             { g.idx = 0 }
func (g *multiJobGenerator) IsCalibrated() bool { return true }
func (g *multiJobGenerator) CalibratedRateBitsPerSecond() (float64, error) {
	return 0, nil
}
func (g *multiJobGenerator) CalibratedAveragePacketSizeBits() (float64, error) {
	return 0, nil
}

func TestSJFReorderingScenario(t *testing.T) {
	// Three packets, arrivals 0, 10, 20; actuals 100, 10, 10;
	// policy=sjf, echo app. #1 has no competition and runs [0,100).
	// While it runs, #2 (t=10) and #3 (t=20) both queue up with equal
	// job sizes (10ns); sjf's insertion-order tiebreak serves #2 first:
	// #2 at [100,110), then #3 at [110,120).
	gen := &multiJobGenerator{
		class:    packet.Innocent,
		flowID:   packet.FlowIDFromUint32(1),
		sizeBits: 1000,
		arrivals: []packet.Clock{0, 10, 20},
		jobSizes: []packet.Clock{100, 10, 10},
	}
	q := queue.NewSJF()
	a := app.NewEcho()
	srv, err := server.New(a, q)
	require.NoError(t, err)

	s := New(srv, q, gen, nil, 3)

	var departTimes []packet.Clock
	for {
		moreArrivals := s.hasMoreArrivals()
		if !moreArrivals && s.numArrivals == s.numDepartures {
			break
		}
		g := s.nextArrivalGenerator()
		busy := s.server.Busy()
		if moreArrivals && g != nil && (!busy || g.NextArrivalTime() < s.server.DepartureTime()) {
			require.NoError(t, s.handleArrival(g))
			continue
		}
		departingAt := s.server.DepartureTime()
		require.NoError(t, s.handleDeparture())
		departTimes = append(departTimes, departingAt)
	}

	require.Equal(t, []packet.Clock{100, 110, 120}, departTimes)
}

func TestWSJFDefersHighRatioAttack(t *testing.T) {
	// Innocent 1500-byte packets with j=1000ns (metric 0.667) queue up
	// behind a busy server; a single attack packet of 64 bytes with
	// j=10000ns (metric 156.25) arrives in the middle of the burst.
	// WSJF must still drain every queued innocent packet before the
	// attack packet, since its metric is far higher.
	innocent := &fixedGenerator{
		class:     packet.Innocent,
		arrivals:  []packet.Clock{0, 1, 2, 3},
		sizeBits:  1500,
		jobSizeNs: 1000,
		flowID:    packet.FlowIDFromUint32(1),
	}
	// Arrives before the innocent stream is exhausted (2.5, between the
	// third and fourth innocent arrivals): a straggler that shows up
	// after the innocent stream dries up would never be pulled from its
	// generator at all, since termination is gated on innocent traffic
	// alone.
	attack := &fixedGenerator{
		class:     packet.Attack,
		arrivals:  []packet.Clock{2.5},
		sizeBits:  64,
		jobSizeNs: 10000,
		flowID:    packet.FlowIDFromUint32(1000),
	}
	q := queue.NewWSJF()
	a := app.NewEcho()
	srv, err := server.New(a, q)
	require.NoError(t, err)

	s := New(srv, q, innocent, attack, 4)
	var departed []packet.TrafficClass
	s.OnDepart(func(p packet.Packet) { departed = append(departed, p.Class) })
	m, err := s.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 4, m.NumInnocentArrivals)
	assert.EqualValues(t, 5, m.NumArrivals)
	assert.EqualValues(t, 5, m.NumDepartures)
	assert.Greater(t, m.DisplacementFactor, 0.0)
	assert.Equal(t, []packet.TrafficClass{packet.Innocent, packet.Innocent,
		packet.Innocent, packet.Innocent, packet.Attack}, departed)
}

func TestFlowOrderIncompatibilityRejectedAtConstruction(t *testing.T) {
	q := queue.NewSJF()
	a, err := app.NewTCPReassembly(app.Parameters{}, 0)
	require.NoError(t, err)
	_, err = server.New(a, q)
	assert.Error(t, err)
}
