// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package sim implements the discrete-event simulation loop that
// coordinates traffic generators, an application, a queue, and a
// server, grounded on simulator/src/simulator.{h,cpp} from the original
// design.
package sim

import (
	"math"

	"github.com/heistp/advsched/internal/obslog"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/queue"
	"github.com/heistp/advsched/internal/server"
	"github.com/heistp/advsched/internal/simerr"
	"github.com/heistp/advsched/internal/traffic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var logger = obslog.New("sim")

// displacementEpsilon is the small nonzero displacement factor reported
// under attack when relative goodput loss stays under the 1% threshold,
// so a run with negligible impact is still distinguishable from a run
// with no attack traffic at all (whose factor is exactly zero).
const displacementEpsilon = 1e-4

// Metrics summarizes one completed run.
type Metrics struct {
	NumArrivals         uint64
	NumInnocentArrivals uint64
	NumDepartures       uint64

	ServiceRateGbps           float64
	InputRateInnocentBps      float64
	SteadyStateGoodputBps     float64
	DisplacementFactor        float64
	AvgInnocentPacketSizeBits float64
}

// Simulator runs the single-threaded event loop described by the
// scheduling subsystem: arrivals from up to two generators (innocent,
// optionally attack) are turned into job sizes by app, then either
// scheduled directly on server or queued in q.
type Simulator struct {
	server              *server.Server
	queue               queue.Queue
	innocent            traffic.Generator
	attack              traffic.Generator // nil if no attack traffic configured
	maxInnocentArrivals uint64

	numArrivals         uint64
	numInnocentArrivals uint64
	numDepartures       uint64

	sumPsizeBitsServed float64
	sumJobSizeNsServed float64

	totalPsizeBitsInnocent float64
	lastArriveTimeInnocent packet.Clock

	totalPsizeBitsAttack float64
	lastArriveTimeAttack packet.Clock

	ssTime           packet.Clock
	ssTotalPsizeBits float64

	// onDepart, when set, is called with every packet as it departs the
	// server, in departure order -- the hook the CLI uses to write the
	// packet log from spec §6 without the simulator itself knowing
	// anything about file I/O.
	onDepart func(packet.Packet)
}

// New returns a Simulator wired to srv/q as the service channel and
// innocent/attack as its traffic sources (attack may be nil).
// maxInnocentArrivals bounds the run length, per spec's
// "num_innocent_arrivals < MAX" termination condition.
func New(srv *server.Server, q queue.Queue, innocent, attack traffic.Generator, maxInnocentArrivals uint64) *Simulator {
	return &Simulator{
		server:              srv,
		queue:               q,
		innocent:            innocent,
		attack:              attack,
		maxInnocentArrivals: maxInnocentArrivals,
	}
}

// OnDepart registers fn to be called with every departing packet, in
// departure order. It must be set before Run.
func (s *Simulator) OnDepart(fn func(packet.Packet)) {
	s.onDepart = fn
}

// hasMoreArrivals reports whether the innocent generator can still
// produce packets and the arrival cap hasn't been reached. The
// termination condition is tied to innocent traffic alone: once it runs
// dry (trace exhausted, or the cap is hit), the run drains any
// in-flight packets and stops, even if the attack generator would keep
// producing forever.
func (s *Simulator) hasMoreArrivals() bool {
	return s.innocent.HasNewArrival() && s.numInnocentArrivals < s.maxInnocentArrivals
}

// nextArrivalGenerator returns whichever of the innocent/attack
// generators has the earliest pending arrival, or nil if neither has
// one.
func (s *Simulator) nextArrivalGenerator() traffic.Generator {
	var best traffic.Generator
	bestTime := packet.Clock(math.Inf(1))
	if s.innocent.HasNewArrival() && s.innocent.NextArrivalTime() < bestTime {
		best = s.innocent
		bestTime = s.innocent.NextArrivalTime()
	}
	if s.attack != nil && s.attack.HasNewArrival() && s.attack.NextArrivalTime() < bestTime {
		best = s.attack
	}
	return best
}

// Run executes the event loop to completion and returns its metrics.
// Each run is tagged with a fresh UUID that appears on every log line
// it emits, so diagnostics from repeated dry-run/real invocations can
// be told apart. The packet log does not carry this ID.
func (s *Simulator) Run() (Metrics, error) {
	id := uuid.New()
	log := logger.With(zap.String("run", id.String()))
	log.Info("run starting",
		zap.String("policy", s.queue.Name()),
		zap.String("application", s.server.Application().Type()),
		zap.String("innocent_traffic", s.innocent.Type()),
		zap.Uint64("max_innocent_arrivals", s.maxInnocentArrivals))

	for {
		moreArrivals := s.hasMoreArrivals()
		if !moreArrivals && s.numArrivals == s.numDepartures {
			break
		}

		gen := s.nextArrivalGenerator()
		busy := s.server.Busy()

		handleArrival := moreArrivals && gen != nil &&
			(!busy || gen.NextArrivalTime() < s.server.DepartureTime())

		if handleArrival {
			if err := s.handleArrival(gen); err != nil {
				logProgrammerError(log, err)
				return Metrics{}, err
			}
			continue
		}
		if err := s.handleDeparture(); err != nil {
			logProgrammerError(log, err)
			return Metrics{}, err
		}
	}
	m := s.metrics()
	log.Info("run complete",
		zap.Uint64("num_arrivals", m.NumArrivals),
		zap.Uint64("num_departures", m.NumDepartures),
		zap.Float64("service_rate_gbps", m.ServiceRateGbps),
		zap.Float64("input_rate_innocent_bps", m.InputRateInnocentBps),
		zap.Float64("steady_state_goodput_bps", m.SteadyStateGoodputBps),
		zap.Float64("displacement_factor", m.DisplacementFactor))
	return m, nil
}

// logProgrammerError logs at DPanic the queue/server-contract violations
// spec §7 treats as programmer errors rather than reportable failures,
// before they propagate up and abort the run.
func logProgrammerError(log *zap.Logger, err error) {
	switch err.(type) {
	case *simerr.EmptyQueueError, *simerr.ServerBusyError, *simerr.InvalidJobSizeError:
		log.DPanic("scheduling contract violation", zap.Error(err))
	}
}

func (s *Simulator) handleArrival(gen traffic.Generator) error {
	p, err := gen.NextArrival(s.numArrivals)
	if err != nil {
		return err
	}
	p.ArriveTime = gen.NextArrivalTime()

	if err := s.server.SetJobSizes(&p); err != nil {
		return err
	}

	// Non-jobs (SYN, duplicate, out-of-window segments) are discarded
	// silently: no stats change, no queue push, and -- deliberately --
	// no generator clock advance, so the next packet on this stream
	// arrives at the same simulated time.
	if p.JobSizeActual == packet.InvalidJobSize {
		return nil
	}
	gen.UpdateArrivalTime()

	if p.JobSizeEstimate == packet.InvalidJobSize {
		p.JobSizeEstimate = 0
	}

	s.numArrivals++
	if p.Class == packet.Innocent {
		s.numInnocentArrivals++
		s.totalPsizeBitsInnocent += float64(p.SizeBits)
		s.lastArriveTimeInnocent = p.ArriveTime
		if s.hasMoreArrivals() {
			s.ssTime = p.ArriveTime
			s.ssTotalPsizeBits = s.totalPsizeBitsInnocent
		}
	} else {
		s.totalPsizeBitsAttack += float64(p.SizeBits)
		s.lastArriveTimeAttack = p.ArriveTime
	}

	if !s.server.Busy() && s.queue.Empty() {
		return s.server.Schedule(p.ArriveTime, p)
	}
	return s.queue.Push(p)
}

func (s *Simulator) handleDeparture() error {
	depart, err := s.server.RecordDeparture()
	if err != nil {
		return err
	}
	s.numDepartures++
	s.sumPsizeBitsServed += float64(depart.SizeBits)
	s.sumJobSizeNsServed += float64(depart.JobSizeActual)
	if s.onDepart != nil {
		s.onDepart(depart)
	}

	if !s.queue.Empty() {
		next, err := s.queue.Pop()
		if err != nil {
			return err
		}
		if err := s.server.Schedule(depart.DepartTime, next); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) metrics() Metrics {
	m := Metrics{
		NumArrivals:         s.numArrivals,
		NumInnocentArrivals: s.numInnocentArrivals,
		NumDepartures:       s.numDepartures,
	}

	if s.numInnocentArrivals > 0 {
		m.AvgInnocentPacketSizeBits = s.totalPsizeBitsInnocent / float64(s.numInnocentArrivals)
	}

	if s.numDepartures > 0 {
		avgPsize := s.sumPsizeBitsServed / float64(s.numDepartures)
		avgJSize := s.sumJobSizeNsServed / float64(s.numDepartures)
		if avgJSize > 0 {
			m.ServiceRateGbps = avgPsize / avgJSize
		}
	}

	if s.lastArriveTimeInnocent > 0 {
		m.InputRateInnocentBps = s.totalPsizeBitsInnocent * 1e9 / float64(s.lastArriveTimeInnocent)
	}

	if s.ssTime > 0 {
		m.SteadyStateGoodputBps = s.ssTotalPsizeBits * 1e9 / float64(s.ssTime)
	}

	if s.attack == nil || s.totalPsizeBitsAttack == 0 || s.lastArriveTimeAttack <= 0 {
		m.DisplacementFactor = 0
		return m
	}

	inputRateAttack := s.totalPsizeBitsAttack * 1e9 / float64(s.lastArriveTimeAttack)
	if m.InputRateInnocentBps == 0 {
		m.DisplacementFactor = displacementEpsilon
		return m
	}
	relLoss := (m.InputRateInnocentBps - m.SteadyStateGoodputBps) / m.InputRateInnocentBps
	if relLoss <= 0.01 {
		m.DisplacementFactor = displacementEpsilon
		return m
	}
	m.DisplacementFactor = (m.InputRateInnocentBps - m.SteadyStateGoodputBps) / inputRateAttack
	return m
}
