// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package app implements the application layer that turns a packet into
// a job size: the Echo pass-through, the IID synthetic-job-size
// generator, and the TCP-reassembly cost model, all grounded on
// simulator/src/applications from the original design.
package app

import "github.com/heistp/advsched/internal/packet"

// Parameters are the knobs common to every application: whether job
// size estimates are computed heuristically (as opposed to oracle,
// exact estimation), a linear scale factor applied to raw service
// times to convert them to job sizes in simulation time units, and the
// attacker's assumed maximum job size. MaxAttackJobSizeNs is carried
// here only; no application clamps attack job sizes to it.
type Parameters struct {
	UseHeuristic           bool
	ServiceTimeScaleFactor float64
	MaxAttackJobSizeNs     float64
}

// ToJobSize scales a raw service time into job-size units, or passes
// packet.InvalidJobSize through unchanged.
func (p Parameters) ToJobSize(serviceTime packet.Clock) packet.Clock {
	if serviceTime == packet.InvalidJobSize {
		return packet.InvalidJobSize
	}
	return serviceTime * packet.Clock(p.ServiceTimeScaleFactor)
}

// Application is a network application that turns packets into jobs.
type Application interface {
	// Type returns the application's name (eg "echo", "tcp_reassembly").
	Type() string

	// IsFlowOrderRequired reports whether this application depends on
	// packets from the same flow being processed in arrival order,
	// which constrains which queueing policies it can be paired with.
	IsFlowOrderRequired() bool

	// Process computes the actual job size for a packet, updating any
	// application-internal state (eg TCP reassembly's flow tracking).
	Process(p packet.Packet) (packet.Clock, error)

	// JobSizeEstimate computes the job size estimate to be used for
	// queueing decisions, which may differ from the actual job size
	// when UseHeuristic is set.
	JobSizeEstimate(p packet.Packet) (packet.Clock, error)
}
