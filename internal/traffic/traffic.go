// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package traffic implements the traffic generator family: synthetic
// (innocent and attack) generators driven by statistical distributions,
// and trace-driven generators reading recorded packet records from CSV
// or pcap sources. Grounded on simulator/src/traffic from the original
// design.
package traffic

import (
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// Generator produces a stream of packet arrivals in non-decreasing
// arrival-time order.
type Generator interface {
	// Type returns the generator's name (eg "innocent", "attack", "trace").
	Type() string

	// NumFlows returns the number of distinct flows this generator
	// cycles through (0 for trace-driven generators, whose flow count
	// is determined by the trace itself).
	NumFlows() uint32

	// HasNewArrival reports whether NextArrival can still be called.
	HasNewArrival() bool

	// NextArrivalTime returns the arrival time of the next packet,
	// without consuming it.
	NextArrivalTime() packet.Clock

	// UpdateArrivalTime advances the internal arrival clock by one
	// inter-arrival sample. Split from NextArrival so the simulator can
	// leave the clock where it is after a packet it discards (one whose
	// job size is invalid).
	UpdateArrivalTime()

	// NextArrival returns the next packet, stamped with idx and the
	// current arrival time.
	NextArrival(idx uint64) (packet.Packet, error)

	// Reset returns the generator to its initial state.
	Reset()

	// IsCalibrated reports whether the generator's rate and average
	// packet size are known. Trace-driven generators require a dry run
	// before these statistics are available.
	IsCalibrated() bool

	// CalibratedRateBitsPerSecond returns E[packet size] / E[inter-
	// arrival time], scaled to bits/second. Fails if not calibrated.
	CalibratedRateBitsPerSecond() (float64, error)

	// CalibratedAveragePacketSizeBits returns the generator's average
	// packet size in bits. Fails if not calibrated.
	CalibratedAveragePacketSizeBits() (float64, error)
}

const nanosecsPerSec = 1e9

// requireCalibrated is the shared "not calibrated" guard used by every
// generator's calibrated-statistic accessors.
func requireCalibrated(calibrated bool) error {
	if !calibrated {
		return &simerr.CalibrationError{Message: "traffic generator is not calibrated"}
	}
	return nil
}
