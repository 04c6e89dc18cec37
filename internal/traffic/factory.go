// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package traffic

import (
	"math"
	"math/rand"

	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// dryRunIATNs is the placeholder inter-arrival time used for dry runs,
// when the true rate isn't yet known.
const dryRunIATNs = 1000

// Config is the parsed form of a traffic generator's YAML settings,
// mirroring trafficgen_factory.cpp's dispatch over a "type"
// discriminator and its is_dry_run/attack-vs-innocent branching.
type Config struct {
	Type string `yaml:"type"`

	// synthetic (both innocent and attack)
	NumFlows uint32   `yaml:"num_flows,omitempty"`
	RateBps  *float64 `yaml:"rate_bps,omitempty"`

	// synthetic innocent
	PacketSizeDist *dist.Config `yaml:"packet_size_bits_dist,omitempty"`

	// synthetic attack
	JobSizeNs      *float64 `yaml:"job_size_ns,omitempty"`
	PacketSizeBits *uint32  `yaml:"packet_size_bits,omitempty"`

	// trace
	TraceFilePath         string   `yaml:"trace_fp,omitempty"`
	AveragePacketSizeBits *float64 `yaml:"average_packet_size_bits,omitempty"`
}

// FromConfig constructs a Generator from c. isDryRun selects the
// calibration-discovery pass: dry runs use a placeholder inter-arrival
// time and skip calibration (except for attack generators, which are
// always calibrated since their packet size is known up front).
// flowIDOffset shifts a synthetic attack generator's flow IDs so
// innocent and attack traffic never collide; synthetic innocent
// generators always number their flows from 0.
func FromConfig(c Config, class packet.TrafficClass, isDryRun bool, flowIDOffset uint32, src rand.Source) (Generator, error) {
	switch c.Type {
	case "trace":
		return traceFromConfig(c, class, isDryRun)
	case "synthetic":
		return syntheticFromConfig(c, class, isDryRun, flowIDOffset, src)
	case "":
		return nil, &simerr.ConfigError{Message: "no traffic-gen type specified"}
	default:
		return nil, &simerr.ConfigError{Message: "unknown traffic-gen type: " + c.Type}
	}
}

func traceFromConfig(c Config, class packet.TrafficClass, isDryRun bool) (Generator, error) {
	if class == packet.Attack {
		return nil, &simerr.ConfigError{Message: "attack traffic generators must be synthetic, not trace-driven"}
	}
	if c.TraceFilePath == "" {
		return nil, &simerr.ConfigError{Message: "must specify 'trace_fp' for trace-driven traffic-gens"}
	}
	src, err := OpenCSVRecordSource(c.TraceFilePath)
	if err != nil {
		return nil, &simerr.ConfigError{Message: "opening trace file: " + err.Error()}
	}

	iatNs := float64(dryRunIATNs)
	calibrated := false
	if c.AveragePacketSizeBits != nil && c.RateBps != nil && !isDryRun {
		iatNs = nanosecsPerSec * *c.AveragePacketSizeBits / *c.RateBps
		calibrated = true
	}

	g := NewTraceTrafficGenerator(src, iatNs)
	if calibrated {
		if err := g.Calibrate(*c.AveragePacketSizeBits); err != nil {
			return nil, err
		}
	}
	if !isDryRun && !g.IsCalibrated() {
		return nil, &simerr.ConfigError{
			Message: "trace traffic-gen must be calibrated (average_packet_size_bits and rate_bps) outside a dry run",
		}
	}
	return g, nil
}

func syntheticFromConfig(c Config, class packet.TrafficClass, isDryRun bool, flowIDOffset uint32, src rand.Source) (Generator, error) {
	numFlows := c.NumFlows
	if numFlows == 0 {
		numFlows = 1
	}

	if class == packet.Innocent {
		if c.PacketSizeDist == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'packet_size_bits_dist' for synthetic traffic-generators"}
		}
		psizeDist, err := dist.FromConfig(*c.PacketSizeDist, src)
		if err != nil {
			return nil, err
		}
		avgPsize := psizeDist.SampleStats().Mean

		iatNs := float64(dryRunIATNs)
		calibrated := false
		if c.RateBps != nil && !isDryRun {
			iatNs = nanosecsPerSec * avgPsize / *c.RateBps
			calibrated = true
		}
		iatDist := dist.NewConstant(iatNs)
		g := NewInnocentTrafficGenerator(iatDist, psizeDist, numFlows)
		if calibrated {
			if err := g.Calibrate(*c.RateBps); err != nil {
				return nil, err
			}
		}
		if !isDryRun && !g.IsCalibrated() {
			return nil, &simerr.ConfigError{Message: "innocent traffic-gen must specify 'rate_bps' outside a dry run"}
		}
		return g, nil
	}

	// Attack traffic.
	rate := 0.0
	if c.RateBps != nil {
		rate = *c.RateBps
	}

	iatNs := math.Inf(1)
	var packetSizeBits uint32
	jobSizeNs := float64(packet.InvalidJobSize)

	switch {
	case rate > 0 && !isDryRun:
		if c.JobSizeNs == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'job_size_ns' for attack traffic-generators when not running in dry-run mode"}
		}
		if c.PacketSizeBits == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'packet_size_bits' for attack traffic-generators when not running in dry-run mode"}
		}
		jobSizeNs = *c.JobSizeNs
		packetSizeBits = *c.PacketSizeBits
		iatNs = nanosecsPerSec * float64(packetSizeBits) / rate
	case rate > 0:
		// Dry run with a non-zero configured rate: no attack traffic
		// will actually be generated for this pass.
	}

	iatDist := dist.NewConstant(iatNs)
	g := NewAttackTrafficGenerator(iatDist, packetSizeBits, jobSizeNs, numFlows, flowIDOffset)
	if err := g.Calibrate(rate); err != nil {
		return nil, err
	}
	return g, nil
}
