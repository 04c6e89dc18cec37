// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// IIDJobSizes assigns innocent traffic job sizes drawn independently
// from a configured distribution, while attack traffic uses its
// trace-encoded job size unchanged.
type IIDJobSizes struct {
	jsizeDist dist.Distribution
}

// NewIIDJobSizes returns an IIDJobSizes application drawing job sizes
// for innocent packets from jsizeDist.
func NewIIDJobSizes(jsizeDist dist.Distribution) *IIDJobSizes {
	return &IIDJobSizes{jsizeDist: jsizeDist}
}

func (a *IIDJobSizes) Type() string             { return "iid_job_sizes" }
func (a *IIDJobSizes) IsFlowOrderRequired() bool { return false }

func (a *IIDJobSizes) Process(p packet.Packet) (packet.Clock, error) {
	if p.Class == packet.Attack {
		if p.JobSizeActual < 0 {
			return 0, &simerr.InvalidJobSizeError{}
		}
		return p.JobSizeActual, nil
	}
	if p.JobSizeEstimate < 0 {
		return 0, &simerr.InvalidJobSizeError{}
	}
	return p.JobSizeEstimate, nil
}

func (a *IIDJobSizes) JobSizeEstimate(p packet.Packet) (packet.Clock, error) {
	if p.Class == packet.Attack {
		if p.JobSizeEstimate < 0 {
			return 0, &simerr.InvalidJobSizeError{}
		}
		return p.JobSizeEstimate, nil
	}
	return packet.Clock(a.jsizeDist.Sample()), nil
}
