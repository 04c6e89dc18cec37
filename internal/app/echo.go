// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/simerr"
)

// Echo is a pass-through application that uses the packet's own
// trace-encoded job size, requiring no per-flow state and no ordering
// guarantees from its queue.
type Echo struct{}

// NewEcho returns an Echo application.
func NewEcho() *Echo { return &Echo{} }

func (a *Echo) Type() string             { return "echo" }
func (a *Echo) IsFlowOrderRequired() bool { return false }

func (a *Echo) Process(p packet.Packet) (packet.Clock, error) {
	if p.Class == packet.Attack {
		if p.JobSizeActual < 0 {
			return 0, &simerr.InvalidJobSizeError{}
		}
		return p.JobSizeActual, nil
	}
	// By this point the estimate must already be set.
	if p.JobSizeEstimate < 0 {
		return 0, &simerr.InvalidJobSizeError{}
	}
	return p.JobSizeEstimate, nil
}

func (a *Echo) JobSizeEstimate(p packet.Packet) (packet.Clock, error) {
	if p.JobSizeEstimate < 0 {
		return 0, &simerr.InvalidJobSizeError{}
	}
	return p.JobSizeEstimate, nil
}
