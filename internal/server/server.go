// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package server implements the single, non-preemptive server that
// consumes packets from a queue, grounded on simulator/src/server from
// the original design.
package server

import (
	"github.com/heistp/advsched/internal/app"
	"github.com/heistp/advsched/internal/obslog"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/queue"
	"github.com/heistp/advsched/internal/simerr"
	"go.uber.org/zap"
)

var logger = obslog.New("server")

// Server is a single, non-preemptive server backed by an application.
// It holds at most one packet in service at a time.
type Server struct {
	app        app.Application
	busy       bool
	current    packet.Packet
	departTime packet.Clock
}

// New returns a Server driven by app, validating that the paired
// queue's ordering guarantees satisfy the application's requirements.
func New(a app.Application, q queue.Queue) (*Server, error) {
	if a.IsFlowOrderRequired() && !q.FlowOrderMaintained() {
		err := &simerr.OrderingIncompatibleError{
			App:    a.Type(),
			Policy: q.Name(),
		}
		logger.DPanic("application/policy ordering mismatch", zap.Error(err))
		return nil, err
	}
	return &Server{app: a}, nil
}

// Busy reports whether the server currently holds a packet in service.
func (s *Server) Busy() bool { return s.busy }

// Application returns the server's application.
func (s *Server) Application() app.Application { return s.app }

// DepartureTime returns the departure time of the packet in service.
// It is meaningless when Busy() is false.
func (s *Server) DepartureTime() packet.Clock { return s.departTime }

// SetJobSizes sets the estimated and actual job sizes on p by invoking
// the server's application. It must be called on every packet before
// it is queued or scheduled -- job size fields are otherwise unset.
func (s *Server) SetJobSizes(p *packet.Packet) error {
	est, err := s.app.JobSizeEstimate(*p)
	if err != nil {
		return err
	}
	// The estimate is committed before Process runs: applications like
	// TCPReassembly read a packet's own estimate back out of it, and in
	// oracle mode the estimate call itself already performed processing.
	p.JobSizeEstimate = est
	actual, err := s.app.Process(*p)
	if err != nil {
		return err
	}
	p.JobSizeActual = actual
	return nil
}

// RecordDeparture completes service of the current packet, marking the
// server idle and returning the departed packet with its DepartTime set.
func (s *Server) RecordDeparture() (packet.Packet, error) {
	if !s.busy {
		return packet.Packet{}, &simerr.ServerBusyError{}
	}
	s.current.DepartTime = s.departTime
	s.busy = false
	return s.current, nil
}

// Schedule begins service of p at the given time, which must be no
// earlier than the server's current departure time. p must already
// have a valid actual job size (see SetJobSizes).
func (s *Server) Schedule(time packet.Clock, p packet.Packet) error {
	if s.busy {
		return &simerr.ServerBusyError{}
	}
	if p.JobSizeActual == packet.InvalidJobSize {
		return &simerr.InvalidJobSizeError{}
	}
	s.departTime = time + p.JobSizeActual
	s.current = p
	s.busy = true
	return nil
}
