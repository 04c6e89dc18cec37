// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"testing"

	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoUsesEstimateForInnocentTraffic(t *testing.T) {
	a := NewEcho()
	fid := packet.FlowIDFromUint32(1)
	p := packet.New(0, fid, packet.Innocent, 100)
	p.JobSizeEstimate = 42

	est, err := a.JobSizeEstimate(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(42), est)

	p.JobSizeEstimate = est
	actual, err := a.Process(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(42), actual)
}

func TestEchoUsesActualForAttackTraffic(t *testing.T) {
	a := NewEcho()
	fid := packet.FlowIDFromUint32(1)
	p := packet.New(0, fid, packet.Attack, 100)
	p.JobSizeActual = 99

	actual, err := a.Process(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(99), actual)
}

func TestIIDJobSizesSamplesForInnocentTraffic(t *testing.T) {
	d := dist.NewConstant(77)
	a := NewIIDJobSizes(d)
	fid := packet.FlowIDFromUint32(1)
	p := packet.New(0, fid, packet.Innocent, 100)

	est, err := a.JobSizeEstimate(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(77), est)
}

func TestIIDJobSizesUsesActualForAttackTraffic(t *testing.T) {
	d := dist.NewConstant(77)
	a := NewIIDJobSizes(d)
	fid := packet.FlowIDFromUint32(1)
	p := packet.New(0, fid, packet.Attack, 100)
	p.JobSizeEstimate = 5
	p.JobSizeActual = 5

	est, err := a.JobSizeEstimate(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(5), est)
}

func mkTCPPacket(idx uint64, fid packet.FlowID, psn, nextPSN uint32) packet.Packet {
	p := packet.New(idx, fid, packet.Innocent, 1500)
	p.TCPHeader = packet.TCPHeader{Valid: true, PSN: psn, NextPSN: nextPSN}
	return p
}

func TestTCPReassemblyOOODrainScenario(t *testing.T) {
	// Grounded on the concrete scenario: fresh flow with next_psn=100,
	// fed segments [200,300) then [100,200).
	a, err := NewTCPReassembly(Parameters{ServiceTimeScaleFactor: 1}, 0)
	require.NoError(t, err)

	fid := packet.FlowIDFromUint32(1)

	// Establish next_psn=100 via a SYN-equivalent first segment.
	syn := mkTCPPacket(0, fid, 0, 100)
	syn.TCPHeader.SYN = true
	est, err := a.JobSizeEstimate(syn)
	require.NoError(t, err)
	assert.Equal(t, packet.InvalidJobSize, est)
	syn.JobSizeEstimate = est
	_, err = a.Process(syn)
	require.NoError(t, err)

	p1 := mkTCPPacket(1, fid, 200, 300)
	est1, err := a.JobSizeEstimate(p1)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(116), est1)

	p2 := mkTCPPacket(2, fid, 100, 200)
	est2, err := a.JobSizeEstimate(p2)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(124), est2)
}

func TestTCPReassemblyInOrderIsFree(t *testing.T) {
	a, err := NewTCPReassembly(Parameters{ServiceTimeScaleFactor: 1}, 0)
	require.NoError(t, err)
	fid := packet.FlowIDFromUint32(1)

	// The first packet on a fresh flow (next_psn==0) always establishes
	// the baseline sequence number for free, whether or not SYN is set.
	for i, r := range [][2]uint32{{0, 100}, {100, 200}, {200, 300}} {
		p := mkTCPPacket(uint64(i), fid, r[0], r[1])
		est, err := a.JobSizeEstimate(p)
		require.NoError(t, err)
		assert.Equal(t, packet.InvalidJobSize, est)
	}
}

func TestTCPReassemblyRequiresFlowOrder(t *testing.T) {
	a, err := NewTCPReassembly(Parameters{}, 0)
	require.NoError(t, err)
	assert.True(t, a.IsFlowOrderRequired())
}

func TestTCPReassemblyFinRstClearsFlowState(t *testing.T) {
	a, err := NewTCPReassembly(Parameters{ServiceTimeScaleFactor: 1}, 0)
	require.NoError(t, err)
	fid := packet.FlowIDFromUint32(1)

	syn := mkTCPPacket(0, fid, 0, 100)
	syn.TCPHeader.SYN = true
	_, err = a.JobSizeEstimate(syn)
	require.NoError(t, err)
	_, tracked := a.flows.Get(fid)
	require.True(t, tracked)

	fin := mkTCPPacket(1, fid, 100, 100)
	fin.TCPHeader.FIN = true
	fin.TCPHeader.NextPSN = 101
	fin.TCPHeader.PSN = 100
	est, err := a.JobSizeEstimate(fin)
	require.NoError(t, err)
	assert.Equal(t, packet.InvalidJobSize, est)

	_, ok := a.flows.Get(fid)
	assert.False(t, ok)
}

func TestTCPReassemblyAttackUsesEncodedJobSize(t *testing.T) {
	a, err := NewTCPReassembly(Parameters{}, 0)
	require.NoError(t, err)
	fid := packet.FlowIDFromUint32(1)
	p := packet.New(0, fid, packet.Attack, 100)
	p.JobSizeEstimate = 33
	p.JobSizeActual = 33

	est, err := a.JobSizeEstimate(p)
	require.NoError(t, err)
	assert.Equal(t, packet.Clock(33), est)
}

func TestTCPReassemblyHeuristicModeProcessesInProcess(t *testing.T) {
	a, err := NewTCPReassembly(Parameters{UseHeuristic: true, ServiceTimeScaleFactor: 1}, 0)
	require.NoError(t, err)
	fid := packet.FlowIDFromUint32(1)

	syn := mkTCPPacket(0, fid, 0, 0)
	syn.TCPHeader.SYN = true
	est, err := a.JobSizeEstimate(syn)
	require.NoError(t, err)
	assert.Equal(t, packet.InvalidJobSize, est)

	// heuristic mode: JobSizeEstimate reads state without mutating it;
	// Process is what actually advances the flow.
	p := mkTCPPacket(1, fid, 0, 100)
	est, err = a.JobSizeEstimate(p)
	require.NoError(t, err)
	p.JobSizeEstimate = est
	_, err = a.Process(p)
	require.NoError(t, err)
}
