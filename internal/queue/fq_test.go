// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"testing"

	"github.com/heistp/advsched/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkFQPacket(idx uint64, flow packet.FlowID, arrive, jsize packet.Clock) packet.Packet {
	p := packet.New(idx, flow, packet.Innocent, 1000)
	p.ArriveTime = arrive
	p.JobSizeEstimate = jsize
	return p
}

func TestFQFairnessAcrossFlows(t *testing.T) {
	q := NewFQ()
	a := packet.FlowIDFromUint32(1)
	b := packet.FlowIDFromUint32(2)

	// flow a sends two large packets, flow b sends one small packet
	// arriving after a's first: b's virtual clock starts at its own
	// arrival time plus its estimate (1+10=11), below both of a's
	// virtual clocks (1000 and 2000), so b's packet is served first
	// even though it arrived last; a's packets follow in push order.
	q.Push(mkFQPacket(1, a, 0, 1000))
	q.Push(mkFQPacket(2, a, 0, 1000))
	q.Push(mkFQPacket(3, b, 1, 10))

	p, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Idx)

	p, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Idx)

	p, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.Idx)
}

func TestFQFlowOrderPreserved(t *testing.T) {
	q := NewFQ()
	a := packet.FlowIDFromUint32(1)
	q.Push(mkFQPacket(1, a, 0, 100))
	q.Push(mkFQPacket(2, a, 0, 50))
	q.Push(mkFQPacket(3, a, 0, 10))

	for _, want := range []uint64{1, 2, 3} {
		p, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, p.Idx)
	}
}

func TestFQSizeInvariant(t *testing.T) {
	q := NewFQ()
	fid := packet.FlowIDFromUint32(1)
	for i := uint64(0); i < 5; i++ {
		q.Push(mkFQPacket(i, fid, 0, float64ToClock(i)))
		assert.Equal(t, int(i+1), q.Size())
	}
	for i := 5; i > 0; i-- {
		_, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, i-1, q.Size())
	}
	assert.True(t, q.Empty())
}

func TestFQPopEmptyFails(t *testing.T) {
	q := NewFQ()
	_, err := q.Pop()
	assert.Error(t, err)
}

func float64ToClock(v uint64) packet.Clock {
	return packet.Clock(v)
}
