// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"testing"

	"github.com/heistp/advsched/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCFSOrdersByArrival(t *testing.T) {
	q := NewFCFS()
	fid := packet.FlowIDFromUint32(1)
	for i := uint64(0); i < 3; i++ {
		q.Push(packet.New(i, fid, packet.Innocent, 100))
	}
	for i := uint64(0); i < 3; i++ {
		p, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, i, p.Idx)
	}
	assert.True(t, q.Empty())
}

func TestFCFSPeekDoesNotRemove(t *testing.T) {
	q := NewFCFS()
	fid := packet.FlowIDFromUint32(1)
	q.Push(packet.New(0, fid, packet.Innocent, 100))
	p1, err := q.Peek()
	require.NoError(t, err)
	p2, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, q.Size())
}

func TestFCFSPopEmptyFails(t *testing.T) {
	q := NewFCFS()
	_, err := q.Pop()
	assert.Error(t, err)
	_, err = q.Peek()
	assert.Error(t, err)
}

func TestFCFSFlowOrderMaintained(t *testing.T) {
	assert.True(t, NewFCFS().FlowOrderMaintained())
}
