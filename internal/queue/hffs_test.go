// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"testing"

	"github.com/heistp/advsched/internal/simerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHFFSApproximatesOrderingByBucket(t *testing.T) {
	q := NewHFFS(1024, 100)
	require.NoError(t, q.Push(mkSizedPacket(0, 1000, 1000))) // ratio 1.0 -> bucket 100
	require.NoError(t, q.Push(mkSizedPacket(1, 500, 1000)))  // ratio 0.5 -> bucket 50
	require.NoError(t, q.Push(mkSizedPacket(2, 1000, 500)))  // ratio 2.0 -> bucket 200

	for _, want := range []uint64{1, 0, 2} {
		p, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, p.Idx)
	}
}

func TestHFFSFIFOWithinBucket(t *testing.T) {
	q := NewHFFS(1024, 100)
	q.Push(mkSizedPacket(0, 1000, 1000))
	q.Push(mkSizedPacket(1, 1000, 1000))

	p, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Idx)
	p, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Idx)
}

func TestHFFSSizeInvariant(t *testing.T) {
	q := NewHFFS(1024, 100)
	for i := uint64(0); i < 5; i++ {
		q.Push(mkSizedPacket(i, 100, 100))
	}
	assert.Equal(t, 5, q.Size())
	for i := 5; i > 0; i-- {
		_, err := q.Pop()
		require.NoError(t, err)
	}
	assert.True(t, q.Empty())
}

func TestHFFSPushPropagatesOutOfRangeRatio(t *testing.T) {
	q := NewHFFS(8, 1)
	// ratio 1000.0 vastly exceeds the 8-bucket range; must fail, not clamp.
	err := q.Push(mkSizedPacket(0, 1000, 1))
	require.Error(t, err)
	var we *simerr.WeightOutOfRangeError
	assert.ErrorAs(t, err, &we)
	assert.Equal(t, 0, q.Size())
}

func TestHFFSNotFlowOrderMaintained(t *testing.T) {
	assert.False(t, NewHFFS(1024, 100).FlowOrderMaintained())
}
