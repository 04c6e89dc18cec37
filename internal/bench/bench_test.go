// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package bench

import (
	"testing"

	"github.com/heistp/advsched/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInnocentRoundTrip(t *testing.T) {
	frame := EncodeFrame(packet.Innocent, 1234)
	assert.Len(t, frame, innocentPacketSizeBytes)

	got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, packet.Innocent, got.Class)
	assert.EqualValues(t, 1234, got.JobSizeNs)
	assert.Equal(t, innocentPacketSizeBytes, got.PsizeBytes)
}

func TestEncodeDecodeAttackRoundTrip(t *testing.T) {
	frame := EncodeFrame(packet.Attack, 10000)
	assert.Len(t, frame, attackPacketSizeBytes)

	got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, packet.Attack, got.Class)
	assert.EqualValues(t, 10000, got.JobSizeNs)
}

func TestEncodeFrameReusesMemoisedHeader(t *testing.T) {
	f1 := EncodeFrame(packet.Attack, 1)
	f2 := EncodeFrame(packet.Attack, 2)
	headerLen := len(attackTemplate.headerBytes)
	assert.Equal(t, f1[:headerLen], f2[:headerLen])
	assert.NotEqual(t, f1[headerLen:], f2[headerLen:])
}

func TestDecodeFrameRejectsTruncatedPayload(t *testing.T) {
	frame := EncodeFrame(packet.Innocent, 1)
	_, err := DecodeFrame(frame[:len(frame)-innocentTemplateUDPPayloadLen()+2])
	assert.Error(t, err)
}

func innocentTemplateUDPPayloadLen() int {
	return innocentPacketSizeBytes - len(innocentTemplate.headerBytes)
}

func TestScheduleQueueEvictsWorstRatioOverCapacity(t *testing.T) {
	q := NewScheduleQueue(2)

	evicted := q.EnqueueBurst([]PacketParams{
		{Class: packet.Innocent, JobSizeNs: 1000, PsizeBytes: 1250}, // ratio 0.8
		{Class: packet.Attack, JobSizeNs: 50000, PsizeBytes: 64},    // ratio 781.25
	})
	assert.Empty(t, evicted)
	assert.Equal(t, 2, q.Len())

	evicted = q.EnqueueBurst([]PacketParams{
		{Class: packet.Innocent, JobSizeNs: 1100, PsizeBytes: 1250}, // ratio 0.88
	})
	require.Len(t, evicted, 1)
	assert.Equal(t, packet.Attack, evicted[0].Class)
	assert.Equal(t, 2, q.Len())
}

func TestScheduleQueueReleasesInWSJFOrder(t *testing.T) {
	q := NewScheduleQueue(10)
	q.EnqueueBurst([]PacketParams{
		{Class: packet.Attack, JobSizeNs: 50000, PsizeBytes: 64},
		{Class: packet.Innocent, JobSizeNs: 1000, PsizeBytes: 1250},
	})

	out := q.ScheduleBurst(10)
	require.Len(t, out, 2)
	assert.Equal(t, packet.Innocent, out[0].Class)
	assert.Equal(t, packet.Attack, out[1].Class)
}
