// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package traffic

import (
	"math/rand"
	"testing"

	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfigSyntheticInnocentDryRun(t *testing.T) {
	value := 800.0
	c := Config{
		Type:           "synthetic",
		NumFlows:       4,
		PacketSizeDist: &dist.Config{Type: "constant", Value: &value},
	}
	g, err := FromConfig(c, packet.Innocent, true, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.False(t, g.IsCalibrated())
	assert.EqualValues(t, 4, g.NumFlows())
}

func TestFromConfigSyntheticInnocentCalibrated(t *testing.T) {
	value, rate := 800.0, 1.0e7
	c := Config{
		Type:           "synthetic",
		PacketSizeDist: &dist.Config{Type: "constant", Value: &value},
		RateBps:        &rate,
	}
	g, err := FromConfig(c, packet.Innocent, false, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.True(t, g.IsCalibrated())
	got, err := g.CalibratedRateBitsPerSecond()
	require.NoError(t, err)
	assert.Equal(t, rate, got)
}

func TestFromConfigSyntheticInnocentRequiresRateOutsideDryRun(t *testing.T) {
	value := 800.0
	c := Config{Type: "synthetic", PacketSizeDist: &dist.Config{Type: "constant", Value: &value}}
	_, err := FromConfig(c, packet.Innocent, false, 0, rand.NewSource(1))
	assert.Error(t, err)
}

func TestFromConfigSyntheticAttackDryRun(t *testing.T) {
	rate := 1.0e6
	c := Config{Type: "synthetic", RateBps: &rate}
	g, err := FromConfig(c, packet.Attack, true, 1000, rand.NewSource(1))
	require.NoError(t, err)
	// Calibrated even in a dry run, but produces no arrivals.
	assert.True(t, g.IsCalibrated())
	assert.False(t, g.HasNewArrival())
}

func TestFromConfigSyntheticAttackCalibrated(t *testing.T) {
	rate, jsize := 1.2e7, 500.0
	psize := uint32(1500)
	c := Config{Type: "synthetic", RateBps: &rate, JobSizeNs: &jsize, PacketSizeBits: &psize}
	g, err := FromConfig(c, packet.Attack, false, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.True(t, g.HasNewArrival())
}

func TestFromConfigSyntheticAttackMissingFieldsOutsideDryRun(t *testing.T) {
	rate := 1.2e7
	c := Config{Type: "synthetic", RateBps: &rate}
	_, err := FromConfig(c, packet.Attack, false, 0, rand.NewSource(1))
	assert.Error(t, err)
}

func TestFromConfigTraceRejectsAttackClass(t *testing.T) {
	c := Config{Type: "trace", TraceFilePath: "/nonexistent"}
	_, err := FromConfig(c, packet.Attack, true, 0, rand.NewSource(1))
	assert.Error(t, err)
}

func TestFromConfigUnknownType(t *testing.T) {
	_, err := FromConfig(Config{Type: "bogus"}, packet.Innocent, true, 0, rand.NewSource(1))
	assert.Error(t, err)
}
