// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"math/rand"
	"testing"

	"github.com/heistp/advsched/internal/dist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfigRequiresCommonFields(t *testing.T) {
	_, err := FromConfig(Config{Type: "echo"}, rand.NewSource(1))
	assert.Error(t, err)
}

func TestFromConfigEcho(t *testing.T) {
	stsf, max := 1.0, 1000.0
	a, err := FromConfig(Config{Type: "echo", ServiceTimeScaling: &stsf, MaxAttackJobSizeNs: &max}, rand.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, "echo", a.Type())
}

func TestFromConfigIIDRequiresDist(t *testing.T) {
	stsf, max := 1.0, 1000.0
	_, err := FromConfig(Config{Type: "iid_job_sizes", ServiceTimeScaling: &stsf, MaxAttackJobSizeNs: &max}, rand.NewSource(1))
	assert.Error(t, err)
}

func TestFromConfigIID(t *testing.T) {
	stsf, max, value := 1.0, 1000.0, 50.0
	a, err := FromConfig(Config{
		Type: "iid_job_sizes", ServiceTimeScaling: &stsf, MaxAttackJobSizeNs: &max,
		JobSizeDist: &dist.Config{Type: "constant", Value: &value},
	}, rand.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, "iid_job_sizes", a.Type())
}

func TestFromConfigTCPReassembly(t *testing.T) {
	stsf, max := 1.0, 1000.0
	a, err := FromConfig(Config{Type: "tcp_reassembly", ServiceTimeScaling: &stsf, MaxAttackJobSizeNs: &max}, rand.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, "tcp_reassembly", a.Type())
	assert.True(t, a.IsFlowOrderRequired())
}

func TestFromConfigUnknownType(t *testing.T) {
	stsf, max := 1.0, 1000.0
	_, err := FromConfig(Config{Type: "bogus", ServiceTimeScaling: &stsf, MaxAttackJobSizeNs: &max}, rand.NewSource(1))
	assert.Error(t, err)
}
