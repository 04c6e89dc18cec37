// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryConstructsEachKnownPolicy(t *testing.T) {
	for _, policy := range []string{"fcfs", "sjf", "wsjf", "sjf_inorder", "wsjf_inorder", "fq", "hffs"} {
		q, err := New(policy, Options{})
		require.NoError(t, err, policy)
		assert.Equal(t, policy, q.Name())
	}
}

func TestFactoryRejectsUnknownPolicy(t *testing.T) {
	_, err := New("bogus", Options{})
	assert.Error(t, err)
}
