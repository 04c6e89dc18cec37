// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package app

import (
	"math/rand"

	"github.com/heistp/advsched/internal/dist"
	"github.com/heistp/advsched/internal/simerr"
)

// Config is the parsed form of an application's YAML settings, mirroring
// application_factory.cpp's dispatch over a "type" discriminator.
type Config struct {
	Type string `yaml:"type"`

	Heuristic          bool     `yaml:"heuristic"`
	ServiceTimeScaling *float64 `yaml:"stsf"`
	MaxAttackJobSizeNs *float64 `yaml:"max_attack_job_size_ns"`

	// iid_job_sizes
	JobSizeDist *dist.Config `yaml:"job_size_ns_dist,omitempty"`

	// tcp_reassembly
	MaxTrackedFlows int `yaml:"max_tracked_flows,omitempty"`
}

// FromConfig constructs an Application from c.
func FromConfig(c Config, src rand.Source) (Application, error) {
	if c.ServiceTimeScaling == nil {
		return nil, &simerr.ConfigError{
			Message: "must specify 'stsf' (service time scale factor) for any application",
		}
	}
	if c.MaxAttackJobSizeNs == nil {
		return nil, &simerr.ConfigError{
			Message: "must specify 'max_attack_job_size_ns' for any application",
		}
	}
	params := Parameters{
		UseHeuristic:           c.Heuristic,
		ServiceTimeScaleFactor: *c.ServiceTimeScaling,
		MaxAttackJobSizeNs:     *c.MaxAttackJobSizeNs,
	}

	switch c.Type {
	case "echo":
		return NewEcho(), nil

	case "iid_job_sizes":
		if c.JobSizeDist == nil {
			return nil, &simerr.ConfigError{
				Message: "must specify 'job_size_ns_dist' for iid_job_sizes application",
			}
		}
		d, err := dist.FromConfig(*c.JobSizeDist, src)
		if err != nil {
			return nil, err
		}
		return NewIIDJobSizes(d), nil

	case "tcp_reassembly":
		return NewTCPReassembly(params, c.MaxTrackedFlows)

	case "":
		return nil, &simerr.ConfigError{Message: "no application type specified"}

	default:
		return nil, &simerr.ConfigError{Message: "unknown application type: " + c.Type}
	}
}
