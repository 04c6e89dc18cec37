// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package config parses the YAML configuration file that describes one
// simulation run: the queueing policy, application, and the innocent
// and (optional) attack traffic generators, grounded on ndn-dpdk's
// appinit config-loading pattern.
package config

import (
	"os"

	"github.com/heistp/advsched/internal/app"
	"github.com/heistp/advsched/internal/queue"
	"github.com/heistp/advsched/internal/simerr"
	"github.com/heistp/advsched/internal/traffic"
	"gopkg.in/yaml.v3"
)

// HFFS carries the optional bucket-count/scale-factor knobs for the
// hffs policy, folded into queue.Options at construction.
type HFFS struct {
	NumBuckets  int     `yaml:"num_buckets,omitempty"`
	ScaleFactor float64 `yaml:"scale_factor,omitempty"`
}

// Config is the parsed form of the simulator's configuration file. Its
// Application and traffic fields reuse the factory Config types those
// packages already define, so a setting recognised here is guaranteed
// to be the same setting app.FromConfig/traffic.FromConfig consume.
type Config struct {
	Policy          string          `yaml:"policy"`
	MaxNumArrivals  *uint64         `yaml:"max_num_arrivals,omitempty"`
	Application     app.Config      `yaml:"application"`
	HFFS            HFFS            `yaml:"hffs,omitempty"`
	InnocentTraffic traffic.Config  `yaml:"innocent_traffic"`
	AttackTraffic   *traffic.Config `yaml:"attack_traffic,omitempty"`
}

// Load reads and parses the YAML file at path, applying the structural
// validation spec §7 assigns to ConfigError.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &simerr.ConfigError{Message: "cannot read config file: " + err.Error()}
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, &simerr.ConfigError{Message: "cannot parse config file: " + err.Error()}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Policy == "" {
		return &simerr.ConfigError{Message: "missing required setting: policy"}
	}
	if c.Application.Type == "" {
		return &simerr.ConfigError{Message: "missing required setting: application.type"}
	}
	if c.InnocentTraffic.Type == "" {
		return &simerr.ConfigError{Message: "missing required setting: innocent_traffic"}
	}

	isTrace := c.InnocentTraffic.Type == "trace"
	if isTrace && c.MaxNumArrivals != nil {
		return &simerr.ConfigError{
			Message: "max_num_arrivals must not be set when innocent_traffic is trace-driven",
		}
	}
	if !isTrace && c.MaxNumArrivals == nil {
		return &simerr.ConfigError{
			Message: "max_num_arrivals is required unless innocent_traffic is trace-driven",
		}
	}
	if c.AttackTraffic != nil && c.AttackTraffic.Type == "trace" {
		return &simerr.ConfigError{Message: "attack_traffic cannot be trace-driven"}
	}
	return nil
}

// QueueOptions translates the config's hffs section into queue.Options.
func (c *Config) QueueOptions() queue.Options {
	return queue.Options{
		HFFSNumBuckets:  c.HFFS.NumBuckets,
		HFFSScaleFactor: c.HFFS.ScaleFactor,
	}
}
