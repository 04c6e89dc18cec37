// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package dist

import (
	"math"
	"math/rand"

	"github.com/heistp/advsched/internal/simerr"
)

// Config is the parsed form of a distribution's YAML settings, mirroring
// distribution_factory.cpp's dispatch over a "type" discriminator.
type Config struct {
	Type string `yaml:"type"`

	// constant
	Value *float64 `yaml:"value,omitempty"`

	// exponential
	Rate *float64 `yaml:"rate,omitempty"`

	// normal
	Mu    *float64 `yaml:"mu,omitempty"`
	Sigma *float64 `yaml:"sigma,omitempty"`
	Min   *float64 `yaml:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty"`

	// uniform, variant 1
	Lower *float64 `yaml:"lower,omitempty"`
	Upper *float64 `yaml:"upper,omitempty"`

	// uniform, variant 2 (moment matching)
	MeanTarget *float64 `yaml:"mean,omitempty"`
	StdTarget  *float64 `yaml:"std,omitempty"`
}

// FromConfig constructs a Distribution from c, using src for randomness.
func FromConfig(c Config, src rand.Source) (Distribution, error) {
	switch c.Type {
	case "constant":
		if c.Value == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'value' for a constant distribution"}
		}
		return NewConstant(*c.Value), nil

	case "exponential":
		if c.Rate == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'rate' for an exponential distribution"}
		}
		return NewExponential(*c.Rate, src)

	case "normal":
		if c.Mu == nil || c.Sigma == nil {
			return nil, &simerr.ConfigError{Message: "must specify 'mu' and 'sigma' for a normal distribution"}
		}
		min, max := math.Inf(-1), math.Inf(1)
		if c.Min != nil {
			min = *c.Min
		}
		if c.Max != nil {
			max = *c.Max
		}
		return NewNormal(*c.Mu, *c.Sigma, min, max, src), nil

	case "uniform":
		if c.Lower != nil && c.Upper != nil {
			return NewUniform(*c.Lower, *c.Upper, src), nil
		}
		if c.MeanTarget != nil && c.StdTarget != nil {
			return UniformFromMoments(*c.MeanTarget, *c.StdTarget, src), nil
		}
		return nil, &simerr.ConfigError{
			Message: "must specify either ('lower', 'upper') or ('mean', 'std') for a uniform distribution",
		}

	case "":
		return nil, &simerr.ConfigError{Message: "no distribution type specified"}

	default:
		return nil, &simerr.ConfigError{Message: "unknown distribution type: " + c.Type}
	}
}
