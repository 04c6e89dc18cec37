// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package dist implements the statistical distribution family used to
// draw inter-arrival times and job sizes: constant, exponential, normal
// (with optional truncation), and uniform (directly parameterized or
// derived from a target mean/std). Sampling is backed by
// gonum.org/v1/gonum/stat/distuv, grounded on
// common/distributions from the original design.
package dist

import (
	"math"
	"math/rand"

	"github.com/heistp/advsched/internal/simerr"
	"gonum.org/v1/gonum/stat/distuv"
)

// gonumSource adapts a math/rand.Source to the golang.org/x/exp/rand.Source
// interface required by gonum's distuv package, so callers throughout this
// module can keep using the standard library's math/rand.Source.
type gonumSource struct {
	src rand.Source
}

func (s gonumSource) Uint64() uint64 {
	if s64, ok := s.src.(rand.Source64); ok {
		return s64.Uint64()
	}
	return uint64(s.src.Int63())
}

func (s gonumSource) Seed(seed uint64) {
	s.src.Seed(int64(seed))
}

// Statistics summarizes a distribution's sample mean and standard
// deviation, either analytically known or estimated by sampling.
type Statistics struct {
	Mean float64
	Std  float64
}

// Distribution draws independent samples in simulation time units.
type Distribution interface {
	// Type returns the distribution name (eg "exponential").
	Type() string

	// Sample draws one value from the distribution.
	Sample() float64

	// SampleStats returns the distribution's mean and standard
	// deviation, exact where known analytically, else estimated.
	SampleStats() Statistics

	// Min and Max bound the support of the distribution ((-Inf, +Inf)
	// unless overridden, eg by truncation).
	Min() float64
	Max() float64
}

// analyzeSamples computes the sample mean and (Bessel-corrected)
// standard deviation of v, used to characterize distributions (like a
// truncated normal) whose moments have no closed form.
func analyzeSamples(v []float64) Statistics {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))

	var accum float64
	for _, x := range v {
		d := x - mean
		accum += d * d
	}
	std := math.Sqrt(accum / float64(len(v)-1))
	return Statistics{Mean: mean, Std: std}
}

// Constant always returns the same value.
type Constant struct {
	value float64
}

// NewConstant returns a Constant distribution fixed at value.
func NewConstant(value float64) *Constant { return &Constant{value: value} }

func (d *Constant) Type() string            { return "constant" }
func (d *Constant) Sample() float64         { return d.value }
func (d *Constant) SampleStats() Statistics { return Statistics{Mean: d.value, Std: 0} }
func (d *Constant) Min() float64            { return d.value }
func (d *Constant) Max() float64            { return d.value }

// Exponential draws from an exponential distribution with the given rate.
type Exponential struct {
	rate float64
	dist distuv.Exponential
}

// NewExponential returns an Exponential distribution with the given
// rate (events per unit time). rate must be positive.
func NewExponential(rate float64, src rand.Source) (*Exponential, error) {
	if rate <= 0 {
		return nil, &simerr.ConfigError{Message: "exponential distribution rate must be positive"}
	}
	return &Exponential{
		rate: rate,
		dist: distuv.Exponential{Rate: rate, Src: gonumSource{src}},
	}, nil
}

func (d *Exponential) Type() string    { return "exponential" }
func (d *Exponential) Sample() float64 { return d.dist.Rand() }
func (d *Exponential) SampleStats() Statistics {
	m := 1 / d.rate
	return Statistics{Mean: m, Std: m}
}
func (d *Exponential) Min() float64 { return 0 }
func (d *Exponential) Max() float64 { return math.Inf(1) }

// Normal draws from a (possibly truncated by rejection sampling) normal
// distribution.
type Normal struct {
	dist        distuv.Normal
	min, max    float64
	sampleStats Statistics
}

const normalTruncationSampleCount = 1_000_000

// NewNormal returns a Normal distribution with mean mu and standard
// deviation sigma, optionally truncated to [min, max]. When truncated,
// SampleStats is estimated by drawing normalTruncationSampleCount
// samples up front, since the truncated distribution's moments have no
// simple closed form.
func NewNormal(mu, sigma, min, max float64, src rand.Source) *Normal {
	d := &Normal{
		dist: distuv.Normal{Mu: mu, Sigma: sigma, Src: gonumSource{src}},
		min:  min,
		max:  max,
	}
	d.updateSampleStats()
	return d
}

func (d *Normal) Type() string { return "normal" }

func (d *Normal) IsTruncated() bool {
	return d.min != math.Inf(-1) || d.max != math.Inf(1)
}

func (d *Normal) Sample() float64 {
	for {
		s := d.dist.Rand()
		if s >= d.min && s <= d.max {
			return s
		}
	}
}

func (d *Normal) SampleStats() Statistics { return d.sampleStats }
func (d *Normal) Min() float64            { return d.min }
func (d *Normal) Max() float64            { return d.max }

func (d *Normal) updateSampleStats() {
	if !d.IsTruncated() {
		d.sampleStats = Statistics{Mean: d.dist.Mu, Std: d.dist.Sigma}
		return
	}
	v := make([]float64, normalTruncationSampleCount)
	for i := range v {
		v[i] = d.Sample()
	}
	d.sampleStats = analyzeSamples(v)
}

// Uniform draws uniformly from [a, b].
type Uniform struct {
	a, b float64
	dist distuv.Uniform
}

// NewUniform returns a Uniform distribution over [a, b].
func NewUniform(a, b float64, src rand.Source) *Uniform {
	return &Uniform{a: a, b: b, dist: distuv.Uniform{Min: a, Max: b, Src: gonumSource{src}}}
}

// UniformFromMoments returns the Uniform distribution with the given
// target mean and standard deviation, by moment-matching: for
// U ~ Uniform(a, b), mean = (a+b)/2 and std = (b-a)/sqrt(12).
func UniformFromMoments(mean, std float64, src rand.Source) *Uniform {
	b := mean + math.Sqrt(3)*std
	a := 2*mean - b
	return NewUniform(a, b, src)
}

func (d *Uniform) Type() string    { return "uniform" }
func (d *Uniform) Sample() float64 { return d.dist.Rand() }
func (d *Uniform) SampleStats() Statistics {
	return Statistics{
		Mean: (d.a + d.b) / 2,
		Std:  (d.b - d.a) / math.Sqrt(12),
	}
}
func (d *Uniform) Min() float64 { return d.a }
func (d *Uniform) Max() float64 { return d.b }
