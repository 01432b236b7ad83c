// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package discover

import (
	"math/rand"
)

// SamplingPolicy decides which observations a PositionData keeps.
type SamplingPolicy interface {
	// Accept is called once per attempted add, with seen = the number of adds
	// attempted so far at this position, including this one.
	Accept(seen int64) bool
	// Shuffle permutes n elements through swap, uniformly at random.
	Shuffle(n int, swap func(i, j int))
}

// ThinningPolicy keeps the first SubSampleSize observations of a position.
// Past that point, an observation is kept with probability
//   1 / (1 + seen/SubSampleSize),
// so the accept rate decays smoothly with coverage instead of cutting off
// late reads.
type ThinningPolicy struct {
	SubSampleSize int
	rnd           *rand.Rand
}

// NewThinningPolicy creates a ThinningPolicy with a private random source.
func NewThinningPolicy(subSampleSize int, seed int64) *ThinningPolicy {
	return &ThinningPolicy{
		SubSampleSize: subSampleSize,
		rnd:           rand.New(rand.NewSource(seed)),
	}
}

// SamplingRate returns the accept probability after seen attempts.
func (p *ThinningPolicy) SamplingRate(seen int64) float64 {
	if p.SubSampleSize <= 0 || seen <= int64(p.SubSampleSize) {
		return 1
	}
	return 1 / (1 + float64(seen)/float64(p.SubSampleSize))
}

// Accept implements SamplingPolicy.
func (p *ThinningPolicy) Accept(seen int64) bool {
	rate := p.SamplingRate(seen)
	if rate >= 1 {
		return true
	}
	return p.rnd.Float64() < rate
}

// Shuffle implements SamplingPolicy.
func (p *ThinningPolicy) Shuffle(n int, swap func(i, j int)) {
	p.rnd.Shuffle(n, swap)
}

// KeepAllPolicy accepts every observation.
type KeepAllPolicy struct {
	rnd *rand.Rand
}

// NewKeepAllPolicy creates a KeepAllPolicy; seed drives Shuffle.
func NewKeepAllPolicy(seed int64) *KeepAllPolicy {
	return &KeepAllPolicy{rnd: rand.New(rand.NewSource(seed))}
}

// Accept implements SamplingPolicy.
func (p *KeepAllPolicy) Accept(seen int64) bool { return true }

// Shuffle implements SamplingPolicy.
func (p *KeepAllPolicy) Shuffle(n int, swap func(i, j int)) {
	p.rnd.Shuffle(n, swap)
}
