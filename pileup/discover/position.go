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
	"github.com/grailbio/vardiscover/pileup"
)

// PositionData aggregates everything observed at one reference position:
// base observations, candidate indels starting at the position, and the
// indels a filter pass rejected.
type PositionData struct {
	RefIndex int
	Position PosType
	RefBase  byte

	observations []ObservedBase
	numSeen      int64
	policy       SamplingPolicy

	candidates indelSet
	failed     indelSet

	// filtered[b] holds the observations of base b rejected by a filter pass.
	filtered [pileup.NBaseEnum]map[obsKey]struct{}
	// nFiltered counts filtered observations over all bases.
	nFiltered int
}

// NewPositionData creates an empty PositionData.  policy must be non-nil.
func NewPositionData(refIndex int, pos PosType, refBase byte, policy SamplingPolicy) *PositionData {
	return &PositionData{
		RefIndex: refIndex,
		Position: pos,
		RefBase:  refBase,
		policy:   policy,
	}
}

// Add offers an observation.  Every call counts toward NumObservations; the
// sampling policy decides whether the observation is stored.  Add returns
// true iff it was stored.
func (pd *PositionData) Add(b ObservedBase) bool {
	pd.numSeen++
	if !pd.policy.Accept(pd.numSeen) {
		return false
	}
	pd.observations = append(pd.observations, b)
	return true
}

// NumObservations returns the number of Add calls, including observations
// the sampling policy dropped.
func (pd *PositionData) NumObservations() int64 {
	return pd.numSeen
}

// Size returns the number of stored observations.
func (pd *PositionData) Size() int {
	return len(pd.observations)
}

// Observations returns the stored observations.  The slice is owned by pd.
func (pd *PositionData) Observations() []ObservedBase {
	return pd.observations
}

// SubSample keeps a uniformly random subset of n stored observations.  It is
// a no-op when at most n observations are stored.
func (pd *PositionData) SubSample(n int) {
	if n < 0 {
		n = 0
	}
	if len(pd.observations) <= n {
		return
	}
	obs := pd.observations
	pd.policy.Shuffle(len(obs), func(i, j int) { obs[i], obs[j] = obs[j], obs[i] })
	pd.observations = obs[:n:n]
}

// ObserveCandidateIndel records one alignment's support for indel.  When a
// region with the same key is already tracked, indel is merged into it;
// otherwise indel itself becomes the tracked region.
func (pd *PositionData) ObserveCandidateIndel(indel *IndelRegion, s Support) *IndelRegion {
	if existing := pd.candidates.get(indel.Key()); existing != nil {
		indel.MergeInto(existing, s)
		return existing
	}
	indel.Observe(s)
	pd.candidates.add(indel)
	return indel
}

// FailIndel moves indel from the candidate set to the failed set.  The
// candidate removal happens whether or not indel was a candidate.
func (pd *PositionData) FailIndel(indel *IndelRegion) {
	if stored := pd.candidates.remove(indel); stored != nil {
		indel = stored
	}
	pd.failed.add(indel)
}

// HasCandidateIndels returns true iff at least one candidate indel is tracked.
func (pd *PositionData) HasCandidateIndels() bool {
	return pd.candidates.len() != 0
}

// Indels returns the candidate indels in the order they were first observed,
// or nil.
func (pd *PositionData) Indels() []*IndelRegion {
	return pd.candidates.list()
}

// FailedIndels returns the failed indels in the order they were failed, or
// nil.
func (pd *PositionData) FailedIndels() []*IndelRegion {
	return pd.failed.list()
}

// MarkFiltered records that a filter pass rejected b.
func (pd *PositionData) MarkFiltered(b *ObservedBase) {
	idx := b.BaseIndex()
	if pd.filtered[idx] == nil {
		pd.filtered[idx] = make(map[obsKey]struct{})
	}
	k := b.key()
	if _, ok := pd.filtered[idx][k]; ok {
		return
	}
	pd.filtered[idx][k] = struct{}{}
	pd.nFiltered++
}

// IsFiltered returns true iff MarkFiltered(b) was called.
func (pd *PositionData) IsFiltered(b *ObservedBase) bool {
	_, ok := pd.filtered[b.BaseIndex()][b.key()]
	return ok
}

// NumFiltered returns the number of filtered observations of the given
// pileup.Base{A,C,G,T,X} value.
func (pd *PositionData) NumFiltered(baseIndex byte) int {
	return len(pd.filtered[baseIndex])
}

// TotalFiltered returns the number of filtered observations.
func (pd *PositionData) TotalFiltered() int {
	return pd.nFiltered
}
