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
	"fmt"
	"sort"
)

// IndelKey is the identity of an IndelRegion.  Two observations with equal
// keys are the same indel, whatever flanking context each read captured.
type IndelKey struct {
	RefIndex int
	Start    PosType
	End      PosType
	Sample   int
	From     string
	To       string
}

// Support describes one alignment supporting an indel.
type Support struct {
	Entry     EntryRef
	Reverse   bool
	ReadIndex int32
	// Quals are the base qualities of the read bases covering the indel.
	Quals []byte
}

// IndelRegion is the canonical representation of an indel, as produced by
// Calculator.  From and To are gap-padded to equal length; Start is the
// reference position of the base left of the first gap and End the position
// of the base right of the last gap.
//
// From/To/Start/End/RefIndex/SampleIndex are fixed at construction; only
// frequencies, supporting sets and the filtered flag change afterward.
type IndelRegion struct {
	RefIndex    int
	Start       PosType
	End         PosType
	SampleIndex int
	FlankLeft   string
	FlankRight  string

	from             string
	to               string
	matchesReference bool

	forwardFrequency int
	reverseFrequency int
	filtered         bool

	supportingEntries   map[EntryRef]struct{}
	forwardReadIndices  map[int32]struct{}
	reverseReadIndices  map[int32]struct{}
	forwardQualityScore map[string]struct{}
	reverseQualityScore map[string]struct{}
}

// NewIndelRegion creates a region with no supporting observations.
func NewIndelRegion(refIndex int, start, end PosType, from, to string) *IndelRegion {
	return &IndelRegion{
		RefIndex:         refIndex,
		Start:            start,
		End:              end,
		from:             from,
		to:               to,
		matchesReference: from == to,
	}
}

// From returns the reference allele, gap-padded.
func (r *IndelRegion) From() string { return r.from }

// To returns the read allele, gap-padded.
func (r *IndelRegion) To() string { return r.to }

// MatchesReference returns true iff From == To.
func (r *IndelRegion) MatchesReference() bool { return r.matchesReference }

// Key returns the merge key of the region.
func (r *IndelRegion) Key() IndelKey {
	return IndelKey{
		RefIndex: r.RefIndex,
		Start:    r.Start,
		End:      r.End,
		Sample:   r.SampleIndex,
		From:     r.from,
		To:       r.to,
	}
}

// Equal compares merge keys.
func (r *IndelRegion) Equal(other *IndelRegion) bool {
	return r.Key() == other.Key()
}

// FromInContext returns FlankLeft + From + FlankRight.
func (r *IndelRegion) FromInContext() string {
	return r.FlankLeft + r.from + r.FlankRight
}

// ToInContext returns FlankLeft + To + FlankRight.
func (r *IndelRegion) ToInContext() string {
	return r.FlankLeft + r.to + r.FlankRight
}

// Frequency returns the number of supporting observations on both strands,
// or 0 when the region is filtered.
func (r *IndelRegion) Frequency() int {
	if r.filtered {
		return 0
	}
	return r.forwardFrequency + r.reverseFrequency
}

// ForwardFrequency returns the forward-strand support, or 0 when filtered.
func (r *IndelRegion) ForwardFrequency() int {
	if r.filtered {
		return 0
	}
	return r.forwardFrequency
}

// ReverseFrequency returns the reverse-strand support, or 0 when filtered.
func (r *IndelRegion) ReverseFrequency() int {
	if r.filtered {
		return 0
	}
	return r.reverseFrequency
}

// MarkFiltered hides the region's support without discarding it.
func (r *IndelRegion) MarkFiltered() { r.filtered = true }

// RemoveFiltered undoes MarkFiltered.
func (r *IndelRegion) RemoveFiltered() { r.filtered = false }

// IsFiltered returns true iff MarkFiltered was called more recently than
// RemoveFiltered.
func (r *IndelRegion) IsFiltered() bool { return r.filtered }

// Observe records one supporting alignment.
func (r *IndelRegion) Observe(s Support) {
	if s.Reverse {
		r.reverseFrequency++
		r.reverseReadIndices = addInt32(r.reverseReadIndices, s.ReadIndex)
		r.reverseQualityScore = addQuals(r.reverseQualityScore, s.Quals)
	} else {
		r.forwardFrequency++
		r.forwardReadIndices = addInt32(r.forwardReadIndices, s.ReadIndex)
		r.forwardQualityScore = addQuals(r.forwardQualityScore, s.Quals)
	}
	if s.Entry != NoEntry {
		if r.supportingEntries == nil {
			r.supportingEntries = make(map[EntryRef]struct{})
		}
		r.supportingEntries[s.Entry] = struct{}{}
	}
}

// MergeInto adds everything r has accumulated to dst, then records s as one
// more supporting alignment of dst.  r is left unchanged.
func (r *IndelRegion) MergeInto(dst *IndelRegion, s Support) {
	dst.absorb(r)
	dst.Observe(s)
}

// absorb adds src's frequencies and sets to r.
func (r *IndelRegion) absorb(src *IndelRegion) {
	if src == r {
		return
	}
	r.forwardFrequency += src.forwardFrequency
	r.reverseFrequency += src.reverseFrequency
	for e := range src.supportingEntries {
		if r.supportingEntries == nil {
			r.supportingEntries = make(map[EntryRef]struct{})
		}
		r.supportingEntries[e] = struct{}{}
	}
	for i := range src.forwardReadIndices {
		r.forwardReadIndices = addInt32(r.forwardReadIndices, i)
	}
	for i := range src.reverseReadIndices {
		r.reverseReadIndices = addInt32(r.reverseReadIndices, i)
	}
	for q := range src.forwardQualityScore {
		r.forwardQualityScore = addQuals(r.forwardQualityScore, []byte(q))
	}
	for q := range src.reverseQualityScore {
		r.reverseQualityScore = addQuals(r.reverseQualityScore, []byte(q))
	}
}

// SupportingEntries returns the supporting alignment handles in increasing
// order.
func (r *IndelRegion) SupportingEntries() []EntryRef {
	entries := make([]EntryRef, 0, len(r.supportingEntries))
	for e := range r.supportingEntries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })
	return entries
}

// ReadIndices returns the distinct read indices of the supporting bases on
// the given strand, in increasing order.
func (r *IndelRegion) ReadIndices(reverse bool) []int32 {
	set := r.forwardReadIndices
	if reverse {
		set = r.reverseReadIndices
	}
	indices := make([]int32, 0, len(set))
	for i := range set {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// QualityScores returns the distinct quality-score strings observed on the
// given strand, sorted.
func (r *IndelRegion) QualityScores(reverse bool) [][]byte {
	set := r.forwardQualityScore
	if reverse {
		set = r.reverseQualityScore
	}
	keys := make([]string, 0, len(set))
	for q := range set {
		keys = append(keys, q)
	}
	sort.Strings(keys)
	quals := make([][]byte, len(keys))
	for i, q := range keys {
		quals[i] = []byte(q)
	}
	return quals
}

// Copy returns a deep copy of r.
func (r *IndelRegion) Copy() *IndelRegion {
	c := *r
	c.supportingEntries = nil
	c.forwardReadIndices = nil
	c.reverseReadIndices = nil
	c.forwardQualityScore = nil
	c.reverseQualityScore = nil
	c.forwardFrequency = 0
	c.reverseFrequency = 0
	c.absorb(r)
	return &c
}

// String implements fmt.Stringer.
func (r *IndelRegion) String() string {
	return fmt.Sprintf("[%d:%d-%d %s/%s s%d %s|%s f%d r%d filtered=%v]",
		r.RefIndex, r.Start, r.End, r.from, r.to, r.SampleIndex, r.FlankLeft, r.FlankRight,
		r.forwardFrequency, r.reverseFrequency, r.filtered)
}

func addInt32(set map[int32]struct{}, v int32) map[int32]struct{} {
	if set == nil {
		set = make(map[int32]struct{})
	}
	set[v] = struct{}{}
	return set
}

func addQuals(set map[string]struct{}, quals []byte) map[string]struct{} {
	if len(quals) == 0 {
		return set
	}
	if set == nil {
		set = make(map[string]struct{})
	}
	set[string(quals)] = struct{}{}
	return set
}

// indelSet is an insertion-ordered set of regions keyed by IndelKey.
type indelSet struct {
	byKey map[IndelKey]*IndelRegion
	order []*IndelRegion
}

func (s *indelSet) get(k IndelKey) *IndelRegion {
	return s.byKey[k]
}

func (s *indelSet) add(r *IndelRegion) {
	if s.byKey == nil {
		s.byKey = make(map[IndelKey]*IndelRegion)
	}
	k := r.Key()
	if _, ok := s.byKey[k]; ok {
		return
	}
	s.byKey[k] = r
	s.order = append(s.order, r)
}

// remove deletes the region with r's key and returns the stored region, or
// nil if there was none.
func (s *indelSet) remove(r *IndelRegion) *IndelRegion {
	k := r.Key()
	stored, ok := s.byKey[k]
	if !ok {
		return nil
	}
	delete(s.byKey, k)
	for i, o := range s.order {
		if o == stored {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return stored
}

func (s *indelSet) len() int {
	return len(s.order)
}

func (s *indelSet) list() []*IndelRegion {
	if len(s.order) == 0 {
		return nil
	}
	return append([]*IndelRegion(nil), s.order...)
}
