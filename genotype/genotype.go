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

// Package genotype summarizes per-sample allele support at a reference
// position and renders it as VCF alleles.
package genotype

import (
	"fmt"

	"github.com/grailbio/vardiscover/encoding/vcf"
	"github.com/grailbio/vardiscover/pileup"
)

// Indel is one indel allele.  From and To start with the anchor base (the
// reference base at the site's position) followed by the gap-padded indel
// region.
type Indel struct {
	From    string
	To      string
	Forward uint32
	Reverse uint32
}

// Count returns the support on both strands.
func (i *Indel) Count() uint32 {
	return i.Forward + i.Reverse
}

// SampleCountInfo holds one sample's support at a position.
type SampleCountInfo struct {
	// Counts[b][0] is the number of forward-strand observations of base b
	// (pileup.Base{A,C,G,T,X}) that passed filters, Counts[b][1] the
	// reverse-strand count.
	Counts [pileup.NBaseEnum][2]uint32
	// Filtered counts observations rejected by a filter.
	Filtered uint32
	Indels   []Indel
}

// AddBase records one observation of base (a pileup.Base{A,C,G,T,X} value).
func (c *SampleCountInfo) AddBase(base byte, reverse bool) {
	strand := 0
	if reverse {
		strand = 1
	}
	c.Counts[base][strand]++
}

// BaseCount returns the number of observations of base on both strands.
func (c *SampleCountInfo) BaseCount(base byte) uint32 {
	return c.Counts[base][0] + c.Counts[base][1]
}

// Depth returns the number of base observations that passed filters.
func (c *SampleCountInfo) Depth() uint32 {
	var n uint32
	for b := range c.Counts {
		n += c.Counts[b][0] + c.Counts[b][1]
	}
	return n
}

// AddIndel adds support for the indel allele from/to, merging it with an
// earlier allele with the same strings.
func (c *SampleCountInfo) AddIndel(from, to string, forward, reverse uint32) {
	for i := range c.Indels {
		if c.Indels[i].From == from && c.Indels[i].To == to {
			c.Indels[i].Forward += forward
			c.Indels[i].Reverse += reverse
			return
		}
	}
	c.Indels = append(c.Indels, Indel{From: from, To: to, Forward: forward, Reverse: reverse})
}

// Site is the support of every sample at one reference position.
type Site struct {
	RefBase byte
	Samples []SampleCountInfo
}

// NewSite creates a Site with nSamples empty samples.
func NewSite(refBase byte, nSamples int) *Site {
	return &Site{
		RefBase: pileup.UpperBase(refBase),
		Samples: make([]SampleCountInfo, nSamples),
	}
}

// Alleles is a site's allele list in VCF form.
type Alleles struct {
	Ref  string
	Alts []string
	// AD[s][0] is the reference depth of sample s; AD[s][i] is the depth of
	// Alts[i-1].
	AD [][]uint32
}

// Depth returns the total of all allele depths.
func (a *Alleles) Depth() uint32 {
	var n uint32
	for _, ad := range a.AD {
		for _, d := range ad {
			n += d
		}
	}
	return n
}

// candidate is one allele before VCF normalization.
type candidate struct {
	pair  vcf.AllelePair
	depth []uint32
}

func (s *Site) candidates() []candidate {
	refBase := s.RefBase
	refEnum := pileup.ASCIIToEnumTable[refBase]
	ref := candidate{
		pair:  vcf.AllelePair{From: string(refBase), To: string(refBase)},
		depth: make([]uint32, len(s.Samples)),
	}
	for i := range s.Samples {
		ref.depth[i] = s.Samples[i].BaseCount(refEnum)
	}
	cands := []candidate{ref}
	for b := byte(0); b < pileup.NBase; b++ {
		if b == refEnum {
			continue
		}
		c := candidate{
			pair:  vcf.AllelePair{From: string(refBase), To: string(pileup.EnumToASCIITable[b])},
			depth: make([]uint32, len(s.Samples)),
		}
		var total uint32
		for i := range s.Samples {
			c.depth[i] = s.Samples[i].BaseCount(b)
			total += c.depth[i]
		}
		if total > 0 {
			cands = append(cands, c)
		}
	}
	byPair := make(map[vcf.AllelePair]int)
	for si := range s.Samples {
		for _, indel := range s.Samples[si].Indels {
			if indel.Count() == 0 {
				continue
			}
			p := vcf.AllelePair{From: indel.From, To: indel.To}
			idx, ok := byPair[p]
			if !ok {
				idx = len(cands)
				byPair[p] = idx
				cands = append(cands, candidate{pair: p, depth: make([]uint32, len(s.Samples))})
			}
			cands[idx].depth[si] += indel.Count()
		}
	}
	return cands
}

// Alleles builds the site's VCF allele list: the reference, every
// non-reference base with support, and every supported indel, rewritten
// against one reference allele and normalized.  Alternates that normalize
// to the same string are merged.
func (s *Site) Alleles() (Alleles, error) {
	cands := s.candidates()
	pairs := make([]vcf.AllelePair, len(cands))
	for i, c := range cands {
		pairs[i] = c.pair
	}
	from, tos, err := vcf.MergeIndelFrom(pairs)
	if err != nil {
		return Alleles{}, fmt.Errorf("genotype.Site.Alleles: %v", err)
	}
	n := vcf.Normalize(from, tos)
	result := Alleles{
		Ref: n.From,
		AD:  make([][]uint32, len(s.Samples)),
	}
	for si := range result.AD {
		result.AD[si] = make([]uint32, 1, len(cands))
	}
	altIndex := make(map[string]int)
	for ci, to := range n.To {
		col := 0
		if to != n.From {
			var ok bool
			if col, ok = altIndex[to]; !ok {
				result.Alts = append(result.Alts, to)
				col = len(result.Alts)
				altIndex[to] = col
				for si := range result.AD {
					result.AD[si] = append(result.AD[si], 0)
				}
			}
		}
		for si := range result.AD {
			result.AD[si][col] += cands[ci].depth[si]
		}
	}
	return result, nil
}
