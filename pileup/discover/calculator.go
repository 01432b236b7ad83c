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
	"strings"

	"github.com/grailbio/vardiscover/genome"
	"github.com/grailbio/vardiscover/pileup"
)

// RawIndel is an indel as reported by a single alignment.  Start is the
// 0-based reference position of the base left of the gap.  From and To have
// equal length, and exactly one of them consists of gap characters: From for
// an insertion, To for a deletion.
type RawIndel struct {
	Start PosType
	From  string
	To    string
}

// Calculator maps raw indels to their canonical IndelRegion.
//
// An indel inside a repeat can be placed at several alignment coordinates
// with the same resulting sequence.  Determine first slides the indel as far
// left as the repeat allows, then extends the region to the right across
// every base the indel could also have been placed next to.  The result
// depends only on the reference and the indel's effect on it, so all reads
// reporting the same event produce the same IndelKey.
type Calculator struct {
	genome         genome.Genome
	FlankLeftSize  int
	FlankRightSize int
}

// NewCalculator creates a Calculator over g.
func NewCalculator(g genome.Genome, flankLeftSize, flankRightSize int) *Calculator {
	return &Calculator{
		genome:         g,
		FlankLeftSize:  flankLeftSize,
		FlankRightSize: flankRightSize,
	}
}

func isAllGaps(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != pileup.GapChar {
			return false
		}
	}
	return true
}

// Determine returns the canonical region for raw on reference refIndex, or
// nil when the indel does not fit inside the reference (or is not a pure
// insertion or deletion).  The returned region has SampleIndex 0 and no
// support; callers set the sample and record support through PositionData.
func (c *Calculator) Determine(refIndex int, raw RawIndel) *IndelRegion {
	k := len(raw.From)
	if k == 0 || len(raw.To) != k {
		return nil
	}
	insertion := isAllGaps(raw.From)
	deletion := isAllGaps(raw.To)
	if insertion == deletion {
		return nil
	}
	refLen := c.genome.Len(refIndex)
	start := int(raw.Start)
	if start < 0 || start >= refLen {
		return nil
	}
	var seq []byte
	if insertion {
		seq = []byte(strings.ToUpper(raw.To))
	} else {
		if start+k >= refLen {
			return nil
		}
		// The deleted bases are taken from the reference, not from raw.From,
		// so that a read-level mismatch cannot change the region's identity.
		seq = []byte(c.genome.GetRange(refIndex, start+1, k))
	}

	// Slide left while the anchor base equals the indel's last base.  Each
	// step rotates the indel sequence right by one.
	for start > 0 && c.genome.Get(refIndex, start) == seq[k-1] {
		last := seq[k-1]
		copy(seq[1:], seq[:k-1])
		seq[0] = last
		start--
	}

	// Extend right across the bases the indel could be shifted over.
	right := start + 1
	if deletion {
		right += k
	}
	n := 0
	for right+n < refLen && c.genome.Get(refIndex, right+n) == seq[n%k] {
		n++
	}
	tail := c.genome.GetRange(refIndex, right, n)
	gaps := strings.Repeat(string(pileup.GapChar), k)
	var from, to string
	if deletion {
		from = string(seq) + tail
		to = gaps + tail
	} else {
		from = gaps + tail
		to = string(seq) + tail
	}
	end := right + n
	region := NewIndelRegion(refIndex, PosType(start), PosType(end), from, to)
	region.FlankLeft = c.genome.GetRange(refIndex, start+1-c.FlankLeftSize, c.FlankLeftSize)
	region.FlankRight = c.genome.GetRange(refIndex, end, c.FlankRightSize)
	return region
}
