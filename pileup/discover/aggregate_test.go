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
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/vardiscover/genotype"
	"github.com/grailbio/vardiscover/pileup"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	pd := NewPositionData(0, 9, 'C', NewKeepAllPolicy(1))
	add := func(sample int, to byte, reverse bool, entry EntryRef) ObservedBase {
		b := NewObservedBase(sample, 9, 'C', to)
		b.MatchesForwardStrand = !reverse
		b.Entry = entry
		pd.Add(b)
		return b
	}
	add(0, 'C', false, 0)
	add(0, 'C', true, 1)
	low := add(0, 'A', false, 2)
	pd.MarkFiltered(&low)
	add(1, 'A', true, 3)

	del := NewIndelRegion(0, 9, 18, "TTTTTTTT", "-TTTTTTT")
	del.SampleIndex = 1
	pd.ObserveCandidateIndel(del, Support{Entry: 3, Reverse: true})
	failed := NewIndelRegion(0, 9, 19, "-TTTTTTTT", "TTTTTTTTT")
	pd.ObserveCandidateIndel(failed, Support{Entry: 4})
	pd.FailIndel(failed)

	site := Aggregate(pd, 2)
	expect.EQ(t, site.RefBase, byte('C'))
	expect.EQ(t, site.Samples[0].Counts[pileup.BaseC], [2]uint32{1, 1})
	expect.EQ(t, site.Samples[0].BaseCount(pileup.BaseA), uint32(0))
	expect.EQ(t, site.Samples[0].Filtered, uint32(1))
	expect.EQ(t, len(site.Samples[0].Indels), 0)
	expect.EQ(t, site.Samples[1].Counts[pileup.BaseA], [2]uint32{0, 1})
	expect.EQ(t, site.Samples[1].Indels, []genotype.Indel{
		{From: "CTTTTTTTT", To: "C-TTTTTTT", Forward: 0, Reverse: 1},
	})

	alleles, err := site.Alleles()
	require.NoError(t, err)
	expect.EQ(t, alleles.Ref, "CT")
	expect.EQ(t, alleles.Alts, []string{"AT", "C"})
	expect.EQ(t, alleles.AD, [][]uint32{{2, 0, 0}, {0, 1, 1}})
}
