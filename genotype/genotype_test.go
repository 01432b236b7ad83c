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
package genotype_test

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/vardiscover/genotype"
	"github.com/grailbio/vardiscover/pileup"
)

func TestSampleCountInfo(t *testing.T) {
	var c genotype.SampleCountInfo
	c.AddBase(pileup.BaseA, false)
	c.AddBase(pileup.BaseA, true)
	c.AddBase(pileup.BaseT, true)
	expect.EQ(t, c.BaseCount(pileup.BaseA), uint32(2))
	expect.EQ(t, c.Counts[pileup.BaseT], [2]uint32{0, 1})
	expect.EQ(t, c.Depth(), uint32(3))

	c.AddIndel("CTT", "C-T", 1, 0)
	c.AddIndel("CTT", "C-T", 0, 2)
	c.AddIndel("C-TT", "CTTT", 1, 0)
	expect.EQ(t, len(c.Indels), 2)
	expect.EQ(t, c.Indels[0].Count(), uint32(3))
}

func TestAllelesSNP(t *testing.T) {
	site := genotype.NewSite('g', 2)
	for i := 0; i < 3; i++ {
		site.Samples[0].AddBase(pileup.BaseG, i%2 == 0)
	}
	site.Samples[1].AddBase(pileup.BaseG, false)
	site.Samples[1].AddBase(pileup.BaseT, false)
	site.Samples[1].AddBase(pileup.BaseT, true)

	a, err := site.Alleles()
	assert.NoError(t, err)
	expect.EQ(t, a.Ref, "G")
	expect.EQ(t, a.Alts, []string{"T"})
	expect.EQ(t, a.AD, [][]uint32{{3, 0}, {1, 2}})
	expect.EQ(t, a.Depth(), uint32(6))
}

func TestAllelesReferenceOnly(t *testing.T) {
	site := genotype.NewSite('C', 1)
	site.Samples[0].AddBase(pileup.BaseC, false)
	a, err := site.Alleles()
	assert.NoError(t, err)
	expect.EQ(t, a.Ref, "C")
	expect.EQ(t, len(a.Alts), 0)
	expect.EQ(t, a.AD, [][]uint32{{1}})
}

func TestAllelesIndels(t *testing.T) {
	// Anchor C before a run of eight Ts.
	site := genotype.NewSite('C', 2)
	site.Samples[0].AddBase(pileup.BaseC, false)
	site.Samples[0].AddBase(pileup.BaseA, false)
	site.Samples[0].AddIndel("CTTTTTTTT", "C-TTTTTTT", 2, 1)
	site.Samples[1].AddIndel("C-TTTTTTTT", "CTTTTTTTTT", 0, 4)
	site.Samples[1].AddIndel("CTTTTTTTT", "C-TTTTTTT", 1, 0)

	a, err := site.Alleles()
	assert.NoError(t, err)
	expect.EQ(t, a.Ref, "CT")
	expect.EQ(t, a.Alts, []string{"AT", "C", "CTT"})
	expect.EQ(t, a.AD, [][]uint32{{1, 1, 3, 0}, {0, 0, 1, 4}})
}
