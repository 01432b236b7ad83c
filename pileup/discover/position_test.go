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
	"github.com/grailbio/vardiscover/pileup"
)

func TestSamplingRate(t *testing.T) {
	p := NewThinningPolicy(100, 1)
	expect.EQ(t, p.SamplingRate(1), 1.0)
	expect.EQ(t, p.SamplingRate(100), 1.0)
	expect.EQ(t, p.SamplingRate(300), 0.25)
	expect.True(t, p.SamplingRate(101) < 1)
	expect.True(t, p.SamplingRate(1000) < p.SamplingRate(500))

	unlimited := NewThinningPolicy(0, 1)
	expect.EQ(t, unlimited.SamplingRate(1<<40), 1.0)
}

func TestThinningKeepsFirstObservations(t *testing.T) {
	pd := NewPositionData(0, 7, 'A', NewThinningPolicy(10, 1))
	for i := 0; i < 10; i++ {
		expect.True(t, pd.Add(NewObservedBase(0, 7, 'A', 'A')))
	}
	nKept := 10
	for i := 0; i < 990; i++ {
		if pd.Add(NewObservedBase(0, 7, 'A', 'C')) {
			nKept++
		}
	}
	expect.EQ(t, pd.NumObservations(), int64(1000))
	expect.EQ(t, pd.Size(), nKept)
	expect.True(t, nKept < 1000)
	expect.True(t, nKept > 10)
}

func TestKeepAll(t *testing.T) {
	pd := NewPositionData(0, 7, 'A', NewKeepAllPolicy(1))
	for i := 0; i < 1000; i++ {
		pd.Add(NewObservedBase(0, 7, 'A', 'G'))
	}
	expect.EQ(t, pd.Size(), 1000)
	expect.EQ(t, pd.NumObservations(), int64(1000))
}

func TestSubSample(t *testing.T) {
	pd := NewPositionData(0, 3, 'C', NewKeepAllPolicy(1))
	for i := 0; i < 20; i++ {
		b := NewObservedBase(0, 3, 'C', 'C')
		b.ReadIndex = int32(i)
		pd.Add(b)
	}
	for _, n := range []int{30, 20, 15, 5, 5, 0} {
		before := pd.Size()
		pd.SubSample(n)
		expect.True(t, pd.Size() <= before, "n=%d", n)
		if before <= n {
			expect.EQ(t, pd.Size(), before, "n=%d", n)
		} else {
			expect.EQ(t, pd.Size(), n, "n=%d", n)
		}
	}
	expect.EQ(t, pd.NumObservations(), int64(20))
}

func TestSubSampleKeepsDistinctObservations(t *testing.T) {
	pd := NewPositionData(0, 3, 'C', NewKeepAllPolicy(2))
	for i := 0; i < 50; i++ {
		b := NewObservedBase(0, 3, 'C', 'C')
		b.ReadIndex = int32(i)
		pd.Add(b)
	}
	pd.SubSample(10)
	seen := map[int32]bool{}
	for _, b := range pd.Observations() {
		expect.False(t, seen[b.ReadIndex])
		seen[b.ReadIndex] = true
	}
	expect.EQ(t, len(seen), 10)
}

func TestObserveCandidateIndel(t *testing.T) {
	pd := NewPositionData(0, 1, 'C', NewKeepAllPolicy(1))
	expect.False(t, pd.HasCandidateIndels())
	expect.Nil(t, pd.Indels())

	a := NewIndelRegion(0, 1, 10, "TTTTTTTT", "-TTTTTTT")
	got := pd.ObserveCandidateIndel(a, Support{Entry: 1})
	expect.True(t, got == a)
	b := NewIndelRegion(0, 1, 10, "TTTTTTTT", "-TTTTTTT")
	got = pd.ObserveCandidateIndel(b, Support{Entry: 2, Reverse: true})
	expect.True(t, got == a)
	other := NewIndelRegion(0, 1, 10, "-TTTTTTTT", "TTTTTTTTT")
	pd.ObserveCandidateIndel(other, Support{Entry: 3})

	expect.True(t, pd.HasCandidateIndels())
	indels := pd.Indels()
	expect.EQ(t, len(indels), 2)
	expect.True(t, indels[0] == a)
	expect.True(t, indels[1] == other)
	expect.EQ(t, a.Frequency(), 2)
	expect.EQ(t, a.ForwardFrequency(), 1)
	expect.EQ(t, a.ReverseFrequency(), 1)

	pd.FailIndel(b)
	expect.EQ(t, len(pd.Indels()), 1)
	failed := pd.FailedIndels()
	expect.EQ(t, len(failed), 1)
	expect.True(t, failed[0] == a)

	// Failing an indel that is not a candidate still records it.
	stray := NewIndelRegion(0, 1, 3, "-A", "AA")
	pd.FailIndel(stray)
	expect.EQ(t, len(pd.Indels()), 1)
	expect.EQ(t, len(pd.FailedIndels()), 2)
	pd.FailIndel(other)
	expect.False(t, pd.HasCandidateIndels())
	expect.Nil(t, pd.Indels())
}

func TestFilteredObservations(t *testing.T) {
	pd := NewPositionData(0, 5, 'G', NewKeepAllPolicy(1))
	obs := make([]ObservedBase, 4)
	for i := range obs {
		obs[i] = NewObservedBase(0, 5, 'G', "GGTN"[i])
		obs[i].Entry = EntryRef(i)
		pd.Add(obs[i])
	}
	pd.MarkFiltered(&obs[1])
	pd.MarkFiltered(&obs[1])
	pd.MarkFiltered(&obs[2])
	pd.MarkFiltered(&obs[3])
	expect.True(t, pd.IsFiltered(&obs[1]))
	expect.False(t, pd.IsFiltered(&obs[0]))
	expect.EQ(t, pd.NumFiltered(pileup.BaseG), 1)
	expect.EQ(t, pd.NumFiltered(pileup.BaseT), 1)
	expect.EQ(t, pd.NumFiltered(pileup.BaseX), 1)
	expect.EQ(t, pd.NumFiltered(pileup.BaseA), 0)
	expect.EQ(t, pd.TotalFiltered(), 3)
}
