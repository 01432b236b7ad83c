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
)

func TestIndelMergeIntoSumsStrands(t *testing.T) {
	existing := NewIndelRegion(0, 10, 14, "TTT", "-TT")
	existing.SampleIndex = 1
	existing.Observe(Support{Entry: 1, ReadIndex: 5, Quals: []byte{30}})

	again := NewIndelRegion(0, 10, 14, "TTT", "-TT")
	again.SampleIndex = 1
	again.FlankLeft = "ACGT"
	key := existing.Key()
	expect.True(t, again.Equal(existing))

	again.MergeInto(existing, Support{Entry: 2, Reverse: true, ReadIndex: 7, Quals: []byte{20}})
	again.MergeInto(existing, Support{Entry: 3, Reverse: true, ReadIndex: 7, Quals: []byte{20}})
	expect.EQ(t, existing.ForwardFrequency(), 1)
	expect.EQ(t, existing.ReverseFrequency(), 2)
	expect.EQ(t, existing.Frequency(), 3)
	expect.EQ(t, existing.Key(), key)
	expect.EQ(t, existing.SupportingEntries(), []EntryRef{1, 2, 3})
	expect.EQ(t, existing.ReadIndices(false), []int32{5})
	expect.EQ(t, existing.ReadIndices(true), []int32{7})
	expect.EQ(t, existing.QualityScores(true), [][]byte{{20}})
	// MergeInto leaves the source alone.
	expect.EQ(t, again.Frequency(), 0)
}

func TestIndelEqualityIgnoresFlanks(t *testing.T) {
	a := NewIndelRegion(0, 10, 14, "TTT", "-TT")
	a.FlankLeft, a.FlankRight = "AAA", "CCC"
	b := NewIndelRegion(0, 10, 14, "TTT", "-TT")
	expect.True(t, a.Equal(b))
	b.SampleIndex = 2
	expect.False(t, a.Equal(b))
	c := NewIndelRegion(0, 10, 14, "TTT", "--T")
	expect.False(t, a.Equal(c))
	expect.EQ(t, a.FromInContext(), "AAATTTCCC")
	expect.EQ(t, a.ToInContext(), "AAA-TTCCC")
}

func TestIndelFiltered(t *testing.T) {
	r := NewIndelRegion(0, 1, 3, "-A", "AA")
	for i := 0; i < 4; i++ {
		r.Observe(Support{Entry: EntryRef(i), Reverse: i%2 == 0})
	}
	expect.EQ(t, r.Frequency(), 4)
	r.MarkFiltered()
	expect.True(t, r.IsFiltered())
	expect.EQ(t, r.Frequency(), 0)
	expect.EQ(t, r.ForwardFrequency(), 0)
	expect.EQ(t, r.ReverseFrequency(), 0)
	r.Observe(Support{Entry: 9})
	expect.EQ(t, r.Frequency(), 0)
	r.RemoveFiltered()
	expect.EQ(t, r.Frequency(), 5)
	expect.EQ(t, r.ForwardFrequency(), 3)
	expect.EQ(t, r.ReverseFrequency(), 2)
}

func TestIndelMatchesReference(t *testing.T) {
	expect.True(t, NewIndelRegion(0, 1, 3, "AC", "AC").MatchesReference())
	expect.False(t, NewIndelRegion(0, 1, 3, "AC", "-C").MatchesReference())
}

func TestIndelCopy(t *testing.T) {
	r := NewIndelRegion(0, 1, 3, "-A", "AA")
	r.Observe(Support{Entry: 1, ReadIndex: 3})
	c := r.Copy()
	c.Observe(Support{Entry: 2, ReadIndex: 4})
	expect.EQ(t, r.Frequency(), 1)
	expect.EQ(t, c.Frequency(), 2)
	expect.EQ(t, r.ReadIndices(false), []int32{3})
	expect.EQ(t, c.ReadIndices(false), []int32{3, 4})
}
