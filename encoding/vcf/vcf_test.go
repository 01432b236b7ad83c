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
package vcf_test

import (
	"testing"

	"github.com/grailbio/vardiscover/encoding/vcf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		tos      []string
		wantFrom string
		wantTo   []string
	}{
		{
			name:     "deletions",
			from:     "GTAC",
			tos:      []string{"G--C", "G-AC"},
			wantFrom: "GTA",
			wantTo:   []string{"G", "GA"},
		},
		{
			name:     "snp_at_indel_site",
			from:     "G-C",
			tos:      []string{"T", "GTC"},
			wantFrom: "G",
			wantTo:   []string{"T", "GT"},
		},
		{
			name:     "snp_only",
			from:     "A",
			tos:      []string{"A", "C"},
			wantFrom: "A",
			wantTo:   []string{"A", "C"},
		},
		{
			name:     "homopolymer_insertion",
			from:     "C-TTTT",
			tos:      []string{"CTTTTT"},
			wantFrom: "C",
			wantTo:   []string{"CT"},
		},
		{
			name:     "homopolymer_deletion",
			from:     "CTTTT",
			tos:      []string{"C-TTT"},
			wantFrom: "CT",
			wantTo:   []string{"C"},
		},
		{
			name:     "reference_only",
			from:     "ACGT",
			tos:      []string{"ACGT"},
			wantFrom: "A",
			wantTo:   []string{"A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vcf.Normalize(tt.from, tt.tos)
			assert.Equal(t, tt.wantFrom, got.From)
			assert.Equal(t, tt.wantTo, got.To)
			assert.Equal(t, tt.wantFrom, got.Mapping[tt.from])
			for i, to := range tt.tos {
				assert.Equal(t, tt.wantTo[i], got.Mapping[to])
			}
		})
	}
}

func TestMergeIndelFrom(t *testing.T) {
	from, tos, err := vcf.MergeIndelFrom([]vcf.AllelePair{
		{From: "A", To: "T"},
		{From: "A", To: "A"},
		{From: "ATTTGC", To: "A----C"},
		{From: "A-TTTG", To: "ATTTTG"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A-TTTGC", from)
	assert.Equal(t, []string{"T-TTTGC", "A-TTTGC", "A-----C", "ATTTTGC"}, tos)
}

func TestMergeIndelFromPassThrough(t *testing.T) {
	from, tos, err := vcf.MergeIndelFrom([]vcf.AllelePair{
		{From: "G", To: "G"},
		{From: "G", To: "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "G", from)
	assert.Equal(t, []string{"G", "C"}, tos)

	from, tos, err = vcf.MergeIndelFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, "", from)
	assert.Nil(t, tos)
}

func TestMergeIndelFromErrors(t *testing.T) {
	_, _, err := vcf.MergeIndelFrom([]vcf.AllelePair{
		{From: "A", To: "T"},
		{From: "CTT", To: "C--"},
	})
	assert.Error(t, err)

	_, _, err = vcf.MergeIndelFrom([]vcf.AllelePair{
		{From: "ATTG", To: "A--G"},
		{From: "ACC", To: "A-C"},
	})
	assert.Error(t, err)

	_, _, err = vcf.MergeIndelFrom([]vcf.AllelePair{{From: "", To: "A"}})
	assert.Error(t, err)
}

func TestMergeThenNormalize(t *testing.T) {
	// One-base deletion and one-base insertion in a T homopolymer, anchored
	// at the C before the run.
	from, tos, err := vcf.MergeIndelFrom([]vcf.AllelePair{
		{From: "C", To: "C"},
		{From: "CTTTTTTTT", To: "C-TTTTTTT"},
		{From: "C-TTTTTTTT", To: "CTTTTTTTTT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "C-TTTTTTTT", from)
	assert.Equal(t, []string{"C-TTTTTTTT", "C--TTTTTTT", "CTTTTTTTTT"}, tos)

	n := vcf.Normalize(from, tos)
	assert.Equal(t, "CT", n.From)
	assert.Equal(t, []string{"CT", "C", "CTT"}, n.To)
}
