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

	"github.com/grailbio/vardiscover/genotype"
	"github.com/grailbio/vardiscover/pileup"
	"github.com/stretchr/testify/require"
)

func TestPositionRowCodec(t *testing.T) {
	row := &PositionRow{
		RefID:   3,
		Pos:     123456,
		RefBase: 'C',
		Samples: []genotype.SampleCountInfo{
			{Filtered: 2},
			{Filtered: 0},
		},
	}
	row.Samples[0].Counts[pileup.BaseC] = [2]uint32{10, 7}
	row.Samples[0].Counts[pileup.BaseX] = [2]uint32{0, 1}
	row.Samples[0].AddIndel("CTTTT", "C-TTT", 3, 4)
	row.Samples[0].AddIndel("C-TTTT", "CTTTTT", 1, 0)
	row.Samples[1].Counts[pileup.BaseA] = [2]uint32{5, 5}

	b, err := MarshalPositionRow(nil, row)
	require.NoError(t, err)
	got, err := UnmarshalPositionRow(b)
	require.NoError(t, err)
	require.Equal(t, row, got.(*PositionRow))

	// A scratch buffer that is too small is not used.
	scratch := make([]byte, 4)
	b2, err := MarshalPositionRow(scratch, row)
	require.NoError(t, err)
	require.Equal(t, b, b2)

	for _, n := range []int{0, 5, 13, len(b) - 1} {
		_, err = UnmarshalPositionRow(b[:n])
		require.Error(t, err, "n=%d", n)
	}
	_, err = UnmarshalPositionRow(append(b, 0))
	require.Error(t, err)
}
