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
package pileup_test

import (
	"path/filepath"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/vardiscover/pileup"
)

func TestBaseTables(t *testing.T) {
	for enum, c := range pileup.EnumToASCIITable {
		expect.EQ(t, pileup.ASCIIToEnumTable[c], byte(enum))
	}
	expect.EQ(t, pileup.ASCIIToEnumTable['g'], pileup.BaseG)
	expect.EQ(t, pileup.ASCIIToEnumTable['-'], pileup.BaseX)
	expect.EQ(t, pileup.ASCIIToEnumTable['R'], pileup.BaseX)
	expect.EQ(t, pileup.UpperBase('t'), byte('T'))
	expect.EQ(t, pileup.UpperBase('-'), byte('-'))
}

func TestGetStrand(t *testing.T) {
	expect.EQ(t, pileup.GetStrand(&sam.Record{Flags: sam.Paired | sam.Read1}), pileup.StrandFwd)
	expect.EQ(t, pileup.GetStrand(&sam.Record{Flags: sam.Reverse}), pileup.StrandRev)
}

func TestLoadGenome(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	write := func(path, data string) {
		out, err := file.Create(ctx, path)
		assert.NoError(t, err)
		_, err = out.Writer(ctx).Write([]byte(data))
		assert.NoError(t, err)
		assert.NoError(t, out.Close(ctx))
	}
	fapath := filepath.Join(tmpdir, "ref.fa")
	write(fapath, ">chr1\nACGTA\nCGTAC\n>chr2\nTTTT\n")
	g, err := pileup.LoadGenome(ctx, fapath)
	assert.NoError(t, err)
	expect.EQ(t, g.NumRefs(), 2)
	expect.EQ(t, g.GetRange(0, 3, 4), "TACG")

	write(fapath+".fai", "chr1\t10\t6\t5\t6\nchr2\t4\t24\t4\t5\n")
	g, err = pileup.LoadGenome(ctx, fapath)
	assert.NoError(t, err)
	expect.EQ(t, g.Len(0), 10)
	expect.EQ(t, g.GetRange(0, 3, 4), "TACG")
	expect.EQ(t, g.GetRange(1, 0, 4), "TTTT")
}
