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
package pileup

import (
	"context"
	"math"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/vardiscover/genome"
)

// Common pileup components.

// PosType is the integer type used to represent genomic positions.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// These constants are the natural values for A/C/G/T in a packed 2-bit
// representation, with everything else (N, IUPAC codes, gaps) collapsed into
// BaseX.

const (
	// BaseA represents an A base.
	BaseA byte = iota
	// BaseC represents an C base.
	BaseC
	// BaseG represents an G base.
	BaseG
	// BaseT represents an T base.
	BaseT
	// BaseX is a catch-all.
	BaseX
)

const (
	// NBase is the number of regular base types.
	NBase = 4
	// NBaseEnum counts BaseX as well as the regular base types.
	NBaseEnum = 5
)

// EnumToASCIITable is the A/C/G/T/X -> ASCII mapping, with X rendered as 'N'.
var EnumToASCIITable = [...]byte{'A', 'C', 'G', 'T', 'N'}

// ASCIIToEnumTable is the ASCII -> A/C/G/T/X mapping.  Lowercase bases map to
// the same values as uppercase.
var ASCIIToEnumTable = func() (t [256]byte) {
	for i := range t {
		t[i] = BaseX
	}
	for enum, c := range EnumToASCIITable[:NBase] {
		t[c] = byte(enum)
		t[c+'a'-'A'] = byte(enum)
	}
	return
}()

// GapChar pads the shorter allele of an indel to the length of the longer one.
const GapChar = '-'

// StrandType describes which strand a read is aligned to.
type StrandType int

const (
	// StrandNone means no strand restriction.
	StrandNone StrandType = iota
	// StrandFwd means the read is aligned to the forward strand.
	StrandFwd
	// StrandRev means the read is aligned to the reverse strand.
	StrandRev
)

// StrandTypeToASCIITable is the StrandType -> ASCII mapping.
var StrandTypeToASCIITable = [...]byte{'.', '+', '-'}

// GetStrand returns the strand a single read is aligned to.
func GetStrand(samr *sam.Record) StrandType {
	if samr.Flags&sam.Reverse != 0 {
		return StrandRev
	}
	return StrandFwd
}

// UpperBase returns the uppercase form of an ASCII base.
func UpperBase(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// LoadGenome reads a (possibly compressed) FASTA file.  When the FASTA is
// uncompressed and <fapath>.fai exists, references are loaded on demand
// instead of all at once.
func LoadGenome(ctx context.Context, fapath string) (g genome.Genome, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, fapath); err != nil {
		return
	}
	if !strings.HasSuffix(fapath, ".gz") {
		if _, e := file.Stat(ctx, fapath+".fai"); e == nil {
			log.Printf("pileup.LoadGenome: using index %s.fai", fapath)
			return loadIndexedGenome(ctx, infile, fapath+".fai")
		}
	}
	defer func() {
		if e := infile.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if g, err = genome.New(reader); err != nil {
		err = errors.E(err, "pileup.LoadGenome:", fapath)
	}
	return
}

// loadIndexedGenome takes ownership of infile; it stays open for the lifetime
// of the process since references are read lazily.
func loadIndexedGenome(ctx context.Context, infile file.File, faipath string) (g genome.Genome, err error) {
	var fai file.File
	if fai, err = file.Open(ctx, faipath); err != nil {
		return
	}
	defer func() {
		if e := fai.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if g, err = genome.NewIndexed(infile.Reader(ctx), fai.Reader(ctx)); err != nil {
		err = errors.E(err, "pileup.LoadGenome:", faipath)
	}
	return
}
