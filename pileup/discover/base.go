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
	"fmt"

	"github.com/grailbio/vardiscover/pileup"
)

// PosType is the integer type used to represent genomic positions.
type PosType = pileup.PosType

// EntryRef is a non-owning handle to an alignment entry.  The scanner assigns
// handles in input order; the records themselves belong to the scan loop and
// may be recycled once processed.
type EntryRef int64

// NoEntry is the EntryRef of an observation without a source alignment.
const NoEntry EntryRef = -1

// ObservedBase is one base observation at one reference position, from one
// read of one sample.  It is a plain value; copying it is the only way to
// derive a modified observation.
type ObservedBase struct {
	SampleIndex int
	// ReadIndex is the 0-based position of the base within the read, counted
	// from the read's 5' end.
	ReadIndex      int32
	Quality        byte
	MappingQuality byte
	// MatchesReference is true iff To equals From (case-insensitive).
	MatchesReference bool
	// From is the reference base, To is the base in the read.
	From byte
	To   byte
	// Position is 0-based.
	Position             PosType
	MatchesForwardStrand bool
	NumVariationsInRead  int32
	InsertSize           int32
	Entry                EntryRef
}

// NewObservedBase fills in MatchesReference from the from/to bases.
func NewObservedBase(sampleIndex int, pos PosType, from, to byte) ObservedBase {
	return ObservedBase{
		SampleIndex:      sampleIndex,
		Position:         pos,
		From:             from,
		To:               to,
		MatchesReference: pileup.UpperBase(from) == pileup.UpperBase(to),
		Entry:            NoEntry,
	}
}

// BaseIndex returns the pileup.Base{A,C,G,T,X} enum of the observed base.
func (b *ObservedBase) BaseIndex() byte {
	return pileup.ASCIIToEnumTable[b.To]
}

// String implements fmt.Stringer.
func (b ObservedBase) String() string {
	strand := pileup.StrandTypeToASCIITable[pileup.StrandRev]
	if b.MatchesForwardStrand {
		strand = pileup.StrandTypeToASCIITable[pileup.StrandFwd]
	}
	return fmt.Sprintf("%d:%c>%c s%d q%d %c", b.Position, b.From, b.To, b.SampleIndex, b.Quality, strand)
}

// obsKey identifies an observation for filtered-set membership.  A read
// contributes at most one observation per position.
type obsKey struct {
	entry     EntryRef
	sample    int
	readIndex int32
}

func (b *ObservedBase) key() obsKey {
	return obsKey{entry: b.Entry, sample: b.SampleIndex, readIndex: b.ReadIndex}
}
