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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/vardiscover/genome"
	"github.com/grailbio/vardiscover/pileup"
)

// RecordReader yields the alignments of one sample in coordinate order.
// *bam.Reader satisfies it.
type RecordReader interface {
	Read() (*sam.Record, error)
}

// Stats summarizes a scan.
type Stats struct {
	RecordsRead    int64
	RecordsSkipped int64
	// RecordsTooLong counts reads skipped because their reference span
	// exceeds MaxReadSpan.
	RecordsTooLong int64
	BasesObserved  int64
	BasesLate      int64
	IndelsObserved int64
	IndelsUnplaced int64
	IndelsLate     int64
	// IndelsOffTarget counts indels whose canonical start lies outside the
	// target.
	IndelsOffTarget  int64
	IndelsFailed     int64
	PositionsEmitted int64
}

// Scanner turns a coordinate-sorted alignment stream into per-position
// observations.  Positions are handed to the emit callback in increasing
// order within each reference, once no later alignment can touch them.
//
// Usage:
//   s, err := NewScanner(g, target, &opts, emit)
//   for each record in sorted order { err = s.Add(sampleIndex, rec) }
//   err = s.Finish()
//
// or, for a set of per-sample readers, s.Scan(ctx, readers).
type Scanner struct {
	genome genome.Genome
	calc   *Calculator
	policy SamplingPolicy
	target *Target
	window *Window
	emit   func(*PositionData) error

	flagExclude       sam.Flags
	mapq              byte
	maxReadSpan       PosType
	windowFlank       PosType
	minBaseQual       byte
	minIndelFrequency int
	subSampleSize     int
	variantsOnly      bool

	// refID is the BAM header index of the current contig, which defines
	// the sort order; refIndex is its index in the genome.
	refID    int
	refIndex int
	// started holds the genome indexes of contigs already scanned.
	started map[int]bool
	lastPos PosType
	// Every position < floor has been emitted or dropped.
	floor     PosType
	nextEntry EntryRef
	stats     Stats
	err       error
}

// NewScanner creates a Scanner.  target may be nil.
func NewScanner(g genome.Genome, target *Target, opts *Opts, emit func(*PositionData) error) (*Scanner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s := &Scanner{
		genome:            g,
		calc:              NewCalculator(g, opts.FlankLeftSize, opts.FlankRightSize),
		policy:            opts.samplingPolicy(),
		target:            target,
		window:            NewWindow(),
		emit:              emit,
		flagExclude:       sam.Flags(opts.FlagExclude),
		mapq:              byte(opts.Mapq),
		maxReadSpan:       PosType(opts.MaxReadSpan),
		windowFlank:       PosType(opts.WindowFlank),
		minBaseQual:       byte(opts.MinBaseQual),
		minIndelFrequency: opts.MinIndelFrequency,
		variantsOnly:      opts.VariantsOnly,
		refID:             -1,
		refIndex:          -1,
		started:           make(map[int]bool),
	}
	if !opts.KeepAll {
		s.subSampleSize = opts.SubSampleSize
	}
	if opts.Mapq > 255 {
		s.mapq = 255
	}
	return s, nil
}

// Stats returns the counters accumulated so far.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// refIndexOf returns the reference index of rec, or -1 when rec is unmapped
// or its contig is absent from the reference.
func (s *Scanner) refIndexOf(rec *sam.Record) int {
	if rec.Ref == nil || rec.Pos < 0 {
		return -1
	}
	return s.genome.ReferenceIndex(rec.Ref.Name())
}

// Add processes one alignment of the given sample.  Alignments must arrive
// sorted by (BAM reference ID, position) across all samples, and every
// sample must share the same header reference order.
func (s *Scanner) Add(sampleIndex int, rec *sam.Record) error {
	if s.err != nil {
		return s.err
	}
	s.stats.RecordsRead++
	if rec.Flags&s.flagExclude != 0 || rec.MapQ < s.mapq || len(rec.Cigar) == 0 {
		s.stats.RecordsSkipped++
		return nil
	}
	refIndex := s.refIndexOf(rec)
	if refIndex < 0 {
		s.stats.RecordsSkipped++
		return nil
	}
	pos := PosType(rec.Pos)
	refID := rec.Ref.ID()
	if refID != s.refID {
		if refID < s.refID {
			return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: input not sorted: read %s on %s after %s",
				rec.Name, s.genome.RefName(refIndex), s.genome.RefName(s.refIndex)))
		}
		if s.started[refIndex] {
			return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: read %s on %s after that contig was finished; inputs have different header reference orders",
				rec.Name, s.genome.RefName(refIndex)))
		}
		if err := s.finishRef(); err != nil {
			return err
		}
		s.refID = refID
		s.refIndex = refIndex
		s.started[refIndex] = true
		if log.At(log.Debug) {
			log.Debug.Printf("discover.Scanner: starting %s", s.genome.RefName(refIndex))
		}
	} else if refIndex != s.refIndex {
		return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: read %s on %s has the header reference ID of %s; inputs have different header reference orders",
			rec.Name, s.genome.RefName(refIndex), s.genome.RefName(s.refIndex)))
	} else if pos < s.lastPos {
		return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: input not sorted: read %s at %s:%d after position %d",
			rec.Name, s.genome.RefName(refIndex), pos+1, s.lastPos+1))
	}
	s.lastPos = pos

	// No later read can start before pos, so only indels sliding left can
	// still reach positions behind it.
	if limit := pos - s.maxReadSpan; limit > s.floor {
		s.window.EvictBefore(limit, s.flush)
		s.floor = limit
	}
	s.window.TrimWidth(s.windowFlank, s.flush)
	if s.err != nil {
		return s.err
	}

	span, _ := rec.Cigar.Lengths()
	if PosType(span) > s.maxReadSpan {
		s.stats.RecordsTooLong++
		s.stats.RecordsSkipped++
		return nil
	}
	if !s.target.Overlaps(refIndex, pos-s.maxReadSpan, pos+PosType(span)) {
		s.stats.RecordsSkipped++
		return nil
	}
	if err := s.addRead(sampleIndex, refIndex, rec); err != nil {
		return err
	}
	return s.err
}

// Finish flushes every position still held.  The Scanner must not be used
// afterward.
func (s *Scanner) Finish() error {
	if s.err != nil {
		return s.err
	}
	return s.finishRef()
}

func (s *Scanner) finishRef() error {
	s.window.EvictBefore(pileup.PosTypeMax, s.flush)
	s.window.Clear()
	s.floor = 0
	s.lastPos = 0
	return s.err
}

// readView bundles what the CIGAR walk needs to know about one alignment.
type readView struct {
	sampleIndex int
	refIndex    int
	entry       EntryRef
	seq         []byte
	qual        []byte
	reverse     bool
	nVariations int32
	insertSize  int32
	mapq        byte
}

func (r *readView) readIndex(posInRead int) int32 {
	if r.reverse {
		return int32(len(r.seq) - 1 - posInRead)
	}
	return int32(posInRead)
}

func (r *readView) qualAt(posInRead int) byte {
	if posInRead < 0 || posInRead >= len(r.qual) {
		return 0xff
	}
	return r.qual[posInRead]
}

func (r *readView) quals(start, end int) []byte {
	if start < 0 || end > len(r.qual) || start >= end {
		return nil
	}
	return r.qual[start:end]
}

func gapString(n int) string {
	return strings.Repeat(string(pileup.GapChar), n)
}

// countVariations returns the number of mismatching aligned bases plus the
// number of insertion and deletion operations in rec.
func (s *Scanner) countVariations(refIndex int, rec *sam.Record, seq []byte) int32 {
	var n int32
	posInRef := rec.Pos
	posInRead := 0
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < cLen && posInRead+i < len(seq); i++ {
				refBase := pileup.UpperBase(s.genome.Get(refIndex, posInRef+i))
				if refBase != genome.NoBase && refBase != pileup.UpperBase(seq[posInRead+i]) {
					n++
				}
			}
			posInRef += cLen
			posInRead += cLen
		case sam.CigarInsertion:
			n++
			posInRead += cLen
		case sam.CigarDeletion:
			n++
			posInRef += cLen
		case sam.CigarSkipped:
			posInRef += cLen
		case sam.CigarSoftClipped:
			posInRead += cLen
		}
	}
	return n
}

func (s *Scanner) addRead(sampleIndex, refIndex int, rec *sam.Record) error {
	seq := rec.Seq.Expand()
	r := readView{
		sampleIndex: sampleIndex,
		refIndex:    refIndex,
		entry:       s.nextEntry,
		seq:         seq,
		reverse:     rec.Flags&sam.Reverse != 0,
		insertSize:  int32(rec.TempLen),
		mapq:        rec.MapQ,
	}
	if len(rec.Qual) == len(seq) {
		r.qual = rec.Qual
	}
	s.nextEntry++
	r.nVariations = s.countVariations(refIndex, rec, seq)

	refLen := PosType(s.genome.Len(refIndex))
	posInRef := PosType(rec.Pos)
	posInRead := 0
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if posInRead+cLen > len(seq) {
				return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: CIGAR of read %s is longer than its sequence", rec.Name))
			}
			for i := 0; i < cLen; i++ {
				if p := posInRef + PosType(i); p < refLen {
					s.observeBase(&r, p, posInRead+i)
				}
			}
			posInRef += PosType(cLen)
			posInRead += cLen
		case sam.CigarInsertion:
			if posInRead+cLen > len(seq) {
				return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: CIGAR of read %s is longer than its sequence", rec.Name))
			}
			raw := RawIndel{
				Start: posInRef - 1,
				From:  gapString(cLen),
				To:    string(seq[posInRead : posInRead+cLen]),
			}
			s.observeIndel(&r, raw, Support{
				Entry:     r.entry,
				Reverse:   r.reverse,
				ReadIndex: r.readIndex(posInRead),
				Quals:     r.quals(posInRead, posInRead+cLen),
			})
			posInRead += cLen
		case sam.CigarDeletion:
			raw := RawIndel{
				Start: posInRef - 1,
				From:  s.genome.GetRange(refIndex, int(posInRef), cLen),
				To:    gapString(cLen),
			}
			left := posInRead - 1
			if left < 0 {
				left = 0
			}
			s.observeIndel(&r, raw, Support{
				Entry:     r.entry,
				Reverse:   r.reverse,
				ReadIndex: r.readIndex(left),
				Quals:     r.quals(posInRead-1, posInRead+1),
			})
			posInRef += PosType(cLen)
		case sam.CigarSkipped:
			posInRef += PosType(cLen)
		case sam.CigarSoftClipped:
			posInRead += cLen
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: unexpected CIGAR op %v in read %s", co, rec.Name))
		}
	}
	return nil
}

// positionData returns the PositionData at pos, creating it if needed.
func (s *Scanner) positionData(refIndex int, pos PosType) *PositionData {
	pd := s.window.Get(pos)
	if pd == nil {
		refBase := pileup.UpperBase(s.genome.Get(refIndex, int(pos)))
		pd = NewPositionData(refIndex, pos, refBase, s.policy)
		s.window.Put(pos, pd)
	}
	return pd
}

func (s *Scanner) observeBase(r *readView, pos PosType, posInRead int) {
	if pos < s.floor {
		s.stats.BasesLate++
		return
	}
	if !s.target.Contains(r.refIndex, pos) {
		if !s.window.IsIgnoredPosition(pos) {
			s.window.MarkIgnoredPosition(pos)
		}
		return
	}
	pd := s.positionData(r.refIndex, pos)
	b := NewObservedBase(r.sampleIndex, pos, pd.RefBase, pileup.UpperBase(r.seq[posInRead]))
	b.ReadIndex = r.readIndex(posInRead)
	b.Quality = r.qualAt(posInRead)
	b.MappingQuality = r.mapq
	b.MatchesForwardStrand = !r.reverse
	b.NumVariationsInRead = r.nVariations
	b.InsertSize = r.insertSize
	b.Entry = r.entry
	s.stats.BasesObserved++
	if pd.Add(b) && b.Quality < s.minBaseQual {
		pd.MarkFiltered(&b)
	}
}

func (s *Scanner) observeIndel(r *readView, raw RawIndel, support Support) {
	region := s.calc.Determine(r.refIndex, raw)
	if region == nil {
		s.stats.IndelsUnplaced++
		if log.At(log.Debug) {
			log.Debug.Printf("discover.Scanner: discarding indel %s>%s at %s:%d outside the reference",
				raw.From, raw.To, s.genome.RefName(r.refIndex), raw.Start+1)
		}
		return
	}
	if region.Start < s.floor {
		s.stats.IndelsLate++
		if log.At(log.Debug) {
			log.Debug.Printf("discover.Scanner: discarding indel %v behind the window edge %d", region, s.floor)
		}
		return
	}
	if !s.target.Contains(r.refIndex, region.Start) {
		s.stats.IndelsOffTarget++
		return
	}
	region.SampleIndex = r.sampleIndex
	s.stats.IndelsObserved++
	s.positionData(r.refIndex, region.Start).ObserveCandidateIndel(region, support)
}

// flush finalizes and emits one position.  It is the window's eviction
// callback.
func (s *Scanner) flush(pd *PositionData) {
	if s.err != nil {
		return
	}
	if pd.Position >= s.floor {
		s.floor = pd.Position + 1
	}
	for _, indel := range pd.Indels() {
		if indel.Frequency() < s.minIndelFrequency {
			pd.FailIndel(indel)
			s.stats.IndelsFailed++
		}
	}
	if s.subSampleSize > 0 {
		pd.SubSample(s.subSampleSize)
	}
	if s.variantsOnly && !hasVariant(pd) {
		return
	}
	s.stats.PositionsEmitted++
	s.err = s.emit(pd)
}

// hasVariant returns true iff pd holds a candidate indel or an unfiltered
// non-reference base.
func hasVariant(pd *PositionData) bool {
	if pd.HasCandidateIndels() {
		return true
	}
	obs := pd.Observations()
	for i := range obs {
		if !obs[i].MatchesReference && !pd.IsFiltered(&obs[i]) {
			return true
		}
	}
	return false
}

// mergeItem is the next unprocessed alignment of one sample.
type mergeItem struct {
	rec *sam.Record
	// refID is rec.Ref.ID(), the BAM header order.
	refID       int
	sampleIndex int
}

// Compare implements llrb.Comparable.
func (m *mergeItem) Compare(c llrb.Comparable) int {
	m2 := c.(*mergeItem)
	if m.refID != m2.refID {
		return m.refID - m2.refID
	}
	if m.rec.Pos != m2.rec.Pos {
		return m.rec.Pos - m2.rec.Pos
	}
	return m.sampleIndex - m2.sampleIndex
}

// next reads the next alignment of sample i that maps to a known contig.
// It returns nil at EOF.
func (s *Scanner) next(sampleIndex int, in RecordReader) (*mergeItem, error) {
	for {
		rec, err := in.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("discover.Scanner: reading sample %d", sampleIndex))
		}
		if s.refIndexOf(rec) < 0 {
			s.stats.RecordsRead++
			s.stats.RecordsSkipped++
			continue
		}
		return &mergeItem{rec: rec, refID: rec.Ref.ID(), sampleIndex: sampleIndex}, nil
	}
}

// headerReader is implemented by inputs that expose their SAM header, such
// as *bam.Reader.
type headerReader interface {
	Header() *sam.Header
}

// checkHeaderOrder verifies that every input exposing a header lists the
// same references in the same order.
func checkHeaderOrder(inputs []RecordReader) error {
	var (
		first      []*sam.Reference
		firstIndex = -1
	)
	for i, in := range inputs {
		hr, ok := in.(headerReader)
		if !ok || hr.Header() == nil {
			continue
		}
		refs := hr.Header().Refs()
		if firstIndex < 0 {
			first, firstIndex = refs, i
			continue
		}
		if len(refs) != len(first) {
			return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: sample %d has %d header references, sample %d has %d",
				i, len(refs), firstIndex, len(first)))
		}
		for j := range refs {
			if refs[j].Name() != first[j].Name() {
				return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: header reference %d is %s in sample %d but %s in sample %d",
					j, refs[j].Name(), i, first[j].Name(), firstIndex))
			}
		}
	}
	return nil
}

// Scan merges the inputs, one per sample, and feeds every alignment to Add,
// then calls Finish.  Each input must be sorted by coordinate in the order
// of its header references, and all inputs must share that order.
func (s *Scanner) Scan(ctx context.Context, inputs []RecordReader) error {
	if err := checkHeaderOrder(inputs); err != nil {
		return err
	}
	var tree llrb.Tree
	for i, in := range inputs {
		item, err := s.next(i, in)
		if err != nil {
			return err
		}
		if item != nil {
			tree.Insert(item)
		}
	}
	nProcessed := 0
	for tree.Len() > 0 {
		item := tree.Min().(*mergeItem)
		tree.DeleteMin()
		if err := s.Add(item.sampleIndex, item.rec); err != nil {
			return err
		}
		refID, pos := item.refID, item.rec.Pos
		next, err := s.next(item.sampleIndex, inputs[item.sampleIndex])
		if err != nil {
			return err
		}
		if next != nil {
			if next.refID < refID || (next.refID == refID && next.rec.Pos < pos) {
				return errors.E(errors.Invalid, fmt.Sprintf("discover.Scanner: sample %d: read %s is out of order",
					item.sampleIndex, next.rec.Name))
			}
			tree.Insert(next)
		}
		if nProcessed++; nProcessed&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return s.Finish()
}
