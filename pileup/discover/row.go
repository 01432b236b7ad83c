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
	"encoding/binary"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/vardiscover/genotype"
	"github.com/grailbio/vardiscover/pileup"
)

// recordio header keys of the rio output.
const (
	refNamesHeader    = "refnames"
	sampleNamesHeader = "samples"
)

// PositionRow is the rio record of one emitted position.
type PositionRow struct {
	RefID   uint32
	Pos     uint32
	RefBase byte
	Samples []genotype.SampleCountInfo
}

// NewPositionRow converts an aggregated position to a row.
func NewPositionRow(refID int, pos PosType, site *genotype.Site) *PositionRow {
	return &PositionRow{
		RefID:   uint32(refID),
		Pos:     uint32(pos),
		RefBase: site.RefBase,
		Samples: site.Samples,
	}
}

// cutAndAdvance returns s[offset:offset+pieceLen], and increments offset by
// pieceLen.
func cutAndAdvance(offset *int, s []byte, pieceLen int) []byte {
	tmpSlice := s[(*offset):]
	*offset += pieceLen
	return tmpSlice[:pieceLen]
}

const countsBytes = 4 * 2 * pileup.NBaseEnum

// Serialized format:
//   [0..4): refID
//   [4..8): pos
//   [8]: refBase
//   [9..13): number of samples
//   per sample:
//     counts, 40 bytes, (base, strand) order
//     filtered count, 4 bytes
//     number of indels, 4 bytes
//     per indel: forward (4), reverse (4), len(from) (4), from, len(to) (4), to
// The rio writer compresses records with zstd.
func MarshalPositionRow(scratch []byte, p interface{}) ([]byte, error) {
	pr := p.(*PositionRow)
	bytesReq := 13
	for i := range pr.Samples {
		bytesReq += countsBytes + 8
		for _, indel := range pr.Samples[i].Indels {
			bytesReq += 16 + len(indel.From) + len(indel.To)
		}
	}
	t := scratch
	if len(t) < bytesReq {
		t = make([]byte, bytesReq)
	}
	t = t[:bytesReq]

	offset := 0
	tStart := cutAndAdvance(&offset, t, 13)
	binary.LittleEndian.PutUint32(tStart[0:4], pr.RefID)
	binary.LittleEndian.PutUint32(tStart[4:8], pr.Pos)
	tStart[8] = pr.RefBase
	binary.LittleEndian.PutUint32(tStart[9:13], uint32(len(pr.Samples)))
	for i := range pr.Samples {
		s := &pr.Samples[i]
		tCounts := cutAndAdvance(&offset, t, countsBytes)
		for b := range s.Counts {
			binary.LittleEndian.PutUint32(tCounts[8*b:8*b+4], s.Counts[b][0])
			binary.LittleEndian.PutUint32(tCounts[8*b+4:8*b+8], s.Counts[b][1])
		}
		tSample := cutAndAdvance(&offset, t, 8)
		binary.LittleEndian.PutUint32(tSample[0:4], s.Filtered)
		binary.LittleEndian.PutUint32(tSample[4:8], uint32(len(s.Indels)))
		for _, indel := range s.Indels {
			tIndel := cutAndAdvance(&offset, t, 12)
			binary.LittleEndian.PutUint32(tIndel[0:4], indel.Forward)
			binary.LittleEndian.PutUint32(tIndel[4:8], indel.Reverse)
			binary.LittleEndian.PutUint32(tIndel[8:12], uint32(len(indel.From)))
			copy(cutAndAdvance(&offset, t, len(indel.From)), indel.From)
			binary.LittleEndian.PutUint32(cutAndAdvance(&offset, t, 4), uint32(len(indel.To)))
			copy(cutAndAdvance(&offset, t, len(indel.To)), indel.To)
		}
	}
	return t, nil
}

var errTruncatedRow = errors.E(errors.Integrity, "discover: truncated PositionRow")

// rowReader decodes a serialized PositionRow.  The first short read sets
// err; later reads return zero values.
type rowReader struct {
	in     []byte
	offset int
	err    error
}

func (r *rowReader) next(n int) []byte {
	if r.err != nil || n < 0 || len(r.in)-r.offset < n {
		r.err = errTruncatedRow
		return nil
	}
	return cutAndAdvance(&r.offset, r.in, n)
}

func (r *rowReader) uint32() uint32 {
	if b := r.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *rowReader) string() string {
	n := r.uint32()
	if r.err != nil {
		return ""
	}
	return string(r.next(int(n)))
}

// UnmarshalPositionRow is the inverse of MarshalPositionRow.
func UnmarshalPositionRow(in []byte) (interface{}, error) {
	r := rowReader{in: in}
	pr := &PositionRow{
		RefID: r.uint32(),
		Pos:   r.uint32(),
	}
	if b := r.next(1); b != nil {
		pr.RefBase = b[0]
	}
	nSamples := r.uint32()
	if r.err != nil {
		return nil, r.err
	}
	// Each sample takes at least countsBytes+8 bytes.
	if int(nSamples) > (len(in)-r.offset)/(countsBytes+8) {
		return nil, errTruncatedRow
	}
	pr.Samples = make([]genotype.SampleCountInfo, nSamples)
	for i := range pr.Samples {
		s := &pr.Samples[i]
		if inCounts := r.next(countsBytes); inCounts != nil {
			for b := range s.Counts {
				s.Counts[b][0] = binary.LittleEndian.Uint32(inCounts[8*b : 8*b+4])
				s.Counts[b][1] = binary.LittleEndian.Uint32(inCounts[8*b+4 : 8*b+8])
			}
		}
		s.Filtered = r.uint32()
		nIndels := r.uint32()
		if r.err != nil {
			return nil, r.err
		}
		if int(nIndels) > (len(in)-r.offset)/16 {
			return nil, errTruncatedRow
		}
		if nIndels > 0 {
			s.Indels = make([]genotype.Indel, nIndels)
		}
		for j := range s.Indels {
			s.Indels[j].Forward = r.uint32()
			s.Indels[j].Reverse = r.uint32()
			s.Indels[j].From = r.string()
			s.Indels[j].To = r.string()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.offset != len(in) {
		return nil, errors.E(errors.Integrity, "discover: trailing bytes after PositionRow")
	}
	return pr, nil
}

// rioWriter writes emitted positions as PositionRows.
type rioWriter struct {
	ctx      context.Context
	dst      file.File
	w        recordio.Writer
	nSamples int
	nRows    int
}

func newRioWriter(ctx context.Context, path string, refNames, sampleNames []string) (*rioWriter, error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	w := recordio.NewWriter(dst.Writer(ctx), recordio.WriterOpts{
		Marshal:      MarshalPositionRow,
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(refNamesHeader, strings.Join(refNames, "\000"))
	w.AddHeader(sampleNamesHeader, strings.Join(sampleNames, "\000"))
	return &rioWriter{ctx: ctx, dst: dst, w: w, nSamples: len(sampleNames)}, nil
}

func (rw *rioWriter) Write(pd *PositionData) error {
	rw.w.Append(NewPositionRow(pd.RefIndex, pd.Position, Aggregate(pd, rw.nSamples)))
	rw.nRows++
	return nil
}

func (rw *rioWriter) Close() (err error) {
	defer file.CloseAndReport(rw.ctx, rw.dst, &err)
	return rw.w.Finish()
}

// ReadPositionRowsRio reads a rio file written by Discover.  It returns the
// rows, and the reference and sample names from the file header.
func ReadPositionRowsRio(ctx context.Context, path string) (rows []*PositionRow, refNames, sampleNames []string, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{
		Unmarshal: UnmarshalPositionRow,
	})
	defer func() {
		if e := scanner.Finish(); e != nil && err == nil {
			err = e
		}
	}()
	for _, kv := range scanner.Header() {
		value, ok := kv.Value.(string)
		if !ok {
			continue
		}
		switch kv.Key {
		case refNamesHeader:
			refNames = splitHeaderList(value)
		case sampleNamesHeader:
			sampleNames = splitHeaderList(value)
		}
	}
	for scanner.Scan() {
		rows = append(rows, scanner.Get().(*PositionRow))
	}
	if e := scanner.Err(); e != nil {
		err = errors.E(e, "discover.ReadPositionRowsRio:", path)
	}
	return
}

func splitHeaderList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\000")
}
