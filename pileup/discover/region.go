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
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/intervalmap"
	"github.com/grailbio/base/log"
	"github.com/grailbio/vardiscover/genome"
	"github.com/grailbio/vardiscover/pileup"
)

// RegionEntry is a single interval on a named contig.  Start0 is 0-based,
// End is exclusive.
type RegionEntry struct {
	RefName string
	Start0  PosType
	End     PosType
}

// ParseRegion parses a region string of one of the forms
//   [contig]:[1-based first pos]-[last pos]
//   [contig]:[1-based pos]
//   [contig]
// The interval [0, PosTypeMax) is returned if there is no positional
// restriction.
func ParseRegion(region string) (result RegionEntry, err error) {
	if region == "" {
		err = errors.E(errors.Invalid, "discover.ParseRegion: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.RefName = region
		result.End = pileup.PosTypeMax
		return
	}
	if colonPos == 0 {
		err = errors.E(errors.Invalid, "discover.ParseRegion: empty contig name in", region)
		return
	}
	result.RefName = region[:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			err = errors.E(errors.Invalid, err, "discover.ParseRegion:", region)
			return
		}
		if pos1 <= 0 {
			err = errors.E(errors.Invalid, "discover.ParseRegion: position out of range in", region)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	var start1, end int64
	if start1, err = strconv.ParseInt(rangeStr[:dashPos], 10, 32); err != nil {
		err = errors.E(errors.Invalid, err, "discover.ParseRegion:", region)
		return
	}
	if end, err = strconv.ParseInt(rangeStr[dashPos+1:], 10, 32); err != nil {
		err = errors.E(errors.Invalid, err, "discover.ParseRegion:", region)
		return
	}
	if start1 <= 0 || end < start1 {
		err = errors.E(errors.Invalid, "discover.ParseRegion: invalid range in", region)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end)
	return
}

// Target is the set of reference intervals a scan reports on.  A nil *Target
// contains every position.
type Target struct {
	byRef map[int]*intervalmap.T
}

// NewTarget builds a Target from a region string or a BED file.  It returns
// nil when both are empty.
func NewTarget(ctx context.Context, g genome.Genome, region, bedPath string) (*Target, error) {
	if region != "" && bedPath != "" {
		return nil, errors.E(errors.Invalid, "discover.NewTarget: region and BED restrictions can't be used together")
	}
	var entries []RegionEntry
	switch {
	case region != "":
		entry, err := ParseRegion(region)
		if err != nil {
			return nil, err
		}
		if g.ReferenceIndex(entry.RefName) < 0 {
			return nil, errors.E(errors.NotExist, "discover.NewTarget: region contig not in reference:", entry.RefName)
		}
		entries = []RegionEntry{entry}
	case bedPath != "":
		var err error
		if entries, err = readBED(ctx, bedPath); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return newTargetFromEntries(g, entries), nil
}

func newTargetFromEntries(g genome.Genome, entries []RegionEntry) *Target {
	byRef := make(map[int][]intervalmap.Entry)
	nUnknown := 0
	for _, e := range entries {
		refIndex := g.ReferenceIndex(e.RefName)
		if refIndex < 0 {
			nUnknown++
			continue
		}
		byRef[refIndex] = append(byRef[refIndex], intervalmap.Entry{
			Interval: intervalmap.Interval{
				Start: int64(e.Start0),
				Limit: int64(e.End),
			},
		})
	}
	if nUnknown > 0 {
		log.Printf("discover.NewTarget: skipped %d intervals on contigs absent from the reference", nUnknown)
	}
	t := &Target{byRef: make(map[int]*intervalmap.T, len(byRef))}
	for refIndex, ents := range byRef {
		t.byRef[refIndex] = intervalmap.New(ents)
	}
	return t
}

// Contains returns true iff pos on refIndex is inside the target.
func (t *Target) Contains(refIndex int, pos PosType) bool {
	return t.Overlaps(refIndex, pos, pos+1)
}

// Overlaps returns true iff [start, end) on refIndex intersects the target.
func (t *Target) Overlaps(refIndex int, start, end PosType) bool {
	if t == nil {
		return true
	}
	m, ok := t.byRef[refIndex]
	if !ok {
		return false
	}
	return m.Any(intervalmap.Interval{Start: int64(start), Limit: int64(end)})
}

// readBED reads the first three columns of a (possibly compressed) BED file.
func readBED(ctx context.Context, path string) (entries []RegionEntry, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	scanner := bufio.NewScanner(reader)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			err = errors.E(errors.Invalid, "discover.readBED: too few columns at", path, "line", strconv.Itoa(lineIdx))
			return
		}
		var start0, end int64
		if start0, err = strconv.ParseInt(fields[1], 10, 32); err != nil {
			err = errors.E(errors.Invalid, err, "discover.readBED:", path, "line", strconv.Itoa(lineIdx))
			return
		}
		if end, err = strconv.ParseInt(fields[2], 10, 32); err != nil {
			err = errors.E(errors.Invalid, err, "discover.readBED:", path, "line", strconv.Itoa(lineIdx))
			return
		}
		if start0 < 0 || end < start0 {
			err = errors.E(errors.Invalid, "discover.readBED: invalid interval at", path, "line", strconv.Itoa(lineIdx))
			return
		}
		entries = append(entries, RegionEntry{
			RefName: fields[0],
			Start0:  PosType(start0),
			End:     PosType(end),
		})
	}
	if e := scanner.Err(); e != nil && err == nil {
		err = errors.E(e, "discover.readBED:", path)
	}
	return
}
