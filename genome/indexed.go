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
package genome

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Index files consist of one tab-separated line per sequence in the associated
// FASTA file.  The format is: "<sequence name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
// For example: "chr3\t12345\t9000\t80\t81".
var indexRegExp = regexp.MustCompile(`(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)`)

type indexEntry struct {
	length    int64
	offset    int64
	lineBase  int64
	lineWidth int64
}

// indexedGenome reads one whole reference at a time from the FASTA file and
// keeps it until a different reference is requested.  Alignment scans visit
// references in order, so this is effectively a sequential read.
type indexedGenome struct {
	names   []string
	index   map[string]int
	entries []indexEntry
	reader  io.ReadSeeker

	mutex     sync.Mutex
	cachedRef int
	cached    string
}

// NewIndexed creates a Genome backed by a FASTA file and its .fai index.
// Reference sequences are loaded on demand.  Since the Genome interface does
// not return errors, an I/O failure while loading a reference panics.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Genome, error) {
	type named struct {
		name string
		ent  indexEntry
	}
	var all []named
	scanner := bufio.NewScanner(index)
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		matches := indexRegExp.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			return nil, errors.Errorf("invalid index line: %s", scanner.Text())
		}
		var ent indexEntry
		ent.length, _ = strconv.ParseInt(matches[2], 10, 64)
		ent.offset, _ = strconv.ParseInt(matches[3], 10, 64)
		ent.lineBase, _ = strconv.ParseInt(matches[4], 10, 64)
		ent.lineWidth, _ = strconv.ParseInt(matches[5], 10, 64)
		if ent.lineBase <= 0 || ent.lineWidth < ent.lineBase {
			return nil, errors.Errorf("invalid index line: %s", scanner.Text())
		}
		all = append(all, named{matches[1], ent})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA index")
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ent.offset < all[j].ent.offset
	})
	g := &indexedGenome{
		index:     make(map[string]int, len(all)),
		reader:    fasta,
		cachedRef: -1,
	}
	for _, n := range all {
		if _, ok := g.index[n.name]; ok {
			return nil, errors.Errorf("duplicate sequence name in index: %s", n.name)
		}
		g.index[n.name] = len(g.names)
		g.names = append(g.names, n.name)
		g.entries = append(g.entries, n.ent)
	}
	return g, nil
}

// NumRefs implements Genome.NumRefs().
func (g *indexedGenome) NumRefs() int {
	return len(g.names)
}

// RefName implements Genome.RefName().
func (g *indexedGenome) RefName(refIndex int) string {
	return g.names[refIndex]
}

// ReferenceIndex implements Genome.ReferenceIndex().
func (g *indexedGenome) ReferenceIndex(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return -1
}

// Len implements Genome.Len().
func (g *indexedGenome) Len(refIndex int) int {
	if refIndex < 0 || refIndex >= len(g.entries) {
		return 0
	}
	return int(g.entries[refIndex].length)
}

// Get implements Genome.Get().
func (g *indexedGenome) Get(refIndex, pos int) byte {
	if pos < 0 || pos >= g.Len(refIndex) {
		return NoBase
	}
	return g.load(refIndex)[pos]
}

// GetRange implements Genome.GetRange().
func (g *indexedGenome) GetRange(refIndex, start, length int) string {
	if refIndex < 0 || refIndex >= len(g.entries) {
		return ""
	}
	return clipRange(g.load(refIndex), start, length)
}

func (g *indexedGenome) load(refIndex int) string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.cachedRef == refIndex {
		return g.cached
	}
	seq, err := g.read(g.entries[refIndex])
	if err != nil {
		log.Panicf("genome: loading %s: %v", g.names[refIndex], err)
	}
	g.cachedRef = refIndex
	g.cached = seq
	return seq
}

// read returns the full sequence described by ent, with newlines removed.
func (g *indexedGenome) read(ent indexEntry) (string, error) {
	if ent.length == 0 {
		return "", nil
	}
	nLine := (ent.length + ent.lineBase - 1) / ent.lineBase
	nByte := ent.length + (nLine-1)*(ent.lineWidth-ent.lineBase)
	if newOffset, err := g.reader.Seek(ent.offset, io.SeekStart); err != nil || newOffset != ent.offset {
		return "", errors.Errorf("failed to seek to offset %d: %d, %v", ent.offset, newOffset, err)
	}
	buf := make([]byte, nByte)
	if _, err := io.ReadFull(g.reader, buf); err != nil {
		return "", errors.Wrap(err, "encountered unexpected end of file (bad index?)")
	}
	result := make([]byte, 0, ent.length)
	for lineStart := int64(0); lineStart < nByte; lineStart += ent.lineWidth {
		lineEnd := lineStart + ent.lineBase
		if lineEnd > nByte {
			lineEnd = nByte
		}
		result = append(result, buf[lineStart:lineEnd]...)
	}
	if int64(len(result)) != ent.length {
		return "", errors.Errorf("read %d bases, index says %d", len(result), ent.length)
	}
	return string(bytes.ToUpper(result)), nil
}
