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

// Package genome provides random access to reference sequences by
// (reference index, position).  Sequence names are the first word of each
// FASTA header line; for example, '>chr1 A viral sequence' becomes 'chr1'.
package genome

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
)

// NoBase is returned by Get for positions outside the reference.
const NoBase byte = 0

// Genome is a reference genome.  Reference indexes follow the order of
// appearance in the FASTA file.  All bases are returned in upper case.
type Genome interface {
	// NumRefs returns the number of reference sequences.
	NumRefs() int

	// RefName returns the name of the given reference.
	RefName(refIndex int) string

	// ReferenceIndex returns the index of the named reference, or -1 if there
	// is no such reference.
	ReferenceIndex(name string) int

	// Len returns the length of the given reference, or 0 if refIndex is out
	// of range.
	Len(refIndex int) int

	// Get returns the base at the given 0-based position, or NoBase when
	// (refIndex, pos) is outside the genome.
	Get(refIndex, pos int) byte

	// GetRange returns up to length bases starting at start.  The range is
	// clipped to the reference bounds, so the result may be shorter than
	// length (or empty).
	GetRange(refIndex, start, length int) string
}

type memGenome struct {
	names []string
	index map[string]int
	seqs  []string
}

// New creates a Genome that holds all the FASTA data from the given reader in
// memory.
func New(r io.Reader) (Genome, error) {
	g := &memGenome{index: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var seqName string
	var seq bytes.Buffer
	started := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if started {
				if err := g.add(seqName, seq.Bytes()); err != nil {
					return nil, err
				}
				seq.Reset()
			}
			started = true
			seqName = string(bytes.SplitN(line[1:], []byte(" "), 2)[0])
			continue
		}
		if !started {
			return nil, errors.Errorf("malformed FASTA file: sequence data before first header")
		}
		seq.Write(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if !started {
		return nil, errors.Errorf("empty FASTA file")
	}
	if err := g.add(seqName, seq.Bytes()); err != nil {
		return nil, err
	}
	return g, nil
}

// NewFromSeqs creates an in-memory Genome from parallel name/sequence slices.
func NewFromSeqs(names, seqs []string) (Genome, error) {
	if len(names) != len(seqs) {
		return nil, errors.Errorf("genome.NewFromSeqs: %d names, %d sequences", len(names), len(seqs))
	}
	g := &memGenome{index: make(map[string]int)}
	for i := range names {
		if err := g.add(names[i], []byte(seqs[i])); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *memGenome) add(name string, seq []byte) error {
	if name == "" {
		return errors.Errorf("malformed FASTA file: empty sequence name")
	}
	if _, ok := g.index[name]; ok {
		return errors.Errorf("duplicate sequence name: %s", name)
	}
	g.index[name] = len(g.names)
	g.names = append(g.names, name)
	g.seqs = append(g.seqs, string(bytes.ToUpper(seq)))
	return nil
}

// NumRefs implements Genome.NumRefs().
func (g *memGenome) NumRefs() int {
	return len(g.names)
}

// RefName implements Genome.RefName().
func (g *memGenome) RefName(refIndex int) string {
	return g.names[refIndex]
}

// ReferenceIndex implements Genome.ReferenceIndex().
func (g *memGenome) ReferenceIndex(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return -1
}

// Len implements Genome.Len().
func (g *memGenome) Len(refIndex int) int {
	if refIndex < 0 || refIndex >= len(g.seqs) {
		return 0
	}
	return len(g.seqs[refIndex])
}

// Get implements Genome.Get().
func (g *memGenome) Get(refIndex, pos int) byte {
	if refIndex < 0 || refIndex >= len(g.seqs) {
		return NoBase
	}
	s := g.seqs[refIndex]
	if pos < 0 || pos >= len(s) {
		return NoBase
	}
	return s[pos]
}

// GetRange implements Genome.GetRange().
func (g *memGenome) GetRange(refIndex, start, length int) string {
	if refIndex < 0 || refIndex >= len(g.seqs) {
		return ""
	}
	return clipRange(g.seqs[refIndex], start, length)
}

func clipRange(s string, start, length int) string {
	end := start + length
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if end <= start {
		return ""
	}
	return s[start:end]
}
