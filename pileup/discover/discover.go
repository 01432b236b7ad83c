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
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/vardiscover/genome"
	"github.com/grailbio/vardiscover/pileup"
)

func init() {
	recordiozstd.Init()
}

// SampleName derives a sample name from a BAM path.
func SampleName(bampath string) string {
	return strings.TrimSuffix(filepath.Base(bampath), ".bam")
}

// input is one opened per-sample BAM.
type input struct {
	f file.File
	r *bam.Reader
}

func openInputs(ctx context.Context, bampaths []string, parallelism int) ([]input, error) {
	inputs := make([]input, len(bampaths))
	err := traverse.Limit(parallelism).Each(len(bampaths), func(i int) (err error) {
		if inputs[i].f, err = file.Open(ctx, bampaths[i]); err != nil {
			return err
		}
		if inputs[i].r, err = bam.NewReader(inputs[i].f.Reader(ctx), 1); err != nil {
			return errors.E(err, "discover: reading BAM header of", bampaths[i])
		}
		return nil
	})
	if err != nil {
		closeInputs(ctx, inputs, &err)
		return nil, err
	}
	return inputs, nil
}

func closeInputs(ctx context.Context, inputs []input, err *error) {
	for _, in := range inputs {
		if in.r != nil {
			if e := in.r.Close(); e != nil && *err == nil {
				*err = e
			}
		}
		if in.f != nil {
			file.CloseAndReport(ctx, in.f, err)
		}
	}
}

// Discover scans the BAM files in bampaths, one per sample and each sorted by
// coordinate, against the reference at fapath, and writes every reported
// position to outPath in opts.Format.
func Discover(ctx context.Context, fapath string, bampaths []string, outPath string, opts *Opts) (err error) {
	if err = opts.validate(); err != nil {
		return
	}
	if len(bampaths) == 0 {
		return errors.E(errors.Invalid, "discover.Discover: no input BAM files")
	}
	var g genome.Genome
	if g, err = pileup.LoadGenome(ctx, fapath); err != nil {
		return
	}
	var target *Target
	if target, err = NewTarget(ctx, g, opts.Region, opts.BedPath); err != nil {
		return
	}
	return discover(ctx, g, target, bampaths, outPath, opts)
}

func discover(ctx context.Context, g genome.Genome, target *Target, bampaths []string, outPath string, opts *Opts) (err error) {
	inputs, err := openInputs(ctx, bampaths, opts.parallelism())
	if err != nil {
		return
	}
	defer closeInputs(ctx, inputs, &err)
	log.Printf("discover.Discover: opened %d inputs", len(inputs))

	sampleNames := make([]string, len(bampaths))
	for i, p := range bampaths {
		sampleNames[i] = SampleName(p)
	}
	var w positionWriter
	switch opts.Format {
	case FormatTSV, FormatTSVBgz:
		w, err = newTSVWriter(ctx, outPath, opts.Format == FormatTSVBgz, opts.parallelism(), g, sampleNames)
	case FormatRio:
		refNames := make([]string, g.NumRefs())
		for i := range refNames {
			refNames[i] = g.RefName(i)
		}
		w, err = newRioWriter(ctx, outPath, refNames, sampleNames)
	}
	if err != nil {
		return
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()

	scanner, err := NewScanner(g, target, opts, w.Write)
	if err != nil {
		return
	}
	readers := make([]RecordReader, len(inputs))
	for i := range inputs {
		readers[i] = inputs[i].r
	}
	if err = scanner.Scan(ctx, readers); err != nil {
		return
	}
	stats := scanner.Stats()
	log.Printf("discover.Discover: %d records read, %d skipped (%d too long)",
		stats.RecordsRead, stats.RecordsSkipped, stats.RecordsTooLong)
	log.Printf("discover.Discover: %d bases observed (%d late), %d indels observed (%d unplaced, %d late, %d off target, %d failed)",
		stats.BasesObserved, stats.BasesLate, stats.IndelsObserved, stats.IndelsUnplaced, stats.IndelsLate, stats.IndelsOffTarget, stats.IndelsFailed)
	log.Printf("discover.Discover: %d positions written to %s", stats.PositionsEmitted, outPath)
	return
}
