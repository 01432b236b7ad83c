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
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/vardiscover/genome"
)

// positionWriter consumes the positions emitted by a Scanner.
type positionWriter interface {
	Write(pd *PositionData) error
	Close() error
}

// tsvWriter renders one line per emitted position:
//   #CHROM POS REF ALT DP <sample>...
// where each sample column holds the comma-separated allele depths.
type tsvWriter struct {
	ctx      context.Context
	dst      file.File
	bgzf     *bgzf.Writer
	w        *tsv.Writer
	genome   genome.Genome
	nSamples int
}

func newTSVWriter(ctx context.Context, path string, bgzip bool, parallelism int, g genome.Genome, sampleNames []string) (tw *tsvWriter, err error) {
	tw = &tsvWriter{ctx: ctx, genome: g, nSamples: len(sampleNames)}
	if tw.dst, err = file.Create(ctx, path); err != nil {
		return nil, err
	}
	var out io.Writer = tw.dst.Writer(ctx)
	if bgzip {
		tw.bgzf = bgzf.NewWriter(out, parallelism)
		out = tw.bgzf
	}
	tw.w = tsv.NewWriter(out)
	tw.w.WriteString("#CHROM\tPOS\tREF\tALT\tDP")
	for _, name := range sampleNames {
		tw.w.WriteString(name)
	}
	if err = tw.w.EndLine(); err != nil {
		_ = tw.Close()
		return nil, err
	}
	return tw, nil
}

// writeChromPosRef appends the CHROM/POS/REF columns.  POS is converted from
// 0-based to 1-based.
func writeChromPosRef(tsvw *tsv.Writer, refName string, pos PosType, ref string) {
	tsvw.WriteString(refName)         // CHROM
	tsvw.WriteUint32(uint32(pos + 1)) // POS (1-based in VCF text)
	tsvw.WriteString(ref)
}

func (tw *tsvWriter) Write(pd *PositionData) error {
	alleles, err := Aggregate(pd, tw.nSamples).Alleles()
	if err != nil {
		return errors.E(err, "discover.tsvWriter:", tw.genome.RefName(pd.RefIndex))
	}
	w := tw.w
	writeChromPosRef(w, tw.genome.RefName(pd.RefIndex), pd.Position, alleles.Ref)
	if len(alleles.Alts) == 0 {
		w.WriteByte('.')
	} else {
		for _, alt := range alleles.Alts {
			w.WritePartialBytes(append([]byte(alt), ','))
		}
		w.EndCsv()
	}
	w.WriteUint32(alleles.Depth())
	for _, ad := range alleles.AD {
		for _, d := range ad {
			w.WriteCsvUint32(d)
		}
		w.EndCsv()
	}
	return w.EndLine()
}

func (tw *tsvWriter) Close() (err error) {
	defer file.CloseAndReport(tw.ctx, tw.dst, &err)
	if tw.w != nil {
		err = tw.w.Flush()
	}
	if tw.bgzf != nil {
		if e := tw.bgzf.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}
