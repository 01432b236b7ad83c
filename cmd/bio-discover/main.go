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
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/vardiscover/pileup/discover"
)

var (
	bedPath           = flag.String("bed", discover.DefaultOpts.BedPath, "Input BED path; restricts reported positions to the given intervals. Cannot be combined with -region")
	region            = flag.String("region", discover.DefaultOpts.Region, "Restrict discovery to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	format            = flag.String("format", discover.DefaultOpts.Format, "Output format; 'tsv', 'tsv-bgz', and 'rio' supported")
	flagExclude       = flag.Int("flag-exclude", discover.DefaultOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	mapq              = flag.Int("mapq", discover.DefaultOpts.Mapq, "Reads with MAPQ below this level are skipped")
	maxReadSpan       = flag.Int("max-read-span", discover.DefaultOpts.MaxReadSpan, "Upper bound on size of reference-genome region a read maps to; longer reads are skipped")
	minBaseQual       = flag.Int("min-base-qual", discover.DefaultOpts.MinBaseQual, "Base observations with quality below this level are counted as filtered")
	minIndelFrequency = flag.Int("min-indel-frequency", discover.DefaultOpts.MinIndelFrequency, "Indels supported by fewer alignments are dropped")
	subSampleSize     = flag.Int("sub-sample-size", discover.DefaultOpts.SubSampleSize, "Maximum number of base observations kept per position")
	keepAll           = flag.Bool("keep-all", discover.DefaultOpts.KeepAll, "Keep every base observation instead of sub-sampling deep positions")
	seed              = flag.Int64("seed", discover.DefaultOpts.Seed, "Random seed for sub-sampling")
	flankLeft         = flag.Int("flank-left", discover.DefaultOpts.FlankLeftSize, "Number of reference bases kept to the left of each indel region")
	flankRight        = flag.Int("flank-right", discover.DefaultOpts.FlankRightSize, "Number of reference bases kept to the right of each indel region")
	windowFlank       = flag.Int("window-flank", discover.DefaultOpts.WindowFlank, "Positions held in memory span at most twice this value; must be at least -max-read-span")
	variantsOnly      = flag.Bool("variants-only", discover.DefaultOpts.VariantsOnly, "Only report positions with a non-reference base or a candidate indel")
	outPath           = flag.String("out", "bio-discover.tsv", "Output path")
	parallelism       = flag.Int("parallelism", 0, "Maximum number of BAM files opened simultaneously, and bgzf compression threads; 0 = runtime.NumCPU()")
)

func bioDiscoverUsage() {
	fmt.Printf("Usage: %s [OPTIONS] fapath bampath...\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioDiscoverUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) < 2 {
		log.Fatalf("Missing positional arguments (fapath and at least one bampath required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	ctx := vcontext.Background()
	opts := discover.Opts{
		BedPath:           *bedPath,
		Region:            *region,
		Format:            *format,
		FlagExclude:       *flagExclude,
		Mapq:              *mapq,
		MaxReadSpan:       *maxReadSpan,
		MinBaseQual:       *minBaseQual,
		MinIndelFrequency: *minIndelFrequency,
		SubSampleSize:     *subSampleSize,
		KeepAll:           *keepAll,
		Seed:              *seed,
		FlankLeftSize:     *flankLeft,
		FlankRightSize:    *flankRight,
		WindowFlank:       *windowFlank,
		VariantsOnly:      *variantsOnly,
		Parallelism:       *parallelism,
	}
	if err := discover.Discover(ctx, positionalArgs[0], positionalArgs[1:], *outPath, &opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
