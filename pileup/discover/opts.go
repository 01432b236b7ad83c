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
	"runtime"

	"github.com/grailbio/base/errors"
)

// Output formats accepted by Opts.Format.
const (
	FormatTSV    = "tsv"
	FormatTSVBgz = "tsv-bgz"
	FormatRio    = "rio"
)

// Opts configures a discovery run.
type Opts struct {
	// Commandline options.
	BedPath           string
	Region            string
	Format            string
	FlagExclude       int
	Mapq              int
	MaxReadSpan       int
	MinBaseQual       int
	MinIndelFrequency int
	SubSampleSize     int
	// KeepAll disables observation thinning; SubSampleSize is then ignored.
	KeepAll        bool
	Seed           int64
	FlankLeftSize  int
	FlankRightSize int
	// WindowFlank bounds the span of positions held in memory to
	// 2*WindowFlank.
	WindowFlank  int
	VariantsOnly bool
	Parallelism  int
}

// DefaultOpts holds the commandline defaults.
var DefaultOpts = Opts{
	Format:            FormatTSV,
	FlagExclude:       0xf04,
	Mapq:              1,
	MaxReadSpan:       511,
	MinBaseQual:       0,
	MinIndelFrequency: 1,
	SubSampleSize:     10000,
	Seed:              1,
	FlankLeftSize:     5,
	FlankRightSize:    5,
	WindowFlank:       511,
	Parallelism:       0,
}

func (o *Opts) validate() error {
	switch o.Format {
	case FormatTSV, FormatTSVBgz, FormatRio:
	default:
		return errors.E(errors.Invalid, "discover: unrecognized format", o.Format)
	}
	if o.MaxReadSpan <= 0 {
		return errors.E(errors.Invalid, "discover: max-read-span must be positive")
	}
	if o.WindowFlank < o.MaxReadSpan {
		return errors.E(errors.Invalid, "discover: window-flank cannot be smaller than max-read-span")
	}
	if o.FlankLeftSize < 0 || o.FlankRightSize < 0 {
		return errors.E(errors.Invalid, "discover: negative flank size")
	}
	if !o.KeepAll && o.SubSampleSize <= 0 {
		return errors.E(errors.Invalid, "discover: sub-sample-size must be positive")
	}
	if o.MinBaseQual < 0 || o.MinBaseQual > 255 {
		return errors.E(errors.Invalid, "discover: min-base-qual out of range")
	}
	if o.MinIndelFrequency < 0 {
		return errors.E(errors.Invalid, "discover: negative min-indel-frequency")
	}
	return nil
}

func (o *Opts) parallelism() int {
	if o.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return o.Parallelism
}

// samplingPolicy returns a fresh policy for one scan.
func (o *Opts) samplingPolicy() SamplingPolicy {
	if o.KeepAll {
		return NewKeepAllPolicy(o.Seed)
	}
	return NewThinningPolicy(o.SubSampleSize, o.Seed)
}
