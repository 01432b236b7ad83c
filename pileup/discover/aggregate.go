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
	"github.com/grailbio/vardiscover/genotype"
)

// Aggregate summarizes pd per sample: unfiltered base counts by strand, the
// number of filtered observations, and the candidate indels with their
// anchor base prepended.  Failed indels are left out.
func Aggregate(pd *PositionData, nSamples int) *genotype.Site {
	site := genotype.NewSite(pd.RefBase, nSamples)
	obs := pd.Observations()
	for i := range obs {
		b := &obs[i]
		sample := &site.Samples[b.SampleIndex]
		if pd.IsFiltered(b) {
			sample.Filtered++
			continue
		}
		sample.AddBase(b.BaseIndex(), !b.MatchesForwardStrand)
	}
	anchor := string(site.RefBase)
	for _, indel := range pd.Indels() {
		if indel.Frequency() == 0 {
			continue
		}
		site.Samples[indel.SampleIndex].AddIndel(anchor+indel.From(), anchor+indel.To(),
			uint32(indel.ForwardFrequency()), uint32(indel.ReverseFrequency()))
	}
	return site
}
