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

/*
Given a reference FASTA and one coordinate-sorted BAM per sample,
bio-discover walks the alignments of all samples together and reports, for
each covered reference position, the reads supporting each allele.  Indels
are canonicalized to the full repeat region they could have been placed in,
so that alignments placing the same event at different offsets of a
homopolymer or tandem repeat are counted together.

The default output is a TSV with one line per position: #CHROM, POS, REF,
ALT, DP, and one column of comma-separated allele depths per sample.  The
"rio" format keeps the per-strand counts and the unnormalized indel alleles.

Sample usage:
bio-discover \
    --region chr1:1000000-2000000 \
    --variants-only \
    --out calls.tsv \
    ref.fa \
    sample1.bam sample2.bam
*/
package main
