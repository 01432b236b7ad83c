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

// Package vcf converts gap-padded allele strings to the minimal, gap-free
// REF/ALT form used in VCF records.
package vcf

const gapChar = '-'

// Normalized is the result of Normalize.
type Normalized struct {
	// From is the VCF REF allele.
	From string
	// To holds the VCF ALT alleles, in input order.
	To []string
	// Mapping maps every input allele string (from and each to, as passed to
	// Normalize) to its normalized form.
	Mapping map[string]string
}

// Normalize converts a reference allele and its alternates, all gap-padded
// against a common frame, to VCF form:
//
//   1. a length-1 alternate (a plain SNP or reference call) is extended with
//      from[1:], so that it shares from's frame;
//   2. the longest suffix on which every allele agrees is trimmed, comparing
//      alleles right-aligned and reading past an allele's start as a gap;
//   3. gap characters are deleted.
//
// The trim never removes the last non-gap character of an allele.
//
// Example: from=GTAC, to={G--C, G-AC} yields From=GTA, To={G, GA}.
func Normalize(from string, tos []string) Normalized {
	alleles := make([]string, 1+len(tos))
	alleles[0] = from
	for i, to := range tos {
		if len(to) == 1 && len(from) > 1 {
			to += from[1:]
		}
		alleles[i+1] = to
	}
	trim := commonSuffixLen(alleles)
	result := Normalized{
		To:      make([]string, len(tos)),
		Mapping: make(map[string]string, len(alleles)),
	}
	for i, a := range alleles {
		n := len(a) - trim
		if n < 0 {
			n = 0
		}
		v := stripGaps(a[:n])
		if i == 0 {
			result.From = v
			result.Mapping[from] = v
		} else {
			result.To[i-1] = v
			result.Mapping[tos[i-1]] = v
		}
	}
	return result
}

// charFromEnd returns the k-th character of s counting from the end, or a
// gap past the start of s.
func charFromEnd(s string, k int) byte {
	if k >= len(s) {
		return gapChar
	}
	return s[len(s)-1-k]
}

// commonSuffixLen returns the number of trailing positions on which all
// alleles agree, capped so that every allele keeps a non-gap character.
func commonSuffixLen(alleles []string) int {
	maxLen := 0
	for _, a := range alleles {
		if len(a) > maxLen {
			maxLen = len(a)
		}
	}
	// remaining[i] counts the non-gap characters of alleles[i] not yet
	// trimmed.
	remaining := make([]int, len(alleles))
	for i, a := range alleles {
		remaining[i] = len(a) - countGaps(a)
	}
	trim := 0
	for ; trim < maxLen; trim++ {
		c := charFromEnd(alleles[0], trim)
		for _, a := range alleles[1:] {
			if charFromEnd(a, trim) != c {
				return trim
			}
		}
		if c != gapChar {
			for i := range remaining {
				if remaining[i] <= 1 {
					return trim
				}
			}
			for i := range remaining {
				remaining[i]--
			}
		}
	}
	return trim
}

func countGaps(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == gapChar {
			n++
		}
	}
	return n
}

func stripGaps(s string) string {
	n := countGaps(s)
	if n == 0 {
		return s
	}
	b := make([]byte, 0, len(s)-n)
	for i := 0; i < len(s); i++ {
		if s[i] != gapChar {
			b = append(b, s[i])
		}
	}
	return string(b)
}
