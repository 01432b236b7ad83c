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
package vcf

import (
	"fmt"
	"strings"
)

// AllelePair is one observed allele against a reference allele.  Both
// strings start with the same anchor position: From[0] is the reference base
// there and To[0] the observed base.
type AllelePair struct {
	From string
	To   string
}

// indelParts is an AllelePair split into
//   base + insFrom + delFrom + tail   (reference)
//   toBase + insTo + delTo + toTail  (observed)
// where insFrom is all gaps and delTo is all gaps.
type indelParts struct {
	base, toBase   byte
	insFrom, insTo string
	delFrom, delTo string
	tail, toTail   string
}

func splitPair(p AllelePair) (indelParts, error) {
	if len(p.From) == 0 || len(p.To) == 0 {
		return indelParts{}, fmt.Errorf("vcf.MergeIndelFrom: empty allele in %s/%s", p.From, p.To)
	}
	parts := indelParts{base: p.From[0], toBase: p.To[0]}
	i := 1
	for i < len(p.From) && i < len(p.To) && p.From[i] == gapChar {
		i++
	}
	parts.insFrom, parts.insTo = p.From[1:i], p.To[1:i]
	j := i
	for j < len(p.From) && j < len(p.To) && p.To[j] == gapChar {
		j++
	}
	parts.delFrom, parts.delTo = p.From[i:j], p.To[i:j]
	parts.tail, parts.toTail = p.From[j:], p.To[j:]
	return parts, nil
}

// MergeIndelFrom rewrites a set of allele pairs observed at one site, whose
// reference alleles differ only in gap padding and trailing context, against
// a single reference allele.  It returns that allele and the rewritten
// observed alleles in input order.
//
// The deletion plus trailing context of every pair is re-synchronized to the
// longest one, and insertion gaps are left-padded to the widest insertion.
// For example
//   {(A,T), (A,A), (ATTTGC,A----C), (A-TTTG,ATTTTG)}
// becomes A-TTTGC with {T-TTTGC, A-TTTGC, A-----C, ATTTTGC}.
//
// An error is returned when the pairs do not share the same anchor base or
// their reference alleles disagree.
func MergeIndelFrom(pairs []AllelePair) (from string, tos []string, err error) {
	if len(pairs) == 0 {
		return "", nil, nil
	}
	parts := make([]indelParts, len(pairs))
	longest := ""
	maxIns := 0
	for i, p := range pairs {
		if parts[i], err = splitPair(p); err != nil {
			return "", nil, err
		}
		if parts[i].base != parts[0].base {
			return "", nil, fmt.Errorf("vcf.MergeIndelFrom: anchor bases differ: %s vs %s", pairs[0].From, p.From)
		}
		if s := parts[i].delFrom + parts[i].tail; len(s) > len(longest) {
			longest = s
		}
		if n := len(parts[i].insFrom); n > maxIns {
			maxIns = n
		}
	}
	tos = make([]string, len(parts))
	for i := range parts {
		pt := &parts[i]
		if !strings.HasPrefix(longest, pt.delFrom+pt.tail) {
			return "", nil, fmt.Errorf("vcf.MergeIndelFrom: reference alleles disagree: %s vs %s", pairs[i].From, longest)
		}
		extra := longest[len(pt.delFrom)+len(pt.tail):]
		pt.tail += extra
		pt.toTail += extra
		if pad := maxIns - len(pt.insFrom); pad > 0 {
			gaps := strings.Repeat(string(gapChar), pad)
			pt.insFrom = gaps + pt.insFrom
			pt.insTo = gaps + pt.insTo
		}
		f := string(pt.base) + pt.insFrom + pt.delFrom + pt.tail
		if i == 0 {
			from = f
		} else if f != from {
			return "", nil, fmt.Errorf("vcf.MergeIndelFrom: reference alleles disagree: %s vs %s", from, f)
		}
		tos[i] = string(pt.toBase) + pt.insTo + pt.delTo + pt.toTail
	}
	return from, tos, nil
}
