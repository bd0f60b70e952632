// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package recomb matches samples against recombinant SNP pairs and groups
// samples that share the same set of matched pairs.
//
// A pair matches a sample iff the sample has a positive call at both of the
// pair's positions. The pairs matched by one sample form its match set;
// samples with equal match sets are grouped together and a sample alone in
// its group is a unique recombinant.
package recomb

import (
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/genotype"
	"github.com/grailbio/recomb/ldpair"
)

// MatchSet is the sorted list of pairs matched by one sample. Duplicate
// pairs in the input are kept.
type MatchSet []ldpair.Pair

// Key returns a string that is equal for two match sets iff the sets hold
// the same pairs. The empty set has the empty key.
func (m MatchSet) Key() string {
	var b strings.Builder
	for i, p := range m {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(p.L1))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(p.L2))
	}
	return b.String()
}

// Identities renders the pairs as "L1=x, L2=y" joined by "; ".
func (m MatchSet) Identities() string {
	s := make([]string, len(m))
	for i, p := range m {
		s[i] = p.String()
	}
	return strings.Join(s, "; ")
}

// SampleMatch is the match set of one sample.
type SampleMatch struct {
	Sample string
	Pairs  MatchSet
}

// Match computes the match set of every sample in table, in sorted sample
// order. Pairs are tested in list order, then sorted by (L1, L2).
func Match(table *genotype.Table, pairs []ldpair.Pair) []SampleMatch {
	samples := table.Samples()
	matches := make([]SampleMatch, 0, len(samples))
	for _, sample := range samples {
		var set MatchSet
		for _, p := range pairs {
			if table.Positive(sample, genotype.Position(p.L1)) && table.Positive(sample, genotype.Position(p.L2)) {
				set = append(set, p)
			}
		}
		sort.SliceStable(set, func(i, j int) bool { return ldpair.Less(set[i], set[j]) })
		log.Debug.Printf("recomb: %s matches %d pairs: %s", sample, len(set), set.Identities())
		matches = append(matches, SampleMatch{Sample: sample, Pairs: set})
	}
	return matches
}

// Overlap returns the distinct pair positions that appear in the table
// header, in ascending order. An empty result means no sample can match any
// pair.
func Overlap(table *genotype.Table, pairs []ldpair.Pair) []genotype.Position {
	header := make(map[genotype.Position]bool, len(table.Positions))
	for _, pos := range table.Positions {
		header[pos] = true
	}
	seen := map[genotype.Position]bool{}
	var overlap []genotype.Position
	for _, p := range pairs {
		for _, pos := range []genotype.Position{genotype.Position(p.L1), genotype.Position(p.L2)} {
			if header[pos] && !seen[pos] {
				seen[pos] = true
				overlap = append(overlap, pos)
			}
		}
	}
	sort.Slice(overlap, func(i, j int) bool { return overlap[i] < overlap[j] })
	return overlap
}
