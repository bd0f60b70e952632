// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recomb

import (
	"regexp"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// SummarizeOpts controls Summarize.
type SummarizeOpts struct {
	// PhyloTimes maps an accession to its terminal branch length. If nil, no
	// phylogenetic time is attached to rows.
	PhyloTimes map[string]float64
	// Accession extracts the accession from a sample name.
	Accession *regexp.Regexp
}

// DefaultSummarizeOpts attaches no phylogenetic times.
var DefaultSummarizeOpts = SummarizeOpts{
	Accession: DefaultAccessionPattern,
}

// Row is one line of the summary report.
type Row struct {
	// Accession is extracted from Sample; it may be empty.
	Accession string
	Sample    string
	NumPairs  int
	// Unique is true iff no other sample has the same match set.
	Unique bool
	Pairs  MatchSet
	// SharedWith lists the other samples with the same match set, in input
	// order.
	SharedWith []string
	// PhyloTime is valid only if HasPhyloTime.
	PhyloTime    float64
	HasPhyloTime bool
}

// PairIdentities renders the matched pairs, e.g. "L1=10, L2=20; L1=10, L2=30".
func (r Row) PairIdentities() string { return r.Pairs.Identities() }

// UniqueLabel returns "Yes" for a unique recombinant, else "No".
func (r Row) UniqueLabel() string {
	if r.Unique {
		return "Yes"
	}
	return "No"
}

// SharedWithLabel returns SharedWith joined by ", ".
func (r Row) SharedWithLabel() string { return strings.Join(r.SharedWith, ", ") }

// group is the set of samples sharing one match set.
type group struct {
	pairs   MatchSet
	members []int
}

// Summarize groups matches by equal match sets and returns one row per
// sample. Groups appear in the order they are first encountered and the
// samples of a group in input order.
func Summarize(matches []SampleMatch, opts SummarizeOpts) []Row {
	index := make(map[string]int, len(matches))
	var groups []group
	for i, m := range matches {
		key := m.Pairs.Key()
		if gi, ok := index[key]; ok {
			groups[gi].members = append(groups[gi].members, i)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, group{pairs: m.Pairs, members: []int{i}})
	}

	rows := make([]Row, 0, len(matches))
	nUnique, nMissingTime := 0, 0
	for _, g := range groups {
		for _, i := range g.members {
			sample := matches[i].Sample
			row := Row{
				Accession: Accession(opts.Accession, sample),
				Sample:    sample,
				NumPairs:  len(g.pairs),
				Unique:    len(g.members) == 1,
				Pairs:     g.pairs,
			}
			for _, j := range g.members {
				if j != i {
					row.SharedWith = append(row.SharedWith, matches[j].Sample)
				}
			}
			if row.Unique {
				nUnique++
			}
			if opts.PhyloTimes != nil {
				if t, ok := opts.PhyloTimes[row.Accession]; ok && row.Accession != "" {
					row.PhyloTime, row.HasPhyloTime = t, true
				} else {
					nMissingTime++
				}
			}
			rows = append(rows, row)
		}
	}
	log.Printf("recomb: %d samples in %d groups, %d unique recombinants", len(rows), len(groups), nUnique)
	if nMissingTime > 0 {
		log.Printf("recomb: no phylogenetic time for %d samples", nMissingTime)
	}
	return rows
}

// SortOrders lists the orders accepted by SortRows.
var SortOrders = []string{"group", "sample", "pairs"}

// SortRows reorders rows for display. "group" (or "") keeps the order of
// Summarize, "sample" sorts by sample name and "pairs" sorts by descending
// NumPairs, then by sample name.
func SortRows(rows []Row, order string) error {
	switch order {
	case "", "group":
	case "sample":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sample < rows[j].Sample })
	case "pairs":
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].NumPairs != rows[j].NumPairs {
				return rows[i].NumPairs > rows[j].NumPairs
			}
			return rows[i].Sample < rows[j].Sample
		})
	default:
		return errors.E(errors.Invalid, "recomb: unknown sort order '"+order+"', valid orders are:", strings.Join(SortOrders, ", "))
	}
	return nil
}
