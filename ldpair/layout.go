// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package ldpair

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

const (
	haploviewLayout = "haploview"
	plainLayout     = "plain"

	// Haploview exports carry L1 L2 D' LOD r^2 CIlow CIhi Dist T-int. Columns
	// past these nine are ignored.
	haploviewColumns = 9
)

// Layout describes one input format for pair tables.
type Layout struct {
	// Description is shown in command-line help.
	Description string
	parse       func(data []byte, opts Opts) ([]Pair, error)
}

// Layouts lists the supported pair table formats, keyed by name.
var Layouts = map[string]Layout{
	haploviewLayout: {
		Description: "tab-separated Haploview LD export with L1, L2 and a confidence bound column",
		parse:       parseHaploview,
	},
	plainLayout: {
		Description: "whitespace-separated two-column list with header 'L1 L2'",
		parse:       parsePlain,
	},
}

// LayoutNames returns the names of Layouts in sorted order.
func LayoutNames() []string {
	names := make([]string, 0, len(Layouts))
	for name := range Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// closestColumn returns the header column nearest to name by edit distance.
func closestColumn(name string, header []string) string {
	best, bestDist := "", -1
	for _, col := range header {
		if d := matchr.Levenshtein(name, col); bestDist < 0 || d < bestDist {
			best, bestDist = col, d
		}
	}
	return best
}

func columnIndex(name string, header []string) (int, error) {
	for i, col := range header {
		if col == name {
			return i, nil
		}
	}
	msg := "ldpair: required column '" + name + "' is missing"
	if guess := closestColumn(name, header); guess != "" {
		msg += ", did you mean '" + guess + "'?"
	}
	return -1, errors.E(errors.Invalid, msg)
}

func parseHaploview(data []byte, opts Opts) ([]Pair, error) {
	r := tsv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	record, err := r.Reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.E(errors.Invalid, "ldpair: pair table is empty")
		}
		return nil, errors.E(errors.Invalid, err, "ldpair: read header")
	}
	header := make([]string, 0, haploviewColumns)
	for i := 0; i < len(record) && i < haploviewColumns; i++ {
		header = append(header, strings.TrimSpace(record[i]))
	}
	var idx [3]int
	for i, name := range []string{"L1", "L2", opts.ConfidenceColumn} {
		if idx[i], err = columnIndex(name, header); err != nil {
			return nil, err
		}
	}
	last := idx[0]
	for _, i := range idx[1:] {
		if i > last {
			last = i
		}
	}

	var (
		pairs            []Pair
		skipped, dropped int
	)
	for {
		record, err := r.Reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if perr, ok := err.(*csv.ParseError); ok {
				log.Printf("ldpair: skipping malformed row: %v", perr)
				skipped++
				continue
			}
			return nil, err
		}
		if len(record) <= last {
			log.Printf("ldpair: skipping row with %d fields: %v", len(record), record)
			skipped++
			continue
		}
		l1, err1 := parsePosition(record[idx[0]])
		l2, err2 := parsePosition(record[idx[1]])
		bound, err3 := parseNumber(record[idx[2]])
		if err1 != nil || err2 != nil || err3 != nil {
			log.Printf("ldpair: skipping row with non-numeric fields: %v", record)
			skipped++
			continue
		}
		if opts.MinConfidence != 0 && bound < opts.MinConfidence {
			log.Debug.Printf("ldpair: dropping pair %d,%d: %s %v < %v",
				l1, l2, opts.ConfidenceColumn, bound, opts.MinConfidence)
			dropped++
			continue
		}
		pairs = append(pairs, Pair{L1: l1, L2: l2})
	}
	if skipped > 0 {
		log.Printf("ldpair: skipped %d malformed rows", skipped)
	}
	if dropped > 0 {
		log.Printf("ldpair: %d pairs fell below %s %v", dropped, opts.ConfidenceColumn, opts.MinConfidence)
	}
	return pairs, nil
}

func parsePlain(data []byte, _ Opts) ([]Pair, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var header []string
	for scanner.Scan() {
		if header = strings.Fields(scanner.Text()); len(header) > 0 {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(header) != 2 || header[0] != "L1" || header[1] != "L2" {
		return nil, errors.E(errors.Invalid,
			"ldpair: header must be exactly 'L1 L2', found '"+strings.Join(header, " ")+"'")
	}
	var (
		pairs   []Pair
		skipped int
	)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			log.Printf("ldpair: skipping row with %d fields: %q", len(fields), scanner.Text())
			skipped++
			continue
		}
		l1, err1 := parsePosition(fields[0])
		l2, err2 := parsePosition(fields[1])
		if err1 != nil || err2 != nil {
			log.Printf("ldpair: skipping row with non-numeric fields: %q", scanner.Text())
			skipped++
			continue
		}
		pairs = append(pairs, Pair{L1: l1, L2: l2})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("ldpair: skipped %d malformed rows", skipped)
	}
	return pairs, nil
}
