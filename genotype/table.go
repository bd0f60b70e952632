// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package genotype reads per-sample binary genotype tables.
//
// A table is whitespace separated. The first line holds a header label
// followed by SNP positions, and every following line holds a sample name
// followed by one integer call per position:
//
//   Position 241 3037 14408
//   Sample1  1   1    0
//   Sample2  0   1    1
//
// A position may appear in more than one header column; the calls for such
// columns are merged with logical OR.
package genotype

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// Position identifies a SNP site.
type Position int

// Call is a genotype call at a position, conventionally 0 or 1.
type Call int

// Positive reports whether the call marks the variant as present. Any
// nonzero call is positive, including missing-data codes such as -9.
func (c Call) Positive() bool { return c != 0 }

// Record maps a position to the (merged) call of one sample.
type Record map[Position]Call

// Opts controls table parsing.
type Opts struct {
	// HeaderLabel is the expected first token of the header line, compared
	// case-insensitively.
	HeaderLabel string
	// MaxLineBytes bounds the length of a single line.
	MaxLineBytes int
}

// DefaultOpts is the default table layout.
var DefaultOpts = Opts{
	HeaderLabel:  "Position",
	MaxLineBytes: 64 << 20,
}

// Table holds the genotype records of all samples. It is read-only after
// ReadTable returns.
type Table struct {
	// Positions lists the distinct header positions, in order of first
	// appearance.
	Positions []Position
	// Records maps a sample name to its record.
	Records map[string]Record
	// Skipped is the number of malformed data lines that were dropped.
	Skipped int
}

// Samples returns the sample names in sorted order.
func (t *Table) Samples() []string {
	names := make([]string, 0, len(t.Records))
	for name := range t.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Positive reports whether sample has a positive call at pos. A missing
// sample or position counts as a negative call.
func (t *Table) Positive(sample string, pos Position) bool {
	return t.Records[sample][pos].Positive()
}

// HasPosition reports whether pos appears in the table header.
func (t *Table) HasPosition(pos Position) bool {
	for _, p := range t.Positions {
		if p == pos {
			return true
		}
	}
	return false
}

// columnMap groups header column indexes by position, so that duplicate
// columns can be OR-merged.
type columnMap struct {
	positions []Position
	columns   [][]int // columns[i] are the call indexes of positions[i]
}

func newColumnMap(header []Position) columnMap {
	var m columnMap
	index := make(map[Position]int, len(header))
	for col, pos := range header {
		i, ok := index[pos]
		if !ok {
			i = len(m.positions)
			index[pos] = i
			m.positions = append(m.positions, pos)
			m.columns = append(m.columns, nil)
		}
		m.columns[i] = append(m.columns[i], col)
	}
	return m
}

func (m columnMap) merge(calls []Call) Record {
	rec := make(Record, len(m.positions))
	for i, pos := range m.positions {
		var merged Call
		for _, col := range m.columns[i] {
			if calls[col].Positive() {
				merged = 1
				break
			}
		}
		rec[pos] = merged
	}
	return rec
}

func parseHeader(line string, opts Opts) ([]Position, error) {
	tokens := strings.Fields(line)
	label := ""
	if len(tokens) > 0 {
		label = tokens[0]
	}
	if !strings.EqualFold(label, opts.HeaderLabel) {
		return nil, errors.E(errors.Invalid,
			"genotype: first column must be '"+opts.HeaderLabel+"', found '"+label+"'")
	}
	var header []Position
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		pos, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "genotype: invalid position in header:", tok)
		}
		header = append(header, Position(pos))
	}
	return header, nil
}

// parseCalls parses the call tokens of a data line. It returns false if any
// token is not an integer.
func parseCalls(tokens []string, calls []Call) bool {
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return false
		}
		calls[i] = Call(v)
	}
	return true
}

// ReadTable parses a genotype table from r. An empty input, a header with
// the wrong label or a non-integer header position is an errors.Invalid
// error. Data lines with the wrong number of fields or non-integer calls are
// logged and skipped.
func ReadTable(r io.Reader, opts Opts) (*Table, error) {
	scanner := bufio.NewScanner(r)
	if opts.MaxLineBytes > 0 {
		scanner.Buffer(nil, opts.MaxLineBytes)
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.E(errors.Invalid, "genotype: table is empty")
	}
	header, err := parseHeader(scanner.Text(), opts)
	if err != nil {
		return nil, err
	}
	log.Printf("genotype: %d header positions", len(header))
	cols := newColumnMap(header)
	if n := len(header) - len(cols.positions); n > 0 {
		log.Printf("genotype: %d duplicate header positions will be OR-merged", n)
	}

	t := &Table{
		Positions: cols.positions,
		Records:   map[string]Record{},
	}
	calls := make([]Call, len(header))
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) != len(header)+1 {
			log.Printf("genotype: line %d: skipping line with %d fields, expected %d: %.80s",
				lineNum, len(tokens), len(header)+1, line)
			t.Skipped++
			continue
		}
		if !parseCalls(tokens[1:], calls) {
			log.Printf("genotype: line %d: skipping line with non-integer calls: %.80s", lineNum, line)
			t.Skipped++
			continue
		}
		name := tokens[0]
		if _, ok := t.Records[name]; ok {
			log.Printf("genotype: line %d: sample %s appears more than once, keeping the last one", lineNum, name)
		}
		t.Records[name] = cols.merge(calls)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Printf("genotype: loaded %d samples, skipped %d lines", len(t.Records), t.Skipped)
	return t, nil
}

// ReadTableFromPath is a wrapper for ReadTable that takes a path instead of
// an io.Reader. Gzipped inputs are decompressed.
func ReadTableFromPath(ctx context.Context, path string, opts Opts) (t *Table, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "genotype: open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, errors.E(err, "genotype: gzip", path)
		}
	}
	if t, err = ReadTable(reader, opts); err != nil {
		return nil, errors.E(err, path)
	}
	return t, nil
}
