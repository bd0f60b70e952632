// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package posref translates alignment positions through a position
// reference, a file of "position:value" lines that maps each column of an
// alignment to a reference coordinate or to "-" for a gap.
package posref

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Answers for queries that cannot be translated.
const (
	Invalid  = "Invalid"
	NotFound = "NotFound"
	None     = "None"
	Gap      = "-"
)

type entry struct {
	pos   int
	value string
}

// Compare compares two entries by position, for use in llrb.
func (e entry) Compare(c llrb.Comparable) int {
	e2 := c.(entry)
	switch {
	case e.pos < e2.pos:
		return -1
	case e.pos > e2.pos:
		return 1
	}
	return 0
}

// Mapping is a position reference.
type Mapping struct {
	all    llrb.Tree // all entries
	nonGap llrb.Tree // entries whose value is not Gap
}

// Len returns the number of positions in the mapping.
func (m *Mapping) Len() int { return m.all.Len() }

func (m *Mapping) insert(pos int, value string) {
	e := entry{pos: pos, value: value}
	m.all.Insert(e)
	if value == Gap {
		m.nonGap.Delete(e)
	} else {
		m.nonGap.Insert(e)
	}
}

// ReadMapping parses "position:value" lines. A position that appears twice
// keeps its last value. Blank lines are ignored; any other line that is not
// an integer and a value separated by a single colon is an errors.Invalid
// error.
func ReadMapping(r io.Reader) (*Mapping, error) {
	m := &Mapping{}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 2 {
			return nil, errors.E(errors.Invalid, "posref: line "+strconv.Itoa(lineNum)+": expected 'position:value', found:", line)
		}
		pos, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "posref: line "+strconv.Itoa(lineNum)+": invalid position")
		}
		m.insert(pos, fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Lookup translates one query. A query that is not a non-negative integer
// yields Invalid and an unknown position NotFound. A gap yields
// "<prev>-<next>", the nearest non-gap values on either side, with None for
// a missing side; the search backward stops at position 1. A gap with no
// non-gap neighbor yields NotFound.
func (m *Mapping) Lookup(query string) string {
	query = strings.TrimSpace(query)
	if !isDigits(query) {
		return Invalid
	}
	pos, err := strconv.Atoi(query)
	if err != nil {
		// Out of range for int, so certainly not in the mapping.
		return NotFound
	}
	c := m.all.Get(entry{pos: pos})
	if c == nil {
		return NotFound
	}
	if value := c.(entry).value; value != Gap {
		return value
	}
	prev, next := None, None
	if c := m.nonGap.Floor(entry{pos: pos - 1}); c != nil && c.(entry).pos >= 1 {
		prev = c.(entry).value
	}
	if c := m.nonGap.Ceil(entry{pos: pos + 1}); c != nil {
		next = c.(entry).value
	}
	if prev == None && next == None {
		return NotFound
	}
	return prev + "-" + next
}

// Translate writes one Lookup answer per line of queries to out.
func (m *Mapping) Translate(queries io.Reader, out io.Writer) (n int, err error) {
	scanner := bufio.NewScanner(queries)
	w := bufio.NewWriter(out)
	for scanner.Scan() {
		if _, err = w.WriteString(m.Lookup(scanner.Text()) + "\n"); err != nil {
			return n, err
		}
		n++
	}
	if err = scanner.Err(); err != nil {
		return n, err
	}
	return n, w.Flush()
}

// Run reads the mapping at mappingPath and writes the translation of every
// query in queryPath to out.
func Run(ctx context.Context, mappingPath, queryPath string, out io.Writer) error {
	mf, err := file.Open(ctx, mappingPath)
	if err != nil {
		return errors.E(err, "posref: open", mappingPath)
	}
	m, err := ReadMapping(mf.Reader(ctx))
	if cerr := mf.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return errors.E(err, mappingPath)
	}
	log.Printf("posref: %s: %d positions", mappingPath, m.Len())

	qf, err := file.Open(ctx, queryPath)
	if err != nil {
		return errors.E(err, "posref: open", queryPath)
	}
	n, err := m.Translate(qf.Reader(ctx), out)
	if cerr := qf.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return errors.E(err, queryPath)
	}
	log.Printf("posref: translated %d queries", n)
	return nil
}
