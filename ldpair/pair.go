// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package ldpair extracts recombinant SNP-position pairs from linkage
// disequilibrium tables, such as the pairwise LD export written by
// Haploview.
package ldpair

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"math"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// Pair is two SNP positions believed to be linked by recombination. The
// order of L1 and L2 is kept as read.
type Pair struct {
	L1, L2 int
}

// String renders the pair the way it appears in reports, e.g. "L1=10, L2=20".
func (p Pair) String() string {
	return "L1=" + strconv.Itoa(p.L1) + ", L2=" + strconv.Itoa(p.L2)
}

// Less orders pairs by L1, then by L2.
func Less(a, b Pair) bool {
	if a.L1 != b.L1 {
		return a.L1 < b.L1
	}
	return a.L2 < b.L2
}

// Opts controls pair extraction.
type Opts struct {
	// Layout names an entry of Layouts. If empty, the layout is detected from
	// the delimiter of the input.
	Layout string
	// ConfidenceColumn names the confidence-bound column of the haploview
	// layout.
	ConfidenceColumn string
	// MinConfidence, if nonzero, drops rows whose confidence bound is below
	// it.
	MinConfidence float64
}

// DefaultOpts reads Haploview exports filtered on nothing.
var DefaultOpts = Opts{
	ConfidenceColumn: "CIhi",
}

// parseNumber parses a finite numeric field.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.E(errors.Invalid, "not a finite number:", s)
	}
	return v, nil
}

// parsePosition parses a numeric field and truncates it to an integer. Values
// outside the int range are errors.Invalid.
func parsePosition(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	v = math.Trunc(v)
	// float64(math.MaxInt) rounds up to 2^63, which does not fit.
	if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return 0, errors.E(errors.Invalid, "position out of range:", s)
	}
	return int(v), nil
}

// detectLayout picks a layout from the delimiters found in the first lines
// of data.
func detectLayout(data []byte) string {
	var head bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for n := 0; n < 10 && scanner.Scan(); n++ {
		head.Write(scanner.Bytes())
		head.WriteByte('\n')
	}
	delimiters := detector.New().DetectDelimiter(bytes.NewReader(head.Bytes()), '"')
	for _, d := range delimiters {
		if d == "\t" {
			return haploviewLayout
		}
	}
	// The detector needs consistent counts across lines; a header-only
	// table still counts as tab-delimited.
	firstLine := head.String()
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if strings.Contains(firstLine, "\t") {
		return haploviewLayout
	}
	return plainLayout
}

// ReadPairs reads recombinant pairs from r, in input order, duplicates
// included. A missing or malformed header is an errors.Invalid error; rows
// that fail to parse are logged and skipped.
func ReadPairs(r io.Reader, opts Opts) ([]Pair, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.E(errors.Invalid, "ldpair: pair table is empty")
	}
	name := opts.Layout
	if name == "" {
		name = detectLayout(data)
		log.Debug.Printf("ldpair: detected %s layout", name)
	}
	layout, ok := Layouts[name]
	if !ok {
		return nil, errors.E(errors.Invalid, "ldpair: unknown layout '"+name+"', valid layouts are:", strings.Join(LayoutNames(), ", "))
	}
	pairs, err := layout.parse(data, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("ldpair: read %d pairs (%s layout)", len(pairs), name)
	return pairs, nil
}

// ReadPairsFromPath is a wrapper for ReadPairs that takes a path instead of
// an io.Reader. Gzipped inputs are decompressed.
func ReadPairsFromPath(ctx context.Context, path string, opts Opts) (pairs []Pair, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "ldpair: open", path)
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
			return nil, errors.E(err, "ldpair: gzip", path)
		}
	}
	if pairs, err = ReadPairs(reader, opts); err != nil {
		return nil, errors.E(err, path)
	}
	return pairs, nil
}
