// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package report writes recombinant summary rows as a spreadsheet, a TSV
// file or an Arrow IPC file. The format is chosen from the output path.
package report

import (
	"context"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/recomb"
)

// Opts controls the output.
type Opts struct {
	// PhyloTime adds the "Phylogenetic Time" column.
	PhyloTime bool
	// ChunkSize is the number of rows per Arrow record batch.
	ChunkSize int
	// Parallelism is the number of BGZF compression goroutines for .tsv.gz.
	Parallelism int
}

// DefaultOpts is the default output configuration.
var DefaultOpts = Opts{
	ChunkSize:   1024,
	Parallelism: 1,
}

// Writer receives summary rows. Close must be called to flush the output.
type Writer interface {
	Write(row recomb.Row) error
	Close(ctx context.Context) error
}

// Format identifies an output format.
type Format int

const (
	// Unknown is an unsupported format.
	Unknown Format = iota
	// XLSX is an Excel workbook.
	XLSX
	// TSV is tab-separated text.
	TSV
	// TSVGzip is BGZF-compressed tab-separated text.
	TSVGzip
	// Arrow is an Arrow IPC (Feather v2) file.
	Arrow
)

// DetermineFormat returns the format implied by the extension of path.
func DetermineFormat(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return XLSX
	case strings.HasSuffix(lower, ".tsv"):
		return TSV
	case strings.HasSuffix(lower, ".tsv.gz"):
		return TSVGzip
	case strings.HasSuffix(lower, ".arrow"), strings.HasSuffix(lower, ".feather"):
		return Arrow
	}
	return Unknown
}

// Columns returns the header of the report.
func Columns(opts Opts) []string {
	cols := []string{"Sample", "Num Pairs", "UniqueRecombinant", "Pair Identities", "Shared With"}
	if opts.PhyloTime {
		cols = append(cols, "Phylogenetic Time")
	}
	return cols
}

// phyloTimeString formats the phylogenetic time of r, or "" if it has none.
func phyloTimeString(r recomb.Row) string {
	if !r.HasPhyloTime {
		return ""
	}
	return strconv.FormatFloat(r.PhyloTime, 'g', -1, 64)
}

// Create opens a writer for path.
func Create(ctx context.Context, path string, opts Opts) (Writer, error) {
	switch DetermineFormat(path) {
	case XLSX:
		return newXLSXWriter(ctx, path, opts)
	case TSV:
		return newTSVWriter(ctx, path, false, opts)
	case TSVGzip:
		return newTSVWriter(ctx, path, true, opts)
	case Arrow:
		return newArrowWriter(ctx, path, opts)
	}
	return nil, errors.E(errors.NotSupported, "report: unsupported output format, use .xlsx, .tsv, .tsv.gz, .arrow or .feather:", path)
}

// WriteRows writes rows to path in the format implied by its extension.
func WriteRows(ctx context.Context, path string, rows []recomb.Row, opts Opts) (err error) {
	w, err := Create(ctx, path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for _, row := range rows {
		if err = w.Write(row); err != nil {
			return errors.E(err, "report: write", path)
		}
	}
	log.Printf("report: wrote %d rows to %s", len(rows), path)
	return nil
}
