// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/recomb/recomb"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the worksheet holding the rows.
const SheetName = "matches"

// xlsxWriter buffers the workbook in memory and writes it on Close.
type xlsxWriter struct {
	path string
	book *excelize.File
	row  int // 1-based index of the next row
	opts Opts
}

func newXLSXWriter(ctx context.Context, path string, opts Opts) (*xlsxWriter, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName(book.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	w := &xlsxWriter{path: path, book: book, row: 1, opts: opts}
	header := make([]interface{}, 0, 6)
	for _, col := range Columns(opts) {
		header = append(header, col)
	}
	if err := w.setRow(header); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *xlsxWriter) setRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.book.SetSheetRow(SheetName, cell, &values); err != nil {
		return err
	}
	w.row++
	return nil
}

func (w *xlsxWriter) Write(r recomb.Row) error {
	values := []interface{}{r.Sample, r.NumPairs, r.UniqueLabel(), r.PairIdentities(), r.SharedWithLabel()}
	if w.opts.PhyloTime {
		if r.HasPhyloTime {
			values = append(values, r.PhyloTime)
		} else {
			values = append(values, "")
		}
	}
	return w.setRow(values)
}

func (w *xlsxWriter) Close(ctx context.Context) (err error) {
	defer func() {
		if cerr := w.book.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	out, err := file.Create(ctx, w.path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	_, err = w.book.WriteTo(out.Writer(ctx))
	return err
}
