// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/recomb/recomb"
)

// arrowWriter buffers up to ChunkSize rows in column builders and writes
// them as one record batch.
type arrowWriter struct {
	out    file.File
	schema *arrow.Schema
	writer *ipc.FileWriter

	sample, unique, pairs, shared *array.StringBuilder
	numPairs                      *array.Int64Builder
	phyloTime                     *array.Float64Builder // nil unless opts.PhyloTime

	chunkSize, numRowsInChunk int
}

// seekable returns w as an io.WriteSeeker. The Arrow file writer needs to
// seek, so outputs that cannot are errors.NotSupported.
func seekable(w io.Writer, path string) (io.WriteSeeker, error) {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return nil, errors.E(errors.NotSupported, "report: arrow output must be seekable:", path)
	}
	return ws, nil
}

func newArrowWriter(ctx context.Context, path string, opts Opts) (*arrowWriter, error) {
	pool := memory.NewGoAllocator()
	cols := Columns(opts)
	fields := []arrow.Field{
		{Name: cols[0], Type: arrow.BinaryTypes.String},
		{Name: cols[1], Type: arrow.PrimitiveTypes.Int64},
		{Name: cols[2], Type: arrow.BinaryTypes.String},
		{Name: cols[3], Type: arrow.BinaryTypes.String},
		{Name: cols[4], Type: arrow.BinaryTypes.String},
	}
	if opts.PhyloTime {
		fields = append(fields, arrow.Field{Name: cols[5], Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	ws, err := seekable(out.Writer(ctx), path)
	if err != nil {
		_ = out.Close(ctx)
		return nil, err
	}
	writer, err := ipc.NewFileWriter(ws, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		_ = out.Close(ctx)
		return nil, err
	}
	w := &arrowWriter{
		out:       out,
		schema:    schema,
		writer:    writer,
		sample:    array.NewStringBuilder(pool),
		numPairs:  array.NewInt64Builder(pool),
		unique:    array.NewStringBuilder(pool),
		pairs:     array.NewStringBuilder(pool),
		shared:    array.NewStringBuilder(pool),
		chunkSize: opts.ChunkSize,
	}
	if w.chunkSize <= 0 {
		w.chunkSize = DefaultOpts.ChunkSize
	}
	if opts.PhyloTime {
		w.phyloTime = array.NewFloat64Builder(pool)
	}
	return w, nil
}

func (w *arrowWriter) Write(r recomb.Row) error {
	w.sample.Append(r.Sample)
	w.numPairs.Append(int64(r.NumPairs))
	w.unique.Append(r.UniqueLabel())
	w.pairs.Append(r.PairIdentities())
	w.shared.Append(r.SharedWithLabel())
	if w.phyloTime != nil {
		if r.HasPhyloTime {
			w.phyloTime.Append(r.PhyloTime)
		} else {
			w.phyloTime.AppendNull()
		}
	}
	w.numRowsInChunk++
	if w.numRowsInChunk == w.chunkSize {
		return w.writeChunk()
	}
	return nil
}

func (w *arrowWriter) writeChunk() error {
	builders := []array.Builder{w.sample, w.numPairs, w.unique, w.pairs, w.shared}
	if w.phyloTime != nil {
		builders = append(builders, w.phyloTime)
	}
	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		// NewArray resets the builder.
		cols[i] = b.NewArray()
	}
	record := array.NewRecord(w.schema, cols, int64(w.numRowsInChunk))
	for _, col := range cols {
		col.Release()
	}
	defer record.Release()
	if err := w.writer.Write(record); err != nil {
		return err
	}
	w.numRowsInChunk = 0
	return nil
}

func (w *arrowWriter) Close(ctx context.Context) (err error) {
	defer file.CloseAndReport(ctx, w.out, &err)
	if w.numRowsInChunk > 0 {
		if err = w.writeChunk(); err != nil {
			return err
		}
	}
	return w.writer.Close()
}
