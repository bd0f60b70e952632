// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/recomb/recomb"
)

type tsvWriter struct {
	out  file.File
	bgzf *bgzf.Writer // nil for uncompressed output
	tsv  *tsv.Writer
	opts Opts
}

func newTSVWriter(ctx context.Context, path string, bgzip bool, opts Opts) (*tsvWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	w := &tsvWriter{out: out, opts: opts}
	if bgzip {
		parallelism := opts.Parallelism
		if parallelism <= 0 {
			parallelism = 1
		}
		w.bgzf = bgzf.NewWriter(out.Writer(ctx), parallelism)
		w.tsv = tsv.NewWriter(w.bgzf)
	} else {
		w.tsv = tsv.NewWriter(out.Writer(ctx))
	}
	for _, col := range Columns(opts) {
		w.tsv.WriteString(col)
	}
	if err := w.tsv.EndLine(); err != nil {
		_ = out.Close(ctx)
		return nil, err
	}
	return w, nil
}

func (w *tsvWriter) Write(r recomb.Row) error {
	w.tsv.WriteString(r.Sample)
	w.tsv.WriteInt64(int64(r.NumPairs))
	w.tsv.WriteString(r.UniqueLabel())
	w.tsv.WriteString(r.PairIdentities())
	w.tsv.WriteString(r.SharedWithLabel())
	if w.opts.PhyloTime {
		w.tsv.WriteString(phyloTimeString(r))
	}
	return w.tsv.EndLine()
}

func (w *tsvWriter) Close(ctx context.Context) (err error) {
	defer file.CloseAndReport(ctx, w.out, &err)
	if err = w.tsv.Flush(); err != nil {
		return err
	}
	if w.bgzf != nil {
		err = w.bgzf.Close()
	}
	return err
}
