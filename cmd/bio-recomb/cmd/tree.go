// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/phylo"
	"github.com/grailbio/recomb/posref"
	"github.com/grailbio/recomb/report"
)

func runTree(ctx context.Context, f *pipelineFlags, tf *treeFlags, genotypePath, pairsPath, alignmentPath, outPath string) error {
	re, err := f.accessionPattern()
	if err != nil {
		return err
	}
	if err := checkOutputFormat(outPath); err != nil {
		return err
	}
	matches, err := f.match(ctx, genotypePath, pairsPath)
	if err != nil {
		return err
	}
	if _, err := phylo.CheckAlignment(ctx, alignmentPath, re); err != nil {
		return err
	}
	treePath, err := tf.runner().Run(ctx, alignmentPath, tf.prefix)
	if err != nil {
		return err
	}
	lengths, err := phylo.ReadBranchLengths(ctx, treePath, re)
	if err != nil {
		return err
	}
	rows, err := f.summarize(matches, lengths)
	if err != nil {
		return err
	}
	opts := f.report
	opts.PhyloTime = true
	if err := report.WriteRows(ctx, outPath, rows, opts); err != nil {
		return err
	}
	if tf.annotatedTree == "" {
		return nil
	}
	annotate := tf.annotate
	annotate.Accession = re
	_, err = phylo.Annotate(ctx, rows, treePath, tf.annotatedTree, annotate)
	return err
}

func runAnnotate(ctx context.Context, f *pipelineFlags, tf *treeFlags, genotypePath, pairsPath, treePath, outPath string) error {
	re, err := f.accessionPattern()
	if err != nil {
		return err
	}
	matches, err := f.match(ctx, genotypePath, pairsPath)
	if err != nil {
		return err
	}
	rows, err := f.summarize(matches, nil)
	if err != nil {
		return err
	}
	annotate := tf.annotate
	annotate.Accession = re
	_, err = phylo.Annotate(ctx, rows, treePath, outPath, annotate)
	return err
}

func runPosref(ctx context.Context, mappingPath, queryPath, outPath string) (err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	if err = posref.Run(ctx, mappingPath, queryPath, out.Writer(ctx)); err != nil {
		return err
	}
	log.Printf("wrote %s", outPath)
	return nil
}
