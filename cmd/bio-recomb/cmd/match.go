// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"regexp"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/genotype"
	"github.com/grailbio/recomb/ldpair"
	"github.com/grailbio/recomb/recomb"
	"github.com/grailbio/recomb/report"
	"v.io/x/lib/cmdline"
)

// pipelineFlags configures reading, matching and summarizing.
type pipelineFlags struct {
	genotype      genotype.Opts
	pairs         ldpair.Opts
	report        report.Opts
	accession     string
	sort          string
	histogramBins int
}

func addPipelineFlags(cmd *cmdline.Command) *pipelineFlags {
	f := &pipelineFlags{
		genotype: genotype.DefaultOpts,
		pairs:    ldpair.DefaultOpts,
		report:   report.DefaultOpts,
	}
	cmd.Flags.StringVar(&f.genotype.HeaderLabel, "header", genotype.DefaultOpts.HeaderLabel, "First token of the genotype table header, compared case-insensitively")
	cmd.Flags.StringVar(&f.pairs.Layout, "layout", ldpair.DefaultOpts.Layout,
		"Pair table layout, one of "+strings.Join(ldpair.LayoutNames(), ", ")+"; detected from the delimiter if empty")
	cmd.Flags.StringVar(&f.pairs.ConfidenceColumn, "confidence-column", ldpair.DefaultOpts.ConfidenceColumn, "Confidence bound column of Haploview pair tables")
	cmd.Flags.Float64Var(&f.pairs.MinConfidence, "min-confidence", ldpair.DefaultOpts.MinConfidence, "Drop pairs whose confidence bound is below this value; 0 keeps all pairs")
	cmd.Flags.StringVar(&f.accession, "accession", recomb.DefaultAccessionPattern.String(), "Regular expression that extracts the accession from sample and tip names")
	cmd.Flags.StringVar(&f.sort, "sort", "group", "Row order of the summary, one of "+strings.Join(recomb.SortOrders, ", "))
	cmd.Flags.IntVar(&f.histogramBins, "histogram-bins", 10, "Number of bins of the logged matched-pair histogram; 0 disables it")
	cmd.Flags.IntVar(&f.report.ChunkSize, "chunk-size", report.DefaultOpts.ChunkSize, "Rows per record batch of Arrow output")
	return f
}

func (f *pipelineFlags) accessionPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(f.accession)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "invalid -accession pattern")
	}
	return re, nil
}

// match reads both inputs and computes the match set of every sample.
func (f *pipelineFlags) match(ctx context.Context, genotypePath, pairsPath string) ([]recomb.SampleMatch, error) {
	table, err := genotype.ReadTableFromPath(ctx, genotypePath, f.genotype)
	if err != nil {
		return nil, err
	}
	pairs, err := ldpair.ReadPairsFromPath(ctx, pairsPath, f.pairs)
	if err != nil {
		return nil, err
	}
	if overlap := recomb.Overlap(table, pairs); len(overlap) == 0 {
		log.Printf("warning: no pair position appears in %s, no sample can match", genotypePath)
	} else {
		log.Printf("%d pair positions appear in the genotype table", len(overlap))
	}
	return recomb.Match(table, pairs), nil
}

// summarize groups matches into sorted rows and logs their distribution.
func (f *pipelineFlags) summarize(matches []recomb.SampleMatch, phyloTimes map[string]float64) ([]recomb.Row, error) {
	re, err := f.accessionPattern()
	if err != nil {
		return nil, err
	}
	rows := recomb.Summarize(matches, recomb.SummarizeOpts{PhyloTimes: phyloTimes, Accession: re})
	if err := recomb.SortRows(rows, f.sort); err != nil {
		return nil, err
	}
	if f.histogramBins > 0 {
		log.Printf("matched pairs per sample:\n%s", recomb.PairCountHistogram(rows, f.histogramBins))
	}
	return rows, nil
}

// checkOutputFormat fails early on output paths that report cannot write.
func checkOutputFormat(path string) error {
	if report.DetermineFormat(path) == report.Unknown {
		return errors.E(errors.NotSupported, "unsupported output format, use .xlsx, .tsv, .tsv.gz, .arrow or .feather:", path)
	}
	return nil
}

func runMatch(ctx context.Context, f *pipelineFlags, genotypePath, pairsPath, outPath string) error {
	if _, err := f.accessionPattern(); err != nil {
		return err
	}
	if err := checkOutputFormat(outPath); err != nil {
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
	opts := f.report
	opts.PhyloTime = false
	return report.WriteRows(ctx, outPath, rows, opts)
}
