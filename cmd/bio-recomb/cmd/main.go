// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/grailbio/recomb/phylo"
	"v.io/x/lib/cmdline"
)

// defaultOutput is the summary written when no output path is given.
const defaultOutput = "matches_output.xlsx"

// defaultPosrefOutput is the translation written when no output path is
// given to posref.
const defaultPosrefOutput = "position_values.txt"

// commandContext returns a context that is canceled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newCmdMatch() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "match",
		Short:    "Match samples against recombinant SNP pairs and summarize them",
		ArgsName: "genotype pairs [output]",
		ArgsLong: `
genotype is a whitespace-separated table with a "Position" header line and
one line of 0/1 calls per sample. pairs is a Haploview LD export or a plain
"L1 L2" list. output defaults to ` + defaultOutput + `; its extension selects
the format (.xlsx, .tsv, .tsv.gz, .arrow or .feather).`,
	}
	flags := addPipelineFlags(cmd)
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 && len(argv) != 3 {
			return env.UsageErrorf("match takes genotype pairs [output], but got %v", argv)
		}
		out := defaultOutput
		if len(argv) == 3 {
			out = argv[2]
		}
		ctx, cancel := commandContext()
		defer cancel()
		return runMatch(ctx, flags, argv[0], argv[1], out)
	})
	return cmd
}

func newCmdTree() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "tree",
		Short:    "Infer a tree with IQ-TREE and add phylogenetic time to the summary",
		ArgsName: "genotype pairs alignment [output]",
		ArgsLong: `
alignment is a FASTA multiple sequence alignment handed to IQ-TREE. The
terminal branch length of each tip is joined to samples by accession.`,
	}
	flags := addPipelineFlags(cmd)
	tflags := addTreeFlags(cmd)
	cmd.Flags.StringVar(&tflags.annotatedTree, "annotated-tree", "", "If set, also write the inferred tree with unique recombinants colored to this path")
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 && len(argv) != 4 {
			return env.UsageErrorf("tree takes genotype pairs alignment [output], but got %v", argv)
		}
		out := defaultOutput
		if len(argv) == 4 {
			out = argv[3]
		}
		ctx, cancel := commandContext()
		defer cancel()
		return runTree(ctx, flags, tflags, argv[0], argv[1], argv[2], out)
	})
	return cmd
}

func newCmdAnnotate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "annotate",
		Short:    "Color the tips of unique recombinants in a Newick tree",
		ArgsName: "genotype pairs tree output-tree",
	}
	flags := addPipelineFlags(cmd)
	tflags := addTreeFlags(cmd)
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 4 {
			return env.UsageErrorf("annotate takes genotype pairs tree output-tree, but got %v", argv)
		}
		ctx, cancel := commandContext()
		defer cancel()
		return runAnnotate(ctx, flags, tflags, argv[0], argv[1], argv[2], argv[3])
	})
	return cmd
}

func newCmdPosref() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "posref",
		Short:    "Translate alignment positions through a position reference",
		ArgsName: "mapping positions [output]",
		ArgsLong: `
mapping holds "position:value" lines, where value "-" marks a gap. positions
holds one query per line. output defaults to ` + defaultPosrefOutput + `.`,
	}
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 && len(argv) != 3 {
			return env.UsageErrorf("posref takes mapping positions [output], but got %v", argv)
		}
		out := defaultPosrefOutput
		if len(argv) == 3 {
			out = argv[2]
		}
		ctx, cancel := commandContext()
		defer cancel()
		return runPosref(ctx, argv[0], argv[1], out)
	})
	return cmd
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-recomb",
		Short:    "Find samples carrying recombinant SNP pairs",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdMatch(),
			newCmdTree(),
			newCmdAnnotate(),
			newCmdPosref(),
		},
	}
}

// Run is the entry point of bio-recomb.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}

// treeFlags configures tree inference and annotation.
type treeFlags struct {
	iqtree, iqtreeArgs, prefix string
	annotatedTree             string
	annotate                  phylo.AnnotateOpts
}

func addTreeFlags(cmd *cmdline.Command) *treeFlags {
	f := &treeFlags{annotate: phylo.DefaultAnnotateOpts}
	cmd.Flags.StringVar(&f.iqtree, "iqtree", phylo.DefaultRunner.Executable, "IQ-TREE executable name or path")
	cmd.Flags.StringVar(&f.iqtreeArgs, "iqtree-args", strings.Join(phylo.DefaultRunner.Args, " "), "Space-separated IQ-TREE arguments passed after -s and -pre")
	cmd.Flags.StringVar(&f.prefix, "prefix", "run_matching", "IQ-TREE output prefix")
	cmd.Flags.StringVar(&f.annotate.Color, "color", phylo.DefaultAnnotateOpts.Color, "Color of unique recombinant tips in annotated trees")
	return f
}

func (f *treeFlags) runner() phylo.Runner {
	return phylo.Runner{
		Executable: f.iqtree,
		Args:       strings.Fields(f.iqtreeArgs),
	}
}
