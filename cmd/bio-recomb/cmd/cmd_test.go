// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/gosh"
)

const (
	genotypeText = `Position 10 20 30
hCoV-19/A/EPI_ISL_1 1 1 0
hCoV-19/B/EPI_ISL_2 1 1 0
hCoV-19/C/EPI_ISL_3 0 0 0
`
	pairsText = "L1\tL2\tD'\tLOD\tr^2\tCIlow\tCIhi\tDist\tT-int\n" +
		"10\t20\t1\t3\t0.9\t0.8\t0.95\t10\t1\n" +
		"20\t30\t1\t3\t0.9\t0.8\t0.95\t10\t1\n"
	alignmentText = ">hCoV-19/A/EPI_ISL_1\nACGT\n>hCoV-19/B/EPI_ISL_2\nACGA\n>hCoV-19/C/EPI_ISL_3\nACTT\n"
	fakeIQTree    = `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-pre" ]; then prefix="$2"; fi
  shift
done
echo "((EPI_ISL_1:0.1,EPI_ISL_2:0.2):0.5,EPI_ISL_3:0.3);" > "$prefix.treefile"
`
)

// writeInputs writes the genotype and pair tables into dir.
func writeInputs(t *testing.T, dir string) (genotypePath, pairsPath string) {
	genotypePath = filepath.Join(dir, "genotype.txt")
	pairsPath = filepath.Join(dir, "pairs.txt")
	require.NoError(t, ioutil.WriteFile(genotypePath, []byte(genotypeText), 0644))
	require.NoError(t, ioutil.WriteFile(pairsPath, []byte(pairsText), 0644))
	return
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRunMatch(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	genotypePath, pairsPath := writeInputs(t, tmpdir)

	flags := addPipelineFlags(&cmdline.Command{})
	outPath := filepath.Join(tmpdir, "out.tsv")
	require.NoError(t, runMatch(context.Background(), flags, genotypePath, pairsPath, outPath))
	expect.EQ(t, readLines(t, outPath), []string{
		"Sample\tNum Pairs\tUniqueRecombinant\tPair Identities\tShared With",
		"hCoV-19/A/EPI_ISL_1\t1\tNo\tL1=10, L2=20\thCoV-19/B/EPI_ISL_2",
		"hCoV-19/B/EPI_ISL_2\t1\tNo\tL1=10, L2=20\thCoV-19/A/EPI_ISL_1",
		"hCoV-19/C/EPI_ISL_3\t0\tYes\t\t",
	})

	// Filtering on the confidence bound removes every pair.
	flags.pairs.MinConfidence = 0.99
	require.NoError(t, runMatch(context.Background(), flags, genotypePath, pairsPath, outPath))
	lines := readLines(t, outPath)
	expect.EQ(t, len(lines), 4)
	for _, line := range lines[1:] {
		assert.Contains(t, line, "\t0\tNo\t")
	}
}

func TestRunMatchErrors(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	genotypePath, pairsPath := writeInputs(t, tmpdir)
	ctx := context.Background()

	flags := addPipelineFlags(&cmdline.Command{})
	err := runMatch(ctx, flags, genotypePath, pairsPath, filepath.Join(tmpdir, "out.csv"))
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)

	flags.accession = "EPI_ISL_("
	err = runMatch(ctx, flags, genotypePath, pairsPath, filepath.Join(tmpdir, "out.tsv"))
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)

	flags = addPipelineFlags(&cmdline.Command{})
	flags.genotype.HeaderLabel = "SNP"
	err = runMatch(ctx, flags, genotypePath, pairsPath, filepath.Join(tmpdir, "out.tsv"))
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}

func TestFlags(t *testing.T) {
	cmd := &cmdline.Command{}
	flags := addPipelineFlags(cmd)
	tflags := addTreeFlags(cmd)
	require.NoError(t, cmd.Flags.Parse([]string{
		"-header=SNP", "-layout=plain", "-min-confidence=0.5", "-sort=pairs",
		"-iqtree=/opt/iqtree2", "-iqtree-args=-m HKY -nt 2", "-color=#00ff00",
	}))
	expect.EQ(t, flags.genotype.HeaderLabel, "SNP")
	expect.EQ(t, flags.pairs.Layout, "plain")
	expect.EQ(t, flags.pairs.ConfidenceColumn, "CIhi")
	expect.EQ(t, flags.pairs.MinConfidence, 0.5)
	expect.EQ(t, flags.sort, "pairs")
	r := tflags.runner()
	expect.EQ(t, r.Executable, "/opt/iqtree2")
	expect.EQ(t, r.Args, []string{"-m", "HKY", "-nt", "2"})
	expect.EQ(t, tflags.annotate.Color, "#00ff00")
	expect.EQ(t, tflags.prefix, "run_matching")
}

func TestRunTree(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	dir := sh.MakeTempDir()
	genotypePath, pairsPath := writeInputs(t, dir)
	alignmentPath := filepath.Join(dir, "aln.fasta")
	require.NoError(t, ioutil.WriteFile(alignmentPath, []byte(alignmentText), 0644))
	iqtree := filepath.Join(dir, "iqtree")
	require.NoError(t, ioutil.WriteFile(iqtree, []byte(fakeIQTree), 0755))

	cmd := &cmdline.Command{}
	flags := addPipelineFlags(cmd)
	tflags := addTreeFlags(cmd)
	tflags.iqtree = iqtree
	tflags.prefix = filepath.Join(dir, "run_matching")
	tflags.annotatedTree = filepath.Join(dir, "annotated.nwk")
	outPath := filepath.Join(dir, "out.tsv")
	require.NoError(t, runTree(context.Background(), flags, tflags, genotypePath, pairsPath, alignmentPath, outPath))

	expect.EQ(t, readLines(t, outPath), []string{
		"Sample\tNum Pairs\tUniqueRecombinant\tPair Identities\tShared With\tPhylogenetic Time",
		"hCoV-19/A/EPI_ISL_1\t1\tNo\tL1=10, L2=20\thCoV-19/B/EPI_ISL_2\t0.1",
		"hCoV-19/B/EPI_ISL_2\t1\tNo\tL1=10, L2=20\thCoV-19/A/EPI_ISL_1\t0.2",
		"hCoV-19/C/EPI_ISL_3\t0\tYes\t\t\t0.3",
	})
	tree, err := ioutil.ReadFile(tflags.annotatedTree)
	require.NoError(t, err)
	expect.EQ(t, strings.Count(string(tree), "[&!color=#ff0000]"), 1)
	assert.Contains(t, string(tree), "EPI_ISL_3[&!color=#ff0000]")

	// A failing IQ-TREE run is fatal and writes no summary.
	require.NoError(t, ioutil.WriteFile(iqtree, []byte("#!/bin/sh\nexit 2\n"), 0755))
	failedOut := filepath.Join(dir, "failed.tsv")
	assert.Error(t, runTree(context.Background(), flags, tflags, genotypePath, pairsPath, alignmentPath, failedOut))
	_, err = ioutil.ReadFile(failedOut)
	assert.Error(t, err)
}

func TestRunAnnotate(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	genotypePath, pairsPath := writeInputs(t, tmpdir)
	treePath := filepath.Join(tmpdir, "in.nwk")
	require.NoError(t, ioutil.WriteFile(treePath, []byte("(EPI_ISL_1:1,EPI_ISL_3:2,EPI_ISL_7:3);\n"), 0644))

	cmd := &cmdline.Command{}
	flags := addPipelineFlags(cmd)
	tflags := addTreeFlags(cmd)
	tflags.annotate.Color = "#0000ff"
	outPath := filepath.Join(tmpdir, "out.nwk")
	require.NoError(t, runAnnotate(context.Background(), flags, tflags, genotypePath, pairsPath, treePath, outPath))
	tree, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	expect.EQ(t, strings.Count(string(tree), "[&!color=#0000ff]"), 1)
	assert.Contains(t, string(tree), "EPI_ISL_3[&!color=#0000ff]")
}

func TestRunPosref(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	mappingPath := filepath.Join(tmpdir, "character_mapping.txt")
	queryPath := filepath.Join(tmpdir, "position.txt")
	outPath := filepath.Join(tmpdir, "position_values.txt")
	require.NoError(t, ioutil.WriteFile(mappingPath, []byte("1:241\n2:-\n3:3037\n"), 0644))
	require.NoError(t, ioutil.WriteFile(queryPath, []byte("1\n2\n4\nabc\n"), 0644))

	require.NoError(t, runPosref(context.Background(), mappingPath, queryPath, outPath))
	expect.EQ(t, readLines(t, outPath), []string{"241", "241-3037", "NotFound", "Invalid"})
}

func TestCommandTree(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr, Vars: map[string]string{}}
	assert.Error(t, cmdline.ParseAndRun(newCmdRoot(), env, []string{"match", "genotype.txt"}))
	assert.Contains(t, stderr.String(), "match takes genotype pairs [output]")

	mappingPath := filepath.Join(tmpdir, "mapping.txt")
	queryPath := filepath.Join(tmpdir, "query.txt")
	outPath := filepath.Join(tmpdir, "out.txt")
	require.NoError(t, ioutil.WriteFile(mappingPath, []byte("1:241\n"), 0644))
	require.NoError(t, ioutil.WriteFile(queryPath, []byte("1\n"), 0644))
	require.NoError(t, cmdline.ParseAndRun(newCmdRoot(), env, []string{"posref", mappingPath, queryPath, outPath}))
	expect.EQ(t, readLines(t, outPath), []string{"241"})
}
