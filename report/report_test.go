// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/recomb/ldpair"
	"github.com/grailbio/recomb/recomb"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/xuri/excelize/v2"
)

func testRows() []recomb.Row {
	return []recomb.Row{
		{
			Sample: "A|EPI_ISL_1", Accession: "EPI_ISL_1", NumPairs: 2,
			Pairs:        recomb.MatchSet{{L1: 10, L2: 20}, {L1: 10, L2: 30}},
			SharedWith:   []string{"B"},
			PhyloTime:    0.5,
			HasPhyloTime: true,
		},
		{
			Sample: "B", NumPairs: 2,
			Pairs:      recomb.MatchSet{{L1: 10, L2: 20}, {L1: 10, L2: 30}},
			SharedWith: []string{"A|EPI_ISL_1"},
		},
		{Sample: "C", Unique: true},
	}
}

var wantTSV = []string{
	"Sample\tNum Pairs\tUniqueRecombinant\tPair Identities\tShared With\tPhylogenetic Time",
	"A|EPI_ISL_1\t2\tNo\tL1=10, L2=20; L1=10, L2=30\tB\t0.5",
	"B\t2\tNo\tL1=10, L2=20; L1=10, L2=30\tA|EPI_ISL_1\t",
	"C\t0\tYes\t\t\t",
}

func TestDetermineFormat(t *testing.T) {
	for path, want := range map[string]Format{
		"out.xlsx":         XLSX,
		"OUT.XLSX":         XLSX,
		"out.tsv":          TSV,
		"out.tsv.gz":       TSVGzip,
		"out.arrow":        Arrow,
		"out.feather":      Arrow,
		"out.csv":          Unknown,
		"matches.xlsx.bak": Unknown,
	} {
		expect.EQ(t, DetermineFormat(path), want, path)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Create(context.Background(), "out.csv", DefaultOpts)
	expect.NotNil(t, err)
	expect.True(t, errors.Is(errors.NotSupported, err))
}

func TestTSV(t *testing.T) {
	ctx := context.Background()
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	opts := DefaultOpts
	opts.PhyloTime = true
	for _, name := range []string{"out.tsv", "out.tsv.gz"} {
		path := filepath.Join(tmpdir, name)
		assert.NoError(t, WriteRows(ctx, path, testRows(), opts))

		f, err := os.Open(path)
		assert.NoError(t, err)
		var data []byte
		if strings.HasSuffix(name, ".gz") {
			gz, err := gzip.NewReader(f)
			assert.NoError(t, err)
			data, err = ioutil.ReadAll(gz)
			assert.NoError(t, err)
		} else {
			data, err = ioutil.ReadAll(f)
			assert.NoError(t, err)
		}
		assert.NoError(t, f.Close())
		expect.EQ(t, strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), wantTSV, name)
	}
}

func TestTSVWithoutPhyloTime(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	path := filepath.Join(tmpdir, "out.tsv")
	assert.NoError(t, WriteRows(context.Background(), path, testRows()[2:], DefaultOpts))
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "Sample\tNum Pairs\tUniqueRecombinant\tPair Identities\tShared With\nC\t0\tYes\t\t\n")
}

func TestXLSX(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	path := filepath.Join(tmpdir, "matches_output.xlsx")
	opts := DefaultOpts
	opts.PhyloTime = true
	assert.NoError(t, WriteRows(context.Background(), path, testRows(), opts))

	book, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	defer book.Close()
	expect.EQ(t, book.GetSheetList(), []string{SheetName})
	rows, err := book.GetRows(SheetName)
	assert.NoError(t, err)
	assert.EQ(t, len(rows), 4)
	expect.EQ(t, rows[0], Columns(opts))
	expect.EQ(t, rows[1], strings.Split(wantTSV[1], "\t"))
	expect.EQ(t, rows[2][:5], strings.Split(wantTSV[2], "\t")[:5])
	expect.EQ(t, rows[3][:3], []string{"C", "0", "Yes"})
}

func TestArrow(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	path := filepath.Join(tmpdir, "out.arrow")
	opts := DefaultOpts
	opts.PhyloTime = true
	opts.ChunkSize = 2
	var rows []recomb.Row
	for i := 0; i < 3; i++ {
		rows = append(rows, testRows()...)
	}
	assert.NoError(t, WriteRows(context.Background(), path, rows, opts))

	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	reader, err := ipc.NewFileReader(f)
	assert.NoError(t, err)
	defer reader.Close()

	// 9 rows in chunks of 2.
	expect.EQ(t, reader.NumRecords(), 5)
	expect.EQ(t, reader.Schema().Field(5).Name, "Phylogenetic Time")
	n := 0
	for i := 0; i < reader.NumRecords(); i++ {
		record, err := reader.Record(i)
		assert.NoError(t, err)
		samples := record.Column(0).(*array.String)
		numPairs := record.Column(1).(*array.Int64)
		times := record.Column(5).(*array.Float64)
		for j := 0; j < int(record.NumRows()); j++ {
			want := rows[n]
			expect.EQ(t, samples.Value(j), want.Sample)
			expect.EQ(t, numPairs.Value(j), int64(want.NumPairs))
			expect.EQ(t, times.IsNull(j), !want.HasPhyloTime)
			if want.HasPhyloTime {
				expect.EQ(t, times.Value(j), want.PhyloTime)
			}
			n++
		}
	}
	expect.EQ(t, n, len(rows))
}

func TestArrowNeedsSeekableOutput(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	_, err := seekable(&bytes.Buffer{}, "out.arrow")
	expect.True(t, errors.Is(errors.NotSupported, err))

	f, err := os.Create(filepath.Join(tmpdir, "out.arrow"))
	assert.NoError(t, err)
	defer f.Close()
	ws, err := seekable(f, f.Name())
	assert.NoError(t, err)
	expect.True(t, ws == f)
}

func TestPairIdentitiesColumn(t *testing.T) {
	row := recomb.Row{Pairs: recomb.MatchSet{ldpair.Pair{L1: 1, L2: 2}}}
	expect.EQ(t, row.PairIdentities(), "L1=1, L2=2")
}
