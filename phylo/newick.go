// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package phylo

import (
	"context"
	"regexp"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/recomb"
)

// ReadTree parses the first tree of the Newick file at path.
func ReadTree(ctx context.Context, path string) (t *tree.Tree, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "phylo: open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if t, err = newick.NewParser(in.Reader(ctx)).Parse(); err != nil {
		return nil, errors.E(errors.Invalid, err, "phylo: parse newick", path)
	}
	return t, nil
}

// terminalLength returns the length of the branch leading to tip n.
func terminalLength(n *tree.Node) (float64, bool) {
	edges := n.Edges()
	if len(edges) == 0 || edges[0].Length() == tree.NIL_LENGTH {
		return 0, false
	}
	return edges[0].Length(), true
}

// ReadBranchLengths maps the accession of every tip of the tree at path to
// the length of its terminal branch. Tips without an accession or a branch
// length are skipped; if an accession appears on several tips, the last one
// wins.
func ReadBranchLengths(ctx context.Context, path string, accession *regexp.Regexp) (map[string]float64, error) {
	t, err := ReadTree(ctx, path)
	if err != nil {
		return nil, err
	}
	lengths := map[string]float64{}
	skipped := 0
	for _, tip := range t.Tips() {
		acc := recomb.Accession(accession, tip.Name())
		length, ok := terminalLength(tip)
		if acc == "" || !ok {
			log.Debug.Printf("phylo: skipping tip %q", tip.Name())
			skipped++
			continue
		}
		lengths[acc] = length
	}
	log.Printf("phylo: %s: branch lengths for %d tips, skipped %d", path, len(lengths), skipped)
	return lengths, nil
}
