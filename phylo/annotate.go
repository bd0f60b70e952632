// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package phylo

import (
	"context"
	"io"
	"regexp"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/recomb"
)

// AnnotateOpts controls Annotate.
type AnnotateOpts struct {
	// Color is written as a FigTree "&!color" comment on marked tips.
	Color string
	// Accession extracts the accession from a tip name.
	Accession *regexp.Regexp
}

// DefaultAnnotateOpts marks tips in red.
var DefaultAnnotateOpts = AnnotateOpts{
	Color:     "#ff0000",
	Accession: recomb.DefaultAccessionPattern,
}

// Annotate copies the tree at treePath to outPath, marking every tip whose
// accession belongs to a unique recombinant in rows. It returns the number
// of marked tips.
func Annotate(ctx context.Context, rows []recomb.Row, treePath, outPath string, opts AnnotateOpts) (marked int, err error) {
	unique := map[string]bool{}
	for _, r := range rows {
		if r.Unique && r.Accession != "" {
			unique[r.Accession] = true
		}
	}
	t, err := ReadTree(ctx, treePath)
	if err != nil {
		return 0, err
	}
	comment := "&!color=" + opts.Color
	for _, tip := range t.Tips() {
		if unique[recomb.Accession(opts.Accession, tip.Name())] {
			tip.AddComment(comment)
			marked++
		}
	}

	out, err := file.Create(ctx, outPath)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	if _, err = io.WriteString(out.Writer(ctx), t.Newick()+"\n"); err != nil {
		return 0, err
	}
	log.Printf("phylo: marked %d of %d unique recombinants in %s", marked, len(unique), outPath)
	return marked, nil
}
