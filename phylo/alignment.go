// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package phylo

import (
	"context"
	"regexp"

	"github.com/evolbioinfo/goalign/io/fasta"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/recomb/recomb"
	pkgerrors "github.com/pkg/errors"
)

// AlignmentInfo describes a multiple sequence alignment.
type AlignmentInfo struct {
	Sequences int
	Length    int
	// NoAccession counts the sequences whose name holds no accession.
	NoAccession int
}

// CheckAlignment parses the FASTA alignment at path before it is handed to
// tree inference. Unparsable, unaligned or empty input is an errors.Invalid
// error. Sequences without an accession are logged, since their branch
// lengths cannot be joined to samples.
func CheckAlignment(ctx context.Context, path string, accession *regexp.Regexp) (info AlignmentInfo, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return info, errors.E(err, "phylo: open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	aln, err := fasta.NewParser(in.Reader(ctx)).Parse()
	if err != nil {
		return info, errors.E(errors.Invalid, pkgerrors.Wrapf(err, "phylo: parse alignment %s", path))
	}
	if aln == nil || aln.NbSequences() == 0 {
		return info, errors.E(errors.Invalid, "phylo: alignment has no sequences:", path)
	}
	info.Sequences = aln.NbSequences()
	info.Length = aln.Length()
	for _, seq := range aln.Sequences() {
		if recomb.Accession(accession, seq.Name()) == "" {
			log.Printf("phylo: sequence %q has no accession", seq.Name())
			info.NoAccession++
		}
	}
	log.Printf("phylo: %s: %d sequences of length %d", path, info.Sequences, info.Length)
	return info, nil
}
