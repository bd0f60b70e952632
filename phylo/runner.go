// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package phylo runs maximum-likelihood tree inference with IQ-TREE and reads
// and annotates the resulting Newick trees.
package phylo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// TreeFileSuffix is appended by IQ-TREE to the output prefix to name the
// maximum-likelihood tree.
const TreeFileSuffix = ".treefile"

// Runner invokes a tree inference program.
type Runner struct {
	// Executable is a program name, resolved against PATH, or a path.
	Executable string
	// Args are passed after "-s <alignment> -pre <prefix>".
	Args []string
	// Env is the environment of the subprocess. If nil, the environment of
	// the current process is used.
	Env map[string]string
}

// DefaultRunner runs IQ-TREE with a GTR model, 1000 ultrafast bootstrap and
// SH-aLRT replicates, and automatic thread selection.
var DefaultRunner = Runner{
	Executable: "iqtree",
	Args:       []string{"-m", "GTR", "-bb", "1000", "-alrt", "1000", "-nt", "AUTO"},
}

// maxOutputTail bounds the subprocess output included in errors.
const maxOutputTail = 2048

func tail(out []byte) string {
	out = bytes.TrimSpace(out)
	if len(out) > maxOutputTail {
		out = out[len(out)-maxOutputTail:]
	}
	return string(out)
}

// Run infers a tree from the alignment at alignmentPath and returns the path
// of the tree file. A non-zero exit status is an errors.Other error, and a
// missing tree file an errors.NotExist error.
func (r Runner) Run(ctx context.Context, alignmentPath, prefix string) (string, error) {
	env := r.Env
	if env == nil {
		env = envvar.SliceToMap(os.Environ())
	}
	exe := r.Executable
	if !strings.ContainsRune(exe, filepath.Separator) {
		var err error
		if exe, err = lookpath.Look(env, r.Executable); err != nil {
			return "", errors.E(errors.NotExist, err, "phylo: cannot find", r.Executable)
		}
	}
	args := append([]string{"-s", alignmentPath, "-pre", prefix}, r.Args...)
	log.Printf("phylo: running %s %s", exe, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = envvar.MapToSlice(env)
	out, err := cmd.CombinedOutput()
	log.Debug.Printf("phylo: %s output:\n%s", r.Executable, out)
	if err != nil {
		return "", errors.E(errors.Other, err, "phylo: "+r.Executable+" failed:", tail(out))
	}

	treePath := prefix + TreeFileSuffix
	if _, err := file.Stat(ctx, treePath); err != nil {
		return "", errors.E(errors.NotExist, err, "phylo: "+r.Executable+" produced no tree file", treePath)
	}
	log.Printf("phylo: wrote %s", treePath)
	return treePath, nil
}
