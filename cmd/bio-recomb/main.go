// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// bio-recomb finds samples that carry recombinant SNP pairs, groups samples
// with identical sets of matched pairs, and optionally joins the result to
// an IQ-TREE phylogeny. Run "bio-recomb help" for the list of commands.
package main

import "github.com/grailbio/recomb/cmd/bio-recomb/cmd"

func main() {
	cmd.Run()
}
