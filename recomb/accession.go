// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recomb

import "regexp"

// DefaultAccessionPattern matches GISAID accessions such as EPI_ISL_402124.
var DefaultAccessionPattern = regexp.MustCompile(`EPI_ISL_\d+`)

// Accession returns the first match of re in name, or "" if there is none.
// A nil re means DefaultAccessionPattern.
func Accession(re *regexp.Regexp, name string) string {
	if re == nil {
		re = DefaultAccessionPattern
	}
	return re.FindString(name)
}
