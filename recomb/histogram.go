// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recomb

import (
	"fmt"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
)

const histogramWidth = 40

// PairCountHistogram renders the distribution of NumPairs over rows as text,
// one bucket per line. It returns "" for no rows.
func PairCountHistogram(rows []Row, bins int) string {
	if len(rows) == 0 {
		return ""
	}
	if bins <= 0 {
		bins = 10
	}
	data := make([]float64, len(rows))
	for i, r := range rows {
		data[i] = float64(r.NumPairs)
	}
	hist := histogram.Hist(bins, data)
	maxCount := 0
	for _, b := range hist.Buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	var buf strings.Builder
	for _, b := range hist.Buckets {
		bar := 0
		if maxCount > 0 {
			bar = b.Count * histogramWidth / maxCount
		}
		fmt.Fprintf(&buf, "%6.1f-%-6.1f %5d %s\n", b.Min, b.Max, b.Count, strings.Repeat("#", bar))
	}
	return buf.String()
}
