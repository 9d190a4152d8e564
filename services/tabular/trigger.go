// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabular

import (
	"regexp"
	"strings"
)

// Trigger vocabulary for routing a CSV question to the histogram extractor
// instead of the model. English and Vietnamese phrases; longer Vietnamese
// phrases come first so they win over their substrings.
var (
	histogramKeywordRe = regexp.MustCompile(
		`biểu đồ phân phối|vẽ biểu đồ|vẽ histogram|phân phối|histogram|plot|chart|graph`)
	columnConnectorRe = regexp.MustCompile(`^(?:cột|column|cho|của|về|for|of)\s+`)
	columnNameRe      = regexp.MustCompile(`^['"]?([\p{L}\p{N}_ ]+)`)
	politenessRe      = regexp.MustCompile(`\s*(?:dùm tôi|nha|please)$`)
)

// MatchHistogramTrigger reports whether the question asks for a histogram
// and returns the requested column name.
//
// The check is deterministic and happens before any model call; a hit means
// the generative capability is bypassed entirely for that request. The
// column is whatever follows the last trigger keyword once connector words
// (of, for, column, cột, của, ...) and politeness suffixes are stripped, so
// "plot histogram of Price" yields "price". Matching is done on the
// lowercased question; resolve the result case-insensitively.
func MatchHistogramTrigger(question string) (string, bool) {
	q := strings.ToLower(question)
	locs := histogramKeywordRe.FindAllStringIndex(q, -1)
	if locs == nil {
		return "", false
	}

	rest := strings.TrimSpace(q[locs[len(locs)-1][1]:])
	for {
		m := columnConnectorRe.FindString(rest)
		if m == "" {
			break
		}
		rest = strings.TrimSpace(rest[len(m):])
	}

	m := columnNameRe.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	column := strings.TrimSpace(m[1])
	column = strings.TrimSpace(politenessRe.ReplaceAllString(column, ""))
	if column == "" {
		return "", false
	}
	return column, true
}
