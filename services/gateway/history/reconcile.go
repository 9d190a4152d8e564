// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history implements the reconciliation step that extends a
// caller-supplied conversation after one completed exchange.
package history

import (
	"time"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
)

// Exchange describes one completed question/answer round trip.
type Exchange struct {
	// Question is the caller's raw input text.
	Question string
	// Answer is the finalized assistant text (full concatenation in
	// incremental mode, the single result in atomic mode).
	Answer string
	// ImageURL is attached to the user turn when the question referenced
	// an uploaded image.
	ImageURL string
	// FileURL is attached to the user turn when the question referenced
	// an uploaded or remote data file.
	FileURL string
}

// Reconcile appends exactly two turns to the prior history: the user turn
// for the question, then the assistant turn for the answer.
//
// # Description
//
// Both new turns carry the same capture instant, truncated to whole
// seconds. The prior slice is not mutated; the result is a fresh slice of
// length len(prior)+2. Reconciliation happens only after the exchange
// produced a final answer — request-level failures never reach this point.
//
// # Inputs
//
//   - prior: Caller-supplied history, possibly empty.
//   - ex: The completed exchange.
//   - at: Capture instant; truncated to seconds here.
//
// # Outputs
//
//   - []datatypes.ChatTurn: prior + user turn + assistant turn.
func Reconcile(prior []datatypes.ChatTurn, ex Exchange, at time.Time) []datatypes.ChatTurn {
	stamp := datatypes.NewTimestamp(at)

	out := make([]datatypes.ChatTurn, 0, len(prior)+2)
	out = append(out, prior...)
	out = append(out,
		datatypes.ChatTurn{
			Role:      datatypes.RoleUser,
			Content:   ex.Question,
			ImageURL:  ex.ImageURL,
			FileURL:   ex.FileURL,
			Timestamp: stamp,
		},
		datatypes.ChatTurn{
			Role:      datatypes.RoleAssistant,
			Content:   ex.Answer,
			Timestamp: stamp,
		})
	return out
}
