// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// StatusComplete marks the terminal history event of a successful relay.
const StatusComplete = "complete"

// Wire event payloads. Each streaming frame is one of these, serialized as
// a `data: {json}` line followed by a blank line. Shapes are fixed by the
// frontend contract:
//
//   - ChunkEvent: zero or more, incremental mode only.
//   - ReplyEvent: exactly one, atomic mode only.
//   - HistoryEvent: exactly one, terminal, success path only.
//   - ErrorEvent: exactly one, terminal, failure path only.
type (
	ChunkEvent struct {
		Chunk string `json:"chunk"`
	}

	ReplyEvent struct {
		Reply string `json:"reply"`
	}

	HistoryEvent struct {
		History []ChatTurn `json:"history"`
		Status  string     `json:"status"`
	}

	ErrorEvent struct {
		Error string `json:"error"`
	}
)

// ChatResponse is the non-streaming response body shared by all three
// endpoints.
type ChatResponse struct {
	Reply   string     `json:"reply"`
	History []ChatTurn `json:"history"`
}
