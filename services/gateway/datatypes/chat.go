// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the conversation and wire types of the
// gateway. Conversation state is owned entirely by the caller: the full
// history travels in every request body and comes back extended by exactly
// two turns per completed exchange.
package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Internal role vocabulary. The downstream mapping (assistant -> model)
// happens at the llm package boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TimestampLayout is the wire format for turn timestamps: whole seconds,
// no zone suffix. Matches what the frontend already parses.
const TimestampLayout = "2006-01-02T15:04:05"

// turnValidate is the validator instance for conversation datatypes.
var turnValidate = validator.New()

// Timestamp is a second-precision instant with the fixed wire layout.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to whole seconds.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.Truncate(time.Second)}
}

// MarshalJSON renders the fixed layout.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimestampLayout))
}

// UnmarshalJSON accepts the fixed layout, with RFC 3339 as a fallback for
// clients that serialize full instants.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.Parse(TimestampLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed.Truncate(time.Second)
	return nil
}

// ChatTurn is a single conversation turn. Turns are immutable once created
// and their order within a history is significant.
//
// # Fields
//
//   - Role: "user" or "assistant".
//   - Content: Turn text. May be empty for degenerate exchanges.
//   - ImageURL: Public URL of an uploaded image, user turns only.
//   - FileURL: Public URL (or source URL) of an uploaded data file.
//   - Timestamp: Second-precision capture instant; absent on some
//     client-supplied turns.
type ChatTurn struct {
	Role      string     `json:"role" validate:"required,oneof=user assistant"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"image_url,omitempty"`
	FileURL   string     `json:"file_url,omitempty"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

// Validate checks the turn's role vocabulary.
func (t *ChatTurn) Validate() error {
	return turnValidate.Struct(t)
}

// ParseHistory decodes the client-supplied history form field.
//
// # Description
//
// The history field is a JSON array of ChatTurn objects; an empty or
// missing field means a fresh conversation. Malformed JSON or an invalid
// role yields an error the handlers surface as HTTP 422 (non-streaming) or
// a single error event (streaming) — the process never sees the payload
// again after that.
func ParseHistory(raw string) ([]ChatTurn, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []ChatTurn{}, nil
	}
	var turns []ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("invalid JSON in history: %w", err)
	}
	for i := range turns {
		if err := turns[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid turn %d in history: %w", i, err)
		}
	}
	return turns, nil
}
