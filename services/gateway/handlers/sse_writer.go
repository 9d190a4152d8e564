// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
)

// EventWriter defines the contract for writing the gateway's wire events to
// an HTTP response.
//
// # Description
//
// EventWriter abstracts event serialization and flushing, enabling
// testability and separation from HTTP response mechanics. Implementations
// write the line-delimited format the frontend consumes: each event is a
// `data: {json}` line followed by a blank line. Event shapes are the four
// payloads in datatypes (chunk, reply, history+status, error) and nothing
// else.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the relay may emit a
// keepalive from a different goroutine than the fragment source.
//
// # Assumptions
//
//   - Caller has set Content-Type: text/event-stream before writing.
type EventWriter interface {
	// WriteChunk writes one incremental fragment event.
	WriteChunk(content string) error

	// WriteReply writes the single atomic-mode reply event.
	WriteReply(reply string) error

	// WriteComplete writes the terminal history event of a successful
	// relay. Nothing may be written after it.
	WriteComplete(history []datatypes.ChatTurn) error

	// WriteError writes the terminal error event of a failed relay.
	// Mutually exclusive with WriteComplete.
	WriteError(message string) error
}

// sseWriter implements EventWriter over an http.ResponseWriter, flushing
// after every event so fragments reach the client as soon as they are
// produced.
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewEventWriter wraps w. The caller must have set SSE headers already.
// Fails when w does not support http.Flusher.
func NewEventWriter(w http.ResponseWriter) (EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// writeEvent serializes payload and writes one `data:` frame.
func (w *sseWriter) writeEvent(payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

func (w *sseWriter) WriteChunk(content string) error {
	return w.writeEvent(datatypes.ChunkEvent{Chunk: content})
}

func (w *sseWriter) WriteReply(reply string) error {
	return w.writeEvent(datatypes.ReplyEvent{Reply: reply})
}

func (w *sseWriter) WriteComplete(history []datatypes.ChatTurn) error {
	return w.writeEvent(datatypes.HistoryEvent{History: history, Status: datatypes.StatusComplete})
}

func (w *sseWriter) WriteError(message string) error {
	return w.writeEvent(datatypes.ErrorEvent{Error: message})
}

// SetSSEHeaders configures the response for Server-Sent Events. Must be
// called before any write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

var _ EventWriter = (*sseWriter)(nil)
