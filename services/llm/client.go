// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "context"

// Downstream role vocabulary. The gateway's "assistant" maps to RoleModel
// before a request leaves the process.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one conversation turn in the downstream vocabulary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEventType discriminates streaming callback events.
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
)

// StreamEvent carries one fragment of an incrementally produced response.
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// StreamCallback is called once per fragment, in production order.
// Returning an error aborts the stream (e.g. on client disconnect).
type StreamCallback func(event StreamEvent) error

// GenerativeClient defines the standard interface for the downstream
// generative backend. Atomic and streaming variants exist for each of the
// three interaction shapes: multi-turn text chat, single-turn plain prompt
// (CSV analysis), and single-turn image question answering.
type GenerativeClient interface {
	// Chat sends the full conversation and returns the model's reply.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream streams the reply for the full conversation fragment by
	// fragment. The stream is finite and non-restartable.
	ChatStream(ctx context.Context, messages []Message, callback StreamCallback) error

	// Prompt sends a single instruction string with no history.
	Prompt(ctx context.Context, prompt string) (string, error)

	// PromptStream streams the reply for a single instruction string.
	PromptStream(ctx context.Context, prompt string, callback StreamCallback) error

	// AskImage answers a question about one image. format is the image
	// subtype without the leading "image/" (e.g. "png", "jpeg").
	AskImage(ctx context.Context, question string, image []byte, format string) (string, error)

	// AskImageStream streams the answer to an image question.
	AskImageStream(ctx context.Context, question string, image []byte, format string,
		callback StreamCallback) error
}
