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
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianChat/services/gateway/history"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

const chatErrorPrefix = "❌ Error while generating text: "

// HandleChat returns the handler for POST /api/chat/.
//
// # Description
//
// Text mode replays the full prior conversation into the downstream
// prompt: validated history turns (assistant mapped to the downstream
// model role) followed by the new user message. Form fields: message
// (required), stream (optional bool), history (optional JSON array).
func HandleChat(relay *Relay, client llm.GenerativeClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		message := c.PostForm("message")
		if message == "" {
			relay.FailInput("chat")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Field 'message' is required."})
			return
		}
		streaming := parseStreamFlag(c.PostForm("stream"))

		prior, err := datatypes.ParseHistory(c.PostForm("history"))
		if err != nil {
			abortInvalidHistory(c, relay, "chat", streaming)
			return
		}

		messages := toModelMessages(prior, message)
		gen := Generation{
			ErrorPrefix: chatErrorPrefix,
			Atomic: func(ctx context.Context) (string, error) {
				return client.Chat(ctx, messages)
			},
		}
		if streaming {
			gen.Stream = func(ctx context.Context, callback llm.StreamCallback) error {
				return client.ChatStream(ctx, messages, callback)
			}
		}

		ex := history.Exchange{Question: message}
		if streaming {
			ew, ok := beginSSE(c)
			if !ok {
				return
			}
			relay.RunSSE(c.Request.Context(), ew, "chat", gen, prior, ex)
			return
		}
		c.JSON(http.StatusOK, relay.Run(c.Request.Context(), "chat", gen, prior, ex))
	}
}

// toModelMessages converts validated history plus the new question into
// the downstream message sequence. Assistant turns become the downstream
// "model" role.
func toModelMessages(prior []datatypes.ChatTurn, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(prior)+1)
	for _, turn := range prior {
		role := llm.RoleUser
		if turn.Role == datatypes.RoleAssistant {
			role = llm.RoleModel
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: question})
}

// parseStreamFlag reads the form's stream field; anything unparseable
// means atomic mode.
func parseStreamFlag(raw string) bool {
	streaming, err := strconv.ParseBool(raw)
	return err == nil && streaming
}

// abortInvalidHistory reports an unusable history field: a 422 in the
// JSON response form, a single terminal error event in the streaming
// form (the stream never opens a relay).
func abortInvalidHistory(c *gin.Context, relay *Relay, endpoint string, streaming bool) {
	relay.FailInput(endpoint)
	if !streaming {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid JSON in history"})
		return
	}
	ew, ok := beginSSE(c)
	if !ok {
		return
	}
	_ = ew.WriteError("Invalid JSON in history")
}

// beginSSE switches the response to the event-stream form and wraps it in
// an EventWriter.
func beginSSE(c *gin.Context) (EventWriter, bool) {
	SetSSEHeaders(c.Writer)
	ew, err := NewEventWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Streaming unsupported by server."})
		return nil, false
	}
	return ew, true
}
