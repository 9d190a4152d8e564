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
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/services/gateway/observability"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Setup
// =============================================================================

// mockGenerativeClient implements llm.GenerativeClient for handler testing.
//
// # Description
//
// Configurable mock covering all three capability surfaces. Streaming
// methods emit StreamTokens one by one, then return StreamErr; atomic
// methods return Reply/Err.
type mockGenerativeClient struct {
	Reply        string
	Err          error
	StreamTokens []string
	StreamErr    error

	ChatCalls           int
	ChatStreamCalls     int
	PromptCalls         int
	PromptStreamCalls   int
	AskImageCalls       int
	AskImageStreamCalls int

	LastMessages []llm.Message
	LastPrompt   string
	LastQuestion string
	LastImage    []byte
	LastFormat   string
}

func (m *mockGenerativeClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	m.ChatCalls++
	m.LastMessages = messages
	return m.Reply, m.Err
}

func (m *mockGenerativeClient) ChatStream(ctx context.Context, messages []llm.Message, callback llm.StreamCallback) error {
	m.ChatStreamCalls++
	m.LastMessages = messages
	return m.emit(callback)
}

func (m *mockGenerativeClient) Prompt(ctx context.Context, prompt string) (string, error) {
	m.PromptCalls++
	m.LastPrompt = prompt
	return m.Reply, m.Err
}

func (m *mockGenerativeClient) PromptStream(ctx context.Context, prompt string, callback llm.StreamCallback) error {
	m.PromptStreamCalls++
	m.LastPrompt = prompt
	return m.emit(callback)
}

func (m *mockGenerativeClient) AskImage(ctx context.Context, question string, image []byte, format string) (string, error) {
	m.AskImageCalls++
	m.LastQuestion = question
	m.LastImage = image
	m.LastFormat = format
	return m.Reply, m.Err
}

func (m *mockGenerativeClient) AskImageStream(ctx context.Context, question string, image []byte, format string, callback llm.StreamCallback) error {
	m.AskImageStreamCalls++
	m.LastQuestion = question
	m.LastImage = image
	m.LastFormat = format
	return m.emit(callback)
}

func (m *mockGenerativeClient) emit(callback llm.StreamCallback) error {
	for _, token := range m.StreamTokens {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: token}); err != nil {
			return err
		}
	}
	return m.StreamErr
}

// totalCalls sums every downstream invocation the mock has seen.
func (m *mockGenerativeClient) totalCalls() int {
	return m.ChatCalls + m.ChatStreamCalls + m.PromptCalls +
		m.PromptStreamCalls + m.AskImageCalls + m.AskImageStreamCalls
}

// newTestRelay builds a Relay with a throwaway metric registry and a
// fixed clock.
func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	relay := NewRelay(observability.NewGatewayMetrics(prometheus.NewRegistry()))
	relay.now = func() time.Time {
		return time.Date(2025, 10, 2, 9, 30, 15, 0, time.UTC)
	}
	return relay
}

// formFile describes one file part of a multipart request.
type formFile struct {
	field    string
	filename string
	content  []byte
}

// postMultipart performs a multipart POST against router and returns the
// recorded response.
func postMultipart(t *testing.T, router *gin.Engine, path string, fields map[string]string, file *formFile) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseSSEFrames decodes every `data:` frame in an event-stream body.
func parseSSEFrames(t *testing.T, body string) []map[string]json.RawMessage {
	t.Helper()

	var frames []map[string]json.RawMessage
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "frame %q must start with data:", block)
		var frame map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

// frameString extracts a string field from a decoded frame.
func frameString(t *testing.T, frame map[string]json.RawMessage, key string) string {
	t.Helper()
	raw, ok := frame[key]
	require.True(t, ok, "frame missing %q: %v", key, frame)
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}
