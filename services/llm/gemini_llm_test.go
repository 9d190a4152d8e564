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

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: RoleModel, Parts: parts}},
		},
	}
}

func TestResponseText(t *testing.T) {
	resp := textResponse(genai.Text("Hello "), genai.Text("world\n"))
	assert.Equal(t, "Hello world", responseText(resp))
}

func TestResponseText_EmptyFallback(t *testing.T) {
	assert.Equal(t, EmptyResponseText, responseText(nil))
	assert.Equal(t, EmptyResponseText, responseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, EmptyResponseText, responseText(textResponse(genai.Text("   "))))
}

// TestFragmentText_PreservesBoundaryWhitespace verifies streamed fragments
// are extracted verbatim: clients reassemble the reply by concatenation,
// so "Hello, " + "how are you?" must not collapse to "Hello,how are you?".
func TestFragmentText_PreservesBoundaryWhitespace(t *testing.T) {
	first := fragmentText(textResponse(genai.Text("Hello, ")))
	second := fragmentText(textResponse(genai.Text("how are you?")))

	assert.Equal(t, "Hello, ", first)
	assert.Equal(t, "Hello, how are you?", first+second)
}

// TestFragmentText_KeepsWhitespaceOnlyFragments verifies paragraph-break
// fragments survive extraction instead of being dropped.
func TestFragmentText_KeepsWhitespaceOnlyFragments(t *testing.T) {
	assert.Equal(t, "\n\n", fragmentText(textResponse(genai.Text("\n\n"))))
}

// TestFragmentText_FallbackLookalikeIsRealOutput verifies a fragment that
// happens to spell the atomic fallback text is passed through, not
// filtered.
func TestFragmentText_FallbackLookalikeIsRealOutput(t *testing.T) {
	assert.Equal(t, EmptyResponseText, fragmentText(textResponse(genai.Text(EmptyResponseText))))
}

func TestFragmentText_EmptyResponse(t *testing.T) {
	assert.Empty(t, fragmentText(nil))
	assert.Empty(t, fragmentText(&genai.GenerateContentResponse{}))
	assert.Empty(t, fragmentText(textResponse()))
}

func TestToGenaiHistory_PreservesOrderAndRoles(t *testing.T) {
	history := toGenaiHistory([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleModel, Content: "hello"},
	})

	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleModel, history[1].Role)
	assert.Equal(t, genai.Text("hi"), history[0].Parts[0])
}

func TestNewGeminiClient_RequiresConfig(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "gemini-pro")
	assert.Error(t, err)

	_, err = NewGeminiClient(context.Background(), "key", "")
	assert.Error(t, err)
}
