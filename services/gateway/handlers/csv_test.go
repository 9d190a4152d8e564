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
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

const priceCSV = "Name,Price\nWidget,10\nGadget,20\nDoodad,30\n"

func newCSVRouter(t *testing.T, mock *mockGenerativeClient) (*gin.Engine, *UploadStore) {
	t.Helper()
	store := NewUploadStore(t.TempDir(), "http://127.0.0.1:8000")
	router := gin.New()
	router.POST("/api/csv/", HandleCSV(newTestRelay(t), mock, store))
	return router, store
}

// =============================================================================
// Histogram bypass
// =============================================================================

// TestHandleCSV_HistogramTriggerBypassesModel verifies that a histogram
// question is answered locally: one reply event, a terminal history
// event, and zero downstream calls even in streaming mode.
func TestHandleCSV_HistogramTriggerBypassesModel(t *testing.T) {
	mock := &mockGenerativeClient{StreamTokens: []string{"never"}}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "plot histogram of Price",
		"stream":   "true",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)
	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 2, "one reply event plus terminal history event")

	reply := frameString(t, frames[0], "reply")
	assert.Contains(t, reply, "📊 Histogram data for 'price':")
	assert.Contains(t, reply, `"column": "Price"`)
	assert.Contains(t, reply, `"bins"`)
	assert.Contains(t, reply, `"counts"`)

	assert.Equal(t, "complete", frameString(t, frames[1], "status"))
	assert.Zero(t, mock.totalCalls(), "histogram requests never reach the model")
}

// TestHandleCSV_HistogramUnknownColumnBecomesReply verifies histogram
// failures are answers, not request errors.
func TestHandleCSV_HistogramUnknownColumnBecomesReply(t *testing.T) {
	mock := &mockGenerativeClient{}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "plot histogram of Missing",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Column 'missing' not found in CSV.", resp.Reply)
	assert.Zero(t, mock.totalCalls())
}

// =============================================================================
// Analysis path
// =============================================================================

// TestHandleCSV_AnalysisPromptCarriesProfileNotRawCSV verifies the prompt
// contains the file name and the computed profile sections but never the
// raw rows.
func TestHandleCSV_AnalysisPromptCarriesProfileNotRawCSV(t *testing.T) {
	mock := &mockGenerativeClient{Reply: "analysis"}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "what stands out in this data?",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, mock.PromptCalls)

	assert.Contains(t, mock.LastPrompt, "**ANALYZE THE FOLLOWING CSV FILE: File: **prices.csv****")
	assert.Contains(t, mock.LastPrompt, "User Question: what stands out in this data?")
	assert.Contains(t, mock.LastPrompt, "Dataset Summary from prices.csv:")
	assert.Contains(t, mock.LastPrompt, "Dataset shape: (3, 2)")
	assert.NotContains(t, mock.LastPrompt, "Widget,10", "raw CSV rows must not enter the prompt")
}

// TestHandleCSV_StreamingAnalysisAttachesFileURL verifies the streamed
// analysis path reconciles history with the stored file's public URL on
// the user turn.
func TestHandleCSV_StreamingAnalysisAttachesFileURL(t *testing.T) {
	mock := &mockGenerativeClient{StreamTokens: []string{"the ", "trend"}}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "describe the trend",
		"stream":   "true",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)
	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 3)

	terminal := frames[2]
	var turns []datatypes.ChatTurn
	require.NoError(t, json.Unmarshal(terminal["history"], &turns))
	require.Len(t, turns, 2)
	assert.Equal(t, "http://127.0.0.1:8000/temp_uploads/prices.csv", turns[0].FileURL)
	assert.Equal(t, "the trend", turns[1].Content)
	assert.Empty(t, turns[1].FileURL)
	assert.Equal(t, 1, mock.PromptStreamCalls)
}

// TestHandleCSV_SavesUploadToStore verifies the raw bytes land under the
// upload directory with the caller's base name.
func TestHandleCSV_SavesUploadToStore(t *testing.T) {
	mock := &mockGenerativeClient{Reply: "ok"}
	dir := t.TempDir()
	store := NewUploadStore(dir, "http://127.0.0.1:8000")
	router := gin.New()
	router.POST("/api/csv/", HandleCSV(newTestRelay(t), mock, store))

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "summarize",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)
	saved, err := os.ReadFile(filepath.Join(dir, "prices.csv"))
	require.NoError(t, err)
	assert.Equal(t, priceCSV, string(saved))
}

// TestHandleCSV_EmptyModelReplyNamesFile verifies the analysis path swaps
// the generic empty-response fallback for one naming the analyzed file.
func TestHandleCSV_EmptyModelReplyNamesFile(t *testing.T) {
	mock := &mockGenerativeClient{Reply: llm.EmptyResponseText}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "what stands out?",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "(No response from Gemini about prices.csv)", resp.Reply)
}

// =============================================================================
// Input failures
// =============================================================================

func TestHandleCSV_NoFileOrURLReturns400(t *testing.T) {
	mock := &mockGenerativeClient{}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "summarize",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Must provide either file or URL.")
	assert.Zero(t, mock.totalCalls())
}

func TestHandleCSV_EmptyFileStreamingEmitsErrorEvent(t *testing.T) {
	mock := &mockGenerativeClient{}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "summarize",
		"stream":   "true",
	}, &formFile{field: "file", filename: "empty.csv", content: []byte("   \n")})

	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "The CSV file is empty or contains no data.",
		frameString(t, frames[0], "error"))
	assert.Zero(t, mock.totalCalls())
}

func TestHandleCSV_MalformedHistoryReturns422(t *testing.T) {
	mock := &mockGenerativeClient{}
	router, _ := newCSVRouter(t, mock)

	w := postMultipart(t, router, "/api/csv/", map[string]string{
		"question": "summarize",
		"history":  "not json",
	}, &formFile{field: "file", filename: "prices.csv", content: []byte(priceCSV)})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, mock.totalCalls())
}
