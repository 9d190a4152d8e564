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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianChat/services/gateway/history"
	"github.com/AleutianAI/AleutianChat/services/llm"
	"github.com/AleutianAI/AleutianChat/services/tabular"
)

// HandleCSV returns the handler for POST /api/csv/.
//
// # Description
//
// CSV mode resolves its dataset from an uploaded file or a remote URL
// (exactly one must be present), then routes the question one of two
// ways:
//
//   - A histogram request (detected from trigger phrasing in the
//     question) is answered locally from the parsed table. The model is
//     never called; the answer is delivered as a single reply event even
//     when incremental mode was requested, and histogram failures
//     (unknown column, non-numeric column) become the answer text.
//   - Anything else becomes an analysis prompt built from a locally
//     computed dataset profile, driven through the downstream capability
//     like text chat. The prompt carries only the profile, never the raw
//     CSV bytes, and no prior history.
//
// Form fields: question (required), file (optional), url (optional),
// stream (optional bool), history (optional JSON array).
func HandleCSV(relay *Relay, client llm.GenerativeClient, store *UploadStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		question := c.PostForm("question")
		if question == "" {
			relay.FailInput("csv")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Field 'question' is required."})
			return
		}
		streaming := parseStreamFlag(c.PostForm("stream"))

		prior, err := datatypes.ParseHistory(c.PostForm("history"))
		if err != nil {
			abortInvalidHistory(c, relay, "csv", streaming)
			return
		}

		content, fileName, fileURL, ok := resolveCSVSource(c, relay, store, streaming)
		if !ok {
			return
		}

		var gen Generation
		if column, matched := tabular.MatchHistogramTrigger(question); matched {
			reply := histogramReply(content, column)
			gen = Generation{
				Atomic: func(context.Context) (string, error) { return reply, nil },
			}
		} else {
			table, err := tabular.Parse(content)
			if err != nil {
				abortCSVInput(c, relay, streaming, "❌ Failed to summarize CSV: "+err.Error())
				return
			}
			prompt := composeCSVPrompt(question, table.Profile(), fileName)
			gen = Generation{
				ErrorPrefix: fmt.Sprintf("❌ Error analyzing **%s**: ", fileName),
				Atomic: func(ctx context.Context) (string, error) {
					reply, err := client.Prompt(ctx, prompt)
					if err == nil && reply == llm.EmptyResponseText {
						// Analysis replies name the file even when the
						// model came back empty.
						reply = fmt.Sprintf("(No response from Gemini about %s)", fileName)
					}
					return reply, err
				},
			}
			if streaming {
				gen.Stream = func(ctx context.Context, callback llm.StreamCallback) error {
					return client.PromptStream(ctx, prompt, callback)
				}
			}
		}

		ex := history.Exchange{Question: question, FileURL: fileURL}
		if streaming {
			ew, ok := beginSSE(c)
			if !ok {
				return
			}
			relay.RunSSE(c.Request.Context(), ew, "csv", gen, prior, ex)
			return
		}
		c.JSON(http.StatusOK, relay.Run(c.Request.Context(), "csv", gen, prior, ex))
	}
}

// abortCSVInput mirrors abortInvalidHistory for dataset-stage failures,
// which surface as 400s in the JSON response form.
func abortCSVInput(c *gin.Context, relay *Relay, streaming bool, detail string) {
	relay.FailInput("csv")
	if !streaming {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
		return
	}
	ew, ok := beginSSE(c)
	if !ok {
		return
	}
	_ = ew.WriteError(detail)
}

// resolveCSVSource loads the dataset text from the uploaded file or the
// url field. On failure it writes the error response itself and returns
// ok=false.
func resolveCSVSource(c *gin.Context, relay *Relay, store *UploadStore, streaming bool) (content, fileName, fileURL string, ok bool) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		if fileHeader.Size > MaxCSVSize {
			abortCSVInput(c, relay, streaming,
				fmt.Sprintf("File too large. Maximum size is %d MB.", MaxCSVSize/(1024*1024)))
			return "", "", "", false
		}
		file, err := fileHeader.Open()
		if err != nil {
			abortCSVInput(c, relay, streaming, "Could not read uploaded file.")
			return "", "", "", false
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			abortCSVInput(c, relay, streaming, "Could not read uploaded file.")
			return "", "", "", false
		}
		if strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")) == "" {
			abortCSVInput(c, relay, streaming, "The CSV file is empty or contains no data.")
			return "", "", "", false
		}
		name := fileHeader.Filename
		if name == "" {
			name = "uploaded_file.csv"
		}
		url, err := store.Save(name, data)
		if err != nil {
			abortCSVInput(c, relay, streaming, "Failed to save CSV.")
			return "", "", "", false
		}
		return string(data), name, url, true
	}

	if url := c.PostForm("url"); url != "" {
		content, err := store.FetchCSV(c.Request.Context(), url)
		if err != nil {
			abortCSVInput(c, relay, streaming, err.Error())
			return "", "", "", false
		}
		return content, RemoteFileName(url), url, true
	}

	abortCSVInput(c, relay, streaming, "Must provide either file or URL.")
	return "", "", "", false
}

// histogramReply computes the histogram answer for a trigger-matched
// question. Dataset and column problems become the reply text rather
// than a request failure, so they land in history like any other answer.
func histogramReply(content, column string) string {
	table, err := tabular.Parse(content)
	if err != nil {
		return err.Error()
	}
	hist, err := table.Histogram(column)
	if err != nil {
		return err.Error()
	}
	encoded, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return fmt.Sprintf("Failed to generate histogram: %v", err)
	}
	return fmt.Sprintf("📊 Histogram data for '%s':\n%s", column, encoded)
}

// composeCSVPrompt builds the analysis prompt from the question and the
// locally computed dataset profile. The raw CSV never enters the prompt.
func composeCSVPrompt(question, summary, fileName string) string {
	if summary == "" {
		summary = "No data summary provided."
	}
	return fmt.Sprintf(`**ANALYZE THE FOLLOWING CSV FILE: File: **%s****

User Question: %s

Dataset Summary from %s:
%s

**IMPORTANT: In your answer, ALWAYS reference the file "%s" specifically.
Mention the file name when explaining results, trends, or insights.**

Provide detailed analysis based on the data.`, fileName, question, fileName, summary, fileName)
}
