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
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianChat/services/gateway/history"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

const imageErrorPrefix = "❌ Error while analyzing image: "

// HandleImage returns the handler for POST /api/image/.
//
// # Description
//
// Image mode is single-turn toward the downstream capability: only the
// current question and the image reach the model. Prior history is still
// reconciled into the returned sequence, with the stored image's public
// URL attached to the user turn. Form fields: question (required), file
// (required), stream (optional bool), history (optional JSON array).
func HandleImage(relay *Relay, client llm.GenerativeClient, store *UploadStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		question := c.PostForm("question")
		if question == "" {
			relay.FailInput("image")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Field 'question' is required."})
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			relay.FailInput("image")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Field 'file' is required."})
			return
		}
		streaming := parseStreamFlag(c.PostForm("stream"))

		prior, err := datatypes.ParseHistory(c.PostForm("history"))
		if err != nil {
			abortInvalidHistory(c, relay, "image", streaming)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			relay.FailInput("image")
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Could not read uploaded image."})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			relay.FailInput("image")
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Could not read uploaded image."})
			return
		}

		imageURL, err := store.Save(fileHeader.Filename, data)
		if err != nil {
			relay.FailInput("image")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store uploaded image."})
			return
		}

		format := imageFormat(fileHeader.Filename)
		gen := Generation{
			ErrorPrefix: imageErrorPrefix,
			Atomic: func(ctx context.Context) (string, error) {
				return client.AskImage(ctx, question, data, format)
			},
		}
		if streaming {
			gen.Stream = func(ctx context.Context, callback llm.StreamCallback) error {
				return client.AskImageStream(ctx, question, data, format, callback)
			}
		}

		ex := history.Exchange{Question: question, ImageURL: imageURL}
		if streaming {
			ew, ok := beginSSE(c)
			if !ok {
				return
			}
			relay.RunSSE(c.Request.Context(), ew, "image", gen, prior, ex)
			return
		}
		c.JSON(http.StatusOK, relay.Run(c.Request.Context(), "image", gen, prior, ex))
	}
}

// imageFormat maps an upload's extension to the downstream image format
// tag. Unknown extensions default to jpeg.
func imageFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	case ".heic":
		return "heic"
	default:
		return "jpeg"
	}
}
