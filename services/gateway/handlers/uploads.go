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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxCSVSize caps accepted CSV payloads (uploaded or fetched) at 50 MiB.
const MaxCSVSize = 50 * 1024 * 1024

// UploadStore persists request uploads under a fixed directory and maps
// them to the public static-file URL the frontend renders.
//
// Saved files keep the caller-supplied base name; a later upload with the
// same name overwrites the earlier one. The static mount serves whatever
// is current.
type UploadStore struct {
	dir     string
	baseURL string
	client  *http.Client
}

// NewUploadStore builds a store rooted at dir, publishing URLs under
// baseURL/temp_uploads/.
func NewUploadStore(dir, baseURL string) *UploadStore {
	return &UploadStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// Save writes content under the upload directory and returns the public
// URL for the stored file. The name is reduced to its base component, so
// path traversal in a client-supplied filename cannot escape the
// directory.
func (s *UploadStore) Save(filename string, content []byte) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("unusable upload filename %q", filename)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("save upload %s: %w", name, err)
	}
	return fmt.Sprintf("%s/temp_uploads/%s", s.baseURL, name), nil
}

// FetchCSV downloads the CSV at url, honoring the request context and the
// MaxCSVSize cap.
func (s *UploadStore) FetchCSV(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("Failed to download CSV: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Failed to download CSV: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Failed to download CSV: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxCSVSize+1))
	if err != nil {
		return "", fmt.Errorf("Failed to download CSV: %v", err)
	}
	if len(body) > MaxCSVSize {
		return "", fmt.Errorf("Failed to download CSV: file exceeds %d MB limit", MaxCSVSize/(1024*1024))
	}
	return string(body), nil
}

// RemoteFileName derives a display name from a CSV URL, falling back to
// remote_file.csv when the path has no usable last segment.
func RemoteFileName(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "remote_file.csv"
	}
	return trimmed
}
