// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads gateway settings from the environment into an
// explicitly constructed object. Nothing here is a process-wide singleton;
// main loads the Config once and passes it to constructors.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the gateway.
type Config struct {
	// Port is the HTTP listen port.
	Port string
	// GeminiAPIKey authenticates against the generative language API.
	GeminiAPIKey string
	// GeminiModel is the downstream model name (e.g. "gemini-1.5-flash").
	GeminiModel string
	// UploadDir is where uploaded images and CSV files are written.
	UploadDir string
	// PublicBaseURL prefixes the static upload URLs handed back to clients.
	PublicBaseURL string
	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string
}

// Load reads the environment (honoring a local .env file) and validates the
// required settings.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("GATEWAY_PORT", "8000"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		UploadDir:     getEnv("GATEWAY_UPLOAD_DIR", "data/temp_uploads"),
		PublicBaseURL: getEnv("GATEWAY_PUBLIC_BASE_URL", "http://127.0.0.1:8000"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY not found in environment variables")
	}
	if cfg.GeminiModel == "" {
		return nil, errors.New("GEMINI_MODEL not found in environment variables")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
