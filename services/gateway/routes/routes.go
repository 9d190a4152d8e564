// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianChat/services/gateway/handlers"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

// SetupRoutes registers the gateway's HTTP surface: the health check,
// Prometheus metrics, the static mount serving stored uploads back to
// the frontend, and the three mode endpoints.
func SetupRoutes(router *gin.Engine, relay *handlers.Relay, client llm.GenerativeClient,
	store *handlers.UploadStore, uploadDir string, registry *prometheus.Registry) {

	router.GET("/", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.Static("/temp_uploads", uploadDir)

	api := router.Group("/api")
	{
		api.POST("/chat/", handlers.HandleChat(relay, client))
		api.POST("/image/", handlers.HandleImage(relay, client, store))
		api.POST("/csv/", handlers.HandleCSV(relay, client, store))
	}
}
