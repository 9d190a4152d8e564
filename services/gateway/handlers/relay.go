// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the gateway's HTTP endpoints and the
// streaming relay they share.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianChat/services/gateway/history"
	"github.com/AleutianAI/AleutianChat/services/gateway/observability"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

var relayTracer = otel.Tracer("aleutian.gateway.handlers")

// errClientGone marks a write failure toward the client. Continued relay
// writes after a disconnect are a recoverable no-op, not a crash.
var errClientGone = errors.New("client connection gone")

// Generation describes one downstream exchange for the relay to drive.
//
// # Description
//
// Exactly one completion path runs per request: Stream when non-nil,
// Atomic otherwise. The same Generation shape backs all three endpoints —
// only prompt construction differs. The histogram bypass is an Atomic
// generation whose function never touches the model.
//
// # Fields
//
//   - Atomic: Single-shot call returning the full reply text.
//   - Stream: Incremental call producing a finite, non-restartable
//     fragment sequence. Takes precedence over Atomic when set.
//   - ErrorPrefix: Chat-visible framing for downstream failures (the
//     error marker the frontend renders).
type Generation struct {
	Atomic      func(ctx context.Context) (string, error)
	Stream      func(ctx context.Context, callback llm.StreamCallback) error
	ErrorPrefix string
}

// Relay drives downstream generations and reconciles conversation history.
// One Relay instance is shared by every endpoint; it holds no per-request
// state.
type Relay struct {
	metrics *observability.GatewayMetrics
	now     func() time.Time
}

// NewRelay builds a Relay reporting into metrics.
func NewRelay(metrics *observability.GatewayMetrics) *Relay {
	return &Relay{metrics: metrics, now: time.Now}
}

// FailInput records an input-stage failure (malformed history, unusable
// upload) that never reached the downstream capability.
func (r *Relay) FailInput(endpoint string) {
	r.metrics.ErrorsTotal.WithLabelValues(endpoint, observability.ErrorKindInput).Inc()
}

// RunSSE drives one exchange over an open event stream.
//
// # Description
//
// Event discipline on the wire:
//
//   - Incremental mode: zero or more chunk events in production order,
//     then the terminal history event. A mid-sequence downstream failure
//     appends one trailing chunk carrying the error marker and ends the
//     stream with no terminal event; fragments already relayed are not
//     retracted.
//   - Atomic mode: one reply event, then the terminal history event.
//     A downstream failure becomes the reply text itself (and therefore
//     the assistant turn) — the conversation stays usable instead of
//     erroring opaquely.
//
// Client write failures abort the relay quietly. The history event is
// always last on the success path and never follows an error.
//
// # Inputs
//
//   - ew: Destination event stream.
//   - endpoint: Metric/log label (chat, image, csv).
//   - gen: The downstream exchange to drive.
//   - prior: Caller-supplied history, already validated.
//   - ex: Exchange metadata; Answer is filled in here.
func (r *Relay) RunSSE(ctx context.Context, ew EventWriter, endpoint string, gen Generation,
	prior []datatypes.ChatTurn, ex history.Exchange) {

	ctx, span := relayTracer.Start(ctx, "Relay.RunSSE")
	defer span.End()

	requestID := uuid.New().String()
	mode := "atomic"
	if gen.Stream != nil {
		mode = "stream"
	}
	span.SetAttributes(
		attribute.String("gateway.endpoint", endpoint),
		attribute.String("gateway.mode", mode),
		attribute.String("gateway.request_id", requestID))

	start := time.Now()
	status := "success"
	r.metrics.ActiveStreams.WithLabelValues(endpoint).Inc()
	defer func() {
		r.metrics.ActiveStreams.WithLabelValues(endpoint).Dec()
		r.metrics.RequestsTotal.WithLabelValues(endpoint, mode, status).Inc()
		r.metrics.RelayDurationSeconds.WithLabelValues(endpoint, status).
			Observe(time.Since(start).Seconds())
	}()

	var final string
	if gen.Stream != nil {
		var accumulated strings.Builder
		streamErr := gen.Stream(ctx, func(ev llm.StreamEvent) error {
			if err := ew.WriteChunk(ev.Content); err != nil {
				return fmt.Errorf("%w: %v", errClientGone, err)
			}
			accumulated.WriteString(ev.Content)
			r.metrics.ChunksRelayedTotal.WithLabelValues(endpoint).Inc()
			return nil
		})
		if streamErr != nil {
			status = "error"
			if errors.Is(streamErr, errClientGone) {
				slog.Debug("Client disconnected mid-stream",
					"endpoint", endpoint, "request_id", requestID)
				return
			}
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, streamErr.Error())
			slog.Error("Downstream stream failed",
				"endpoint", endpoint, "request_id", requestID, "error", streamErr)
			r.metrics.ErrorsTotal.
				WithLabelValues(endpoint, observability.ErrorKindPartialStream).Inc()
			// Trailing error fragment; no reconciliation event follows.
			_ = ew.WriteChunk(gen.ErrorPrefix + streamErr.Error())
			return
		}
		final = accumulated.String()
	} else {
		text, err := gen.Atomic(ctx)
		if err != nil {
			status = "error"
			span.RecordError(err)
			slog.Error("Downstream call failed",
				"endpoint", endpoint, "request_id", requestID, "error", err)
			r.metrics.ErrorsTotal.
				WithLabelValues(endpoint, observability.ErrorKindDownstream).Inc()
			text = gen.ErrorPrefix + err.Error()
		}
		if err := ew.WriteReply(text); err != nil {
			status = "error"
			slog.Debug("Client disconnected before reply",
				"endpoint", endpoint, "request_id", requestID)
			return
		}
		final = text
	}

	ex.Answer = final
	updated := history.Reconcile(prior, ex, r.now())
	if err := ew.WriteComplete(updated); err != nil {
		status = "error"
		slog.Debug("Client disconnected before terminal event",
			"endpoint", endpoint, "request_id", requestID)
	}
}

// Run drives one atomic exchange for the non-streaming response form.
//
// Downstream failures follow the same folding policy as RunSSE's atomic
// mode: the marker-prefixed error text is both the reply and the assistant
// turn committed to history.
func (r *Relay) Run(ctx context.Context, endpoint string, gen Generation,
	prior []datatypes.ChatTurn, ex history.Exchange) datatypes.ChatResponse {

	ctx, span := relayTracer.Start(ctx, "Relay.Run")
	defer span.End()

	requestID := uuid.New().String()
	span.SetAttributes(
		attribute.String("gateway.endpoint", endpoint),
		attribute.String("gateway.request_id", requestID))

	start := time.Now()
	status := "success"
	defer func() {
		r.metrics.RequestsTotal.WithLabelValues(endpoint, "atomic", status).Inc()
		r.metrics.RelayDurationSeconds.WithLabelValues(endpoint, status).
			Observe(time.Since(start).Seconds())
	}()

	text, err := gen.Atomic(ctx)
	if err != nil {
		// The HTTP response is still a 200 with the folded error text;
		// the label records the downstream outcome.
		status = "error"
		span.RecordError(err)
		slog.Error("Downstream call failed",
			"endpoint", endpoint, "request_id", requestID, "error", err)
		r.metrics.ErrorsTotal.
			WithLabelValues(endpoint, observability.ErrorKindDownstream).Inc()
		text = gen.ErrorPrefix + err.Error()
	}

	ex.Answer = text
	return datatypes.ChatResponse{
		Reply:   text,
		History: history.Reconcile(prior, ex, r.now()),
	}
}
