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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var tracer = otel.Tracer("aleutian.llm.gemini")

// EmptyResponseText is returned by the atomic methods when the model
// produced no text parts. Callers that want a context-specific fallback
// (the CSV analyst names the file) compare against it and substitute.
const EmptyResponseText = "(No response from Gemini)"

// GeminiClient implements GenerativeClient against the Google generative
// language API. API key and model name are injected at construction; there
// is no package-level client state.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiClient dials the generative language API.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if modelName == "" {
		return nil, errors.New("gemini model name is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	slog.Info("Initializing Gemini client", "model", modelName)
	return &GeminiClient{
		client: client,
		model:  client.GenerativeModel(modelName),
		name:   modelName,
	}, nil
}

// Close releases the underlying API connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Chat implements the GenerativeClient interface.
func (g *GeminiClient) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, span := tracer.Start(ctx, "GeminiClient.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.name))

	session, parts, err := g.startSession(messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	resp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Gemini chat call failed", "error", err)
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	return responseText(resp), nil
}

// ChatStream implements the GenerativeClient interface.
func (g *GeminiClient) ChatStream(ctx context.Context, messages []Message,
	callback StreamCallback) error {

	ctx, span := tracer.Start(ctx, "GeminiClient.ChatStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.name))

	session, parts, err := g.startSession(messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	iter := session.SendMessageStream(ctx, parts...)
	return g.drain(span, iter, callback)
}

// Prompt implements the GenerativeClient interface.
func (g *GeminiClient) Prompt(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "GeminiClient.Prompt")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.name))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Gemini prompt call failed", "error", err)
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return responseText(resp), nil
}

// PromptStream implements the GenerativeClient interface.
func (g *GeminiClient) PromptStream(ctx context.Context, prompt string,
	callback StreamCallback) error {

	ctx, span := tracer.Start(ctx, "GeminiClient.PromptStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.name))

	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))
	return g.drain(span, iter, callback)
}

// AskImage implements the GenerativeClient interface.
func (g *GeminiClient) AskImage(ctx context.Context, question string, image []byte,
	format string) (string, error) {

	ctx, span := tracer.Start(ctx, "GeminiClient.AskImage")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.name),
		attribute.Int("llm.image_bytes", len(image)))

	resp, err := g.model.GenerateContent(ctx, genai.Text(question), genai.ImageData(format, image))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Gemini image call failed", "error", err)
		return "", fmt.Errorf("gemini image generation failed: %w", err)
	}
	return responseText(resp), nil
}

// AskImageStream implements the GenerativeClient interface.
func (g *GeminiClient) AskImageStream(ctx context.Context, question string, image []byte,
	format string, callback StreamCallback) error {

	ctx, span := tracer.Start(ctx, "GeminiClient.AskImageStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.name))

	iter := g.model.GenerateContentStream(ctx, genai.Text(question), genai.ImageData(format, image))
	return g.drain(span, iter, callback)
}

// startSession builds a chat session whose history is every message but the
// last, returning the final message's parts for sending.
func (g *GeminiClient) startSession(messages []Message) (*genai.ChatSession, []genai.Part, error) {
	if len(messages) == 0 {
		return nil, nil, errors.New("cannot start a chat with no messages")
	}
	session := g.model.StartChat()
	session.History = toGenaiHistory(messages[:len(messages)-1])
	last := messages[len(messages)-1]
	return session, []genai.Part{genai.Text(last.Content)}, nil
}

// drain forwards every fragment from iter to the callback.
//
// The iterator is finite and non-restartable. A callback error (typically a
// client write failure) aborts iteration and is returned as-is so callers
// can distinguish it from downstream failure. Fragment text is relayed
// untrimmed: boundary whitespace is part of the response and the client
// reassembles the reply by plain concatenation. Only fragments with no
// text parts at all are skipped.
func (g *GeminiClient) drain(span trace.Span, iter *genai.GenerateContentResponseIterator,
	callback StreamCallback) error {

	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Gemini stream failed mid-sequence", "error", err)
			return fmt.Errorf("gemini streaming failed: %w", err)
		}
		text := fragmentText(resp)
		if text == "" {
			continue
		}
		if err := callback(StreamEvent{Type: StreamEventToken, Content: text}); err != nil {
			return err
		}
	}
}

// toGenaiHistory converts downstream-vocabulary messages to genai content.
func toGenaiHistory(messages []Message) []*genai.Content {
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		history = append(history, &genai.Content{
			Role:  m.Role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

// fragmentText concatenates the text parts of the first candidate, exactly
// as produced. No trimming and no fallback: streamed fragments carry
// significant boundary whitespace, and a fragment that happens to spell
// the fallback text is still real model output.
func fragmentText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	return b.String()
}

// responseText is the atomic-mode view of a full response: trimmed, with
// the EmptyResponseText fallback when nothing textual came back.
func responseText(resp *genai.GenerateContentResponse) string {
	out := strings.TrimSpace(fragmentText(resp))
	if out == "" {
		return EmptyResponseText
	}
	return out
}
