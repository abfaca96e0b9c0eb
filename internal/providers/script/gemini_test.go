package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"server/internal/providers/genai"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiClient(t *testing.T, transport http.RoundTripper) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(genai.Options{
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func candidateResponse(text string) *http.Response {
	body := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	raw, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(raw)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestGeminiGeneratorParsesScript(t *testing.T) {
	client := geminiClient(t, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return candidateResponse("```json\n{\"summary\":\"About tea.\",\"segments\":[{\"speaker\":\"Host\",\"text\":\"Hello.\"},{\"speaker\":\"Guest\",\"text\":\"Hi there.\"}]}\n```"), nil
	}))
	gen, err := NewGeminiGenerator(GeminiOptions{Client: client})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	content, err := gen.GenerateScript(context.Background(), Request{Title: "Tea", SourceText: "Tea is old."})
	if err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	if content.Summary != "About tea." {
		t.Fatalf("Summary = %q", content.Summary)
	}
	if len(content.Segments) != 2 || content.Segments[1].Speaker != "Guest" {
		t.Fatalf("unexpected segments: %+v", content.Segments)
	}
}

func TestGeminiGeneratorFallsBackOnHTTPError(t *testing.T) {
	client := geminiClient(t, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("boom")
	}))
	var capturedReason string
	gen, err := NewGeminiGenerator(GeminiOptions{
		Client: client,
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	content, err := gen.GenerateScript(context.Background(), Request{
		Title:      "Tea",
		SourceText: "Tea is old. It is brewed from leaves.",
	})
	if err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	if capturedReason != "http_request" {
		t.Fatalf("fallback reason = %q, want %q", capturedReason, "http_request")
	}
	if len(content.Segments) < 3 {
		t.Fatalf("fallback script too short: %d segments", len(content.Segments))
	}
	if content.Segments[0].Speaker != "Host" {
		t.Fatalf("opening speaker = %q", content.Segments[0].Speaker)
	}
}

func TestGeminiGeneratorFallsBackOnEmptyScript(t *testing.T) {
	client := geminiClient(t, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return candidateResponse(`{"summary":"x","segments":[]}`), nil
	}))
	var capturedReason string
	gen, _ := NewGeminiGenerator(GeminiOptions{
		Client: client,
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})

	if _, err := gen.GenerateScript(context.Background(), Request{SourceText: "One fact."}); err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	if capturedReason != "empty_script" {
		t.Fatalf("fallback reason = %q, want %q", capturedReason, "empty_script")
	}
}

func TestStaticGeneratorSplitsSentences(t *testing.T) {
	gen := NewStaticGenerator()
	content, err := gen.GenerateScript(context.Background(), Request{
		Title:      "coffee history",
		SourceText: "Coffee spread from Ethiopia. Traders carried it north! Cafes followed everywhere?",
	})
	if err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	// Intro plus three sentences plus outro.
	if len(content.Segments) != 5 {
		t.Fatalf("segments = %d, want 5", len(content.Segments))
	}
	if content.Segments[1].Speaker != "Guest" || content.Segments[2].Speaker != "Host" {
		t.Fatalf("speakers do not alternate: %+v", content.Segments[1:3])
	}
	if content.Summary != "Coffee spread from Ethiopia." {
		t.Fatalf("Summary = %q", content.Summary)
	}
}
