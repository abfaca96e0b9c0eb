package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/providers/genai"
)

type GeminiOptions struct {
	Client   *genai.Client
	Fallback Generator
	// OnFallback is invoked with the reason whenever the fallback generator
	// is used instead of the remote model.
	OnFallback func(reason string, err error)
}

// GeminiGenerator writes the script with Gemini and degrades to the fallback
// generator when the model is unreachable or returns an unusable script.
type GeminiGenerator struct {
	client     *genai.Client
	fallback   Generator
	onFallback func(reason string, err error)
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("gemini client is required")
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticGenerator()
	}
	return &GeminiGenerator{
		client:     opts.Client,
		fallback:   fallback,
		onFallback: opts.OnFallback,
	}, nil
}

type scriptPayload struct {
	Summary  string `json:"summary"`
	Segments []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"segments"`
}

func (g *GeminiGenerator) GenerateScript(ctx context.Context, req Request) (*domain.ScriptContent, error) {
	if !g.client.Remote() {
		return g.useFallback(ctx, req, "no_api_key", nil)
	}

	text, err := g.client.GenerateText(ctx, genai.TextRequest{
		Prompt:    buildScriptPrompt(req),
		RequestID: req.RequestID,
	})
	if err != nil {
		return g.useFallback(ctx, req, "http_request", err)
	}

	var payload scriptPayload
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil {
		return g.useFallback(ctx, req, "decode_response", err)
	}
	if len(payload.Segments) == 0 {
		return g.useFallback(ctx, req, "empty_script", nil)
	}

	content := &domain.ScriptContent{Summary: strings.TrimSpace(payload.Summary)}
	for _, seg := range payload.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		segText := strings.TrimSpace(seg.Text)
		if segText == "" {
			continue
		}
		if speaker == "" {
			speaker = "Host"
		}
		content.Segments = append(content.Segments, domain.ScriptSegment{Speaker: speaker, Text: segText})
	}
	if len(content.Segments) == 0 {
		return g.useFallback(ctx, req, "empty_script", nil)
	}
	return content, nil
}

func (g *GeminiGenerator) useFallback(ctx context.Context, req Request, reason string, err error) (*domain.ScriptContent, error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return g.fallback.GenerateScript(ctx, req)
}

func buildScriptPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write a two-speaker podcast script discussing the document below.\n")
	b.WriteString("Respond with JSON only, shaped as ")
	b.WriteString(`{"summary": string, "segments": [{"speaker": string, "text": string}]}.` + "\n")
	b.WriteString("Use the speakers Host and Guest. Keep it conversational.\n")
	if locale := strings.TrimSpace(req.Locale); locale != "" {
		fmt.Fprintf(&b, "Write in locale %s.\n", locale)
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		fmt.Fprintf(&b, "\nTitle: %s\n", title)
	}
	b.WriteString("\nDocument:\n")
	b.WriteString(req.SourceText)
	return b.String()
}

// extractJSON tolerates models that wrap the JSON body in a markdown fence.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

var _ Generator = (*GeminiGenerator)(nil)
