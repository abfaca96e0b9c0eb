// Package tts synthesizes speech for podcast episodes and voiceovers.
package tts

import (
	"context"
	"strings"

	"server/internal/domain"
	"server/internal/providers/genai"
)

type Request struct {
	// Segments carries a multi-speaker script; Text a plain narration. When
	// both are set, Segments wins.
	Segments  []domain.ScriptSegment
	Text      string
	Voice     string
	Locale    string
	RequestID string
}

// Audio is a synthesized speech asset.
type Audio struct {
	Data            []byte
	Format          string
	DurationSeconds int
}

// Synthesizer is the contract implemented by all speech providers.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

type GeminiSynthesizer struct {
	client       *genai.Client
	defaultVoice string
}

func NewGeminiSynthesizer(client *genai.Client) *GeminiSynthesizer {
	return &GeminiSynthesizer{client: client}
}

// WithDefaultVoice sets the voice used when a request names none.
func (g *GeminiSynthesizer) WithDefaultVoice(voice string) *GeminiSynthesizer {
	g.defaultVoice = strings.TrimSpace(voice)
	return g
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	asset, err := g.client.GenerateSpeech(ctx, genai.SpeechRequest{
		Text:      flattenTranscript(req),
		Voice:     g.voiceFor(req),
		Locale:    req.Locale,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Audio{
		Data:            asset.Data,
		Format:          asset.Format,
		DurationSeconds: asset.DurationSeconds,
	}, nil
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)

func (g *GeminiSynthesizer) voiceFor(req Request) string {
	if voice := strings.TrimSpace(req.Voice); voice != "" {
		return voice
	}
	return g.defaultVoice
}

func flattenTranscript(req Request) string {
	if len(req.Segments) == 0 {
		return strings.TrimSpace(req.Text)
	}
	var b strings.Builder
	for _, seg := range req.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if speaker := strings.TrimSpace(seg.Speaker); speaker != "" {
			b.WriteString(speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
