// Package image renders infographic images.
package image

import (
	"context"
	"strings"

	"server/internal/providers/genai"
)

// GenerateRequest describes a normalized request passed to any image provider.
type GenerateRequest struct {
	Brief       string
	Feedback    string
	AspectRatio string
	Locale      string
	RequestID   string
}

// Asset represents a generated infographic.
type Asset struct {
	StorageKey string
	Format     string
	Width      int
	Height     int
	Data       []byte
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      buildInfographicPrompt(req),
		AspectRatio: req.AspectRatio,
		Locale:      req.Locale,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{
		StorageKey: asset.StorageKey,
		Format:     asset.Format,
		Width:      asset.Width,
		Height:     asset.Height,
		Data:       asset.Data,
	}, nil
}

var _ Generator = (*GeminiGenerator)(nil)

func buildInfographicPrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("Design a clean, legible infographic.\n")
	if brief := strings.TrimSpace(req.Brief); brief != "" {
		b.WriteString("Brief: ")
		b.WriteString(brief)
		b.WriteString("\n")
	}
	if feedback := strings.TrimSpace(req.Feedback); feedback != "" {
		b.WriteString("Revision feedback to incorporate: ")
		b.WriteString(feedback)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
