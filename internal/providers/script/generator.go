// Package script turns a source document into a two-speaker podcast script.
package script

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
)

type Request struct {
	Title      string
	SourceText string
	Locale     string
	RequestID  string
}

type Generator interface {
	GenerateScript(ctx context.Context, req Request) (*domain.ScriptContent, error)
}

// StaticGenerator produces a deterministic script from the source text. It is
// the terminal fallback, so it never fails.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (s *StaticGenerator) GenerateScript(ctx context.Context, req Request) (*domain.ScriptContent, error) {
	caser := cases.Title(localeLanguage(req.Locale))
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "this document"
	}

	sentences := splitSentences(req.SourceText)
	segments := make([]domain.ScriptSegment, 0, len(sentences)+2)
	segments = append(segments, domain.ScriptSegment{
		Speaker: "Host",
		Text:    fmt.Sprintf("Welcome back. Today we are talking about %s.", caser.String(title)),
	})
	speakers := []string{"Guest", "Host"}
	for i, sentence := range sentences {
		segments = append(segments, domain.ScriptSegment{
			Speaker: speakers[i%len(speakers)],
			Text:    sentence,
		})
	}
	segments = append(segments, domain.ScriptSegment{
		Speaker: "Host",
		Text:    "That wraps it up for today. Thanks for listening.",
	})

	summary := fmt.Sprintf("A conversation walking through %s.", title)
	if len(sentences) > 0 {
		summary = sentences[0]
	}
	return &domain.ScriptContent{Summary: summary, Segments: segments}, nil
}

var _ Generator = (*StaticGenerator)(nil)

func localeLanguage(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Und
	}
	return tag
}

// splitSentences breaks the document into sentence-ish chunks, capped so the
// fallback script stays a readable length.
func splitSentences(text string) []string {
	const maxSentences = 24
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := 0
		for i, r := range line {
			if r == '.' || r == '!' || r == '?' {
				sentence := strings.TrimSpace(line[start : i+1])
				if sentence != "" {
					out = append(out, sentence)
				}
				start = i + 1
			}
		}
		if rest := strings.TrimSpace(line[start:]); rest != "" {
			out = append(out, rest)
		}
		if len(out) >= maxSentences {
			return out[:maxSentences]
		}
	}
	return out
}
