// Package usecase holds the generation operations the worker executes. Each
// operation loads the entity, calls its provider, persists the produced asset
// and returns the result document stored on the job row.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/image"
	"server/internal/providers/script"
	"server/internal/providers/tts"
	"server/internal/storage"
)

// JobPayload is the optional per-job knob set carried from enqueue to
// execution.
type JobPayload struct {
	Voice  string `json:"voice,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// ScriptResult is the result document of a generate-script job.
type ScriptResult struct {
	ScriptVersionID string `json:"script_version_id"`
	Version         int    `json:"version"`
	SegmentCount    int    `json:"segment_count"`
	Summary         string `json:"summary,omitempty"`
}

// AudioResult is the result document of a generate-audio job.
type AudioResult struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ImageResult is the result document of a generate-image job.
type ImageResult struct {
	ImageKey string `json:"image_key"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Executor struct {
	podcasts     domain.PodcastRepository
	scripts      domain.ScriptRepository
	voiceovers   domain.VoiceoverRepository
	infographics domain.InfographicRepository
	scriptGen    script.Generator
	synthesizer  tts.Synthesizer
	imageGen     image.Generator
	store        *storage.FileStore
	logger       infra.Logger
}

type ExecutorDeps struct {
	Podcasts     domain.PodcastRepository
	Scripts      domain.ScriptRepository
	Voiceovers   domain.VoiceoverRepository
	Infographics domain.InfographicRepository
	ScriptGen    script.Generator
	Synthesizer  tts.Synthesizer
	ImageGen     image.Generator
	Store        *storage.FileStore
	Logger       infra.Logger
}

func NewExecutor(deps ExecutorDeps) *Executor {
	return &Executor{
		podcasts:     deps.Podcasts,
		scripts:      deps.Scripts,
		voiceovers:   deps.Voiceovers,
		infographics: deps.Infographics,
		scriptGen:    deps.ScriptGen,
		synthesizer:  deps.Synthesizer,
		imageGen:     deps.ImageGen,
		store:        deps.Store,
		logger:       deps.Logger,
	}
}

// Execute runs one claimed job to its result document.
func (e *Executor) Execute(ctx context.Context, job *domain.Job) ([]byte, error) {
	payload := decodePayload(job.Payload)
	switch job.JobType {
	case domain.JobTypeGenerateScript:
		return e.generateScript(ctx, job, payload)
	case domain.JobTypeGenerateAudio:
		switch job.EntityType {
		case domain.EntityTypePodcast:
			return e.generatePodcastAudio(ctx, job, payload)
		case domain.EntityTypeVoiceover:
			return e.generateVoiceoverAudio(ctx, job, payload)
		default:
			return nil, domain.NewError(domain.KindValidation, "%s does not support %s", job.EntityType, job.JobType)
		}
	case domain.JobTypeGenerateImage:
		return e.generateInfographicImage(ctx, job, payload)
	default:
		return nil, domain.NewError(domain.KindValidation, "unknown job type %q", job.JobType)
	}
}

func (e *Executor) generateScript(ctx context.Context, job *domain.Job, payload JobPayload) ([]byte, error) {
	podcast, err := e.podcasts.GetByID(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}

	content, err := e.scriptGen.GenerateScript(ctx, script.Request{
		Title:      podcast.Title,
		SourceText: podcast.SourceDocument,
		Locale:     payload.Locale,
		RequestID:  job.ID,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindProvider, "script generation: %v", err)
	}

	version, err := e.scripts.CreateVersion(ctx, podcast.ID, *content)
	if err != nil {
		return nil, fmt.Errorf("store script version: %w", err)
	}

	e.logger.Info().
		Str("podcast_id", podcast.ID).
		Int("version", version.Version).
		Int("segments", len(content.Segments)).
		Msg("usecase: script version created")

	return marshalResult(ScriptResult{
		ScriptVersionID: version.ID,
		Version:         version.Version,
		SegmentCount:    len(content.Segments),
		Summary:         content.Summary,
	})
}

func (e *Executor) generatePodcastAudio(ctx context.Context, job *domain.Job, payload JobPayload) ([]byte, error) {
	podcast, err := e.podcasts.GetByID(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}
	active, err := e.scripts.GetActive(ctx, podcast.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NewError(domain.KindInvalidState, "podcast %s has no script to voice", podcast.ID)
		}
		return nil, err
	}

	audio, err := e.synthesizer.Synthesize(ctx, tts.Request{
		Segments:  active.Content.Segments,
		Voice:     payload.Voice,
		Locale:    payload.Locale,
		RequestID: job.ID,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindProvider, "speech synthesis: %v", err)
	}

	key, err := e.store.Write(ctx, audioKey("podcasts", podcast.ID, audio.Format), audio.Data)
	if err != nil {
		return nil, fmt.Errorf("persist audio: %w", err)
	}
	duration := float64(audio.DurationSeconds)
	if err := e.podcasts.SetAudioResult(ctx, podcast.ID, key, duration); err != nil {
		return nil, fmt.Errorf("record audio result: %w", err)
	}

	return marshalResult(AudioResult{AudioURL: key, DurationSeconds: duration})
}

func (e *Executor) generateVoiceoverAudio(ctx context.Context, job *domain.Job, payload JobPayload) ([]byte, error) {
	voiceover, err := e.voiceovers.GetByID(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}

	audio, err := e.synthesizer.Synthesize(ctx, tts.Request{
		Text:      voiceover.Text,
		Voice:     payload.Voice,
		Locale:    payload.Locale,
		RequestID: job.ID,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindProvider, "speech synthesis: %v", err)
	}

	key, err := e.store.Write(ctx, audioKey("voiceovers", voiceover.ID, audio.Format), audio.Data)
	if err != nil {
		return nil, fmt.Errorf("persist audio: %w", err)
	}
	duration := float64(audio.DurationSeconds)
	if err := e.voiceovers.SetAudioResult(ctx, voiceover.ID, key, duration); err != nil {
		return nil, fmt.Errorf("record audio result: %w", err)
	}

	return marshalResult(AudioResult{AudioURL: key, DurationSeconds: duration})
}

func (e *Executor) generateInfographicImage(ctx context.Context, job *domain.Job, payload JobPayload) ([]byte, error) {
	infographic, err := e.infographics.GetByID(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}

	asset, err := e.imageGen.Generate(ctx, image.GenerateRequest{
		Brief:     infographic.Brief,
		Feedback:  infographic.Feedback,
		Locale:    payload.Locale,
		RequestID: job.ID,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindProvider, "image generation: %v", err)
	}

	key, err := e.store.Write(ctx, imageKey(infographic.ID, asset.Format), asset.Data)
	if err != nil {
		return nil, fmt.Errorf("persist image: %w", err)
	}
	if err := e.infographics.SetImageResult(ctx, infographic.ID, key); err != nil {
		return nil, fmt.Errorf("record image result: %w", err)
	}

	return marshalResult(ImageResult{ImageKey: key, Width: asset.Width, Height: asset.Height})
}

func decodePayload(raw []byte) JobPayload {
	var payload JobPayload
	if len(raw) > 0 {
		// A malformed payload only drops the optional knobs.
		_ = json.Unmarshal(raw, &payload)
	}
	return payload
}

func marshalResult(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

func audioKey(category, id, format string) string {
	return fmt.Sprintf("audio/%s/%s%s", category, id, extensionForFormat(format, ".wav"))
}

func imageKey(id, format string) string {
	return fmt.Sprintf("images/infographics/%s%s", id, extensionForFormat(format, ".png"))
}

func extensionForFormat(format, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return fallback
	}
}
