package domain

import "context"

// PodcastRepository defines persistence for podcasts.
type PodcastRepository interface {
	Create(ctx context.Context, p *Podcast) error
	GetByID(ctx context.Context, id string) (*Podcast, error)
	ListByOwner(ctx context.Context, userID string) ([]Podcast, error)
	SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error
	Delete(ctx context.Context, id string) error
}

// ScriptRepository manages podcast script versions. CreateVersion assigns the
// next version number and deactivates the previous active row in the same
// transaction.
type ScriptRepository interface {
	CreateVersion(ctx context.Context, podcastID string, content ScriptContent) (*ScriptVersion, error)
	GetActive(ctx context.Context, podcastID string) (*ScriptVersion, error)
	ListVersions(ctx context.Context, podcastID string) ([]ScriptVersion, error)
}

// VoiceoverRepository defines persistence for voiceovers.
type VoiceoverRepository interface {
	Create(ctx context.Context, v *Voiceover) error
	GetByID(ctx context.Context, id string) (*Voiceover, error)
	ListByOwner(ctx context.Context, userID string) ([]Voiceover, error)
	SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error
	Delete(ctx context.Context, id string) error
}

// InfographicRepository defines persistence for infographics.
type InfographicRepository interface {
	Create(ctx context.Context, i *Infographic) error
	GetByID(ctx context.Context, id string) (*Infographic, error)
	ListByOwner(ctx context.Context, userID string) ([]Infographic, error)
	SetImageResult(ctx context.Context, id, imageKey string) error
	SetFeedback(ctx context.Context, id, feedback string) error
	Delete(ctx context.Context, id string) error
}

// ActivityRepository appends to the activity feed.
type ActivityRepository interface {
	Record(ctx context.Context, entry *ActivityEntry) error
	ListRecent(ctx context.Context, userID string, limit int) ([]ActivityEntry, error)
}
