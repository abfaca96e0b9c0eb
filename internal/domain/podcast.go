package domain

import "time"

// Podcast is a document-to-audio artifact with a versioned script between the
// two generation stages.
type Podcast struct {
	ID              string
	Title           string
	SourceDocument  string
	Status          Status
	ErrorMessage    string
	AudioURL        string
	DurationSeconds float64
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ScriptSegment is one speaker turn of a generated podcast script.
type ScriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ScriptContent is the payload stored per script version.
type ScriptContent struct {
	Segments []ScriptSegment `json:"segments"`
	Summary  string          `json:"summary"`
}

// ScriptVersion is one revision of a podcast script. Versions are
// monotonically numbered per podcast and exactly one is active at a time.
type ScriptVersion struct {
	ID        string
	PodcastID string
	Version   int
	Content   ScriptContent
	IsActive  bool
	CreatedAt time.Time
}
