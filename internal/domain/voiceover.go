package domain

import "time"

// Voiceover is a single-pass text-to-audio artifact.
type Voiceover struct {
	ID              string
	Title           string
	Text            string
	Status          Status
	ErrorMessage    string
	AudioURL        string
	DurationSeconds float64
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Infographic is a single-pass brief-to-image artifact. Feedback carries the
// user's revision notes for regeneration.
type Infographic struct {
	ID           string
	Title        string
	Brief        string
	Feedback     string
	Status       Status
	ErrorMessage string
	ImageKey     string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActivityEntry records a user action for the activity feed.
type ActivityEntry struct {
	ID         string
	UserID     string
	Action     string
	EntityType EntityType
	EntityID   string
	Country    string
	CreatedAt  time.Time
}
