package domain

import "time"

// JobType enumerates supported generation job categories.
type JobType string

const (
	JobTypeGenerateScript JobType = "generate-script"
	JobTypeGenerateAudio  JobType = "generate-audio"
	JobTypeGenerateImage  JobType = "generate-image"
)

// JobStatus enumerates job lifecycle states. Terminal states are immutable.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is legal for the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the durable record of one generation attempt for one entity. While a
// pending or processing job exists for (EntityID, JobType), enqueue returns it
// instead of creating a duplicate.
type Job struct {
	ID           string
	EntityID     string
	EntityType   EntityType
	JobType      JobType
	Status       JobStatus
	Payload      []byte
	Result       []byte
	ErrorMessage string
	ClaimedBy    string
	ClaimedAt    *time.Time
	CreatedAt    time.Time
	CompletedAt  *time.Time
}
