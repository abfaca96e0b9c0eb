package domain

import "time"

// EventType discriminates the event union delivered over SSE.
type EventType string

const (
	EventTypeConnected      EventType = "connected"
	EventTypeEntityChange   EventType = "entity_change"
	EventTypeJobCompletion  EventType = "job_completion"
	EventTypeActivityLogged EventType = "activity_logged"
)

// ChangeType qualifies an entity_change event.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Event is the ephemeral notification pushed to a user's open connections.
// Events are addressed to exactly one user, delivered at most once per
// connection and never persisted; clients resync authoritative state after a
// reconnect.
type Event struct {
	Type       EventType  `json:"type"`
	UserID     string     `json:"user_id"`
	Timestamp  time.Time  `json:"timestamp"`
	EntityType EntityType `json:"entity_type,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	ChangeType ChangeType `json:"change_type,omitempty"`
	JobID      string     `json:"job_id,omitempty"`
	JobType    JobType    `json:"job_type,omitempty"`
	Status     string     `json:"status,omitempty"`
	Error      string     `json:"error,omitempty"`
	Action     string     `json:"action,omitempty"`
}

func ConnectedEvent(userID string) Event {
	return Event{Type: EventTypeConnected, UserID: userID, Timestamp: time.Now().UTC()}
}

func EntityChangeEvent(userID string, entityType EntityType, entityID string, change ChangeType) Event {
	return Event{
		Type:       EventTypeEntityChange,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
		EntityType: entityType,
		EntityID:   entityID,
		ChangeType: change,
	}
}

func JobCompletionEvent(userID string, job *Job) Event {
	status := "completed"
	if job.Status == JobStatusFailed {
		status = "failed"
	}
	return Event{
		Type:       EventTypeJobCompletion,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
		EntityType: job.EntityType,
		EntityID:   job.EntityID,
		JobID:      job.ID,
		JobType:    job.JobType,
		Status:     status,
		Error:      job.ErrorMessage,
	}
}

func ActivityLoggedEvent(userID, action string, entityType EntityType, entityID string) Event {
	return Event{
		Type:       EventTypeActivityLogged,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
	}
}
