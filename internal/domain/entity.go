package domain

// EntityType enumerates the generatable artifact kinds.
type EntityType string

const (
	EntityTypePodcast     EntityType = "podcast"
	EntityTypeVoiceover   EntityType = "voiceover"
	EntityTypeInfographic EntityType = "infographic"
)

// Status is an entity lifecycle state. Podcasts use the full six-state model;
// voiceovers and infographics use the four-state variant.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusGeneratingScript Status = "generating_script"
	StatusScriptReady      Status = "script_ready"
	StatusGeneratingAudio  Status = "generating_audio"

	StatusDrafting   Status = "drafting"
	StatusGenerating Status = "generating"

	StatusReady  Status = "ready"
	StatusFailed Status = "failed"
)

// transition describes one generation operation in the state machine: the
// statuses it may start from, the status entered while the job runs, and the
// status entered when the job completes.
type transition struct {
	sources []Status
	running Status
	success Status
}

// The transition table is data, not behavior. Regeneration from ready and
// retry from failed are always listed as legal sources.
var transitions = map[EntityType]map[JobType]transition{
	EntityTypePodcast: {
		JobTypeGenerateScript: {
			sources: []Status{StatusDraft, StatusScriptReady, StatusReady, StatusFailed},
			running: StatusGeneratingScript,
			success: StatusScriptReady,
		},
		JobTypeGenerateAudio: {
			sources: []Status{StatusScriptReady, StatusReady, StatusFailed},
			running: StatusGeneratingAudio,
			success: StatusReady,
		},
	},
	EntityTypeVoiceover: {
		JobTypeGenerateAudio: {
			sources: []Status{StatusDrafting, StatusReady, StatusFailed},
			running: StatusGenerating,
			success: StatusReady,
		},
	},
	EntityTypeInfographic: {
		JobTypeGenerateImage: {
			sources: []Status{StatusDrafting, StatusReady, StatusFailed},
			running: StatusGenerating,
			success: StatusReady,
		},
	},
}

func lookupTransition(entityType EntityType, jobType JobType) (transition, *Error) {
	byJob, ok := transitions[entityType]
	if !ok {
		return transition{}, NewError(KindValidation, "unknown entity type %q", entityType)
	}
	t, ok := byJob[jobType]
	if !ok {
		return transition{}, NewError(KindValidation, "%s does not support %s", entityType, jobType)
	}
	return t, nil
}

// CanStart checks the state machine guard: the operation is only permitted
// when the entity's current status is in the transition's source set.
func CanStart(entityType EntityType, jobType JobType, current Status) error {
	t, err := lookupTransition(entityType, jobType)
	if err != nil {
		return err
	}
	for _, s := range t.sources {
		if s == current {
			return nil
		}
	}
	return ErrInvalidTransition(entityType, jobType, current)
}

// RunningStatus returns the status an entity enters when the given job is enqueued.
func RunningStatus(entityType EntityType, jobType JobType) (Status, error) {
	t, err := lookupTransition(entityType, jobType)
	if err != nil {
		return "", err
	}
	return t.running, nil
}

// SuccessStatus returns the status an entity enters when the given job completes.
func SuccessStatus(entityType EntityType, jobType JobType) (Status, error) {
	t, err := lookupTransition(entityType, jobType)
	if err != nil {
		return "", err
	}
	return t.success, nil
}

// InitialStatus returns the status a freshly created entity carries.
func InitialStatus(entityType EntityType) Status {
	if entityType == EntityTypePodcast {
		return StatusDraft
	}
	return StatusDrafting
}

// JobTypesFor lists the generation operations an entity type supports.
func JobTypesFor(entityType EntityType) []JobType {
	byJob := transitions[entityType]
	out := make([]JobType, 0, len(byJob))
	for jt := range byJob {
		out = append(out, jt)
	}
	return out
}
