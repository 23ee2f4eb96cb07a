package domain

// TaskStatus enumerates generation task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is a final remote state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask is the remote-issued handle for one image generation.
// Only the poller mutates a task; once terminal it never changes again.
type GenerationTask struct {
	ID           string
	Status       TaskStatus
	ImageURL     string
	ImageID      string
	ErrorMessage string
}

// WorkspaceCredits is a point-in-time balance snapshot. Balances move under
// concurrent consumers, so a snapshot is re-fetched per check and never cached.
type WorkspaceCredits struct {
	WorkspaceID string
	Available   int
	HasAccess   bool
}

// Sufficient reports whether the balance clears the configured minimum.
func (c WorkspaceCredits) Sufficient(minimum int) bool {
	return c.HasAccess && c.Available >= minimum
}
