package domain

import "time"

// RunStatus is the final state of one extraction run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Source names the surface that requested a run.
type Source string

const (
	SourceHTTP     Source = "http"
	SourceTelegram Source = "telegram"
	SourceCLI      Source = "cli"
	SourceMCP      Source = "mcp"
)

// RunRecord is the journal entry for one extraction run.
// It deliberately carries no metadata or transcript text.
type RunRecord struct {
	// ID is unique per run and sorts chronologically.
	ID string `json:"id"`

	URL    string `json:"url"`
	Source Source `json:"source"`

	// UserID is the Telegram user for bot runs, zero otherwise.
	UserID int64 `json:"user_id,omitempty"`

	Status   RunStatus `json:"status"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration of the run.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
