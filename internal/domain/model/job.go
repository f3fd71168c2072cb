// File: internal/domain/model/job.go
package model

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// Terminal reports whether the job has reached a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Job tracks one asynchronous estimation run. Logs are append-only.
type Job struct {
	ID        string            `json:"id"`
	Status    JobStatus         `json:"status"`
	Progress  string            `json:"progress,omitempty"`
	Result    *EstimationResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Logs      []LogLine         `json:"logs,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// EstimationRequest is the payload accepted by the start endpoint.
type EstimationRequest struct {
	TicketKey         string   `json:"ticketKey"`
	TicketSummary     string   `json:"ticketSummary"`
	TicketDescription string   `json:"ticketDescription"`
	BoardID           int      `json:"boardId"`
	SprintCount       int      `json:"sprintCount"`
	CustomPrompt      string   `json:"customPrompt,omitempty"`
	ToolPrompt        string   `json:"toolPrompt,omitempty"`
	Repositories      []string `json:"repositories,omitempty"`
	Model             string   `json:"model,omitempty"`
}
