package models

import "time"

// SubmissionOutcome records how a batch submission ended.
type SubmissionOutcome string

const (
	SubmissionSucceeded SubmissionOutcome = "succeeded"
	SubmissionRejected  SubmissionOutcome = "rejected"
)

// SubmissionLog is the audit row written for every batch submission attempt.
type SubmissionLog struct {
	ID           string            `db:"id" json:"id"`
	SessionID    string            `db:"session_id" json:"session_id"`
	UserID       int64             `db:"user_id" json:"user_id"`
	GradeLevelID int               `db:"grade_level_id" json:"grade_level_id"`
	Date         string            `db:"attendance_date" json:"date"`
	Total        int               `db:"total" json:"total"`
	Present      int               `db:"present" json:"present"`
	Absent       int               `db:"absent" json:"absent"`
	Late         int               `db:"late" json:"late"`
	Outcome      SubmissionOutcome `db:"outcome" json:"outcome"`
	Message      *string           `db:"message" json:"message,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// SubmissionLogFilter scopes audit listing.
type SubmissionLogFilter struct {
	GradeLevelID int
	UserID       int64
	Outcome      SubmissionOutcome
	Page         int
	PageSize     int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
