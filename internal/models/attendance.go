package models

import "strings"

// AttendanceStatus is the per-student mark inside an attendance session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// ParseAttendanceStatus normalises user input such as "Late" or " ABSENT ".
func ParseAttendanceStatus(raw string) AttendanceStatus {
	return AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// AttendanceDetail holds the structured extras captured for absent or late
// students.
type AttendanceDetail struct {
	Reason  string `json:"reason,omitempty"`
	Notes   string `json:"notes,omitempty"`
	InTime  string `json:"in_time,omitempty"`
	OutTime string `json:"out_time,omitempty"`
}

// IsZero reports whether nothing was captured.
func (d AttendanceDetail) IsZero() bool {
	return d == AttendanceDetail{}
}

// AttendanceBatchRecord is one element of the bulk-create payload.
type AttendanceBatchRecord struct {
	Date         string           `json:"date"`
	GradeLevelID int              `json:"grade_level_id"`
	StudentID    int64            `json:"student_id"`
	Status       AttendanceStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	InTime       string           `json:"in_time,omitempty"`
	OutTime      string           `json:"out_time,omitempty"`
}

// AttendanceRecord is a stored attendance row as listed by the backend.
type AttendanceRecord struct {
	ID           int64            `json:"id"`
	Date         string           `json:"date"`
	StudentID    int64            `json:"student_id"`
	StudentName  string           `json:"student_name"`
	GradeLevelID int              `json:"grade_level_id"`
	Status       AttendanceStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	InTime       string           `json:"in_time,omitempty"`
	OutTime      string           `json:"out_time,omitempty"`
}

// AttendanceRecordPage is a normalised page of stored attendance rows.
type AttendanceRecordPage struct {
	Records     []AttendanceRecord `json:"records"`
	TotalCount  int                `json:"total_count"`
	CurrentPage int                `json:"current_page"`
}

// AttendanceFilter scopes listing of stored attendance rows.
type AttendanceFilter struct {
	Date         string
	GradeLevelID int
	SearchPhrase string
	Page         int
	PageSize     int
}

// AttendanceSummary aggregates a roster for charting.
type AttendanceSummary struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	PresentPercent float64 `json:"present_percent"`
	AbsentPercent  float64 `json:"absent_percent"`
	LatePercent    float64 `json:"late_percent"`
}

// MutationAck is the normalised answer to a create call.
type MutationAck struct {
	Message string `json:"message,omitempty"`
}
