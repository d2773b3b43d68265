package models

// RosterEntry is a student as shown inside an attendance session.
type RosterEntry struct {
	ID               int64            `json:"id"`
	AdmissionNumber  string           `json:"admission_number"`
	DisplayName      string           `json:"display_name"`
	GradeLevelID     int              `json:"grade_level_id,omitempty"`
	GradeName        string           `json:"grade_name,omitempty"`
	ClassName        string           `json:"class_name,omitempty"`
	House            string           `json:"house,omitempty"`
	PhotoURL         string           `json:"photo_url,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
}

// StudentPage is one normalised page of the student list endpoint.
type StudentPage struct {
	Students    []RosterEntry `json:"students"`
	TotalCount  int           `json:"total_count"`
	CurrentPage int           `json:"current_page"`
	// Returned counts every row the backend sent, including rows that were
	// dropped while reshaping.
	Returned    int           `json:"returned"`
}

// RowCount is the number of rows the backend returned for this page.
func (p StudentPage) RowCount() int {
	return max(p.Returned, len(p.Students))
}

// StudentListRequest is the body of the student list endpoint.
type StudentListRequest struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	SearchPhrase string `json:"search_phrase"`
	GradeLevelID int    `json:"grade_level_id,omitempty"`
}

// DataSource tells whether a payload came from the backend or was substituted.
type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceFallback DataSource = "fallback"
)

// Roster is the merged result of a multi-page roster fetch.
type Roster struct {
	GradeID    int           `json:"grade_id"`
	Entries    []RosterEntry `json:"entries"`
	TotalCount int           `json:"total_count"`
	Pages      int           `json:"pages"`
	Source     DataSource    `json:"source"`
	// Partial is set when secondary pages failed and only page one was kept.
	Partial bool `json:"partial"`
}
