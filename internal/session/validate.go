package session

import (
	"fmt"
	"time"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

// Violation is one reason the session cannot be submitted yet.
type Violation struct {
	Field       string `json:"field"`
	StudentID   int64  `json:"student_id,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	Message     string `json:"message"`
}

func (v Violation) String() string {
	if v.StudentName != "" {
		return fmt.Sprintf("%s: %s", v.StudentName, v.Message)
	}
	return v.Message
}

// Validate returns every violation, not just the first one.
func (s *Session) Validate(now time.Time) []Violation {
	var out []Violation

	if s.Selection.GradeID == 0 {
		out = append(out, Violation{Field: "grade_id", Message: "select a grade"})
	}
	if day, err := ParseDate(s.Selection.Date, now.Location()); err != nil {
		out = append(out, Violation{Field: "date", Message: "invalid attendance date"})
	} else if future, tooOld := dateInWindow(day, now, s.WindowDays); future || tooOld {
		out = append(out, Violation{Field: "date", Message: fmt.Sprintf("attendance date must be within the last %d days", s.WindowDays)})
	}
	if s.Loading {
		out = append(out, Violation{Field: "roster", Message: "roster is still loading"})
	} else if len(s.Roster) == 0 {
		out = append(out, Violation{Field: "roster", Message: "roster is empty"})
	} else if s.RosterSource == models.SourceFallback {
		out = append(out, Violation{Field: "roster", Message: "roster is placeholder data, reload the grade once the student service is reachable"})
	}
	if s.Editor != nil {
		out = append(out, Violation{Field: "editor", StudentID: s.Editor.StudentID, Message: "attendance detail editor is still open"})
	}

	for _, e := range s.Roster {
		d := s.Details[e.ID]
		switch e.AttendanceStatus {
		case models.AttendanceStatusAbsent:
			if d.Reason == "" {
				out = append(out, Violation{Field: "reason", StudentID: e.ID, StudentName: e.DisplayName, Message: "absence reason is required"})
			}
		case models.AttendanceStatusLate:
			if !ValidClock(d.InTime) || !ValidClock(d.OutTime) {
				out = append(out, Violation{Field: "in_time", StudentID: e.ID, StudentName: e.DisplayName, Message: "in and out times (HH:MM) are required for late students"})
			}
		}
	}
	return out
}

// Messages flattens violations for error details.
func Messages(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.String())
	}
	return out
}

// BuildBatch produces the bulk-create payload, one record per roster entry.
// Detail fields are only sent for the statuses that carry them.
func (s *Session) BuildBatch() []models.AttendanceBatchRecord {
	out := make([]models.AttendanceBatchRecord, 0, len(s.Roster))
	for _, e := range s.Roster {
		rec := models.AttendanceBatchRecord{
			Date:         s.Selection.Date,
			GradeLevelID: s.Selection.GradeID,
			StudentID:    e.ID,
			Status:       e.AttendanceStatus,
		}
		d := s.Details[e.ID]
		switch e.AttendanceStatus {
		case models.AttendanceStatusAbsent:
			rec.Reason, rec.Notes = d.Reason, d.Notes
		case models.AttendanceStatusLate:
			rec.Reason, rec.Notes = d.Reason, d.Notes
			rec.InTime, rec.OutTime = d.InTime, d.OutTime
		}
		out = append(out, rec)
	}
	return out
}
