// Package session models one attendance-taking session: the selected date
// and grade, the roster being edited, the optional detail editor and the
// final batch. Transitions are methods on a Session value; callers apply them
// to a Clone and keep the original when a transition fails.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// DefaultWindowDays is how far back attendance may be recorded.
const DefaultWindowDays = 30

// Selection is what the user picked before editing.
type Selection struct {
	Date        string `json:"date"`
	GradeID     int    `json:"grade_id"`
	SearchQuery string `json:"search_query"`
}

// FetchTag identifies one roster request. Results carrying an older tag are
// discarded.
type FetchTag struct {
	GradeID int    `json:"grade_id"`
	Seq     uint64 `json:"seq"`
}

// Editor is the open detail editor for one student.
type Editor struct {
	StudentID int64                   `json:"student_id"`
	Target    models.AttendanceStatus `json:"target"`
	Draft     models.AttendanceDetail `json:"draft"`
}

// Session is the full state of an attendance session.
type Session struct {
	ID         string    `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	WindowDays int       `json:"window_days"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Selection Selection                         `json:"selection"`
	Roster    []models.RosterEntry              `json:"roster"`
	Details   map[int64]models.AttendanceDetail `json:"details"`
	Editor    *Editor                           `json:"editor,omitempty"`

	Fetch         FetchTag          `json:"fetch"`
	Loading       bool              `json:"loading"`
	RosterSource  models.DataSource `json:"roster_source,omitempty"`
	RosterPartial bool              `json:"roster_partial"`
	LastError     string            `json:"last_error,omitempty"`
}

// New opens a session with default selection: today, no grade.
func New(id string, ownerID int64, now time.Time, windowDays int) *Session {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Session{
		ID:         id,
		OwnerID:    ownerID,
		WindowDays: windowDays,
		CreatedAt:  now,
		UpdatedAt:  now,
		Selection:  Selection{Date: FormatDate(now)},
		Roster:     []models.RosterEntry{},
		Details:    map[int64]models.AttendanceDetail{},
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	next := *s
	next.Roster = append([]models.RosterEntry(nil), s.Roster...)
	next.Details = make(map[int64]models.AttendanceDetail, len(s.Details))
	for k, v := range s.Details {
		next.Details[k] = v
	}
	if s.Editor != nil {
		editor := *s.Editor
		next.Editor = &editor
	}
	return &next
}

// SetDate changes the session date. The date must be today or within the
// last WindowDays days.
func (s *Session) SetDate(raw string, now time.Time) error {
	day, err := ParseDate(strings.TrimSpace(raw), now.Location())
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	future, tooOld := dateInWindow(day, now, s.WindowDays)
	if future {
		return appErrors.Clone(appErrors.ErrValidation, "attendance date cannot be in the future")
	}
	if tooOld {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attendance date must be within the last %d days", s.WindowDays))
	}
	s.Selection.Date = FormatDate(day)
	return nil
}

// BeginGradeSelection switches grade, drops the current roster and edits,
// and returns the tag the upcoming fetch must present.
func (s *Session) BeginGradeSelection(gradeID int) (FetchTag, error) {
	if !models.IsKnownGrade(gradeID) {
		return FetchTag{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %d", gradeID))
	}
	s.Selection.GradeID = gradeID
	s.Roster = []models.RosterEntry{}
	s.Details = map[int64]models.AttendanceDetail{}
	s.Editor = nil
	s.RosterSource = ""
	s.RosterPartial = false
	s.LastError = ""
	s.Loading = true
	s.Fetch = FetchTag{GradeID: gradeID, Seq: s.Fetch.Seq + 1}
	return s.Fetch, nil
}

// ApplyRoster installs a fetched roster if tag still matches the current
// selection. It reports false when the result is stale and was dropped.
func (s *Session) ApplyRoster(tag FetchTag, roster *models.Roster) bool {
	if tag != s.Fetch || tag.GradeID != s.Selection.GradeID {
		return false
	}
	entries := make([]models.RosterEntry, 0, len(roster.Entries))
	for _, e := range roster.Entries {
		e.AttendanceStatus = models.AttendanceStatusPresent
		entries = append(entries, e)
	}
	s.Roster = entries
	s.Details = map[int64]models.AttendanceDetail{}
	s.RosterSource = roster.Source
	s.RosterPartial = roster.Partial
	s.Loading = false
	return true
}

// FailRosterFetch records a failed fetch for the current tag.
func (s *Session) FailRosterFetch(tag FetchTag, cause error) bool {
	if tag != s.Fetch {
		return false
	}
	s.Loading = false
	if cause != nil {
		s.LastError = appErrors.FromError(cause).Message
	}
	return true
}

// SetSearch updates the roster filter.
func (s *Session) SetSearch(query string) {
	s.Selection.SearchQuery = strings.TrimSpace(query)
}

// Visible returns the roster entries matching the search query by name or
// admission number.
func (s *Session) Visible() []models.RosterEntry {
	q := strings.ToLower(s.Selection.SearchQuery)
	if q == "" {
		return append([]models.RosterEntry(nil), s.Roster...)
	}
	out := make([]models.RosterEntry, 0)
	for _, e := range s.Roster {
		if strings.Contains(strings.ToLower(e.DisplayName), q) || strings.Contains(strings.ToLower(e.AdmissionNumber), q) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Session) indexOf(studentID int64) (int, error) {
	for i := range s.Roster {
		if s.Roster[i].ID == studentID {
			return i, nil
		}
	}
	return -1, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d is not on the roster", studentID))
}

func (s *Session) requireEditorClosed() error {
	if s.Editor != nil {
		return appErrors.Clone(appErrors.ErrEditorState, "close the attendance detail editor first")
	}
	return nil
}

// SetStatus toggles one student. Present and absent commit immediately (the
// absence reason is checked at submit time); late opens the detail editor
// and commits only when the editor is confirmed. editorOpened reports the
// latter.
func (s *Session) SetStatus(studentID int64, status models.AttendanceStatus) (editorOpened bool, err error) {
	if !status.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", status))
	}
	if err := s.requireEditorClosed(); err != nil {
		return false, err
	}
	idx, err := s.indexOf(studentID)
	if err != nil {
		return false, err
	}

	switch status {
	case models.AttendanceStatusLate:
		return true, s.OpenEditor(studentID, status)
	case models.AttendanceStatusPresent:
		s.Roster[idx].AttendanceStatus = status
		delete(s.Details, studentID)
	default:
		s.Roster[idx].AttendanceStatus = status
		if d, ok := s.Details[studentID]; ok {
			d.InTime, d.OutTime = "", ""
			s.Details[studentID] = d
		}
	}
	return false, nil
}

// Detail returns the captured detail for a student.
func (s *Session) Detail(studentID int64) (models.AttendanceDetail, bool) {
	d, ok := s.Details[studentID]
	return d, ok
}

// Summary aggregates the roster for charting.
func (s *Session) Summary() models.AttendanceSummary {
	sum := models.AttendanceSummary{Total: len(s.Roster)}
	for _, e := range s.Roster {
		switch e.AttendanceStatus {
		case models.AttendanceStatusAbsent:
			sum.Absent++
		case models.AttendanceStatusLate:
			sum.Late++
		default:
			sum.Present++
		}
	}
	if sum.Total > 0 {
		sum.PresentPercent = percent(sum.Present, sum.Total)
		sum.AbsentPercent = percent(sum.Absent, sum.Total)
		sum.LatePercent = percent(sum.Late, sum.Total)
	}
	return sum
}

func percent(part, total int) float64 {
	v := float64(part) * 1000 / float64(total)
	return float64(int64(v+0.5)) / 10
}
