package session

import (
	"time"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

// RosterRow is a roster entry with its captured detail.
type RosterRow struct {
	models.RosterEntry
	Detail *models.AttendanceDetail `json:"detail,omitempty"`
}

// View is what the API returns for a session.
type View struct {
	ID            string                   `json:"id"`
	Selection     Selection                `json:"selection"`
	Loading       bool                     `json:"loading"`
	RosterSource  models.DataSource        `json:"roster_source,omitempty"`
	RosterPartial bool                     `json:"roster_partial"`
	Roster        []RosterRow              `json:"roster"`
	VisibleCount  int                      `json:"visible_count"`
	Editor        *Editor                  `json:"editor,omitempty"`
	BulkActions   []BulkAvailability       `json:"bulk_actions"`
	Summary       models.AttendanceSummary `json:"summary"`
	LastError     string                   `json:"last_error,omitempty"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// View renders the session, with the roster filtered by the search query.
func (s *Session) View() View {
	visible := s.Visible()
	rows := make([]RosterRow, 0, len(visible))
	for _, e := range visible {
		row := RosterRow{RosterEntry: e}
		if d, ok := s.Details[e.ID]; ok {
			d := d
			row.Detail = &d
		}
		rows = append(rows, row)
	}
	var editor *Editor
	if s.Editor != nil {
		e := *s.Editor
		editor = &e
	}
	return View{
		ID:            s.ID,
		Selection:     s.Selection,
		Loading:       s.Loading,
		RosterSource:  s.RosterSource,
		RosterPartial: s.RosterPartial,
		Roster:        rows,
		VisibleCount:  len(rows),
		Editor:        editor,
		BulkActions:   s.BulkActions(),
		Summary:       s.Summary(),
		LastError:     s.LastError,
		UpdatedAt:     s.UpdatedAt,
	}
}
