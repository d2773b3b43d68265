package session

import (
	"fmt"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// BulkAction applies one status to the whole roster.
type BulkAction string

const (
	BulkMarkAllPresent BulkAction = "mark_all_present"
	BulkMarkAllAbsent  BulkAction = "mark_all_absent"
	BulkMarkAllLate    BulkAction = "mark_all_late"
	// BulkResetAll is mark_all_present under the name the UI shows once
	// something was changed.
	BulkResetAll BulkAction = "reset_all"
)

var bulkOrder = []BulkAction{BulkMarkAllPresent, BulkMarkAllAbsent, BulkMarkAllLate, BulkResetAll}

// Target returns the status the action writes.
func (a BulkAction) Target() (models.AttendanceStatus, bool) {
	switch a {
	case BulkMarkAllPresent, BulkResetAll:
		return models.AttendanceStatusPresent, true
	case BulkMarkAllAbsent:
		return models.AttendanceStatusAbsent, true
	case BulkMarkAllLate:
		return models.AttendanceStatusLate, true
	default:
		return "", false
	}
}

// BulkAvailability tells the UI which bulk buttons are enabled.
type BulkAvailability struct {
	Action  BulkAction `json:"action"`
	Enabled bool       `json:"enabled"`
}

func (s *Session) everyoneIs(status models.AttendanceStatus) bool {
	for _, e := range s.Roster {
		if e.AttendanceStatus != status {
			return false
		}
	}
	return true
}

func (s *Session) bulkEnabled(action BulkAction) bool {
	target, ok := action.Target()
	if !ok || len(s.Roster) == 0 {
		return false
	}
	return !s.everyoneIs(target)
}

// BulkActions lists every bulk action with its availability. An action is
// disabled when it would change nothing.
func (s *Session) BulkActions() []BulkAvailability {
	out := make([]BulkAvailability, 0, len(bulkOrder))
	for _, a := range bulkOrder {
		out = append(out, BulkAvailability{Action: a, Enabled: s.bulkEnabled(a)})
	}
	return out
}

// ApplyBulk sets every student to the action's status. It requires an
// explicit confirmation and refuses no-op actions. Marking everyone present
// clears captured details; absent and late keep them so a later reason or
// time edit starts from what was typed.
func (s *Session) ApplyBulk(action BulkAction, confirmed bool) error {
	target, ok := action.Target()
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown bulk action %q", action))
	}
	if err := s.requireEditorClosed(); err != nil {
		return err
	}
	if !s.bulkEnabled(action) {
		return appErrors.Clone(appErrors.ErrBulkNoop, fmt.Sprintf("%s would not change any student", action))
	}
	if !confirmed {
		return appErrors.Clone(appErrors.ErrConfirmationRequired, fmt.Sprintf("confirm %s for %d students", action, len(s.Roster)))
	}

	for i := range s.Roster {
		s.Roster[i].AttendanceStatus = target
	}
	if target == models.AttendanceStatusPresent {
		s.Details = map[int64]models.AttendanceDetail{}
	}
	return nil
}
