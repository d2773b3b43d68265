package session

import (
	"strings"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// OpenEditor opens the detail editor for a student, prefilled with what was
// captured before. Target must be absent or late.
func (s *Session) OpenEditor(studentID int64, target models.AttendanceStatus) error {
	if target != models.AttendanceStatusAbsent && target != models.AttendanceStatusLate {
		return appErrors.Clone(appErrors.ErrValidation, "details can only be captured for absent or late students")
	}
	if err := s.requireEditorClosed(); err != nil {
		return err
	}
	if _, err := s.indexOf(studentID); err != nil {
		return err
	}
	s.Editor = &Editor{StudentID: studentID, Target: target, Draft: s.Details[studentID]}
	return nil
}

// ConfirmEditor validates detail, commits it together with the editor's
// target status and closes the editor. On validation failure the editor
// stays open.
func (s *Session) ConfirmEditor(detail models.AttendanceDetail) error {
	if s.Editor == nil {
		return appErrors.Clone(appErrors.ErrEditorState, "no attendance detail editor is open")
	}
	detail = models.AttendanceDetail{
		Reason:  strings.TrimSpace(detail.Reason),
		Notes:   strings.TrimSpace(detail.Notes),
		InTime:  strings.TrimSpace(detail.InTime),
		OutTime: strings.TrimSpace(detail.OutTime),
	}

	var problems []string
	if detail.InTime != "" && !ValidClock(detail.InTime) {
		problems = append(problems, "in_time must be HH:MM (24-hour)")
	}
	if detail.OutTime != "" && !ValidClock(detail.OutTime) {
		problems = append(problems, "out_time must be HH:MM (24-hour)")
	}
	if s.Editor.Target == models.AttendanceStatusLate {
		if detail.InTime == "" {
			problems = append(problems, "in_time is required for late students")
		}
		if detail.OutTime == "" {
			problems = append(problems, "out_time is required for late students")
		}
	}
	s.Editor.Draft = detail
	if len(problems) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, "attendance detail is incomplete", problems)
	}

	idx, err := s.indexOf(s.Editor.StudentID)
	if err != nil {
		s.Editor = nil
		return err
	}
	if s.Editor.Target == models.AttendanceStatusAbsent {
		detail.InTime, detail.OutTime = "", ""
	}
	s.Roster[idx].AttendanceStatus = s.Editor.Target
	if detail.IsZero() {
		delete(s.Details, s.Editor.StudentID)
	} else {
		s.Details[s.Editor.StudentID] = detail
	}
	s.Editor = nil
	return nil
}

// CancelEditor discards the draft; the student's status is unchanged.
func (s *Session) CancelEditor() error {
	if s.Editor == nil {
		return appErrors.Clone(appErrors.ErrEditorState, "no attendance detail editor is open")
	}
	s.Editor = nil
	return nil
}
