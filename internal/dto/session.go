// Package dto holds HTTP request payloads and their validation rules.
package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
)

// OpenSessionRequest starts an attendance session.
type OpenSessionRequest struct {
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	GradeID int    `json:"grade_id" validate:"omitempty,min=1,max=13"`
}

// SetDateRequest changes the session date.
type SetDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SelectGradeRequest switches the session grade.
type SelectGradeRequest struct {
	GradeID int `json:"grade_id" validate:"required,min=1,max=13"`
}

// SearchRequest filters the roster.
type SearchRequest struct {
	Query string `json:"query" validate:"max=100"`
}

// SetStatusRequest toggles one student.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// OpenEditorRequest opens the detail editor.
type OpenEditorRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,oneof=absent late"`
}

// ConfirmEditorRequest commits the detail editor.
type ConfirmEditorRequest struct {
	Reason  string `json:"reason" validate:"max=255"`
	Notes   string `json:"notes" validate:"max=1000"`
	InTime  string `json:"in_time" validate:"omitempty,clock_time"`
	OutTime string `json:"out_time" validate:"omitempty,clock_time"`
}

// Detail converts the request into the session detail.
func (r ConfirmEditorRequest) Detail() models.AttendanceDetail {
	return models.AttendanceDetail{Reason: r.Reason, Notes: r.Notes, InTime: r.InTime, OutTime: r.OutTime}
}

// BulkRequest applies a bulk action.
type BulkRequest struct {
	Action    string `json:"action" validate:"required,bulk_action"`
	Confirmed bool   `json:"confirmed"`
}

// LikeRequest sets a like explicitly. A nil Liked toggles.
type LikeRequest struct {
	Liked *bool `json:"liked"`
}

// MergeLikesRequest seeds liked flags from a loaded feed page.
type MergeLikesRequest struct {
	Posts []models.FeedPost `json:"posts" validate:"required,dive"`
}

// NewValidator returns a validator with the attendance tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.ParseAttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		return session.ValidClock(fl.Field().String())
	})
	_ = v.RegisterValidation("bulk_action", func(fl validator.FieldLevel) bool {
		_, ok := session.BulkAction(fl.Field().String()).Target()
		return ok
	})
	return v
}
