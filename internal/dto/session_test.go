package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorTags(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(SetStatusRequest{Status: "Late"}))
	assert.Error(t, v.Struct(SetStatusRequest{Status: "excused"}))

	assert.NoError(t, v.Struct(ConfirmEditorRequest{InTime: "07:30", OutTime: "13:00"}))
	assert.NoError(t, v.Struct(ConfirmEditorRequest{Reason: "sick"}))
	assert.Error(t, v.Struct(ConfirmEditorRequest{InTime: "7:30"}))

	assert.NoError(t, v.Struct(BulkRequest{Action: "reset_all"}))
	assert.Error(t, v.Struct(BulkRequest{Action: "mark_all_excused"}))

	assert.NoError(t, v.Struct(OpenSessionRequest{}))
	assert.Error(t, v.Struct(OpenSessionRequest{Date: "18/10/2026"}))
	assert.Error(t, v.Struct(SelectGradeRequest{GradeID: 14}))
}
