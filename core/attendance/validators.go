package attendance

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

// NewClassAttendance contains information needed to record a ClassAttendance.
type NewClassAttendance struct {
	EnrollmentID       int64         `json:"enrollment_id" validate:"required"`
	Date               calendar.Date `json:"date"`
	ScheduleID         null.Int64    `json:"schedule_id"`
	CourseAssignmentID null.Int64    `json:"course_assignment_id"`
	StatusCode         string        `json:"status" validate:"required,statuscode"`
	ArrivalTime        string        `json:"arrival_time" validate:"omitempty,datetime=15:04"`
	Notes              string        `json:"notes" validate:"max=1000"`
}

func (na *NewClassAttendance) Validate(validate *validator.Validate) error {
	na.StatusCode = strings.ToUpper(core.CleanString(na.StatusCode))
	na.ArrivalTime = core.CleanString(na.ArrivalTime)
	na.Notes = core.CleanString(na.Notes)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Date.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}
	return nil
}

// UpdateClassAttendance defines what information may be provided to correct a ClassAttendance.
type UpdateClassAttendance struct {
	StatusCode         string `json:"status" validate:"required,statuscode"`
	ArrivalTime        string `json:"arrival_time" validate:"omitempty,datetime=15:04"`
	Notes              string `json:"notes" validate:"max=1000"`
	ModificationReason string `json:"modification_reason" validate:"required,notblank,max=1000"`
}

func (uc *UpdateClassAttendance) Validate(validate *validator.Validate) error {
	uc.StatusCode = strings.ToUpper(core.CleanString(uc.StatusCode))
	uc.ArrivalTime = core.CleanString(uc.ArrivalTime)
	uc.Notes = core.CleanString(uc.Notes)
	uc.ModificationReason = core.CleanString(uc.ModificationReason)

	return validate.Struct(uc)
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
