package calendar

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escuela/core"
)

const (
	requiredText   = "this field is required"
	beforeStartTxt = "must not be before start_date"
)

// NewCycle contains information needed to create a new Cycle.
type NewCycle struct {
	Name      string `json:"name" yaml:"name" validate:"required,notblank,max=100"`
	StartDate Date   `json:"start_date" yaml:"start_date"`
	EndDate   Date   `json:"end_date" yaml:"end_date"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
}

func (nc *NewCycle) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return checkRange(nc.StartDate, nc.EndDate)
}

// NewBimester contains information needed to create a new Bimester.
type NewBimester struct {
	CycleID    int64 `json:"cycle_id" yaml:"-" validate:"required"`
	Number     int   `json:"number" yaml:"number" validate:"required,min=1,max=4"`
	StartDate  Date  `json:"start_date" yaml:"start_date"`
	EndDate    Date  `json:"end_date" yaml:"end_date"`
	IsActive   bool  `json:"is_active" yaml:"is_active"`
	WeeksCount int   `json:"weeks_count" yaml:"weeks_count" validate:"min=0"`
}

// Validate checks the bimester against its cycle and the cycle's existing bimesters:
// it must be nested in the cycle and must not overlap another bimester.
func (nb *NewBimester) Validate(validate *validator.Validate, cycle Cycle, existing []Bimester) error {
	if err := validate.Struct(nb); err != nil {
		return err
	}
	if err := checkRange(nb.StartDate, nb.EndDate); err != nil {
		return err
	}
	if !cycle.Contains(nb.StartDate) || !cycle.Contains(nb.EndDate) {
		return core.NewValidationError(
			ErrOutOfRange,
			core.FieldError{Field: "start_date", Error: "must be within the academic cycle " + cycle.Name},
		)
	}
	for _, b := range existing {
		if b.Number == nb.Number {
			return core.NewValidationError(
				ErrDuplicateBimester,
				core.FieldError{Field: "number", Error: ErrDuplicateBimester.Error()},
			)
		}
		if overlaps(nb.StartDate, nb.EndDate, b.StartDate, b.EndDate) {
			return core.NewValidationError(
				ErrBimesterOverlap,
				core.FieldError{Field: "start_date", Error: fmt.Sprintf("overlaps bimester %d", b.Number)},
			)
		}
	}
	return nil
}

// NewWeek contains information needed to create a new Week.
type NewWeek struct {
	BimesterID int64 `json:"bimester_id" yaml:"-" validate:"required"`
	Number     int   `json:"number" yaml:"number" validate:"required,min=1"`
	StartDate  Date  `json:"start_date" yaml:"start_date"`
	EndDate    Date  `json:"end_date" yaml:"end_date"`
}

// Validate checks the week against its bimester and the bimester's existing weeks:
// it must be nested in the bimester and must not overlap another week.
func (nw *NewWeek) Validate(validate *validator.Validate, bimester Bimester, existing []Week) error {
	if err := validate.Struct(nw); err != nil {
		return err
	}
	if err := checkRange(nw.StartDate, nw.EndDate); err != nil {
		return err
	}
	if !bimester.Contains(nw.StartDate) || !bimester.Contains(nw.EndDate) {
		return core.NewValidationError(
			ErrOutOfRange,
			core.FieldError{Field: "start_date", Error: "must be within the bimester"},
		)
	}
	for _, w := range existing {
		if w.Number == nw.Number {
			return core.NewValidationError(
				ErrDuplicateWeek,
				core.FieldError{Field: "number", Error: ErrDuplicateWeek.Error()},
			)
		}
		if overlaps(nw.StartDate, nw.EndDate, w.StartDate, w.EndDate) {
			return core.NewValidationError(
				ErrOverlap,
				core.FieldError{Field: "start_date", Error: ErrOverlap.Error()},
			)
		}
	}
	return nil
}

// NewHoliday contains information needed to create a new Holiday.
type NewHoliday struct {
	BimesterID  int64  `json:"bimester_id" yaml:"-" validate:"required"`
	Date        Date   `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description" validate:"required,notblank,max=255"`
	IsRecovered bool   `json:"is_recovered" yaml:"is_recovered"`
}

func (nh *NewHoliday) Validate(validate *validator.Validate, bimester Bimester) error {
	nh.Description = core.CleanString(nh.Description)

	if err := validate.Struct(nh); err != nil {
		return err
	}
	if nh.Date.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: requiredText})
	}
	if !bimester.Contains(nh.Date) {
		return core.NewValidationError(
			ErrOutOfRange,
			core.FieldError{Field: "date", Error: "must be within the bimester"},
		)
	}
	return nil
}

// overlaps reports whether the inclusive ranges [start1, end1] and [start2, end2] share a day.
func overlaps(start1, end1, start2, end2 Date) bool {
	return !end1.Before(start2) && !start1.After(end2)
}

func checkRange(start, end Date) error {
	var flds []core.FieldError
	if start.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_date", Error: requiredText})
	}
	if end.IsZero() {
		flds = append(flds, core.FieldError{Field: "end_date", Error: requiredText})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	if end.Before(start) {
		return core.NewValidationError(ErrInvalidRange, core.FieldError{Field: "end_date", Error: beforeStartTxt})
	}
	return nil
}
