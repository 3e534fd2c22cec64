package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field1,-field2` (`-` for descending).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// DateQuery binds `?date=YYYY-MM-DD`, today (server local date) when missing.
type DateQuery struct {
	Date calendar.Date
}

func (q *DateQuery) Bind(ctx echo.Context) error {
	if err := echo.QueryParamsBinder(ctx).TextUnmarshaler("date", &q.Date).BindError(); err != nil {
		return err
	}
	if q.Date.IsZero() {
		q.Date = calendar.Today()
	}
	return nil
}

// RangeQuery binds the required `?from=YYYY-MM-DD&to=YYYY-MM-DD`.
type RangeQuery struct {
	From calendar.Date
	To   calendar.Date
}

func (q *RangeQuery) Bind(ctx echo.Context) error {
	err := echo.QueryParamsBinder(ctx).
		TextUnmarshaler("from", &q.From).
		TextUnmarshaler("to", &q.To).
		BindError()
	if err != nil {
		return err
	}

	var fldErrs []core.FieldError
	if q.From.IsZero() {
		fldErrs = append(fldErrs, core.FieldError{Field: "from", Error: "this field is required"})
	}
	if q.To.IsZero() {
		fldErrs = append(fldErrs, core.FieldError{Field: "to", Error: "this field is required"})
	}
	if fldErrs != nil {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// cycleParam binds `?cycle_id=`, 0 when missing.
func cycleParam(ctx echo.Context) (int64, error) {
	var id int64
	err := echo.QueryParamsBinder(ctx).Int64("cycle_id", &id).BindError()
	return id, err
}

func idParam(ctx echo.Context, name string) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(ctx).MustInt64(name, &id).BindError(); err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
