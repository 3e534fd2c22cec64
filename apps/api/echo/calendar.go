package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

type calendarApi struct {
	svc *calendar.Service
}

func registerCalendarAPI(g *echo.Group, svc *calendar.Service) {
	api := calendarApi{svc: svc}

	cg := g.Group("/calendar")
	cg.GET("/cycles", api.queryCycles)
	cg.GET("/cycles/active", api.activeCycle)
	cg.GET("/resolve", api.resolve)
	cg.GET("/navigate", api.navigate)
}

type NavigateResponse struct {
	From  calendar.Date  `json:"from"`
	Date  *calendar.Date `json:"date"` // null when nothing was found within the navigation bound
	Found bool           `json:"found"`
}

// cycleID returns `?cycle_id=` or the active cycle's id.
func (api *calendarApi) cycleID(ctx echo.Context) (int64, error) {
	id, err := cycleParam(ctx)
	if err != nil || id != 0 {
		return id, err
	}
	cycle, err := api.svc.ActiveCycle(ctx.Request().Context())
	if err != nil {
		return 0, err
	}
	return cycle.ID, nil
}

// Handlers

func (api *calendarApi) queryCycles(ctx echo.Context) error {
	cycles, err := api.svc.QueryCycles(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying cycles")
	}
	return ctx.JSON(http.StatusOK, cycles)
}

func (api *calendarApi) activeCycle(ctx echo.Context) error {
	cycle, err := api.svc.ActiveCycle(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting active cycle")
	}
	return ctx.JSON(http.StatusOK, cycle)
}

func (api *calendarApi) resolve(ctx echo.Context) error {
	var q DateQuery
	if err := q.Bind(ctx); err != nil {
		return err
	}
	cycleID, err := api.cycleID(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Resolve(ctx.Request().Context(), cycleID, q.Date)
	if err != nil {
		return errors.Wrap(err, "resolving date")
	}
	return ctx.JSON(http.StatusOK, res)
}

// navigate: `?date=&direction=previous|next&school_days=true|false`
func (api *calendarApi) navigate(ctx echo.Context) error {
	var q DateQuery
	if err := q.Bind(ctx); err != nil {
		return err
	}
	var (
		direction  = "next"
		schoolDays bool
	)
	err := echo.QueryParamsBinder(ctx).
		String("direction", &direction).
		Bool("school_days", &schoolDays).
		BindError()
	if err != nil {
		return err
	}

	var dir calendar.Direction
	switch direction {
	case "previous":
		dir = calendar.Backward
	case "next":
		dir = calendar.Forward
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "direction", Error: `must be "previous" or "next"`})
	}

	cycleID, err := api.cycleID(ctx)
	if err != nil {
		return err
	}
	d, ok, err := api.svc.Navigate(ctx.Request().Context(), cycleID, q.Date, dir, schoolDays)
	if err != nil {
		return errors.Wrap(err, "navigating calendar")
	}

	res := NavigateResponse{From: q.Date, Found: ok}
	if ok {
		res.Date = &d
	}
	return ctx.JSON(http.StatusOK, res)
}
