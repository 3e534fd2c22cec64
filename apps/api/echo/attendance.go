package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

var errActorNotFoundInCtx = errors.New("actor not found in echo.Context")

type attendanceApi struct {
	svc    *attendance.Service
	calApi calendarApi
}

func registerAttendanceAPI(g *echo.Group, actor echo.MiddlewareFunc, svc *attendance.Service, calSvc *calendar.Service) {
	api := attendanceApi{
		svc:    svc,
		calApi: calendarApi{svc: calSvc},
	}

	sg := g.Group("/sections")
	sg.GET("", api.querySections)
	sg.GET("/:id", api.retrieveSection)
	sg.GET("/:id/attendance", api.sectionPeriod)
	sg.GET("/:id/attendance/day", api.sectionDay)
	sg.GET("/:id/attendance/weeks/:week_id", api.sectionWeek)
	sg.GET("/:id/attendance/bimesters/:bimester_id", api.sectionBimester)

	ag := g.Group("/attendance")
	ag.GET("/day", api.cycleDay)
	ag.GET("/statuses", api.queryStatuses)
	ag.POST("", api.record, actor)
	ag.PUT("/:id", api.correct, actor)
}

func getContextActor(ctx echo.Context) (attendance.Actor, error) {
	actor, ok := contextActor(ctx)
	if !ok {
		return attendance.Actor{}, errActorNotFoundInCtx
	}
	return actor, nil
}

// Handlers

func (api *attendanceApi) querySections(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)
	cycleID, err := api.calApi.cycleID(ctx)
	if err != nil {
		return err
	}

	sections, err := api.svc.QuerySections(ctx.Request().Context(), attendance.SectionFilter{
		CycleID:  cycleID,
		Ordering: ord.Orderings,
	})
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *attendanceApi) retrieveSection(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	sec, err := api.svc.GetSection(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *attendanceApi) sectionDay(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var q DateQuery
	if err = q.Bind(ctx); err != nil {
		return err
	}

	report, err := api.svc.SectionDay(ctx.Request().Context(), id, q.Date)
	if err != nil {
		return errors.Wrap(err, "computing day report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) sectionPeriod(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var q RangeQuery
	if err = q.Bind(ctx); err != nil {
		return err
	}

	report, err := api.svc.SectionPeriod(ctx.Request().Context(), id, q.From, q.To)
	if err != nil {
		return errors.Wrap(err, "computing period report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) sectionWeek(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	weekID, err := idParam(ctx, "week_id")
	if err != nil {
		return err
	}

	report, err := api.svc.SectionWeek(ctx.Request().Context(), id, weekID)
	if err != nil {
		return errors.Wrap(err, "computing week report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) sectionBimester(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	bimesterID, err := idParam(ctx, "bimester_id")
	if err != nil {
		return err
	}

	report, err := api.svc.SectionBimester(ctx.Request().Context(), id, bimesterID)
	if err != nil {
		return errors.Wrap(err, "computing bimester report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) cycleDay(ctx echo.Context) error {
	var q DateQuery
	if err := q.Bind(ctx); err != nil {
		return err
	}
	cycleID, err := api.calApi.cycleID(ctx)
	if err != nil {
		return err
	}

	reports, err := api.svc.CycleDay(ctx.Request().Context(), cycleID, q.Date)
	if err != nil {
		return errors.Wrap(err, "computing cycle day reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *attendanceApi) queryStatuses(ctx echo.Context) error {
	catalog, err := api.svc.Catalog(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading catalog")
	}
	return ctx.JSON(http.StatusOK, catalog.Statuses())
}

func (api *attendanceApi) record(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewClassAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassAttendance")
	}

	ca, err := api.svc.Record(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, ca)
}

func (api *attendanceApi) correct(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data attendance.UpdateClassAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassAttendance")
	}

	ca, err := api.svc.Correct(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "correcting attendance")
	}
	return ctx.JSON(http.StatusOK, ca)
}
