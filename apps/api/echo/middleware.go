package echoapi

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/attendance"
)

var (
	actorHeader      = "X-User-ID"
	contextActorKey  = "actor"
	contextRequestID = "request_id"
)

// requestIDMiddleware tags every request with an id, the client's if it sent a valid UUID.
func requestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := uuid.Parse(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if err != nil {
				id = uuid.New()
			}
			rid := id.String()
			ctx.Set(contextRequestID, rid)
			ctx.Request().Header.Set(echo.HeaderXRequestID, rid) // for the request logs
			ctx.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(ctx)
		}
	}
}

func requestID(ctx echo.Context) string {
	rid, _ := ctx.Get(contextRequestID).(string)
	return rid
}

// actorMiddleware loads the staff member identified by the X-User-ID header.
// Authentication is done upstream (gateway); only the identity reaches this API.
func actorMiddleware(svc *attendance.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.ParseInt(ctx.Request().Header.Get(actorHeader), 10, 64)
			if err != nil || id <= 0 {
				return errActorRequired
			}
			actor, err := svc.Actor(ctx.Request().Context(), id)
			if err != nil {
				if errors.Is(err, attendance.ErrNotFound) {
					return errUnknownActor
				}
				return errors.Wrap(err, "getting actor")
			}
			ctx.Set(contextActorKey, actor)
			return next(ctx)
		}
	}
}

func contextActor(ctx echo.Context) (attendance.Actor, bool) {
	actor, ok := ctx.Get(contextActorKey).(attendance.Actor)
	return actor, ok
}
