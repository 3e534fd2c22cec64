package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
	metricsvc "github.com/trezcool/escuela/services/metrics"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		CalendarSvc   *calendar.Service
		AttendanceSvc *attendance.Service
		Validate      *validator.Validate
		Translator    ut.Translator
		Metrics       *metricsvc.Recorder // optional
	}

	Server struct {
		*http.Server
		app        *echo.Echo
		deps       ServerDeps
		errors     chan error
		shutdown   chan os.Signal
		reqLogging bool
	}
)

// NewServer returns the API Server. Request logs are disabled in TEST mode.
func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:        echo.New(),
		deps:       deps,
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
		reqLogging: !deps.Conf.TestMode,
	}
	s.Server = &http.Server{
		Addr:         deps.Conf.Server.Address,
		Handler:      s.app,
		ReadTimeout:  deps.Conf.Server.ReadTimeout,
		WriteTimeout: deps.Conf.Server.WriteTimeout,
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware())
	if s.reqLogging {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${id} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	actor := actorMiddleware(s.deps.AttendanceSvc)

	registerCalendarAPI(v1, s.deps.CalendarSvc)
	registerAttendanceAPI(v1, actor, s.deps.AttendanceSvc, s.deps.CalendarSvc)
}

func (s *Server) Start() {
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the errors preventing the server from serving.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT & SIGTERM, and the shutdown requested by the handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.Server.Shutdown(ctx)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
