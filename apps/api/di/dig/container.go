package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/escuela/apps/api/echo"
	"github.com/trezcool/escuela/apps/api/jobs"
	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
	emailsvc "github.com/trezcool/escuela/services/email"
	logsvc "github.com/trezcool/escuela/services/logger"
	metricsvc "github.com/trezcool/escuela/services/metrics"
	"github.com/trezcool/escuela/storage/database"
	sqlxrepos "github.com/trezcool/escuela/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newCalendarService(
	conf *core.Config,
	repo calendar.Repository,
	validate *validator.Validate,
	logger core.Logger,
	recorder *metricsvc.Recorder,
) *calendar.Service {
	return calendar.NewService(
		repo, validate, logger,
		calendar.WithObserver(recorder),
		calendar.WithMaxSteps(conf.Attendance.MaxNavigationSteps),
	)
}

func newAttendanceService(
	conf *core.Config,
	repo attendance.Repository,
	calSvc *calendar.Service,
	validate *validator.Validate,
	logger core.Logger,
	mailSvc core.EmailService,
	recorder *metricsvc.Recorder,
) (*attendance.Service, error) {
	overrides, err := attendance.LoadCatalogOverridesFile(conf.Attendance.CatalogFile)
	if err != nil {
		return nil, err
	}
	return attendance.NewService(attendance.Deps{
		Repo:      repo,
		Calendars: calSvc,
		Validate:  validate,
		Logger:    logger,
		Mail:      mailSvc,
		Observer:  recorder,
		Overrides: overrides,
		Workers:   conf.Attendance.Workers,
		Digest:    conf.Attendance.DigestRecipients,
	}), nil
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	calSvc *calendar.Service,
	attSvc *attendance.Service,
	validate *validator.Validate,
	translator ut.Translator,
	recorder *metricsvc.Recorder,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		CalendarSvc:   calSvc,
		AttendanceSvc: attSvc,
		Validate:      validate,
		Translator:    translator,
		Metrics:       recorder,
	})
}

// newScheduler returns nil when the daily digest is disabled.
func newScheduler(conf *core.Config, job *jobs.DigestJob) (*cron.Cron, error) {
	if conf.Attendance.DigestSchedule == "" {
		return nil, nil
	}
	return jobs.NewScheduler(conf.Attendance.DigestSchedule, job)
}

func newDigestJob(calSvc *calendar.Service, attSvc *attendance.Service, logger core.Logger, recorder *metricsvc.Recorder) *jobs.DigestJob {
	return jobs.NewDigestJob(calSvc, attSvc, logger, recorder)
}

// New returns a new dependency injection dig.Container
func New(opts ...dig.Option) *dig.Container {
	c := dig.New(opts...)

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(metricsvc.NewRecorder))
	must(c.Provide(sqlxrepos.NewCalendarRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newCalendarService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newDigestJob))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
