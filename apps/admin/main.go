package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
	appfs "github.com/trezcool/escuela/fs"
	emailsvc "github.com/trezcool/escuela/services/email"
	logsvc "github.com/trezcool/escuela/services/logger"
	"github.com/trezcool/escuela/storage/database"
	sqlxrepos "github.com/trezcool/escuela/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := setUpDB(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal("setting up database: "+err.Error(), err)
	}

	// set up services
	validate, _ := core.NewValidator()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleServiceMock(conf, logger) // sync: the CLI exits right after sending
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	calSvc := calendar.NewService(sqlxrepos.NewCalendarRepository(db), validate, logger,
		calendar.WithMaxSteps(conf.Attendance.MaxNavigationSteps))
	overrides, err := attendance.LoadCatalogOverridesFile(conf.Attendance.CatalogFile)
	if err != nil {
		logger.Fatal("loading catalog overrides: "+err.Error(), err)
	}
	attSvc := attendance.NewService(attendance.Deps{
		Repo:      sqlxrepos.NewAttendanceRepository(db),
		Calendars: calSvc,
		Validate:  validate,
		Logger:    logger,
		Mail:      mailSvc,
		Overrides: overrides,
		Workers:   conf.Attendance.Workers,
		Digest:    conf.Attendance.DigestRecipients,
	})

	// start CLI
	cli := commandLine{
		db:     db,
		calSvc: calSvc,
		attSvc: attSvc,
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
