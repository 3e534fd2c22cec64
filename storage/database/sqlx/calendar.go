package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/calendar"
)

type calendarRepository struct {
	db  *sqlx.DB        // nil inside a transaction
	ext sqlx.ExtContext // db or the current *sqlx.Tx
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *sqlx.DB) calendar.Repository {
	return &calendarRepository{db: db, ext: db}
}

// WithinTx runs `fn` with a repository bound to a new transaction, committed when `fn` succeeds.
// Nested calls join the current transaction.
func (repo *calendarRepository) WithinTx(ctx context.Context, fn func(calendar.Repository) error) error {
	if repo.db == nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&calendarRepository{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

const (
	cycleColumns    = "id, name, start_date, end_date, is_active, is_closed"
	bimesterColumns = "id, cycle_id, number, start_date, end_date, is_active, weeks_count"
	weekColumns     = "id, bimester_id, number, start_date, end_date"
	holidayColumns  = "id, bimester_id, date, description, is_recovered"
)

func (repo *calendarRepository) QueryCycles(ctx context.Context) ([]calendar.Cycle, error) {
	cycles := make([]calendar.Cycle, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &cycles, "SELECT "+cycleColumns+" FROM academic_cycle ORDER BY start_date")
	return cycles, errors.Wrap(err, "selecting cycles")
}

func (repo *calendarRepository) GetCycleByID(ctx context.Context, id int64) (calendar.Cycle, error) {
	var c calendar.Cycle
	err := sqlx.GetContext(ctx, repo.ext, &c, "SELECT "+cycleColumns+" FROM academic_cycle WHERE id = $1", id)
	return c, trapNoRowsErr(err, calendar.ErrNotFound)
}

func (repo *calendarRepository) CreateCycle(ctx context.Context, c calendar.Cycle) (calendar.Cycle, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.ext, `
		INSERT INTO academic_cycle (name, start_date, end_date, is_active, is_closed)
		VALUES (:name, :start_date, :end_date, :is_active, :is_closed)
		RETURNING id`, c)
	if err != nil {
		return calendar.Cycle{}, errors.Wrap(err, "inserting cycle")
	}
	c.ID, err = returningID(rows)
	return c, err
}

func (repo *calendarRepository) QueryBimesters(ctx context.Context, cycleID int64) ([]calendar.Bimester, error) {
	bimesters := make([]calendar.Bimester, 0)
	err := sqlx.SelectContext(ctx, repo.ext, &bimesters,
		"SELECT "+bimesterColumns+" FROM bimester WHERE cycle_id = $1 ORDER BY number", cycleID)
	return bimesters, errors.Wrap(err, "selecting bimesters")
}

func (repo *calendarRepository) GetBimesterByID(ctx context.Context, id int64) (calendar.Bimester, error) {
	var b calendar.Bimester
	err := sqlx.GetContext(ctx, repo.ext, &b, "SELECT "+bimesterColumns+" FROM bimester WHERE id = $1", id)
	return b, trapNoRowsErr(err, calendar.ErrNotFound)
}

func (repo *calendarRepository) CreateBimester(ctx context.Context, b calendar.Bimester) (calendar.Bimester, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.ext, `
		INSERT INTO bimester (cycle_id, number, start_date, end_date, is_active, weeks_count)
		VALUES (:cycle_id, :number, :start_date, :end_date, :is_active, :weeks_count)
		RETURNING id`, b)
	if err != nil {
		return calendar.Bimester{}, errors.Wrap(err, "inserting bimester")
	}
	b.ID, err = returningID(rows)
	return b, err
}

func (repo *calendarRepository) QueryWeeks(ctx context.Context, bimesterIDs ...int64) ([]calendar.Week, error) {
	weeks := make([]calendar.Week, 0)
	if len(bimesterIDs) == 0 {
		return weeks, nil
	}
	q, args, err := in(repo.ext,
		"SELECT "+weekColumns+" FROM academic_week WHERE bimester_id IN (?) ORDER BY bimester_id, number", bimesterIDs)
	if err != nil {
		return nil, err
	}
	err = sqlx.SelectContext(ctx, repo.ext, &weeks, q, args...)
	return weeks, errors.Wrap(err, "selecting weeks")
}

func (repo *calendarRepository) GetWeekByID(ctx context.Context, id int64) (calendar.Week, error) {
	var w calendar.Week
	err := sqlx.GetContext(ctx, repo.ext, &w, "SELECT "+weekColumns+" FROM academic_week WHERE id = $1", id)
	return w, trapNoRowsErr(err, calendar.ErrNotFound)
}

func (repo *calendarRepository) CreateWeek(ctx context.Context, w calendar.Week) (calendar.Week, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.ext, `
		INSERT INTO academic_week (bimester_id, number, start_date, end_date)
		VALUES (:bimester_id, :number, :start_date, :end_date)
		RETURNING id`, w)
	if err != nil {
		return calendar.Week{}, errors.Wrap(err, "inserting week")
	}
	w.ID, err = returningID(rows)
	return w, err
}

func (repo *calendarRepository) QueryHolidays(ctx context.Context, bimesterIDs ...int64) ([]calendar.Holiday, error) {
	holidays := make([]calendar.Holiday, 0)
	if len(bimesterIDs) == 0 {
		return holidays, nil
	}
	q, args, err := in(repo.ext,
		"SELECT "+holidayColumns+" FROM holiday WHERE bimester_id IN (?) ORDER BY date, id", bimesterIDs)
	if err != nil {
		return nil, err
	}
	err = sqlx.SelectContext(ctx, repo.ext, &holidays, q, args...)
	return holidays, errors.Wrap(err, "selecting holidays")
}

func (repo *calendarRepository) CreateHoliday(ctx context.Context, h calendar.Holiday) (calendar.Holiday, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.ext, `
		INSERT INTO holiday (bimester_id, date, description, is_recovered)
		VALUES (:bimester_id, :date, :description, :is_recovered)
		RETURNING id`, h)
	if err != nil {
		return calendar.Holiday{}, errors.Wrap(err, "inserting holiday")
	}
	h.ID, err = returningID(rows)
	return h, err
}

// returningID reads the id of an `INSERT ... RETURNING id` and closes the rows.
func returningID(rows *sqlx.Rows) (int64, error) {
	defer func() { _ = rows.Close() }()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, errors.Wrap(err, "scanning id")
		}
	}
	return id, errors.Wrap(rows.Err(), "reading id")
}
