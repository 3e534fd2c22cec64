package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/escuela/core/calendar"
)

type calendarRepository struct {
	db   *calendarTables
	inTx bool
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *DB) calendar.Repository {
	return &calendarRepository{db: db.calendar}
}

// WithinTx runs `fn` and restores the calendar tables if it fails.
// Transactions are not isolated: concurrent writes made meanwhile are lost on rollback.
func (repo *calendarRepository) WithinTx(_ context.Context, fn func(calendar.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}

	snap := repo.db.snapshot()
	if err := fn(&calendarRepository{db: repo.db, inTx: true}); err != nil {
		repo.db.restore(snap)
		return err
	}
	return nil
}

func (repo *calendarRepository) QueryCycles(_ context.Context) ([]calendar.Cycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cycles := make([]calendar.Cycle, 0, len(repo.db.cycles))
	for _, c := range repo.db.cycles {
		cycles = append(cycles, *c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].StartDate.Before(cycles[j].StartDate) })
	return cycles, nil
}

func (repo *calendarRepository) GetCycleByID(_ context.Context, id int64) (calendar.Cycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.cycles[id]; ok {
		return *c, nil
	}
	return calendar.Cycle{}, calendar.ErrNotFound
}

func (repo *calendarRepository) CreateCycle(_ context.Context, cycle calendar.Cycle) (calendar.Cycle, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cycle.ID = nextID(&repo.db.pkCount, cycle.ID)
	repo.db.cycles[cycle.ID] = &cycle
	return cycle, nil
}

func (repo *calendarRepository) QueryBimesters(_ context.Context, cycleID int64) ([]calendar.Bimester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bimesters := make([]calendar.Bimester, 0)
	for _, b := range repo.db.bimesters {
		if b.CycleID == cycleID {
			bimesters = append(bimesters, *b)
		}
	}
	sort.Slice(bimesters, func(i, j int) bool { return bimesters[i].Number < bimesters[j].Number })
	return bimesters, nil
}

func (repo *calendarRepository) GetBimesterByID(_ context.Context, id int64) (calendar.Bimester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.bimesters[id]; ok {
		return *b, nil
	}
	return calendar.Bimester{}, calendar.ErrNotFound
}

func (repo *calendarRepository) CreateBimester(_ context.Context, bimester calendar.Bimester) (calendar.Bimester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	bimester.ID = nextID(&repo.db.pkCount, bimester.ID)
	repo.db.bimesters[bimester.ID] = &bimester
	return bimester, nil
}

func (repo *calendarRepository) QueryWeeks(_ context.Context, bimesterIDs ...int64) ([]calendar.Week, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := idSet(bimesterIDs)
	weeks := make([]calendar.Week, 0)
	for _, w := range repo.db.weeks {
		if ids[w.BimesterID] {
			weeks = append(weeks, *w)
		}
	}
	sort.Slice(weeks, func(i, j int) bool {
		if weeks[i].BimesterID != weeks[j].BimesterID {
			return weeks[i].BimesterID < weeks[j].BimesterID
		}
		return weeks[i].Number < weeks[j].Number
	})
	return weeks, nil
}

func (repo *calendarRepository) GetWeekByID(_ context.Context, id int64) (calendar.Week, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if w, ok := repo.db.weeks[id]; ok {
		return *w, nil
	}
	return calendar.Week{}, calendar.ErrNotFound
}

func (repo *calendarRepository) CreateWeek(_ context.Context, week calendar.Week) (calendar.Week, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	week.ID = nextID(&repo.db.pkCount, week.ID)
	repo.db.weeks[week.ID] = &week
	return week, nil
}

func (repo *calendarRepository) QueryHolidays(_ context.Context, bimesterIDs ...int64) ([]calendar.Holiday, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := idSet(bimesterIDs)
	holidays := make([]calendar.Holiday, 0)
	for _, h := range repo.db.holidays {
		if ids[h.BimesterID] {
			holidays = append(holidays, *h)
		}
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays, nil
}

func (repo *calendarRepository) CreateHoliday(_ context.Context, holiday calendar.Holiday) (calendar.Holiday, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	holiday.ID = nextID(&repo.db.pkCount, holiday.ID)
	repo.db.holidays[holiday.ID] = &holiday
	return holiday, nil
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

type calendarSnapshot struct {
	pkCount   int64
	cycles    map[int64]*calendar.Cycle
	bimesters map[int64]*calendar.Bimester
	weeks     map[int64]*calendar.Week
	holidays  map[int64]*calendar.Holiday
}

func (t *calendarTables) snapshot() calendarSnapshot {
	t.RLock()
	defer t.RUnlock()

	return calendarSnapshot{
		pkCount:   t.pkCount,
		cycles:    copyTable(t.cycles),
		bimesters: copyTable(t.bimesters),
		weeks:     copyTable(t.weeks),
		holidays:  copyTable(t.holidays),
	}
}

func (t *calendarTables) restore(snap calendarSnapshot) {
	t.Lock()
	defer t.Unlock()

	t.pkCount = snap.pkCount
	t.cycles = snap.cycles
	t.bimesters = snap.bimesters
	t.weeks = snap.weeks
	t.holidays = snap.holidays
}

func copyTable[T any](src map[int64]*T) map[int64]*T {
	dst := make(map[int64]*T, len(src))
	for id, row := range src {
		dst[id] = row
	}
	return dst
}
