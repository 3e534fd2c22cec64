package dummydb

import (
	"sync"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

type (
	// DB is an in-memory database, mostly for tests and demos.
	DB struct {
		calendar   *calendarTables
		attendance *attendanceTables
	}

	calendarTables struct {
		sync.RWMutex
		pkCount   int64
		cycles    map[int64]*calendar.Cycle
		bimesters map[int64]*calendar.Bimester
		weeks     map[int64]*calendar.Week
		holidays  map[int64]*calendar.Holiday
	}

	attendanceTables struct {
		sync.RWMutex
		pkCount          int64
		sections         map[int64]*attendance.Section
		enrollments      map[int64]*attendance.Enrollment
		classAttendances map[int64]*attendance.ClassAttendance
		statuses         map[int64]*attendance.Status
		permissions      []attendance.Permission
		actors           map[int64]*attendance.Actor
	}
)

func Open() (*DB, error) {
	db := &DB{
		calendar: &calendarTables{
			cycles:    make(map[int64]*calendar.Cycle),
			bimesters: make(map[int64]*calendar.Bimester),
			weeks:     make(map[int64]*calendar.Week),
			holidays:  make(map[int64]*calendar.Holiday),
		},
		attendance: &attendanceTables{
			sections:         make(map[int64]*attendance.Section),
			enrollments:      make(map[int64]*attendance.Enrollment),
			classAttendances: make(map[int64]*attendance.ClassAttendance),
			statuses:         make(map[int64]*attendance.Status),
			actors:           make(map[int64]*attendance.Actor),
		},
	}
	return db, nil
}

// nextID returns `id` if set, a new primary key otherwise. Caller must hold the lock.
func nextID(pkCount *int64, id int64) int64 {
	if id > 0 {
		if id > *pkCount {
			*pkCount = id
		}
		return id
	}
	*pkCount++
	return *pkCount
}
