package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTables
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) GetSectionByID(_ context.Context, id int64) (attendance.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.sections[id]; ok {
		return *s, nil
	}
	return attendance.Section{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QuerySections(_ context.Context, filter attendance.SectionFilter) ([]attendance.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sections := make([]attendance.Section, 0, len(repo.db.sections))
	for _, s := range repo.db.sections {
		if filter.CycleID == 0 || s.CycleID == filter.CycleID {
			sections = append(sections, *s)
		}
	}
	sortSections(sections, filter.Ordering)
	return sections, nil
}

func sortSections(sections []attendance.Section, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "grade", Ascending: true}, {Field: "name", Ascending: true}}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		for _, o := range ordering {
			var a, b string
			switch o.Field {
			case "grade":
				a, b = sections[i].Grade, sections[j].Grade
			case "name":
				a, b = sections[i].Name, sections[j].Name
			case "tutor":
				a, b = sections[i].TutorName, sections[j].TutorName
			default:
				continue
			}
			if a != b {
				if o.Ascending {
					return a < b
				}
				return a > b
			}
		}
		return sections[i].ID < sections[j].ID
	})
}

func (repo *attendanceRepository) GetEnrollmentByID(_ context.Context, id int64) (attendance.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.enrollments[id]; ok {
		return *e, nil
	}
	return attendance.Enrollment{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryEnrollments(_ context.Context, filter attendance.EnrollmentFilter) ([]attendance.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]attendance.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if filter.SectionID != 0 && e.SectionID != filter.SectionID {
			continue
		}
		if filter.CycleID != 0 && e.CycleID != filter.CycleID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		enrollments = append(enrollments, *e)
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].StudentName != enrollments[j].StudentName {
			return enrollments[i].StudentName < enrollments[j].StudentName
		}
		return enrollments[i].ID < enrollments[j].ID
	})
	return enrollments, nil
}

func (repo *attendanceRepository) GetClassAttendanceByID(_ context.Context, id int64) (attendance.ClassAttendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ca, ok := repo.db.classAttendances[id]; ok {
		return *ca, nil
	}
	return attendance.ClassAttendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryClassAttendances(_ context.Context, filter attendance.ClassAttendanceFilter) ([]attendance.ClassAttendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := idSet(filter.EnrollmentIDs)
	records := make([]attendance.ClassAttendance, 0)
	for _, ca := range repo.db.classAttendances {
		if len(ids) > 0 && !ids[ca.EnrollmentID] {
			continue
		}
		if !filter.From.IsZero() && ca.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && ca.Date.After(filter.To) {
			continue
		}
		records = append(records, *ca)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (repo *attendanceRepository) CreateClassAttendance(_ context.Context, ca attendance.ClassAttendance) (attendance.ClassAttendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ca.ID = nextID(&repo.db.pkCount, ca.ID)
	repo.db.classAttendances[ca.ID] = &ca
	return ca, nil
}

func (repo *attendanceRepository) UpdateClassAttendance(_ context.Context, ca attendance.ClassAttendance) (attendance.ClassAttendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classAttendances[ca.ID]; !ok {
		return attendance.ClassAttendance{}, attendance.ErrNotFound
	}
	repo.db.classAttendances[ca.ID] = &ca
	return ca, nil
}

func (repo *attendanceRepository) QueryStatuses(_ context.Context) ([]attendance.Status, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	statuses := make([]attendance.Status, 0, len(repo.db.statuses))
	for _, s := range repo.db.statuses {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses, nil
}

func (repo *attendanceRepository) QueryPermissions(_ context.Context, roleID int64) (attendance.Permissions, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	perms := make(attendance.Permissions, 0)
	for _, p := range repo.db.permissions {
		if p.RoleID == roleID {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (repo *attendanceRepository) GetActorByID(_ context.Context, id int64) (attendance.Actor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.actors[id]; ok {
		return *a, nil
	}
	return attendance.Actor{}, attendance.ErrNotFound
}

// seeding helpers: sections, rosters, statuses and staff are managed outside this module.

func (db *DB) InsertSection(s attendance.Section) attendance.Section {
	db.attendance.Lock()
	defer db.attendance.Unlock()

	s.ID = nextID(&db.attendance.pkCount, s.ID)
	db.attendance.sections[s.ID] = &s
	return s
}

func (db *DB) InsertEnrollment(e attendance.Enrollment) attendance.Enrollment {
	db.attendance.Lock()
	defer db.attendance.Unlock()

	if e.Status == "" {
		e.Status = attendance.EnrollmentActive
	}
	e.ID = nextID(&db.attendance.pkCount, e.ID)
	db.attendance.enrollments[e.ID] = &e
	return e
}

func (db *DB) InsertStatus(s attendance.Status) attendance.Status {
	db.attendance.Lock()
	defer db.attendance.Unlock()

	s.Code = strings.ToUpper(s.Code)
	s.ID = nextID(&db.attendance.pkCount, s.ID)
	db.attendance.statuses[s.ID] = &s
	return s
}

func (db *DB) InsertPermission(p attendance.Permission) {
	db.attendance.Lock()
	defer db.attendance.Unlock()

	db.attendance.permissions = append(db.attendance.permissions, p)
}

func (db *DB) InsertActor(a attendance.Actor) attendance.Actor {
	db.attendance.Lock()
	defer db.attendance.Unlock()

	a.ID = nextID(&db.attendance.pkCount, a.ID)
	db.attendance.actors[a.ID] = &a
	return a
}
