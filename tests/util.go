package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
	dummydb "github.com/trezcool/escuela/storage/database/dummy"
)

// Logger keeps every log entry in memory.
type Logger struct {
	mu      sync.Mutex
	Entries []string // "LEVEL: message"
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, fmt.Sprintf("%s: %s", level, msg))
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// Count returns the number of entries of `level`.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for _, e := range l.Entries {
		if len(e) > len(level) && e[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

var _ core.Logger = (*Logger)(nil) // interface compliance check

// Mailer keeps every sent message in memory.
type Mailer struct {
	mu   sync.Mutex
	Sent []*core.EmailMessage
}

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, messages...)
}

var _ core.EmailService = (*Mailer)(nil) // interface compliance check

func NewValidator() *validator.Validate {
	validate, _ := core.NewValidator()
	return validate
}

// CalendarFixture is the 2025 school year:
//   - bimester 1: 2025-03-03 - 2025-05-09 (active), Monday-Sunday weeks 1..10
//   - bimester 2: 2025-05-19 - 2025-07-25
//   - bimester 3: 2025-08-11 - 2025-10-10
//   - bimester 4: 2025-10-20 - 2025-12-19
//   - holidays: 04-17, 04-18, 05-01 (recovered), 09-15
type CalendarFixture struct {
	Cycle     calendar.Cycle
	Bimesters []calendar.Bimester
	Weeks     []calendar.Week
	Holidays  []calendar.Holiday
}

func SeedCalendar(t *testing.T, repo calendar.Repository) CalendarFixture {
	t.Helper()
	ctx := context.Background()
	d := calendar.MustParseDate

	var (
		fx  CalendarFixture
		err error
	)
	fx.Cycle, err = repo.CreateCycle(ctx, calendar.Cycle{
		Name:      "2025",
		StartDate: d("2025-03-01"),
		EndDate:   d("2025-12-20"),
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("SeedCalendar() failed: %v", err)
	}

	ranges := [][2]string{
		{"2025-03-03", "2025-05-09"},
		{"2025-05-19", "2025-07-25"},
		{"2025-08-11", "2025-10-10"},
		{"2025-10-20", "2025-12-19"},
	}
	for i, r := range ranges {
		b, err := repo.CreateBimester(ctx, calendar.Bimester{
			CycleID:   fx.Cycle.ID,
			Number:    i + 1,
			StartDate: d(r[0]),
			EndDate:   d(r[1]),
			IsActive:  i == 0,
		})
		if err != nil {
			t.Fatalf("SeedCalendar() failed: %v", err)
		}
		fx.Bimesters = append(fx.Bimesters, b)
	}

	for _, w := range calendar.GenerateWeeks(fx.Bimesters[0]) {
		w, err = repo.CreateWeek(ctx, w)
		if err != nil {
			t.Fatalf("SeedCalendar() failed: %v", err)
		}
		fx.Weeks = append(fx.Weeks, w)
	}

	holidays := []calendar.Holiday{
		{BimesterID: fx.Bimesters[0].ID, Date: d("2025-04-17"), Description: "Holy Thursday"},
		{BimesterID: fx.Bimesters[0].ID, Date: d("2025-04-18"), Description: "Good Friday"},
		{BimesterID: fx.Bimesters[0].ID, Date: d("2025-05-01"), Description: "Labour Day", IsRecovered: true},
		{BimesterID: fx.Bimesters[2].ID, Date: d("2025-09-15"), Description: "Local holiday"},
	}
	for _, h := range holidays {
		h, err = repo.CreateHoliday(ctx, h)
		if err != nil {
			t.Fatalf("SeedCalendar() failed: %v", err)
		}
		fx.Holidays = append(fx.Holidays, h)
	}
	return fx
}

// SchoolFixture is one section of two active students (enrollments 1 & 2 of students 10 & 11),
// the default statuses, a teacher allowed to record any status except EXCUSED, and an
// auxiliary allowed to record & correct anything, with notes required for EXCUSED.
type SchoolFixture struct {
	Section     attendance.Section
	Enrollments []attendance.Enrollment
	Statuses    map[string]attendance.Status
	Teacher     attendance.Actor
	Auxiliary   attendance.Actor
}

const (
	RoleTeacher   int64 = 1
	RoleAuxiliary int64 = 2
)

func SeedSchool(db *dummydb.DB, cycleID int64) SchoolFixture {
	fx := SchoolFixture{Statuses: make(map[string]attendance.Status)}

	fx.Section = db.InsertSection(attendance.Section{
		ID:         1,
		CycleID:    cycleID,
		Grade:      "3rd",
		Name:       "A",
		TutorName:  "Ana Tutor",
		TutorEmail: "ana.tutor@escuela.test",
	})
	fx.Enrollments = []attendance.Enrollment{
		db.InsertEnrollment(attendance.Enrollment{ID: 1, StudentID: 10, StudentName: "Alice", SectionID: 1, CycleID: cycleID}),
		db.InsertEnrollment(attendance.Enrollment{ID: 2, StudentID: 11, StudentName: "Bruno", SectionID: 1, CycleID: cycleID}),
	}

	for i, code := range []string{"PRESENT", "TARDY", "EXCUSED", "ABSENT"} {
		s := db.InsertStatus(attendance.Status{
			ID:       int64(100 + i),
			Code:     code,
			Name:     code,
			Order:    i + 1,
			IsActive: true,
		})
		fx.Statuses[code] = s

		db.InsertPermission(attendance.Permission{
			RoleID:    RoleTeacher,
			StatusID:  s.ID,
			CanView:   true,
			CanCreate: code != "EXCUSED",
		})
		db.InsertPermission(attendance.Permission{
			RoleID:        RoleAuxiliary,
			StatusID:      s.ID,
			CanView:       true,
			CanCreate:     true,
			CanModify:     true,
			RequiresNotes: code == "EXCUSED",
		})
	}

	fx.Teacher = db.InsertActor(attendance.Actor{ID: 50, Name: "Tomas Teacher", RoleID: RoleTeacher})
	fx.Auxiliary = db.InsertActor(attendance.Actor{ID: 51, Name: "Ada Auxiliary", RoleID: RoleAuxiliary})
	return fx
}
