package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

type EnrollmentStatus string

const (
	EnrollmentActive      EnrollmentStatus = "ACTIVE"
	EnrollmentTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentWithdrawn   EnrollmentStatus = "WITHDRAWN"
)

// Section is a class group (grade + section letter) of an academic cycle.
type Section struct {
	ID         int64  `json:"id" db:"id"`
	CycleID    int64  `json:"cycle_id" db:"cycle_id"`
	Grade      string `json:"grade" db:"grade"`
	Name       string `json:"name" db:"name"`
	TutorName  string `json:"tutor_name" db:"tutor_name"`
	TutorEmail string `json:"tutor_email" db:"tutor_email"`
}

func (s Section) Label() string {
	return s.Grade + " " + s.Name
}

// Enrollment links a student to a section for a cycle.
type Enrollment struct {
	ID           int64            `json:"id" db:"id"`
	StudentID    int64            `json:"student_id" db:"student_id"`
	StudentName  string           `json:"student_name" db:"student_name"`
	SectionID    int64            `json:"section_id" db:"section_id"`
	CycleID      int64            `json:"cycle_id" db:"cycle_id"`
	Status       EnrollmentStatus `json:"status" db:"status"`
	DateEnrolled calendar.Date    `json:"date_enrolled" db:"date_enrolled"`
}

// ClassAttendance is the attendance of one student to one class on one day.
// Rows are never deleted: corrections go through the audit fields.
type ClassAttendance struct {
	ID                 int64         `json:"id" db:"id"`
	EnrollmentID       int64         `json:"enrollment_id" db:"enrollment_id"`
	Date               calendar.Date `json:"date" db:"date"`
	ScheduleID         null.Int64    `json:"schedule_id" db:"schedule_id"`
	CourseAssignmentID null.Int64    `json:"course_assignment_id" db:"course_assignment_id"`
	StatusID           int64         `json:"status_id" db:"status_id"`
	StatusCode         string        `json:"status" db:"status_code"`
	ArrivalTime        null.String   `json:"arrival_time" db:"arrival_time"` // HH:MM
	Notes              string        `json:"notes" db:"notes"`
	RecordedBy         int64         `json:"recorded_by" db:"recorded_by"`
	RecordedByName     string        `json:"recorded_by_name" db:"recorded_by_name"`
	LastModifiedBy     null.Int64    `json:"last_modified_by" db:"last_modified_by"`
	LastModifiedByName null.String   `json:"last_modified_by_name" db:"last_modified_by_name"`
	LastModifiedAt     null.Time     `json:"last_modified_at" db:"last_modified_at"` // UTC
	ModificationReason string        `json:"modification_reason" db:"modification_reason"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"` // UTC
}

// Status is an entry of the attendance status catalog.
type Status struct {
	ID       int64  `json:"id" db:"id"`
	Code     string `json:"code" db:"code"`
	Name     string `json:"name" db:"name"`
	Order    int    `json:"order" db:"order_index"`
	IsActive bool   `json:"is_active" db:"is_active"`
	Kind     Kind   `json:"kind" db:"-"`

	StoredKind null.String `json:"-" db:"kind"` // kind column, default kind of the code when null
}

// Actor is the staff member recording or correcting attendance.
type Actor struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	RoleID int64  `json:"role_id" db:"role_id"`
}

// DayAttendance is the attendance of one student on one day.
type DayAttendance struct {
	EnrollmentID     int64             `json:"enrollment_id"`
	StudentID        int64             `json:"student_id"`
	StudentName      string            `json:"student_name"`
	Date             calendar.Date     `json:"date"`
	DayStatus        Kind              `json:"day_status"`
	ClassAttendances []ClassAttendance `json:"class_attendances"`
}

type DayReport struct {
	Section       Section             `json:"section"`
	Resolution    calendar.Resolution `json:"calendar"`
	Students      []DayAttendance     `json:"students"`
	WithoutRecord []Enrollment        `json:"students_without_record"`
	Summary       DaySummary          `json:"summary"`
}

type PeriodReport struct {
	Section  Section            `json:"section"`
	Bimester *calendar.Bimester `json:"bimester,omitempty"`
	Week     *calendar.Week     `json:"week,omitempty"`
	Days     []DaySummary       `json:"days"`
	Summary  PeriodSummary      `json:"summary"`
}

type SectionFilter struct {
	CycleID  int64
	Ordering []core.DBOrdering
}

type EnrollmentFilter struct {
	SectionID int64
	CycleID   int64
	Status    EnrollmentStatus // any when empty
}

type ClassAttendanceFilter struct {
	EnrollmentIDs []int64
	From          calendar.Date
	To            calendar.Date
}
