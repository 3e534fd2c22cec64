package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const (
	sectionColumns = "id, cycle_id, grade, name, tutor_name, tutor_email"

	enrollmentSelect = `
		SELECT e.id, e.student_id, s.first_name || ' ' || s.last_name AS student_name,
		       e.section_id, e.cycle_id, e.status, e.date_enrolled
		FROM enrollment e
		JOIN student s ON s.id = e.student_id`

	classAttendanceSelect = `
		SELECT ca.id, ca.enrollment_id, ca.date, ca.schedule_id, ca.course_assignment_id,
		       ca.status_id, st.code AS status_code, to_char(ca.arrival_time, 'HH24:MI') AS arrival_time,
		       ca.notes, ca.recorded_by, rb.name AS recorded_by_name,
		       ca.last_modified_by, lm.name AS last_modified_by_name, ca.last_modified_at,
		       ca.modification_reason, ca.created_at
		FROM student_class_attendance ca
		JOIN attendance_status st ON st.id = ca.status_id
		JOIN staff rb ON rb.id = ca.recorded_by
		LEFT JOIN staff lm ON lm.id = ca.last_modified_by`
)

// orderable section fields: {field: column}
var sectionOrdering = map[string]string{
	"grade": "grade",
	"name":  "name",
	"tutor": "tutor_name",
}

func (repo *attendanceRepository) GetSectionByID(ctx context.Context, id int64) (attendance.Section, error) {
	var s attendance.Section
	err := repo.db.GetContext(ctx, &s, "SELECT "+sectionColumns+" FROM section WHERE id = $1", id)
	return s, trapNoRowsErr(err, attendance.ErrNotFound)
}

func (repo *attendanceRepository) QuerySections(ctx context.Context, filter attendance.SectionFilter) ([]attendance.Section, error) {
	q := "SELECT " + sectionColumns + " FROM section"
	var args []interface{}
	if filter.CycleID != 0 {
		q += " WHERE cycle_id = $1"
		args = append(args, filter.CycleID)
	}
	q += " ORDER BY " + core.OrderBy(filter.Ordering, sectionOrdering, "grade ASC, name ASC") + ", id"

	sections := make([]attendance.Section, 0)
	err := repo.db.SelectContext(ctx, &sections, q, args...)
	return sections, errors.Wrap(err, "selecting sections")
}

func (repo *attendanceRepository) GetEnrollmentByID(ctx context.Context, id int64) (attendance.Enrollment, error) {
	var e attendance.Enrollment
	err := repo.db.GetContext(ctx, &e, enrollmentSelect+" WHERE e.id = $1", id)
	return e, trapNoRowsErr(err, attendance.ErrNotFound)
}

func (repo *attendanceRepository) QueryEnrollments(ctx context.Context, filter attendance.EnrollmentFilter) ([]attendance.Enrollment, error) {
	conds := []string{"TRUE"}
	var args []interface{}
	if filter.SectionID != 0 {
		conds = append(conds, "e.section_id = ?")
		args = append(args, filter.SectionID)
	}
	if filter.CycleID != 0 {
		conds = append(conds, "e.cycle_id = ?")
		args = append(args, filter.CycleID)
	}
	if filter.Status != "" {
		conds = append(conds, "e.status = ?")
		args = append(args, filter.Status)
	}
	q := repo.db.Rebind(enrollmentSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY student_name, e.id")

	enrollments := make([]attendance.Enrollment, 0)
	err := repo.db.SelectContext(ctx, &enrollments, q, args...)
	return enrollments, errors.Wrap(err, "selecting enrollments")
}

func (repo *attendanceRepository) GetClassAttendanceByID(ctx context.Context, id int64) (attendance.ClassAttendance, error) {
	var ca attendance.ClassAttendance
	err := repo.db.GetContext(ctx, &ca, classAttendanceSelect+" WHERE ca.id = $1", id)
	return ca, trapNoRowsErr(err, attendance.ErrNotFound)
}

func (repo *attendanceRepository) QueryClassAttendances(ctx context.Context, filter attendance.ClassAttendanceFilter) ([]attendance.ClassAttendance, error) {
	conds := []string{"TRUE"}
	var args []interface{}
	if len(filter.EnrollmentIDs) > 0 {
		conds = append(conds, "ca.enrollment_id IN (?)")
		args = append(args, filter.EnrollmentIDs)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "ca.date >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "ca.date <= ?")
		args = append(args, filter.To)
	}
	q, args, err := in(repo.db, classAttendanceSelect+" WHERE "+strings.Join(conds, " AND ")+" ORDER BY ca.id", args...)
	if err != nil {
		return nil, err
	}

	records := make([]attendance.ClassAttendance, 0)
	err = repo.db.SelectContext(ctx, &records, q, args...)
	return records, errors.Wrap(err, "selecting class attendances")
}

func (repo *attendanceRepository) CreateClassAttendance(ctx context.Context, ca attendance.ClassAttendance) (attendance.ClassAttendance, error) {
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO student_class_attendance (
			enrollment_id, date, schedule_id, course_assignment_id, status_id, arrival_time, notes,
			recorded_by, created_at
		)
		VALUES (
			:enrollment_id, :date, :schedule_id, :course_assignment_id, :status_id, :arrival_time, :notes,
			:recorded_by, :created_at
		)
		RETURNING id`, ca)
	if err != nil {
		return attendance.ClassAttendance{}, errors.Wrap(err, "inserting class attendance")
	}
	ca.ID, err = returningID(rows)
	return ca, err
}

func (repo *attendanceRepository) UpdateClassAttendance(ctx context.Context, ca attendance.ClassAttendance) (attendance.ClassAttendance, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE student_class_attendance
		SET status_id = :status_id,
		    arrival_time = :arrival_time,
		    notes = :notes,
		    last_modified_by = :last_modified_by,
		    last_modified_at = :last_modified_at,
		    modification_reason = :modification_reason
		WHERE id = :id`, ca)
	if err != nil {
		return attendance.ClassAttendance{}, errors.Wrap(err, "updating class attendance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.ClassAttendance{}, errors.Wrap(err, "updating class attendance")
	}
	if n == 0 {
		return attendance.ClassAttendance{}, attendance.ErrNotFound
	}
	return ca, nil
}

func (repo *attendanceRepository) QueryStatuses(ctx context.Context) ([]attendance.Status, error) {
	statuses := make([]attendance.Status, 0)
	err := repo.db.SelectContext(ctx, &statuses,
		"SELECT id, code, name, order_index, is_active, kind FROM attendance_status ORDER BY order_index, id")
	return statuses, errors.Wrap(err, "selecting statuses")
}

func (repo *attendanceRepository) QueryPermissions(ctx context.Context, roleID int64) (attendance.Permissions, error) {
	perms := make(attendance.Permissions, 0)
	err := repo.db.SelectContext(ctx, &perms, `
		SELECT role_id, status_id, can_view, can_create, can_modify, can_delete, requires_notes
		FROM role_attendance_permission
		WHERE role_id = $1`, roleID)
	return perms, errors.Wrap(err, "selecting permissions")
}

func (repo *attendanceRepository) GetActorByID(ctx context.Context, id int64) (attendance.Actor, error) {
	var a attendance.Actor
	err := repo.db.GetContext(ctx, &a, "SELECT id, name, role_id FROM staff WHERE id = $1", id)
	return a, trapNoRowsErr(err, attendance.ErrNotFound)
}
