package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

func (app *testApp) record(t *testing.T, enrollmentID int64, date, code string, schedule int64) attendance.ClassAttendance {
	t.Helper()

	status := app.school.Statuses[code]
	ca, err := app.repo.CreateClassAttendance(context.Background(), attendance.ClassAttendance{
		EnrollmentID:   enrollmentID,
		Date:           calendar.MustParseDate(date),
		ScheduleID:     null.Int64From(schedule),
		StatusID:       status.ID,
		StatusCode:     status.Code,
		RecordedBy:     app.school.Teacher.ID,
		RecordedByName: app.school.Teacher.Name,
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	return ca
}

func Test_attendanceApi_sections(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "list", path: "/v1/sections", wantCode: http.StatusOK, wantData: marshallObj(t, []attendance.Section{app.school.Section})},
		{name: "list ordered", path: "/v1/sections?ordering=-grade,name", wantCode: http.StatusOK, wantData: marshallObj(t, []attendance.Section{app.school.Section})},
		{name: "list (other cycle)", path: "/v1/sections?cycle_id=999", wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "retrieve", path: "/v1/sections/1", wantCode: http.StatusOK, wantData: marshallObj(t, app.school.Section)},
		{
			name: "unknown", path: "/v1/sections/999", wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: attendance.ErrNotFound.Error()}),
		},
		{name: "invalid id", path: "/v1/sections/lol", wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

// Student 10 is absent to one class and present to the other; student 11 has no record.
func Test_attendanceApi_sectionDay(t *testing.T) {
	app := setup(t)
	app.record(t, 1, "2025-03-03", "ABSENT", 1)
	app.record(t, 1, "2025-03-03", "PRESENT", 2)

	rec := app.do(httpTest{path: "/v1/sections/1/attendance/day?date=2025-03-03"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report attendance.DayReport
	unmarshall(t, rec, &report)

	require.Len(t, report.Students, 1)
	assert.Equal(t, int64(10), report.Students[0].StudentID)
	assert.Equal(t, attendance.KindAbsent, report.Students[0].DayStatus)
	require.Len(t, report.WithoutRecord, 1)
	assert.Equal(t, int64(11), report.WithoutRecord[0].StudentID)
	assert.Equal(t, attendance.DaySummary{
		Date:           calendar.MustParseDate("2025-03-03"),
		Total:          2,
		Absent:         2,
		WithoutRecord:  1,
		AttendanceRate: 0,
	}, report.Summary)
	require.NotNil(t, report.Resolution.Week)
	assert.Equal(t, 1, report.Resolution.Week.Number)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func Test_attendanceApi_periods(t *testing.T) {
	app := setup(t)
	app.record(t, 1, "2025-03-03", "ABSENT", 1)
	app.record(t, 1, "2025-03-04", "PRESENT", 1)
	app.record(t, 2, "2025-03-04", "TARDY", 1)
	app.record(t, 2, "2025-03-10", "PRESENT", 1)

	week1 := app.calendar.Weeks[0]
	bim1 := app.calendar.Bimesters[0]

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantDates int
		wantRate  float64
	}{
		{name: "week", path: fmt.Sprintf("/v1/sections/1/attendance/weeks/%d", week1.ID), wantCode: http.StatusOK, wantDates: 2, wantRate: 50},
		{name: "bimester", path: fmt.Sprintf("/v1/sections/1/attendance/bimesters/%d", bim1.ID), wantCode: http.StatusOK, wantDates: 3, wantRate: 50},
		{name: "range", path: "/v1/sections/1/attendance?from=2025-03-04&to=2025-03-10", wantCode: http.StatusOK, wantDates: 2, wantRate: 75},
		{name: "empty range", path: "/v1/sections/1/attendance?from=2025-04-01&to=2025-04-02", wantCode: http.StatusOK},
		{name: "inverted range", path: "/v1/sections/1/attendance?from=2025-03-10&to=2025-03-04", wantCode: http.StatusBadRequest},
		{name: "missing range", path: "/v1/sections/1/attendance?from=2025-03-10", wantCode: http.StatusBadRequest},
		{name: "unknown week", path: "/v1/sections/1/attendance/weeks/999", wantCode: http.StatusNotFound},
		{name: "unknown bimester", path: "/v1/sections/1/attendance/bimesters/999", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httpTest{path: tt.path})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var report attendance.PeriodReport
			unmarshall(t, rec, &report)
			assert.Equal(t, tt.wantDates, report.Summary.Dates)
			assert.Equal(t, tt.wantRate, report.Summary.AttendanceRate)
			assert.Len(t, report.Days, tt.wantDates)
		})
	}
}

func Test_attendanceApi_cycleDay(t *testing.T) {
	app := setup(t)
	app.record(t, 1, "2025-03-05", "PRESENT", 1)
	app.record(t, 2, "2025-03-05", "TARDY", 1)

	rec := app.do(httpTest{path: "/v1/attendance/day?date=2025-03-05"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reports []attendance.DayReport
	unmarshall(t, rec, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, 100.0, reports[0].Summary.AttendanceRate)
}

func Test_attendanceApi_statuses(t *testing.T) {
	app := setup(t)

	rec := app.do(httpTest{path: "/v1/attendance/statuses"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var statuses []attendance.Status
	unmarshall(t, rec, &statuses)
	require.Len(t, statuses, 4)
	assert.Equal(t, "PRESENT", statuses[0].Code)
	assert.Equal(t, attendance.KindAbsent, statuses[3].Kind)
}

func Test_attendanceApi_record(t *testing.T) {
	app := setup(t)
	teacher := app.school.Teacher.ID

	body := func(enrollment int64, date, status string, schedule int64, notes ...string) []byte {
		data := map[string]interface{}{
			"enrollment_id": enrollment,
			"date":          date,
			"status":        status,
			"schedule_id":   schedule,
		}
		if len(notes) > 0 {
			data["notes"] = notes[0]
		}
		return marshallObj(t, data)
	}

	tests := []httpTest{
		{
			name: "actor required", body: body(1, "2025-03-05", "PRESENT", 1),
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, httpErr{Error: "actor not identified"}),
		},
		{
			name: "invalid actor id", body: body(1, "2025-03-05", "PRESENT", 1), actor: -1,
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, httpErr{Error: "actor not identified"}),
		},
		{
			name: "unknown actor", body: body(1, "2025-03-05", "PRESENT", 1), actor: 999,
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, httpErr{Error: "unknown actor"}),
		},
		{
			name: "status required", body: body(1, "2025-03-05", "", 1), actor: teacher,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"status": "this field is required"}`),
		},
		{
			name: "unknown status", body: body(1, "2025-03-05", "LOST", 1), actor: teacher,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"status": "unknown attendance status"}`),
		},
		{
			name: "status not allowed", body: body(1, "2025-03-05", "EXCUSED", 1, "doctor"), actor: teacher,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: attendance.ErrPermissionDenied.Error()}),
		},
		{
			name: "weekend", body: body(1, "2025-03-08", "PRESENT", 1), actor: teacher,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"date": "no classes on weekends"}`),
		},
		{
			name: "holiday", body: body(1, "2025-04-18", "PRESENT", 1), actor: teacher,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"date": "date is a holiday"}`),
		},
		{
			name: "inactive bimester", body: body(1, "2025-08-12", "PRESENT", 1), actor: teacher,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"date": "date is outside the active school period"}`),
		},
		{name: "recovered holiday", body: body(1, "2025-05-01", "present", 1), actor: teacher, wantCode: http.StatusCreated},
		{name: "ok", body: body(1, "2025-03-05", "TARDY", 1), actor: teacher, wantCode: http.StatusCreated},
		{name: "other class", body: body(1, "2025-03-05", "PRESENT", 2), actor: teacher, wantCode: http.StatusCreated},
		{
			name: "duplicate", body: body(1, "2025-03-05", "ABSENT", 1), actor: teacher,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: attendance.ErrDuplicateRecord.Error()}),
		},
		{
			name: "notes required", body: body(2, "2025-03-05", "EXCUSED", 1), actor: app.school.Auxiliary.ID,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"notes": "notes are required for status EXCUSED"}`),
		},
		{name: "excused", body: body(2, "2025-03-05", "EXCUSED", 1, "doctor"), actor: app.school.Auxiliary.ID, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/attendance"
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	rec := app.do(httpTest{path: "/v1/sections/1/attendance/day?date=2025-03-05"})
	var report attendance.DayReport
	unmarshall(t, rec, &report)
	require.Len(t, report.Students, 2)
	assert.Equal(t, attendance.KindTardy, report.Students[0].DayStatus)
	assert.Equal(t, attendance.KindExcused, report.Students[1].DayStatus)
}

func Test_attendanceApi_correct(t *testing.T) {
	app := setup(t)
	ca := app.record(t, 1, "2025-03-05", "ABSENT", 1)
	path := fmt.Sprintf("/v1/attendance/%d", ca.ID)
	aux := app.school.Auxiliary.ID

	tests := []httpTest{
		{
			name: "reason required", path: path, actor: aux, body: []byte(`{"status": "EXCUSED", "notes": "doctor"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"modification_reason": "this field is required"}`),
		},
		{
			name: "teacher cannot modify", path: path, actor: app.school.Teacher.ID,
			body:     []byte(`{"status": "PRESENT", "modification_reason": "late bus"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name: "notes required", path: path, actor: aux, body: []byte(`{"status": "EXCUSED", "modification_reason": "note received"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown", path: "/v1/attendance/999", actor: aux,
			body:     []byte(`{"status": "PRESENT", "modification_reason": "late bus"}`),
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	rec := app.do(httpTest{
		method: http.MethodPut, path: path, actor: aux,
		body: []byte(`{"status": "excused", "notes": "doctor", "modification_reason": "note received"}`),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated attendance.ClassAttendance
	unmarshall(t, rec, &updated)
	assert.Equal(t, "EXCUSED", updated.StatusCode)
	assert.Equal(t, "doctor", updated.Notes)
	assert.Equal(t, null.Int64From(aux), updated.LastModifiedBy)
	assert.Equal(t, "note received", updated.ModificationReason)
	assert.True(t, updated.LastModifiedAt.Valid)
	assert.Equal(t, app.school.Teacher.ID, updated.RecordedBy) // untouched
}
