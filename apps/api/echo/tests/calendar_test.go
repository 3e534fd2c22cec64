package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/escuela/apps/api/echo"
	"github.com/trezcool/escuela/core/calendar"
)

func Test_calendarApi_activeCycle(t *testing.T) {
	app := setup(t)

	rec := app.do(httpTest{path: "/v1/calendar/cycles/active"})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, app.calendar.Cycle)}, rec)

	rec = app.do(httpTest{path: "/v1/calendar/cycles"})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, []calendar.Cycle{app.calendar.Cycle})}, rec)
}

func Test_calendarApi_resolve(t *testing.T) {
	app := setup(t)

	tests := []struct {
		name            string
		path            string
		wantCode        int
		wantBimester    int // 0: none
		wantWeek        int // 0: none
		wantHoliday     bool
		wantAllowed     bool
		wantInstruction bool
	}{
		{
			name: "school day", path: "/v1/calendar/resolve?date=2025-03-05", wantCode: http.StatusOK,
			wantBimester: 1, wantWeek: 1, wantAllowed: true, wantInstruction: true,
		},
		{
			name: "holiday", path: "/v1/calendar/resolve?date=2025-04-18", wantCode: http.StatusOK,
			wantBimester: 1, wantWeek: 7, wantHoliday: true, wantAllowed: true,
		},
		{
			name: "recovered holiday", path: "/v1/calendar/resolve?date=2025-05-01", wantCode: http.StatusOK,
			wantBimester: 1, wantWeek: 9, wantHoliday: true, wantAllowed: true, wantInstruction: true,
		},
		{name: "between bimesters", path: "/v1/calendar/resolve?date=2025-05-14", wantCode: http.StatusOK},
		{
			name: "inactive bimester", path: "/v1/calendar/resolve?date=2025-08-12", wantCode: http.StatusOK,
			wantBimester: 3, wantInstruction: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httpTest{path: tt.path})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var res calendar.Resolution
			unmarshall(t, rec, &res)
			if tt.wantBimester == 0 {
				assert.Nil(t, res.Bimester)
			} else if assert.NotNil(t, res.Bimester) {
				assert.Equal(t, tt.wantBimester, res.Bimester.Number)
			}
			if tt.wantWeek == 0 {
				assert.Nil(t, res.Week)
			} else if assert.NotNil(t, res.Week) {
				assert.Equal(t, tt.wantWeek, res.Week.Number)
			}
			assert.Equal(t, tt.wantHoliday, res.Holiday != nil)
			assert.Equal(t, tt.wantAllowed, res.IsAllowed)
			assert.Equal(t, tt.wantInstruction, res.IsInstructional)
		})
	}
}

func Test_calendarApi_resolve_errors(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "invalid date", path: "/v1/calendar/resolve?date=2025-13-01", wantCode: http.StatusBadRequest},
		{name: "invalid cycle", path: "/v1/calendar/resolve?date=2025-03-03&cycle_id=lol", wantCode: http.StatusBadRequest},
		{
			name: "unknown cycle", path: "/v1/calendar/resolve?date=2025-03-03&cycle_id=999", wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: calendar.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_calendarApi_navigate(t *testing.T) {
	app := setup(t)

	date := func(s string) *calendar.Date {
		d := calendar.MustParseDate(s)
		return &d
	}

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantData *NavigateResponse
	}{
		{
			name: "next day", query: "date=2025-03-07&direction=next", wantCode: http.StatusOK,
			wantData: &NavigateResponse{From: calendar.MustParseDate("2025-03-07"), Date: date("2025-03-08"), Found: true},
		},
		{
			name: "next school day skips the weekend", query: "date=2025-03-07&direction=next&school_days=true", wantCode: http.StatusOK,
			wantData: &NavigateResponse{From: calendar.MustParseDate("2025-03-07"), Date: date("2025-03-10"), Found: true},
		},
		{
			name: "next school day skips holidays", query: "date=2025-04-16&school_days=true", wantCode: http.StatusOK,
			wantData: &NavigateResponse{From: calendar.MustParseDate("2025-04-16"), Date: date("2025-04-21"), Found: true},
		},
		{
			name: "previous school day", query: "date=2025-03-10&direction=previous&school_days=true", wantCode: http.StatusOK,
			wantData: &NavigateResponse{From: calendar.MustParseDate("2025-03-10"), Date: date("2025-03-07"), Found: true},
		},
		{
			name: "nothing within the bound", query: "date=2025-05-09&direction=next", wantCode: http.StatusOK,
			wantData: &NavigateResponse{From: calendar.MustParseDate("2025-05-09")},
		},
		{name: "invalid direction", query: "date=2025-03-10&direction=up", wantCode: http.StatusBadRequest},
		{name: "invalid school_days", query: "date=2025-03-10&school_days=lol", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httpTest{path: "/v1/calendar/navigate?" + tt.query})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				var res NavigateResponse
				unmarshall(t, rec, &res)
				assert.Equal(t, *tt.wantData, res)
			}
		})
	}
}
