package calendar_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
	dummydb "github.com/trezcool/escuela/storage/database/dummy"
	testutil "github.com/trezcool/escuela/tests"
)

func newTestService(t *testing.T) (*calendar.Service, calendar.Repository, *testutil.Logger) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewCalendarRepository(db)
	logger := &testutil.Logger{}
	return calendar.NewService(repo, testutil.NewValidator(), logger), repo, logger
}

const year2026 = `
cycle:
  name: "2026"
  start_date: 2026-03-02
  end_date: 2026-12-18
  is_active: true
bimesters:
  - number: 1
    start_date: 2026-03-02
    end_date: 2026-05-08
    is_active: true
    holidays:
      - date: 2026-04-02
        description: Holy Thursday
      - date: 2026-05-01
        description: Labour Day
        is_recovered: true
  - number: 2
    start_date: 2026-05-18
    end_date: 2026-07-24
    weeks:
      - number: 1
        start_date: 2026-05-18
        end_date: 2026-05-22
      - number: 2
        start_date: 2026-05-25
        end_date: 2026-05-29
`

func TestService_Import(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	def, err := calendar.ParseYearDefinition(strings.NewReader(year2026))
	require.NoError(t, err)

	cycle, err := svc.Import(ctx, def)
	require.NoError(t, err)
	assert.NotZero(t, cycle.ID)
	assert.Equal(t, "2026", cycle.Name)
	assert.True(t, cycle.IsActive)

	cal, err := svc.LoadActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, cycle.ID, cal.Cycle().ID)

	bimesters := cal.Bimesters()
	require.Len(t, bimesters, 2)
	b1, b2 := bimesters[0], bimesters[1]
	assert.Equal(t, 10, b1.WeeksCount)
	assert.Len(t, cal.Weeks(b1.ID), 10)
	assert.Equal(t, 2, b2.WeeksCount)
	assert.Len(t, cal.Weeks(b2.ID), 2)

	active, ok := cal.ActiveBimester()
	require.True(t, ok)
	assert.Equal(t, b1.ID, active.ID)

	assert.True(t, cal.IsHoliday(b1.ID, calendar.MustParseDate("2026-04-02")))
	assert.False(t, cal.IsInstructionalDay(calendar.MustParseDate("2026-04-02")))
	assert.True(t, cal.IsInstructionalDay(calendar.MustParseDate("2026-05-01")))

	// weeks of bimester 2 only cover 2 weeks
	w, err := cal.ResolveWeek(b2.ID, calendar.MustParseDate("2026-05-27"))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Number)
	_, err = cal.ResolveWeek(b2.ID, calendar.MustParseDate("2026-06-10"))
	assert.True(t, calendar.IsGap(err))
}

func TestService_Import_invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "holiday outside its bimester",
			yaml:    strings.Replace(year2026, "2026-04-02", "2026-05-12", 1),
			wantErr: calendar.ErrOutOfRange,
		},
		{
			name:    "bimester outside the cycle",
			yaml:    strings.Replace(year2026, "end_date: 2026-07-24", "end_date: 2027-01-10", 1),
			wantErr: calendar.ErrOutOfRange,
		},
		{
			name:    "overlapping weeks",
			yaml:    strings.Replace(year2026, "start_date: 2026-05-25", "start_date: 2026-05-21", 1),
			wantErr: calendar.ErrOverlap,
		},
		{
			name:    "inverted cycle",
			yaml:    strings.Replace(year2026, "end_date: 2026-12-18", "end_date: 2025-12-18", 1),
			wantErr: calendar.ErrInvalidRange,
		},
		{
			name:    "overlapping bimesters",
			yaml:    strings.Replace(year2026, "end_date: 2026-05-08", "end_date: 2026-05-19", 1),
			wantErr: calendar.ErrBimesterOverlap,
		},
		{
			name:    "duplicate bimester",
			yaml:    strings.Replace(year2026, "- number: 2\n    start_date: 2026-05-18", "- number: 1\n    start_date: 2026-05-18", 1),
			wantErr: calendar.ErrDuplicateBimester,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			ctx := context.Background()

			def, err := calendar.ParseYearDefinition(strings.NewReader(tt.yaml))
			require.NoError(t, err)

			_, err = svc.Import(ctx, def)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, core.IsValidationError(err))

			// nothing was created
			cycles, err := svc.QueryCycles(ctx)
			require.NoError(t, err)
			assert.Empty(t, cycles)
		})
	}

	_, err := calendar.ParseYearDefinition(strings.NewReader("cycle:\n  name: x\n  holidays: []\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

// failingHolidays fails every holiday insert, inside or outside a transaction.
type failingHolidays struct {
	calendar.Repository
}

func (repo failingHolidays) WithinTx(ctx context.Context, fn func(calendar.Repository) error) error {
	return repo.Repository.WithinTx(ctx, func(tx calendar.Repository) error {
		return fn(failingHolidays{tx})
	})
}

func (failingHolidays) CreateHoliday(context.Context, calendar.Holiday) (calendar.Holiday, error) {
	return calendar.Holiday{}, errors.New("disk full")
}

func TestService_Import_rollback(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewCalendarRepository(db)
	svc := calendar.NewService(failingHolidays{repo}, testutil.NewValidator(), &testutil.Logger{})
	ctx := context.Background()

	def, err := calendar.ParseYearDefinition(strings.NewReader(year2026))
	require.NoError(t, err)

	_, err = svc.Import(ctx, def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	cycles, err := repo.QueryCycles(ctx)
	require.NoError(t, err)
	assert.Empty(t, cycles, "the cycle and its first bimester were rolled back")
}

func TestService_ActiveCycle(t *testing.T) {
	svc, repo, logger := newTestService(t)
	ctx := context.Background()

	_, err := svc.ActiveCycle(ctx)
	assert.ErrorIs(t, err, calendar.ErrNoActiveCycle)

	_, err = repo.CreateCycle(ctx, calendar.Cycle{Name: "2024", StartDate: calendar.MustParseDate("2024-03-01"), EndDate: calendar.MustParseDate("2024-12-20"), IsActive: true})
	require.NoError(t, err)
	c2025, err := repo.CreateCycle(ctx, calendar.Cycle{Name: "2025", StartDate: calendar.MustParseDate("2025-03-01"), EndDate: calendar.MustParseDate("2025-12-20"), IsActive: true})
	require.NoError(t, err)
	_, err = repo.CreateCycle(ctx, calendar.Cycle{Name: "2026", StartDate: calendar.MustParseDate("2026-03-01"), EndDate: calendar.MustParseDate("2026-12-20")})
	require.NoError(t, err)

	active, err := svc.ActiveCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, c2025.ID, active.ID)
	assert.Equal(t, 1, logger.Count("WARN"))
}

func TestService_CreateWeek(t *testing.T) {
	svc, repo, _ := newTestService(t)
	fx := testutil.SeedCalendar(t, repo)
	ctx := context.Background()
	bim1, bim2 := fx.Bimesters[0], fx.Bimesters[1]

	tests := []struct {
		name    string
		week    calendar.NewWeek
		wantErr error
	}{
		{
			name:    "duplicate number",
			week:    calendar.NewWeek{BimesterID: bim1.ID, Number: 1, StartDate: calendar.MustParseDate("2025-03-03"), EndDate: calendar.MustParseDate("2025-03-07")},
			wantErr: calendar.ErrDuplicateWeek,
		},
		{
			name:    "overlap",
			week:    calendar.NewWeek{BimesterID: bim1.ID, Number: 11, StartDate: calendar.MustParseDate("2025-03-05"), EndDate: calendar.MustParseDate("2025-03-06")},
			wantErr: calendar.ErrOverlap,
		},
		{
			name:    "outside the bimester",
			week:    calendar.NewWeek{BimesterID: bim2.ID, Number: 1, StartDate: calendar.MustParseDate("2025-05-12"), EndDate: calendar.MustParseDate("2025-05-23")},
			wantErr: calendar.ErrOutOfRange,
		},
		{
			name:    "inverted",
			week:    calendar.NewWeek{BimesterID: bim2.ID, Number: 1, StartDate: calendar.MustParseDate("2025-05-23"), EndDate: calendar.MustParseDate("2025-05-19")},
			wantErr: calendar.ErrInvalidRange,
		},
		{
			name:    "unknown bimester",
			week:    calendar.NewWeek{BimesterID: 999, Number: 1, StartDate: calendar.MustParseDate("2025-05-19"), EndDate: calendar.MustParseDate("2025-05-23")},
			wantErr: calendar.ErrNotFound,
		},
		{
			name: "valid",
			week: calendar.NewWeek{BimesterID: bim2.ID, Number: 1, StartDate: calendar.MustParseDate("2025-05-19"), EndDate: calendar.MustParseDate("2025-05-23")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := svc.CreateWeek(ctx, tt.week)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, w.ID)
			assert.Equal(t, bim2.ID, w.BimesterID)
		})
	}
}

func TestService_CreateBimester_CreateHoliday(t *testing.T) {
	svc, repo, _ := newTestService(t)
	fx := testutil.SeedCalendar(t, repo)
	ctx := context.Background()

	_, err := svc.CreateBimester(ctx, calendar.NewBimester{
		CycleID:   fx.Cycle.ID,
		Number:    5,
		StartDate: calendar.MustParseDate("2025-12-01"),
		EndDate:   calendar.MustParseDate("2025-12-10"),
	})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "number", verrs[0].Field())

	_, err = svc.CreateHoliday(ctx, calendar.NewHoliday{
		BimesterID:  fx.Bimesters[1].ID,
		Date:        calendar.MustParseDate("2025-08-01"),
		Description: "Out of range",
	})
	assert.ErrorIs(t, err, calendar.ErrOutOfRange)

	_, err = svc.CreateHoliday(ctx, calendar.NewHoliday{BimesterID: fx.Bimesters[1].ID, Date: calendar.MustParseDate("2025-06-02"), Description: "  "})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "description", verrs[0].Field())

	h, err := svc.CreateHoliday(ctx, calendar.NewHoliday{
		BimesterID:  fx.Bimesters[1].ID,
		Date:        calendar.MustParseDate("2025-06-02"),
		Description: " Teachers day ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Teachers day", h.Description)

	found, ok, err := svc.IsHoliday(ctx, fx.Bimesters[1].ID, calendar.MustParseDate("2025-06-02"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, h.ID, found.ID)
}

func TestService_CreateBimester(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	cycle, err := repo.CreateCycle(ctx, calendar.Cycle{Name: "2026", StartDate: calendar.MustParseDate("2026-03-02"), EndDate: calendar.MustParseDate("2026-12-18")})
	require.NoError(t, err)
	_, err = svc.CreateBimester(ctx, calendar.NewBimester{CycleID: cycle.ID, Number: 1, StartDate: calendar.MustParseDate("2026-03-02"), EndDate: calendar.MustParseDate("2026-05-08")})
	require.NoError(t, err)

	tests := []struct {
		name     string
		bimester calendar.NewBimester
		wantErr  error
	}{
		{
			name:     "duplicate number",
			bimester: calendar.NewBimester{CycleID: cycle.ID, Number: 1, StartDate: calendar.MustParseDate("2026-05-18"), EndDate: calendar.MustParseDate("2026-07-24")},
			wantErr:  calendar.ErrDuplicateBimester,
		},
		{
			name:     "overlap",
			bimester: calendar.NewBimester{CycleID: cycle.ID, Number: 2, StartDate: calendar.MustParseDate("2026-04-01"), EndDate: calendar.MustParseDate("2026-06-09")},
			wantErr:  calendar.ErrBimesterOverlap,
		},
		{
			name:     "outside the cycle",
			bimester: calendar.NewBimester{CycleID: cycle.ID, Number: 2, StartDate: calendar.MustParseDate("2026-12-01"), EndDate: calendar.MustParseDate("2027-01-29")},
			wantErr:  calendar.ErrOutOfRange,
		},
		{
			name:     "valid",
			bimester: calendar.NewBimester{CycleID: cycle.ID, Number: 2, StartDate: calendar.MustParseDate("2026-05-18"), EndDate: calendar.MustParseDate("2026-07-24")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := svc.CreateBimester(ctx, tt.bimester)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, core.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, b.Number)
		})
	}

	bims, err := repo.QueryBimesters(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Len(t, bims, 2)
}

func TestService_IsHoliday_timezones(t *testing.T) {
	svc, repo, _ := newTestService(t)
	fx := testutil.SeedCalendar(t, repo)
	ctx := context.Background()
	bim3 := fx.Bimesters[2]

	fromISO, err := calendar.ParseDate("2025-09-15T00:00:00Z")
	require.NoError(t, err)
	lima := time.FixedZone("UTC-5", -5*60*60)

	for _, d := range []calendar.Date{
		fromISO,
		calendar.DateOf(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)),
		calendar.DateOf(time.Date(2025, 9, 15, 0, 0, 0, 0, lima)),
		calendar.DateOf(time.Date(2025, 9, 15, 23, 30, 0, 0, lima)),
	} {
		_, ok, err := svc.IsHoliday(ctx, bim3.ID, d)
		require.NoError(t, err)
		assert.True(t, ok, d.String())
	}

	_, ok, err := svc.IsHoliday(ctx, bim3.ID, calendar.MustParseDate("2025-09-16"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_ResolveAcademicWeek(t *testing.T) {
	svc, repo, _ := newTestService(t)
	fx := testutil.SeedCalendar(t, repo)
	ctx := context.Background()

	w, err := svc.ResolveAcademicWeek(ctx, fx.Bimesters[0].ID, calendar.MustParseDate("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Number)

	b, err := svc.ResolveBimester(ctx, fx.Cycle.ID, calendar.MustParseDate("2025-08-11"))
	require.NoError(t, err)
	assert.Equal(t, 3, b.Number)

	_, err = svc.ResolveBimester(ctx, fx.Cycle.ID, calendar.MustParseDate("2025-08-01"))
	assert.True(t, calendar.IsGap(err))

	res, err := svc.Resolve(ctx, fx.Cycle.ID, calendar.MustParseDate("2025-09-15"))
	require.NoError(t, err)
	require.NotNil(t, res.Holiday)
	assert.False(t, res.IsInstructional)
	assert.False(t, res.IsAllowed, "bimester 3 is not active")
}

func TestService_Navigate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	fx := testutil.SeedCalendar(t, repo)
	ctx := context.Background()

	tests := []struct {
		name       string
		from       string
		dir        calendar.Direction
		schoolDays bool
		want       string
		wantOK     bool
	}{
		{name: "next school day skips holidays & weekend", from: "2025-04-16", dir: calendar.Forward, schoolDays: true, want: "2025-04-21", wantOK: true},
		{name: "next day stops on holiday", from: "2025-04-16", dir: calendar.Forward, want: "2025-04-17", wantOK: true},
		{name: "previous school day skips weekend", from: "2025-03-10", dir: calendar.Backward, schoolDays: true, want: "2025-03-07", wantOK: true},
		{name: "previous day back into the bimester", from: "2025-05-14", dir: calendar.Backward, want: "2025-05-09", wantOK: true},
		{name: "nothing before the first day", from: "2025-03-03", dir: calendar.Backward, schoolDays: true},
		{name: "recovered holiday is a school day", from: "2025-04-30", dir: calendar.Forward, schoolDays: true, want: "2025-05-01", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := svc.Navigate(ctx, fx.Cycle.ID, calendar.MustParseDate(tt.from), tt.dir, tt.schoolDays)
			require.NoError(t, err)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}

	_, _, err := svc.Navigate(ctx, 999, calendar.MustParseDate("2025-03-03"), calendar.Forward, false)
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}
