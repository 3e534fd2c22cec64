package calendar

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

var (
	// errors
	ErrNotFound          = errors.New("calendar entry not found")
	ErrNoActiveCycle     = errors.New("no active academic cycle")
	ErrInvalidRange      = errors.New("end date is before start date")
	ErrOutOfRange        = errors.New("dates are outside their parent period")
	ErrOverlap           = errors.New("academic week overlaps another week")
	ErrDuplicateWeek     = errors.New("a week with this number already exists")
	ErrBimesterOverlap   = errors.New("bimester overlaps another bimester of the cycle")
	ErrDuplicateBimester = errors.New("a bimester with this number already exists in the cycle")
	ErrUnknownBimester   = errors.New("bimester does not belong to the cycle")
)

type Repository interface {
	QueryCycles(ctx context.Context) ([]Cycle, error)
	GetCycleByID(ctx context.Context, id int64) (Cycle, error)
	CreateCycle(ctx context.Context, cycle Cycle) (Cycle, error)

	QueryBimesters(ctx context.Context, cycleID int64) ([]Bimester, error)
	GetBimesterByID(ctx context.Context, id int64) (Bimester, error)
	CreateBimester(ctx context.Context, bimester Bimester) (Bimester, error)

	QueryWeeks(ctx context.Context, bimesterIDs ...int64) ([]Week, error)
	GetWeekByID(ctx context.Context, id int64) (Week, error)
	CreateWeek(ctx context.Context, week Week) (Week, error)

	QueryHolidays(ctx context.Context, bimesterIDs ...int64) ([]Holiday, error)
	CreateHoliday(ctx context.Context, holiday Holiday) (Holiday, error)

	// WithinTx runs `fn` in a transaction: nothing `fn` wrote is kept if it returns an error.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// Direction of a calendar navigation.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   core.Logger
	opts     []Option
}

// NewService returns a calendar Service. `opts` are applied to every Calendar it loads.
func NewService(repo Repository, validate *validator.Validate, logger core.Logger, opts ...Option) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		logger:   logger,
		opts:     append([]Option{WithLogger(logger)}, opts...),
	}
}

// ActiveCycle returns the active academic cycle.
// There should be exactly one; if several are active the most recently started one wins.
func (svc *Service) ActiveCycle(ctx context.Context) (Cycle, error) {
	cycles, err := svc.repo.QueryCycles(ctx)
	if err != nil {
		return Cycle{}, errors.Wrap(err, "querying cycles")
	}

	var (
		active Cycle
		count  int
	)
	for _, c := range cycles {
		if !c.IsActive {
			continue
		}
		count++
		if count == 1 || c.StartDate.After(active.StartDate) {
			active = c
		}
	}

	switch count {
	case 0:
		return Cycle{}, ErrNoActiveCycle
	case 1:
	default:
		svc.logger.Warn(
			fmt.Sprintf("%d active academic cycles, using %q", count, active.Name),
			map[string]interface{}{"cycle_id": active.ID},
		)
	}
	return active, nil
}

func (svc *Service) GetCycle(ctx context.Context, id int64) (Cycle, error) {
	return svc.repo.GetCycleByID(ctx, id)
}

func (svc *Service) QueryCycles(ctx context.Context) ([]Cycle, error) {
	return svc.repo.QueryCycles(ctx)
}

// Load builds the Calendar of the cycle `cycleID`.
func (svc *Service) Load(ctx context.Context, cycleID int64) (*Calendar, error) {
	cycle, err := svc.repo.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, errors.Wrap(err, "getting cycle")
	}
	return svc.load(ctx, cycle)
}

// LoadActive builds the Calendar of the active cycle.
func (svc *Service) LoadActive(ctx context.Context) (*Calendar, error) {
	cycle, err := svc.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}
	return svc.load(ctx, cycle)
}

func (svc *Service) load(ctx context.Context, cycle Cycle) (*Calendar, error) {
	bimesters, err := svc.repo.QueryBimesters(ctx, cycle.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying bimesters")
	}

	ids := make([]int64, 0, len(bimesters))
	for _, b := range bimesters {
		ids = append(ids, b.ID)
	}

	var (
		weeks    []Week
		holidays []Holiday
	)
	if len(ids) > 0 {
		if weeks, err = svc.repo.QueryWeeks(ctx, ids...); err != nil {
			return nil, errors.Wrap(err, "querying weeks")
		}
		if holidays, err = svc.repo.QueryHolidays(ctx, ids...); err != nil {
			return nil, errors.Wrap(err, "querying holidays")
		}
	}

	for _, b := range bimesters {
		if !cycle.Contains(b.StartDate) || !cycle.Contains(b.EndDate) {
			svc.logger.Warn(
				fmt.Sprintf("bimester %d (%s - %s) is not nested in cycle %q", b.Number, b.StartDate, b.EndDate, cycle.Name),
				map[string]interface{}{"cycle_id": cycle.ID, "bimester_id": b.ID},
			)
		}
	}
	return New(cycle, bimesters, weeks, holidays, svc.opts...), nil
}

// loadForBimester builds the Calendar of the cycle holding the bimester `bimesterID`.
func (svc *Service) loadForBimester(ctx context.Context, bimesterID int64) (*Calendar, error) {
	b, err := svc.repo.GetBimesterByID(ctx, bimesterID)
	if err != nil {
		return nil, errors.Wrap(err, "getting bimester")
	}
	return svc.Load(ctx, b.CycleID)
}

// ResolveBimester returns the bimester of cycle `cycleID` containing `d`, or a *GapError.
func (svc *Service) ResolveBimester(ctx context.Context, cycleID int64, d Date) (Bimester, error) {
	cal, err := svc.Load(ctx, cycleID)
	if err != nil {
		return Bimester{}, err
	}
	return cal.ResolveBimester(d)
}

// ResolveAcademicWeek returns the academic week of bimester `bimesterID` containing `d`, or a *GapError.
func (svc *Service) ResolveAcademicWeek(ctx context.Context, bimesterID int64, d Date) (Week, error) {
	cal, err := svc.loadForBimester(ctx, bimesterID)
	if err != nil {
		return Week{}, err
	}
	return cal.ResolveWeek(bimesterID, d)
}

// IsHoliday returns the holiday of bimester `bimesterID` falling on `d`, if any.
func (svc *Service) IsHoliday(ctx context.Context, bimesterID int64, d Date) (Holiday, bool, error) {
	cal, err := svc.loadForBimester(ctx, bimesterID)
	if err != nil {
		return Holiday{}, false, err
	}
	h, ok := cal.Holiday(bimesterID, d)
	return h, ok, nil
}

func (svc *Service) Resolve(ctx context.Context, cycleID int64, d Date) (Resolution, error) {
	cal, err := svc.Load(ctx, cycleID)
	if err != nil {
		return Resolution{}, err
	}
	return cal.Resolve(d), nil
}

// Navigate returns the closest allowed date (or school day) from `from` in direction `dir`.
// ok is false when none was found within the navigation bound.
func (svc *Service) Navigate(ctx context.Context, cycleID int64, from Date, dir Direction, schoolDays bool) (d Date, ok bool, err error) {
	cal, err := svc.Load(ctx, cycleID)
	if err != nil {
		return Date{}, false, err
	}
	switch {
	case dir == Backward && schoolDays:
		d, ok = cal.PreviousSchoolDay(from)
	case dir == Backward:
		d, ok = cal.PreviousDay(from)
	case schoolDays:
		d, ok = cal.NextSchoolDay(from)
	default:
		d, ok = cal.NextDay(from)
	}
	return d, ok, nil
}

func (svc *Service) CreateCycle(ctx context.Context, nc NewCycle) (Cycle, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Cycle{}, err
	}
	return svc.repo.CreateCycle(ctx, Cycle{
		Name:      nc.Name,
		StartDate: nc.StartDate,
		EndDate:   nc.EndDate,
		IsActive:  nc.IsActive,
	})
}

func (svc *Service) CreateBimester(ctx context.Context, nb NewBimester) (Bimester, error) {
	cycle, err := svc.repo.GetCycleByID(ctx, nb.CycleID)
	if err != nil {
		return Bimester{}, errors.Wrap(err, "getting cycle")
	}
	existing, err := svc.repo.QueryBimesters(ctx, cycle.ID)
	if err != nil {
		return Bimester{}, errors.Wrap(err, "querying bimesters")
	}
	if err = nb.Validate(svc.validate, cycle, existing); err != nil {
		return Bimester{}, err
	}
	return svc.repo.CreateBimester(ctx, Bimester{
		CycleID:    nb.CycleID,
		Number:     nb.Number,
		StartDate:  nb.StartDate,
		EndDate:    nb.EndDate,
		IsActive:   nb.IsActive,
		WeeksCount: nb.WeeksCount,
	})
}

func (svc *Service) CreateWeek(ctx context.Context, nw NewWeek) (Week, error) {
	b, err := svc.repo.GetBimesterByID(ctx, nw.BimesterID)
	if err != nil {
		return Week{}, errors.Wrap(err, "getting bimester")
	}
	existing, err := svc.repo.QueryWeeks(ctx, b.ID)
	if err != nil {
		return Week{}, errors.Wrap(err, "querying weeks")
	}
	if err = nw.Validate(svc.validate, b, existing); err != nil {
		return Week{}, err
	}
	return svc.repo.CreateWeek(ctx, Week{
		BimesterID: nw.BimesterID,
		Number:     nw.Number,
		StartDate:  nw.StartDate,
		EndDate:    nw.EndDate,
	})
}

func (svc *Service) CreateHoliday(ctx context.Context, nh NewHoliday) (Holiday, error) {
	b, err := svc.repo.GetBimesterByID(ctx, nh.BimesterID)
	if err != nil {
		return Holiday{}, errors.Wrap(err, "getting bimester")
	}
	if err = nh.Validate(svc.validate, b); err != nil {
		return Holiday{}, err
	}
	return svc.repo.CreateHoliday(ctx, Holiday{
		BimesterID:  nh.BimesterID,
		Date:        nh.Date,
		Description: nh.Description,
		IsRecovered: nh.IsRecovered,
	})
}
