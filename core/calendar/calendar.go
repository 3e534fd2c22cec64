package calendar

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

// MaxNavigationSteps bounds every day-by-day walk through the calendar.
const MaxNavigationSteps = 30

// Gap scopes
const (
	ScopeBimester = "bimester"
	ScopeWeek     = "week"
)

// ErrCalendarGap is matched (errors.Is) by every *GapError.
var ErrCalendarGap = errors.New("date is not covered by the school calendar")

// GapError is returned when no period covers a date. It is a soft error: callers are expected to
// degrade (e.g. show the date as out of range) rather than fail.
type GapError struct {
	Date  Date
	Scope string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("no %s covers %s", e.Scope, e.Date)
}

func (e *GapError) Is(target error) bool {
	return target == ErrCalendarGap
}

// IsGap reports whether err is (or wraps) a calendar gap.
func IsGap(err error) bool {
	return errors.Is(err, ErrCalendarGap)
}

// Observer is notified of calendar anomalies (e.g. to feed metrics).
type Observer interface {
	CalendarGap(scope string)
	AmbiguousWeek(bimesterID int64)
}

type Option func(*Calendar)

func WithLogger(logger core.Logger) Option {
	return func(c *Calendar) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Calendar) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithMaxSteps overrides MaxNavigationSteps. Non-positive values are ignored.
func WithMaxSteps(n int) Option {
	return func(c *Calendar) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Calendar resolves dates against one academic cycle. It is read-only once built, hence safe for
// concurrent use.
type Calendar struct {
	cycle     Cycle
	bimesters []Bimester                 // by number
	weeks     map[int64][]Week           // {bimesterID: weeks by number}
	holidays  map[int64]map[Date]Holiday // {bimesterID: {date: holiday}}
	logger    core.Logger
	observer  Observer
	maxSteps  int
}

// New builds the Calendar of `cycle`. Bimesters of other cycles are ignored, and so are the weeks &
// holidays of unknown bimesters.
func New(cycle Cycle, bimesters []Bimester, weeks []Week, holidays []Holiday, opts ...Option) *Calendar {
	c := &Calendar{
		cycle:    cycle,
		weeks:    make(map[int64][]Week),
		holidays: make(map[int64]map[Date]Holiday),
		logger:   nopLogger{},
		observer: nopObserver{},
		maxSteps: MaxNavigationSteps,
	}
	for _, opt := range opts {
		opt(c)
	}

	known := make(map[int64]bool, len(bimesters))
	for _, b := range bimesters {
		if b.CycleID != cycle.ID {
			continue
		}
		c.bimesters = append(c.bimesters, b)
		known[b.ID] = true
	}
	sort.SliceStable(c.bimesters, func(i, j int) bool {
		if c.bimesters[i].Number != c.bimesters[j].Number {
			return c.bimesters[i].Number < c.bimesters[j].Number
		}
		return c.bimesters[i].ID < c.bimesters[j].ID
	})

	for _, w := range weeks {
		if known[w.BimesterID] {
			c.weeks[w.BimesterID] = append(c.weeks[w.BimesterID], w)
		}
	}
	for id := range c.weeks {
		ws := c.weeks[id]
		sort.SliceStable(ws, func(i, j int) bool {
			if ws[i].Number != ws[j].Number {
				return ws[i].Number < ws[j].Number
			}
			return ws[i].StartDate.Before(ws[j].StartDate)
		})
	}

	sortedHolidays := make([]Holiday, len(holidays))
	copy(sortedHolidays, holidays)
	sort.SliceStable(sortedHolidays, func(i, j int) bool { return sortedHolidays[i].ID < sortedHolidays[j].ID })
	for _, h := range sortedHolidays {
		if !known[h.BimesterID] {
			continue
		}
		byDate, ok := c.holidays[h.BimesterID]
		if !ok {
			byDate = make(map[Date]Holiday)
			c.holidays[h.BimesterID] = byDate
		}
		if _, dup := byDate[h.Date]; !dup {
			byDate[h.Date] = h
		}
	}

	var active int
	for _, b := range c.bimesters {
		if b.IsActive {
			active++
		}
	}
	if active > 1 {
		c.logger.Warn(
			fmt.Sprintf("cycle %d has %d active bimesters, using the first one", cycle.ID, active),
			map[string]interface{}{"cycle_id": cycle.ID},
		)
	}
	return c
}

func (c *Calendar) Cycle() Cycle { return c.cycle }

func (c *Calendar) Bimesters() []Bimester {
	out := make([]Bimester, len(c.bimesters))
	copy(out, c.bimesters)
	return out
}

func (c *Calendar) Bimester(id int64) (Bimester, bool) {
	for _, b := range c.bimesters {
		if b.ID == id {
			return b, true
		}
	}
	return Bimester{}, false
}

// ActiveBimester returns the lowest-numbered active bimester.
func (c *Calendar) ActiveBimester() (Bimester, bool) {
	for _, b := range c.bimesters {
		if b.IsActive {
			return b, true
		}
	}
	return Bimester{}, false
}

func (c *Calendar) Weeks(bimesterID int64) []Week {
	ws := c.weeks[bimesterID]
	out := make([]Week, len(ws))
	copy(out, ws)
	return out
}

func (c *Calendar) Week(id int64) (Week, bool) {
	for _, ws := range c.weeks {
		for _, w := range ws {
			if w.ID == id {
				return w, true
			}
		}
	}
	return Week{}, false
}

// ResolveBimester returns the bimester whose [start, end] contains `d`.
// Overlapping bimesters resolve to the lowest number.
func (c *Calendar) ResolveBimester(d Date) (Bimester, error) {
	if b, ok := c.bimesterOf(d); ok {
		return b, nil
	}
	c.observer.CalendarGap(ScopeBimester)
	return Bimester{}, &GapError{Date: d, Scope: ScopeBimester}
}

func (c *Calendar) bimesterOf(d Date) (Bimester, bool) {
	for _, b := range c.bimesters {
		if b.Contains(d) {
			return b, true
		}
	}
	return Bimester{}, false
}

// ResolveWeek returns the academic week of `bimesterID` containing `d`.
// Overlapping weeks are a data error: the lowest-numbered match wins and the overlap is logged.
func (c *Calendar) ResolveWeek(bimesterID int64, d Date) (Week, error) {
	var matches []Week
	for _, w := range c.weeks[bimesterID] {
		if w.Contains(d) {
			matches = append(matches, w)
		}
	}

	switch len(matches) {
	case 0:
		c.observer.CalendarGap(ScopeWeek)
		return Week{}, &GapError{Date: d, Scope: ScopeWeek}
	case 1:
	default:
		numbers := make([]int, 0, len(matches))
		for _, w := range matches {
			numbers = append(numbers, w.Number)
		}
		c.observer.AmbiguousWeek(bimesterID)
		c.logger.Warn(
			fmt.Sprintf("overlapping academic weeks %v on %s, using week %d", numbers, d, matches[0].Number),
			map[string]interface{}{"bimester_id": bimesterID, "date": d.String()},
		)
	}
	return matches[0], nil
}

// Holiday returns the holiday of `bimesterID` falling on `d`, recovered or not.
func (c *Calendar) Holiday(bimesterID int64, d Date) (Holiday, bool) {
	h, ok := c.holidays[bimesterID][d]
	return h, ok
}

func (c *Calendar) IsHoliday(bimesterID int64, d Date) bool {
	_, ok := c.Holiday(bimesterID, d)
	return ok
}

// IsAllowedDate reports whether attendance can be taken on `d`: it must fall in the active
// bimester and, if that bimester has academic weeks, in one of them.
func (c *Calendar) IsAllowedDate(d Date) bool {
	b, ok := c.ActiveBimester()
	if !ok || !b.Contains(d) {
		return false
	}
	ws := c.weeks[b.ID]
	if len(ws) == 0 {
		return true
	}
	for _, w := range ws {
		if w.Contains(d) {
			return true
		}
	}
	return false
}

// IsInstructionalDay reports whether classes are held on `d`: a weekday inside a bimester that is
// not a holiday, unless the holiday is recovered.
func (c *Calendar) IsInstructionalDay(d Date) bool {
	if d.IsWeekend() {
		return false
	}
	b, ok := c.bimesterOf(d)
	if !ok {
		return false
	}
	h, ok := c.Holiday(b.ID, d)
	return !ok || h.IsRecovered
}

// IsSchoolDay reports whether `d` is both allowed and instructional.
func (c *Calendar) IsSchoolDay(d Date) bool {
	return c.IsAllowedDate(d) && c.IsInstructionalDay(d)
}

// Resolve gathers everything known about `d`.
func (c *Calendar) Resolve(d Date) Resolution {
	res := Resolution{
		Date:      d,
		IsWeekend: d.IsWeekend(),
		IsAllowed: c.IsAllowedDate(d),
	}
	b, err := c.ResolveBimester(d)
	if err != nil {
		return res
	}
	res.Bimester = &b
	if w, err := c.ResolveWeek(b.ID, d); err == nil {
		res.Week = &w
	}
	if h, ok := c.Holiday(b.ID, d); ok {
		res.Holiday = &h
	}
	res.IsInstructional = !res.IsWeekend && (res.Holiday == nil || res.Holiday.IsRecovered)
	return res
}

// PreviousDay returns the closest allowed date before `from`.
func (c *Calendar) PreviousDay(from Date) (Date, bool) {
	return c.walk(from, -1, c.IsAllowedDate)
}

// NextDay returns the closest allowed date after `from`.
func (c *Calendar) NextDay(from Date) (Date, bool) {
	return c.walk(from, 1, c.IsAllowedDate)
}

// PreviousSchoolDay returns the closest school day before `from`, skipping weekends, holidays and
// dates out of the active bimester.
func (c *Calendar) PreviousSchoolDay(from Date) (Date, bool) {
	return c.walk(from, -1, c.IsSchoolDay)
}

// NextSchoolDay returns the closest school day after `from`.
func (c *Calendar) NextSchoolDay(from Date) (Date, bool) {
	return c.walk(from, 1, c.IsSchoolDay)
}

// walk steps from `from` (excluded) in direction `dir` until `accept` holds, for at most maxSteps days.
func (c *Calendar) walk(from Date, dir int, accept func(Date) bool) (Date, bool) {
	d := from
	for i := 0; i < c.maxSteps; i++ {
		d = d.AddDays(dir)
		if accept(d) {
			return d, true
		}
	}
	return Date{}, false
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type nopObserver struct{}

func (nopObserver) CalendarGap(string)  {}
func (nopObserver) AmbiguousWeek(int64) {}
