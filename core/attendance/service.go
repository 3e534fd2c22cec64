package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

var (
	// errors
	ErrNotFound         = errors.New("attendance entry not found")
	ErrPermissionDenied = errors.New("role is not allowed to use this status")
	ErrStatusInactive   = errors.New("attendance status is inactive")
	ErrDuplicateRecord  = errors.New("attendance already recorded for this class")
	ErrDateNotAllowed   = errors.New("attendance cannot be taken on this date")
)

type Repository interface {
	GetSectionByID(ctx context.Context, id int64) (Section, error)
	QuerySections(ctx context.Context, filter SectionFilter) ([]Section, error)

	GetEnrollmentByID(ctx context.Context, id int64) (Enrollment, error)
	QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)

	GetClassAttendanceByID(ctx context.Context, id int64) (ClassAttendance, error)
	QueryClassAttendances(ctx context.Context, filter ClassAttendanceFilter) ([]ClassAttendance, error)
	CreateClassAttendance(ctx context.Context, ca ClassAttendance) (ClassAttendance, error)
	UpdateClassAttendance(ctx context.Context, ca ClassAttendance) (ClassAttendance, error)

	QueryStatuses(ctx context.Context) ([]Status, error)
	QueryPermissions(ctx context.Context, roleID int64) (Permissions, error)
	GetActorByID(ctx context.Context, id int64) (Actor, error)
}

// Calendars loads the school calendar of a cycle (see calendar.Service).
type Calendars interface {
	Load(ctx context.Context, cycleID int64) (*calendar.Calendar, error)
}

// Observer is notified of every computed report (e.g. to feed metrics).
type Observer interface {
	ReportComputed(kind string, elapsed time.Duration)
}

// report kinds
const (
	ReportDay      = "day"
	ReportPeriod   = "period"
	ReportCycleDay = "cycle_day"
)

type Deps struct {
	Repo      Repository
	Calendars Calendars
	Validate  *validator.Validate
	Logger    core.Logger
	Mail      core.EmailService
	Observer  Observer         // optional
	Overrides CatalogOverrides // optional
	Workers   int              // CycleDay concurrency, 4 if not positive
	Digest    []mail.Address   // copied on every daily digest
}

type Service struct {
	repo      Repository
	calendars Calendars
	validate  *validator.Validate
	logger    core.Logger
	mailSvc   core.EmailService
	observer  Observer
	overrides CatalogOverrides
	workers   int
	digest    []mail.Address
}

func NewService(deps Deps) *Service {
	svc := &Service{
		repo:      deps.Repo,
		calendars: deps.Calendars,
		validate:  deps.Validate,
		logger:    deps.Logger,
		mailSvc:   deps.Mail,
		observer:  deps.Observer,
		overrides: deps.Overrides,
		workers:   deps.Workers,
		digest:    deps.Digest,
	}
	if svc.observer == nil {
		svc.observer = nopObserver{}
	}
	if svc.workers <= 0 {
		svc.workers = 4
	}
	return svc
}

// Catalog returns the stored status catalog with the configured overrides applied.
// The default catalog is used when no status is stored.
func (svc *Service) Catalog(ctx context.Context) (*Catalog, error) {
	statuses, err := svc.repo.QueryStatuses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying statuses")
	}
	if len(statuses) == 0 {
		svc.logger.Warn("no attendance status stored, using the default catalog")
		return DefaultCatalog().WithOverrides(svc.overrides), nil
	}
	return NewCatalog(statuses).WithOverrides(svc.overrides), nil
}

func (svc *Service) GetSection(ctx context.Context, id int64) (Section, error) {
	return svc.repo.GetSectionByID(ctx, id)
}

func (svc *Service) QuerySections(ctx context.Context, filter SectionFilter) ([]Section, error) {
	return svc.repo.QuerySections(ctx, filter)
}

func (svc *Service) Actor(ctx context.Context, id int64) (Actor, error) {
	return svc.repo.GetActorByID(ctx, id)
}

// SectionDay reports the attendance of section `sectionID` on `date`.
// A date outside the calendar is not an error: the report resolution has no bimester.
func (svc *Service) SectionDay(ctx context.Context, sectionID int64, date calendar.Date) (DayReport, error) {
	defer svc.observe(ReportDay, time.Now())

	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return DayReport{}, errors.Wrap(err, "getting section")
	}
	cal, err := svc.calendars.Load(ctx, sec.CycleID)
	if err != nil {
		return DayReport{}, errors.Wrap(err, "loading calendar")
	}
	catalog, err := svc.Catalog(ctx)
	if err != nil {
		return DayReport{}, err
	}
	return svc.sectionDay(ctx, sec, date, cal, catalog)
}

func (svc *Service) sectionDay(ctx context.Context, sec Section, date calendar.Date, cal *calendar.Calendar, catalog *Catalog) (DayReport, error) {
	enrollments, err := svc.activeEnrollments(ctx, sec)
	if err != nil {
		return DayReport{}, err
	}
	records, err := svc.classAttendances(ctx, enrollments, date, date)
	if err != nil {
		return DayReport{}, err
	}

	days := BuildDays(enrollments, records, catalog)
	return DayReport{
		Section:       sec,
		Resolution:    cal.Resolve(date),
		Students:      days,
		WithoutRecord: withoutRecord(date, enrollments, days),
		Summary:       SummarizeDay(date, len(enrollments), days),
	}, nil
}

// CycleDay reports the attendance of every section of cycle `cycleID` on `date`, in section order.
func (svc *Service) CycleDay(ctx context.Context, cycleID int64, date calendar.Date) ([]DayReport, error) {
	defer svc.observe(ReportCycleDay, time.Now())

	sections, err := svc.repo.QuerySections(ctx, SectionFilter{CycleID: cycleID})
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	cal, err := svc.calendars.Load(ctx, cycleID)
	if err != nil {
		return nil, errors.Wrap(err, "loading calendar")
	}
	catalog, err := svc.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]DayReport, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)
	for i, sec := range sections {
		i, sec := i, sec
		g.Go(func() error {
			report, err := svc.sectionDay(gctx, sec, date, cal, catalog)
			if err != nil {
				return errors.Wrapf(err, "section %d", sec.ID)
			}
			reports[i] = report
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// SectionPeriod reports the attendance of section `sectionID` from `from` to `to` (inclusive).
func (svc *Service) SectionPeriod(ctx context.Context, sectionID int64, from, to calendar.Date) (PeriodReport, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return PeriodReport{}, errors.Wrap(err, "getting section")
	}
	return svc.periodReport(ctx, sec, from, to)
}

// SectionWeek reports the attendance of section `sectionID` during the academic week `weekID`.
func (svc *Service) SectionWeek(ctx context.Context, sectionID, weekID int64) (PeriodReport, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return PeriodReport{}, errors.Wrap(err, "getting section")
	}
	cal, err := svc.calendars.Load(ctx, sec.CycleID)
	if err != nil {
		return PeriodReport{}, errors.Wrap(err, "loading calendar")
	}
	w, ok := cal.Week(weekID)
	if !ok {
		return PeriodReport{}, errors.Wrapf(ErrNotFound, "week %d in cycle %d", weekID, sec.CycleID)
	}

	report, err := svc.periodReport(ctx, sec, w.StartDate, w.EndDate)
	if err != nil {
		return PeriodReport{}, err
	}
	if b, ok := cal.Bimester(w.BimesterID); ok {
		report.Bimester = &b
	}
	report.Week = &w
	return report, nil
}

// SectionBimester reports the attendance of section `sectionID` during the bimester `bimesterID`.
func (svc *Service) SectionBimester(ctx context.Context, sectionID, bimesterID int64) (PeriodReport, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return PeriodReport{}, errors.Wrap(err, "getting section")
	}
	cal, err := svc.calendars.Load(ctx, sec.CycleID)
	if err != nil {
		return PeriodReport{}, errors.Wrap(err, "loading calendar")
	}
	b, ok := cal.Bimester(bimesterID)
	if !ok {
		return PeriodReport{}, errors.Wrapf(calendar.ErrUnknownBimester, "bimester %d", bimesterID)
	}

	report, err := svc.periodReport(ctx, sec, b.StartDate, b.EndDate)
	if err != nil {
		return PeriodReport{}, err
	}
	report.Bimester = &b
	return report, nil
}

func (svc *Service) periodReport(ctx context.Context, sec Section, from, to calendar.Date) (PeriodReport, error) {
	defer svc.observe(ReportPeriod, time.Now())

	if to.Before(from) {
		return PeriodReport{}, calendar.ErrInvalidRange
	}
	catalog, err := svc.Catalog(ctx)
	if err != nil {
		return PeriodReport{}, err
	}
	enrollments, err := svc.activeEnrollments(ctx, sec)
	if err != nil {
		return PeriodReport{}, err
	}
	records, err := svc.classAttendances(ctx, enrollments, from, to)
	if err != nil {
		return PeriodReport{}, err
	}

	summary, days := SummarizePeriod(len(enrollments), BuildDays(enrollments, records, catalog))
	summary.From, summary.To = from, to
	return PeriodReport{Section: sec, Days: days, Summary: summary}, nil
}

func (svc *Service) activeEnrollments(ctx context.Context, sec Section) ([]Enrollment, error) {
	enrollments, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{
		SectionID: sec.ID,
		CycleID:   sec.CycleID,
		Status:    EnrollmentActive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrollments, nil
}

func (svc *Service) classAttendances(ctx context.Context, enrollments []Enrollment, from, to calendar.Date) ([]ClassAttendance, error) {
	if len(enrollments) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ID)
	}
	records, err := svc.repo.QueryClassAttendances(ctx, ClassAttendanceFilter{EnrollmentIDs: ids, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying class attendances")
	}
	return records, nil
}

// Record stores the attendance of one student to one class, on behalf of `actor`.
func (svc *Service) Record(ctx context.Context, actor Actor, na NewClassAttendance) (ClassAttendance, error) {
	if err := na.Validate(svc.validate); err != nil {
		return ClassAttendance{}, err
	}

	status, err := svc.usableStatus(ctx, actor, na.StatusCode, na.Notes, ActionCreate)
	if err != nil {
		return ClassAttendance{}, err
	}

	enrollment, err := svc.repo.GetEnrollmentByID(ctx, na.EnrollmentID)
	if err != nil {
		return ClassAttendance{}, errors.Wrap(err, "getting enrollment")
	}
	if enrollment.Status != EnrollmentActive {
		return ClassAttendance{}, core.NewValidationError(nil, core.FieldError{
			Field: "enrollment_id",
			Error: fmt.Sprintf("enrollment is %s", enrollment.Status),
		})
	}

	cal, err := svc.calendars.Load(ctx, enrollment.CycleID)
	if err != nil {
		return ClassAttendance{}, errors.Wrap(err, "loading calendar")
	}
	if err = checkRecordableDate(cal, na.Date); err != nil {
		return ClassAttendance{}, err
	}

	existing, err := svc.repo.QueryClassAttendances(ctx, ClassAttendanceFilter{
		EnrollmentIDs: []int64{enrollment.ID},
		From:          na.Date,
		To:            na.Date,
	})
	if err != nil {
		return ClassAttendance{}, errors.Wrap(err, "querying class attendances")
	}
	for _, ca := range existing {
		if sameSchedule(ca.ScheduleID, na.ScheduleID) {
			return ClassAttendance{}, ErrDuplicateRecord
		}
	}

	return svc.repo.CreateClassAttendance(ctx, ClassAttendance{
		EnrollmentID:       enrollment.ID,
		Date:               na.Date,
		ScheduleID:         na.ScheduleID,
		CourseAssignmentID: na.CourseAssignmentID,
		StatusID:           status.ID,
		StatusCode:         status.Code,
		ArrivalTime:        nullString(na.ArrivalTime),
		Notes:              na.Notes,
		RecordedBy:         actor.ID,
		RecordedByName:     actor.Name,
		CreatedAt:          time.Now().UTC(),
	})
}

// Correct changes the status of a recorded ClassAttendance, on behalf of `actor`.
// Attendances are never deleted.
func (svc *Service) Correct(ctx context.Context, actor Actor, id int64, uc UpdateClassAttendance) (ClassAttendance, error) {
	if err := uc.Validate(svc.validate); err != nil {
		return ClassAttendance{}, err
	}

	ca, err := svc.repo.GetClassAttendanceByID(ctx, id)
	if err != nil {
		return ClassAttendance{}, errors.Wrap(err, "getting class attendance")
	}

	notes := uc.Notes
	if notes == "" {
		notes = ca.Notes
	}
	status, err := svc.usableStatus(ctx, actor, uc.StatusCode, notes, ActionModify)
	if err != nil {
		return ClassAttendance{}, err
	}

	ca.StatusID = status.ID
	ca.StatusCode = status.Code
	ca.Notes = notes
	if uc.ArrivalTime != "" {
		ca.ArrivalTime = nullString(uc.ArrivalTime)
	}
	ca.LastModifiedBy = null.Int64From(actor.ID)
	ca.LastModifiedByName = null.StringFrom(actor.Name)
	ca.LastModifiedAt = null.TimeFrom(time.Now().UTC())
	ca.ModificationReason = uc.ModificationReason
	return svc.repo.UpdateClassAttendance(ctx, ca)
}

// usableStatus returns the catalog status `code` if `actor` may use it for `action`.
func (svc *Service) usableStatus(ctx context.Context, actor Actor, code, notes string, action Action) (Status, error) {
	catalog, err := svc.Catalog(ctx)
	if err != nil {
		return Status{}, err
	}
	status, ok := catalog.Status(code)
	if !ok {
		return Status{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown attendance status"})
	}
	if !status.IsActive {
		return Status{}, errors.Wrapf(ErrStatusInactive, "%s", status.Code)
	}

	perms, err := svc.repo.QueryPermissions(ctx, actor.RoleID)
	if err != nil {
		return Status{}, errors.Wrap(err, "querying permissions")
	}
	if !perms.Allows(status.ID, action) {
		return Status{}, errors.Wrapf(ErrPermissionDenied, "%s", status.Code)
	}
	if notes == "" && perms.RequiresNotes(status.ID) {
		return Status{}, core.NewValidationError(nil, core.FieldError{
			Field: "notes",
			Error: fmt.Sprintf("notes are required for status %s", status.Code),
		})
	}
	return status, nil
}

func checkRecordableDate(cal *calendar.Calendar, d calendar.Date) error {
	var msg string
	switch {
	case !cal.IsAllowedDate(d):
		msg = "date is outside the active school period"
	case d.IsWeekend():
		msg = "no classes on weekends"
	case !cal.IsInstructionalDay(d):
		msg = "date is a holiday"
	default:
		return nil
	}
	return core.NewValidationError(ErrDateNotAllowed, core.FieldError{Field: "date", Error: msg})
}

func sameSchedule(a, b null.Int64) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Int64 == b.Int64
}

// SendDailyDigests emails the day report of every section of cycle `cycleID` to its tutor and
// the configured recipients. Nothing is sent on non-instructional days.
// It returns the number of messages sent.
func (svc *Service) SendDailyDigests(ctx context.Context, cycleID int64, date calendar.Date) (int, error) {
	cal, err := svc.calendars.Load(ctx, cycleID)
	if err != nil {
		return 0, errors.Wrap(err, "loading calendar")
	}
	if !cal.IsInstructionalDay(date) {
		svc.logger.Info(fmt.Sprintf("%s is not an instructional day, no digest sent", date))
		return 0, nil
	}

	reports, err := svc.CycleDay(ctx, cycleID, date)
	if err != nil {
		return 0, err
	}

	messages := make([]*core.EmailMessage, 0, len(reports))
	for _, report := range reports {
		to := make([]mail.Address, 0, len(svc.digest)+1)
		if report.Section.TutorEmail != "" {
			to = append(to, mail.Address{Name: report.Section.TutorName, Address: report.Section.TutorEmail})
		}
		to = append(to, svc.digest...)
		if len(to) == 0 {
			svc.logger.Warn(fmt.Sprintf("no digest recipient for section %q", report.Section.Label()))
			continue
		}
		messages = append(messages, NewDigestMessage(report, to))
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return len(messages), nil
}

func (svc *Service) observe(kind string, start time.Time) {
	svc.observer.ReportComputed(kind, time.Since(start))
}

type nopObserver struct{}

func (nopObserver) ReportComputed(string, time.Duration) {}
