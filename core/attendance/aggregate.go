package attendance

import (
	"sort"

	"github.com/trezcool/escuela/core/calendar"
)

// AggregateDayStatus folds the statuses of a student's classes of one day into a single day status:
// any absence makes the day ABSENT, else any tardiness makes it TARDY, else any excuse makes it
// EXCUSED, else the day is PRESENT. There is no majority rule nor weighting.
func AggregateDayStatus(codes []string, catalog *Catalog) Kind {
	day := KindPresent
	for _, code := range codes {
		if k := catalog.KindOf(code); k > day {
			day = k
		}
	}
	return day
}

type dayKey struct {
	enrollmentID int64
	date         calendar.Date
}

// BuildDays groups class attendances by student and day, and computes each day status.
// Students without any record on a day get no DayAttendance for it; records of unknown enrollments
// are ignored. Result is ordered by date, student name and enrollment; classes by schedule and id.
func BuildDays(enrollments []Enrollment, records []ClassAttendance, catalog *Catalog) []DayAttendance {
	byID := make(map[int64]Enrollment, len(enrollments))
	for _, e := range enrollments {
		byID[e.ID] = e
	}

	grouped := make(map[dayKey][]ClassAttendance)
	for _, r := range records {
		if _, ok := byID[r.EnrollmentID]; !ok {
			continue
		}
		k := dayKey{enrollmentID: r.EnrollmentID, date: r.Date}
		grouped[k] = append(grouped[k], r)
	}

	days := make([]DayAttendance, 0, len(grouped))
	for k, classes := range grouped {
		sorted := make([]ClassAttendance, len(classes))
		copy(sorted, classes)
		sort.SliceStable(sorted, func(i, j int) bool {
			si, sj := sorted[i].ScheduleID, sorted[j].ScheduleID
			if si.Valid != sj.Valid {
				return !si.Valid // unscheduled first
			}
			if si.Int64 != sj.Int64 {
				return si.Int64 < sj.Int64
			}
			return sorted[i].ID < sorted[j].ID
		})

		codes := make([]string, 0, len(sorted))
		for _, c := range sorted {
			codes = append(codes, c.StatusCode)
		}

		e := byID[k.enrollmentID]
		days = append(days, DayAttendance{
			EnrollmentID:     e.ID,
			StudentID:        e.StudentID,
			StudentName:      e.StudentName,
			Date:             k.date,
			DayStatus:        AggregateDayStatus(codes, catalog),
			ClassAttendances: sorted,
		})
	}

	sort.Slice(days, func(i, j int) bool {
		if c := days[i].Date.Compare(days[j].Date); c != 0 {
			return c < 0
		}
		if days[i].StudentName != days[j].StudentName {
			return days[i].StudentName < days[j].StudentName
		}
		return days[i].EnrollmentID < days[j].EnrollmentID
	})
	return days
}

// withoutRecord returns the enrollments having no DayAttendance on `date`, ordered by student name.
func withoutRecord(date calendar.Date, enrollments []Enrollment, days []DayAttendance) []Enrollment {
	recorded := make(map[int64]bool, len(days))
	for _, d := range days {
		if d.Date == date {
			recorded[d.EnrollmentID] = true
		}
	}
	missing := make([]Enrollment, 0)
	for _, e := range enrollments {
		if !recorded[e.ID] {
			missing = append(missing, e)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].StudentName < missing[j].StudentName })
	return missing
}
