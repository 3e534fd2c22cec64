package attendance

import (
	"math"
	"sort"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

// DaySummary holds the attendance counts of a group on one day.
// Students without any record are counted as absent.
type DaySummary struct {
	Date           calendar.Date `json:"date"`
	Total          int           `json:"total"`
	Present        int           `json:"present"`
	Absent         int           `json:"absent"`
	Late           int           `json:"late"`
	Excused        int           `json:"excused"`
	WithoutRecord  int           `json:"without_record"`
	AttendanceRate float64       `json:"attendance_rate"` // percentage, 1 decimal
}

// PeriodSummary holds the attendance of a group over several days.
// Status counts are per-day averages over the dates having records.
type PeriodSummary struct {
	From           calendar.Date `json:"from"`
	To             calendar.Date `json:"to"`
	Total          int           `json:"total"`
	Dates          int           `json:"dates"` // distinct dates with at least one record
	Present        int           `json:"present"`
	Absent         int           `json:"absent"`
	Late           int           `json:"late"`
	Excused        int           `json:"excused"`
	AttendanceRate float64       `json:"attendance_rate"` // percentage, 1 decimal
}

// DailyRate returns (present + tardy) / total as a percentage rounded to 1 decimal, 0 if total is 0.
func DailyRate(present, tardy, total int) float64 {
	return percent(float64(present+tardy), float64(total))
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return core.Round(part/whole*100, 1)
}

// SummarizeDay counts the day statuses of `date` for a group of `totalEnrolled` students.
// Only one DayAttendance per enrollment is expected for the date.
func SummarizeDay(date calendar.Date, totalEnrolled int, days []DayAttendance) DaySummary {
	s := DaySummary{Date: date, Total: totalEnrolled}

	var recorded, recordedAbsent int
	for _, d := range days {
		if d.Date != date {
			continue
		}
		recorded++
		switch d.DayStatus {
		case KindAbsent:
			recordedAbsent++
		case KindTardy:
			s.Late++
		case KindExcused:
			s.Excused++
		default:
			s.Present++
		}
	}

	if totalEnrolled > recorded {
		s.WithoutRecord = totalEnrolled - recorded
	}
	s.Absent = recordedAbsent + s.WithoutRecord
	s.AttendanceRate = DailyRate(s.Present, s.Late, totalEnrolled)
	return s
}

// SummarizePeriod summarizes every date of `days` (dates without any record are not part of the
// period) and the period as a whole.
//
// The period rate is Σ(present + tardy) / (totalEnrolled × dates with records): days nobody took
// attendance on are left out of the denominator.
// TODO: divide by the instructional days of the period once reports stop being compared to the historical figures.
func SummarizePeriod(totalEnrolled int, days []DayAttendance) (PeriodSummary, []DaySummary) {
	byDate := make(map[calendar.Date][]DayAttendance)
	for _, d := range days {
		byDate[d.Date] = append(byDate[d.Date], d)
	}

	dates := make([]calendar.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	summaries := make([]DaySummary, 0, len(dates))
	ps := PeriodSummary{Total: totalEnrolled, Dates: len(dates)}
	var present, absent, late, excused int
	for _, d := range dates {
		s := SummarizeDay(d, totalEnrolled, byDate[d])
		summaries = append(summaries, s)
		present += s.Present
		absent += s.Absent
		late += s.Late
		excused += s.Excused
	}
	if len(dates) == 0 {
		return ps, summaries
	}

	ps.From, ps.To = dates[0], dates[len(dates)-1]
	ps.Present = average(present, len(dates))
	ps.Absent = average(absent, len(dates))
	ps.Late = average(late, len(dates))
	ps.Excused = average(excused, len(dates))
	ps.AttendanceRate = percent(float64(present+late), float64(totalEnrolled*len(dates)))
	return ps, summaries
}

func average(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
