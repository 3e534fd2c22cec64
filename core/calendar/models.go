package calendar

// Cycle is an academic year.
type Cycle struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	StartDate Date   `json:"start_date" db:"start_date"`
	EndDate   Date   `json:"end_date" db:"end_date"`
	IsActive  bool   `json:"is_active" db:"is_active"`
	IsClosed  bool   `json:"is_closed" db:"is_closed"`
}

func (c Cycle) Contains(d Date) bool {
	return d.Between(c.StartDate, c.EndDate)
}

// Bimester is one of the (up to) four instructional periods of a Cycle.
type Bimester struct {
	ID         int64 `json:"id" db:"id"`
	CycleID    int64 `json:"cycle_id" db:"cycle_id"`
	Number     int   `json:"number" db:"number"`
	StartDate  Date  `json:"start_date" db:"start_date"`
	EndDate    Date  `json:"end_date" db:"end_date"`
	IsActive   bool  `json:"is_active" db:"is_active"`
	WeeksCount int   `json:"weeks_count" db:"weeks_count"`
}

func (b Bimester) Contains(d Date) bool {
	return d.Between(b.StartDate, b.EndDate)
}

// Week is an academic week of a Bimester.
type Week struct {
	ID         int64 `json:"id" db:"id"`
	BimesterID int64 `json:"bimester_id" db:"bimester_id"`
	Number     int   `json:"number" db:"number"`
	StartDate  Date  `json:"start_date" db:"start_date"`
	EndDate    Date  `json:"end_date" db:"end_date"`
}

func (w Week) Contains(d Date) bool {
	return d.Between(w.StartDate, w.EndDate)
}

// Holiday is a non-instructional day of a Bimester, unless it is recovered (made up later).
type Holiday struct {
	ID          int64  `json:"id" db:"id"`
	BimesterID  int64  `json:"bimester_id" db:"bimester_id"`
	Date        Date   `json:"date" db:"date"`
	Description string `json:"description" db:"description"`
	IsRecovered bool   `json:"is_recovered" db:"is_recovered"`
}

// Resolution describes where a date falls in the school calendar.
type Resolution struct {
	Date            Date      `json:"date"`
	Bimester        *Bimester `json:"bimester"`
	Week            *Week     `json:"week"`
	Holiday         *Holiday  `json:"holiday"`
	IsWeekend       bool      `json:"is_weekend"`
	IsAllowed       bool      `json:"is_allowed"`
	IsInstructional bool      `json:"is_instructional"`
}
