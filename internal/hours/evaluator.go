package hours

import (
	"fmt"
	"strings"
	"time"
)

// Evaluator answers "is this schedule open at time t" questions for one
// timezone. Construct one per plan with the plan's local timezone.
type Evaluator struct {
	loc *time.Location
}

// NewEvaluator creates an evaluator for an IANA timezone name.
// Unknown or empty names fall back to UTC.
func NewEvaluator(timezone string) *Evaluator {
	return &Evaluator{loc: Location(timezone)}
}

// NextOpening describes when a closed schedule next opens.
type NextOpening struct {
	Day  string `json:"day"`
	Open string `json:"open"`
}

// IsOpenNow reports whether the schedule is open at the given instant,
// evaluated on the local calendar day in the evaluator's timezone.
// Open and close bounds are both inclusive.
func (e *Evaluator) IsOpenNow(b BusinessHours, at time.Time) bool {
	if b.Open24x7 {
		return true
	}
	local := at.In(e.loc)
	day := b.forDay(local.Weekday())
	if day == nil || !day.IsOpen {
		return false
	}
	now := local.Format("15:04")
	return day.Open <= now && now <= day.Close
}

// NextOpenTime returns the next opening after the given instant, or nil when
// already open (including 24/7 schedules) or when no day is ever open.
// The scan wraps from Saturday back to Sunday and covers seven days.
func (e *Evaluator) NextOpenTime(b BusinessHours, at time.Time) *NextOpening {
	if e.IsOpenNow(b, at) {
		return nil
	}
	local := at.In(e.loc)
	now := local.Format("15:04")

	// Same-day open later today.
	if day := b.forDay(local.Weekday()); day != nil && day.IsOpen && now < day.Open {
		return &NextOpening{Day: day.Day, Open: day.Open}
	}

	for i := 1; i <= 7; i++ {
		wd := time.Weekday((int(local.Weekday()) + i) % 7)
		if day := b.forDay(wd); day != nil && day.IsOpen {
			return &NextOpening{Day: day.Day, Open: day.Open}
		}
	}
	return nil
}

// Summarize renders a human-readable hours summary: "24/7", a single
// "Daily" line when every day shares the same window, or contiguous
// same-hour day ranges joined by " | ".
func (e *Evaluator) Summarize(b BusinessHours) string {
	if b.Open24x7 {
		return "24/7"
	}

	openDays := make([]DaySchedule, 0, len(b.Days))
	for _, d := range b.Days {
		if d.IsOpen {
			openDays = append(openDays, d)
		}
	}
	if len(openDays) == 0 {
		return "Closed"
	}
	if len(openDays) == 7 && allSameWindow(openDays) {
		return fmt.Sprintf("Daily: %s - %s", openDays[0].Open, openDays[0].Close)
	}

	var segments []string
	for i := 0; i < len(openDays); {
		j := i
		for j+1 < len(openDays) &&
			openDays[j+1].Open == openDays[i].Open &&
			openDays[j+1].Close == openDays[i].Close &&
			contiguous(openDays[j].Day, openDays[j+1].Day) {
			j++
		}
		label := openDays[i].Day
		if j > i {
			label = openDays[i].Day + "-" + openDays[j].Day
		}
		segments = append(segments, fmt.Sprintf("%s: %s - %s", label, openDays[i].Open, openDays[i].Close))
		i = j + 1
	}
	return strings.Join(segments, " | ")
}

func allSameWindow(days []DaySchedule) bool {
	for _, d := range days[1:] {
		if d.Open != days[0].Open || d.Close != days[0].Close {
			return false
		}
	}
	return true
}

// contiguous reports whether b is the calendar day immediately after a.
func contiguous(a, b string) bool {
	ai, bi := dayIndex(a), dayIndex(b)
	if ai < 0 || bi < 0 {
		return false
	}
	return (ai+1)%7 == bi
}
