package hours

import "time"

// Source identifies where a schedule came from.
type Source string

const (
	SourceAPI     Source = "api"
	SourceDefault Source = "default"
)

// DaySchedule is the open window for a single weekday.
// Open and Close are 24-hour "HH:MM" strings.
type DaySchedule struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	IsOpen bool   `json:"is_open"`
}

// BusinessHours is the normalized per-day schedule for a plan.
// When Open24x7 is set the Days sequence is ignored.
type BusinessHours struct {
	Open24x7    bool          `json:"open_24x7"`
	Days        []DaySchedule `json:"days,omitempty"`
	LastUpdated time.Time     `json:"last_updated,omitzero"`
	Source      Source        `json:"source,omitempty"`
}

// weekdayNames is the canonical seven-day set, Sunday first to match time.Weekday.
var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// WeekdayName returns the canonical name for a time.Weekday.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[int(d)%7]
}

// dayIndex maps a canonical day name to its time.Weekday index, or -1.
func dayIndex(name string) int {
	for i, n := range weekdayNames {
		if n == name {
			return i
		}
	}
	return -1
}

// forDay returns the schedule entry for a weekday, or nil if absent.
func (b BusinessHours) forDay(d time.Weekday) *DaySchedule {
	name := WeekdayName(d)
	for i := range b.Days {
		if b.Days[i].Day == name {
			return &b.Days[i]
		}
	}
	return nil
}

// Location resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown.
func Location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
