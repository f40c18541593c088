package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weekdaySchedule is Mon-Fri 08:00-17:00, weekends closed.
func weekdaySchedule() BusinessHours {
	days := make([]DaySchedule, 7)
	for i, name := range weekdayNames {
		if i >= 1 && i <= 5 {
			days[i] = DaySchedule{Day: name, Open: "08:00", Close: "17:00", IsOpen: true}
		} else {
			days[i] = DaySchedule{Day: name, Open: "00:00", Close: "00:00"}
		}
	}
	return BusinessHours{Days: days}
}

func TestIsOpenNow(t *testing.T) {
	e := NewEvaluator("UTC")
	sched := weekdaySchedule()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday at opening", time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), true},
		{"monday just before opening", time.Date(2026, 8, 24, 7, 59, 0, 0, time.UTC), false},
		{"monday at close", time.Date(2026, 8, 24, 17, 0, 0, 0, time.UTC), true},
		{"monday after close", time.Date(2026, 8, 24, 17, 1, 0, 0, time.UTC), false},
		{"saturday midday", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.IsOpenNow(sched, tt.at))
		})
	}
}

func TestIsOpenNow24x7(t *testing.T) {
	e := NewEvaluator("UTC")
	sched := BusinessHours{Open24x7: true}

	for _, at := range []time.Time{
		time.Date(2026, 8, 23, 3, 0, 0, 0, time.UTC),  // Sunday 3am
		time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC), // Wednesday midnight
	} {
		assert.True(t, e.IsOpenNow(sched, at))
	}
}

func TestIsOpenNowTimezone(t *testing.T) {
	e := NewEvaluator("America/New_York")
	sched := weekdaySchedule()

	// Monday 13:00 UTC is Monday 09:00 in New York: open.
	assert.True(t, e.IsOpenNow(sched, time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC)))
	// Monday 23:00 UTC is Monday 19:00 in New York: closed.
	assert.False(t, e.IsOpenNow(sched, time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC)))
}

func TestNextOpenTime(t *testing.T) {
	e := NewEvaluator("UTC")
	sched := weekdaySchedule()

	t.Run("already open returns nil", func(t *testing.T) {
		assert.Nil(t, e.NextOpenTime(sched, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("same day before opening", func(t *testing.T) {
		got := e.NextOpenTime(sched, time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC))
		require.NotNil(t, got)
		assert.Equal(t, "Monday", got.Day)
		assert.Equal(t, "08:00", got.Open)
	})

	t.Run("evening rolls to next weekday", func(t *testing.T) {
		got := e.NextOpenTime(sched, time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC))
		require.NotNil(t, got)
		assert.Equal(t, "Tuesday", got.Day)
	})

	t.Run("saturday wraps past sunday", func(t *testing.T) {
		got := e.NextOpenTime(sched, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
		require.NotNil(t, got)
		assert.Equal(t, "Monday", got.Day)
	})

	t.Run("never open returns nil", func(t *testing.T) {
		closed := BusinessHours{Days: []DaySchedule{{Day: "Monday", Open: "00:00", Close: "00:00"}}}
		assert.Nil(t, e.NextOpenTime(closed, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("open 24x7 returns nil", func(t *testing.T) {
		assert.Nil(t, e.NextOpenTime(BusinessHours{Open24x7: true}, time.Now()))
	})
}

func TestSummarize(t *testing.T) {
	e := NewEvaluator("UTC")

	t.Run("24x7", func(t *testing.T) {
		assert.Equal(t, "24/7", e.Summarize(BusinessHours{Open24x7: true}))
	})

	t.Run("daily", func(t *testing.T) {
		days := make([]DaySchedule, 7)
		for i, name := range weekdayNames {
			days[i] = DaySchedule{Day: name, Open: "08:00", Close: "20:00", IsOpen: true}
		}
		assert.Equal(t, "Daily: 08:00 - 20:00", e.Summarize(BusinessHours{Days: days}))
	})

	t.Run("grouped ranges", func(t *testing.T) {
		p := NewParser(nil)
		sched := p.Parse("M_F_9_17")
		sched.Days[6] = DaySchedule{Day: "Saturday", Open: "10:00", Close: "14:00", IsOpen: true}
		assert.Equal(t, "Monday-Friday: 09:00 - 17:00 | Saturday: 10:00 - 14:00", e.Summarize(sched))
	})

	t.Run("all closed", func(t *testing.T) {
		assert.Equal(t, "Closed", e.Summarize(BusinessHours{}))
	})
}
