package hours

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Parser normalizes the hour encodings the plan service still emits:
// structured records, legacy day-code tokens ("M_F_8_6"), and legacy
// free-text strings ("Monday-Friday_8:00am-5:00pm_17.00").
//
// Parsing never fails hard. Anything unrecognizable degrades to the
// default Mon-Fri 9-5 schedule with a warning.
type Parser struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewParser creates a parser. A nil logger falls back to the default logger.
func NewParser(logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.Default()
	}
	return &Parser{logger: logger.Component("hours"), now: time.Now}
}

// dayCodes maps legacy single-letter day codes to weekday indexes.
// R is Thursday and A is Saturday; S doubles as Sunday.
var dayCodes = map[string]int{
	"S":  0,
	"M":  1,
	"T":  2,
	"W":  3,
	"R":  4,
	"F":  5,
	"A":  6,
	"SU": 0,
	"MO": 1,
	"TU": 2,
	"WE": 3,
	"TH": 4,
	"FR": 5,
	"SA": 6,
}

var (
	codeTokenRe = regexp.MustCompile(`^[A-Za-z]{1,2}_[A-Za-z]{1,2}_\d{1,2}_\d{1,2}$`)
	closeTailRe = regexp.MustCompile(`(\d{1,2})\.(\d{2})$`)
	freeTextRe  = regexp.MustCompile(`^([A-Za-z]+)-([A-Za-z]+)_(\d{1,2})(?::(\d{2}))?(am|pm)`)
)

// Parse sniffs the shape of a raw hours string and normalizes it.
func (p *Parser) Parse(raw string) BusinessHours {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return p.defaultSchedule()
	case isAlwaysOpenToken(raw):
		return p.alwaysOpen()
	case codeTokenRe.MatchString(raw):
		return p.parseCodeToken(raw)
	default:
		return p.parseFreeText(raw)
	}
}

// ParseRecord validates a structured schedule already in the target shape.
// Entries with unrecognized day names are rejected.
func (p *Parser) ParseRecord(b BusinessHours) (BusinessHours, error) {
	if b.Open24x7 {
		return b, nil
	}
	for _, d := range b.Days {
		if dayIndex(d.Day) < 0 {
			return BusinessHours{}, fmt.Errorf("hours: unknown day name %q", d.Day)
		}
		if d.IsOpen && d.Open > d.Close {
			return BusinessHours{}, fmt.Errorf("hours: %s opens %s after close %s", d.Day, d.Open, d.Close)
		}
	}
	if b.Source == "" {
		b.Source = SourceAPI
	}
	return b, nil
}

// isAlwaysOpenToken recognizes the distinguished 24/7 encodings.
func isAlwaysOpenToken(raw string) bool {
	switch strings.ToUpper(raw) {
	case "S_S_24", "24/7", "24X7":
		return true
	}
	return false
}

func (p *Parser) alwaysOpen() BusinessHours {
	days := make([]DaySchedule, 7)
	for i, name := range weekdayNames {
		days[i] = DaySchedule{Day: name, Open: "00:00", Close: "23:59", IsOpen: true}
	}
	return BusinessHours{Open24x7: true, Days: days, LastUpdated: p.now().UTC(), Source: SourceAPI}
}

// parseCodeToken expands "<StartDayCode>_<EndDayCode>_<StartHour>_<EndHour>"
// into a full seven-day schedule. The day range is inclusive and wraps when
// start > end (e.g. F_M covers Fri, Sat, Sun, Mon).
func (p *Parser) parseCodeToken(raw string) BusinessHours {
	parts := strings.Split(raw, "_")
	start, startOK := dayCodes[strings.ToUpper(parts[0])]
	end, endOK := dayCodes[strings.ToUpper(parts[1])]
	// Unknown day codes map to Monday. Documented quirk of the legacy feed.
	if !startOK {
		p.logger.Warn("unknown start day code, using Monday", "token", raw)
		start = 1
	}
	if !endOK {
		p.logger.Warn("unknown end day code, using Monday", "token", raw)
		end = 1
	}

	openAt, err1 := strconv.Atoi(parts[2])
	closeAt, err2 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || openAt > 23 || closeAt > 23 {
		p.logger.Warn("unparseable hours in legacy token, using default schedule", "token", raw)
		return p.defaultSchedule()
	}
	// The legacy feed writes afternoon close hours without the 12-hour
	// offset ("M_F_8_6" closes at 18:00, not 06:00). A window that stays
	// inverted after the repair is unparseable.
	if closeAt <= openAt {
		if closeAt+12 > 23 || closeAt+12 <= openAt {
			p.logger.Warn("inverted hours in legacy token, using default schedule", "token", raw)
			return p.defaultSchedule()
		}
		closeAt += 12
	}

	open := make(map[int]bool, 7)
	for i := start; ; i = (i + 1) % 7 {
		open[i] = true
		if i == end {
			break
		}
	}

	days := make([]DaySchedule, 7)
	for i, name := range weekdayNames {
		if open[i] {
			days[i] = DaySchedule{
				Day:    name,
				Open:   fmt.Sprintf("%02d:00", openAt),
				Close:  fmt.Sprintf("%02d:00", closeAt),
				IsOpen: true,
			}
			continue
		}
		days[i] = DaySchedule{Day: name, Open: "00:00", Close: "00:00"}
	}
	return BusinessHours{Days: days, LastUpdated: p.now().UTC(), Source: SourceAPI}
}

// parseFreeText handles strings like "Monday-Friday_8:00am-5:00pm_17.00".
// The trailing 24-hour token is the authoritative close time when present.
func (p *Parser) parseFreeText(raw string) BusinessHours {
	m := freeTextRe.FindStringSubmatch(raw)
	if m == nil {
		p.logger.Warn("unparseable hours string, using default schedule", "raw", raw)
		return p.defaultSchedule()
	}

	start := dayIndex(canonicalDay(m[1]))
	end := dayIndex(canonicalDay(m[2]))
	if start < 0 || end < 0 {
		p.logger.Warn("unknown day name in hours string, using default schedule", "raw", raw)
		return p.defaultSchedule()
	}

	openHour, _ := strconv.Atoi(m[3])
	openMinute := 0
	if m[4] != "" {
		openMinute, _ = strconv.Atoi(m[4])
	}
	if m[5] == "pm" && openHour < 12 {
		openHour += 12
	}

	closeStr := ""
	if tail := closeTailRe.FindStringSubmatch(raw); tail != nil {
		h, _ := strconv.Atoi(tail[1])
		if h <= 23 {
			closeStr = fmt.Sprintf("%02d:%s", h, tail[2])
		}
	}
	if closeStr == "" {
		p.logger.Warn("missing close-time token in hours string, using default schedule", "raw", raw)
		return p.defaultSchedule()
	}

	open := make(map[int]bool, 7)
	for i := start; ; i = (i + 1) % 7 {
		open[i] = true
		if i == end {
			break
		}
	}

	openStr := fmt.Sprintf("%02d:%02d", openHour, openMinute)
	days := make([]DaySchedule, 7)
	for i, name := range weekdayNames {
		if open[i] {
			days[i] = DaySchedule{Day: name, Open: openStr, Close: closeStr, IsOpen: true}
			continue
		}
		days[i] = DaySchedule{Day: name, Open: "00:00", Close: "00:00"}
	}
	return BusinessHours{Days: days, LastUpdated: p.now().UTC(), Source: SourceAPI}
}

// canonicalDay title-cases a day name so "monday" and "MONDAY" both resolve.
func canonicalDay(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// defaultSchedule is the Mon-Fri 9-5 fallback used whenever parsing degrades.
func (p *Parser) defaultSchedule() BusinessHours {
	days := make([]DaySchedule, 7)
	for i, name := range weekdayNames {
		if i >= 1 && i <= 5 {
			days[i] = DaySchedule{Day: name, Open: "09:00", Close: "17:00", IsOpen: true}
			continue
		}
		days[i] = DaySchedule{Day: name, Open: "00:00", Close: "00:00"}
	}
	return BusinessHours{Days: days, LastUpdated: p.now().UTC(), Source: SourceDefault}
}
