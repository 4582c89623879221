package validity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is a certificate validity period broken into years, months
// and days. Months count as 30 days and years as 365 days; there is
// no calendar arithmetic anywhere in the conversion.
type Period struct {
	Years  int
	Months int
	Days   int
}

var (
	plainDaysRe = regexp.MustCompile(`^\d+$`)
	periodRe    = regexp.MustCompile(`^(\d+[ymd])+$`)
	unitRe      = regexp.MustCompile(`(\d+)([ymd])`)
)

// Parse parses a validity period string. Accepted forms are a plain
// number of days ("365") or a combination of unit suffixes ("30d",
// "6m", "1y", "1y6m", "30d6m"). The resulting period must cover at
// least one day.
func Parse(s string) (*Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("validity period cannot be empty")
	}

	p := &Period{}

	if plainDaysRe.MatchString(s) {
		days, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric validity value: %v", err)
		}
		p.Days = days
	} else {
		if !periodRe.MatchString(s) {
			return nil, fmt.Errorf("invalid validity format: %s (expected formats: 30d, 6m, 1y, 1y6m, or plain number of days)", s)
		}
		seen := map[string]bool{}
		for _, m := range unitRe.FindAllStringSubmatch(s, -1) {
			if seen[m[2]] {
				return nil, fmt.Errorf("invalid validity format: %s (unit %q given twice)", s, m[2])
			}
			seen[m[2]] = true

			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid %s value: %v", unitName(m[2]), err)
			}
			switch m[2] {
			case "y":
				p.Years = n
			case "m":
				p.Months = n
			case "d":
				p.Days = n
			}
		}
	}

	if p.TotalDays() <= 0 {
		return nil, fmt.Errorf("validity period must cover at least one day")
	}
	return p, nil
}

func unitName(unit string) string {
	switch unit {
	case "y":
		return "year"
	case "m":
		return "month"
	default:
		return "day"
	}
}

// TotalDays converts the period to a total number of days.
func (p *Period) TotalDays() int {
	return p.Days + p.Months*30 + p.Years*365
}

// Duration converts the period to an exact fixed-day duration,
// 24 hours per day.
func (p *Period) Duration() time.Duration {
	return time.Duration(p.TotalDays()) * 24 * time.Hour
}

// String renders the period in compact unit form, e.g. "1y6m" or
// "365d".
func (p *Period) String() string {
	var b strings.Builder
	if p.Years > 0 {
		fmt.Fprintf(&b, "%dy", p.Years)
	}
	if p.Months > 0 {
		fmt.Fprintf(&b, "%dm", p.Months)
	}
	if p.Days > 0 || b.Len() == 0 {
		fmt.Fprintf(&b, "%dd", p.Days)
	}
	return b.String()
}
