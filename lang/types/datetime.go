// Mgmt
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package types

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationRegexp = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	timezoneRegexp = regexp.MustCompile(`(Z|[+-]\d\d:\d\d)$`)
)

// parseDuration parses the lexical form of a duration. The target type is
// used to reject components that its lexical space doesn't allow.
func parseDuration(s string, target Type) (*DurationValue, error) {
	m := durationRegexp.FindStringSubmatch(s)
	if m == nil || strings.HasSuffix(s, "T") || s == "P" || s == "-P" {
		return nil, fmt.Errorf("invalid duration: %s", s)
	}
	num := func(x string) int64 {
		if x == "" {
			return 0
		}
		i, _ := strconv.ParseInt(x, 10, 64) // regexp guarantees digits
		return i
	}
	years, months := num(m[2]), num(m[3])
	days, hours, minutes := num(m[4]), num(m[5]), num(m[6])
	seconds := 0.0
	if m[7] != "" {
		seconds, _ = strconv.ParseFloat(m[7], 64)
	}
	hasYM := m[2] != "" || m[3] != ""
	hasDT := m[4] != "" || m[5] != "" || m[6] != "" || m[7] != ""
	if target == TypeYearMonthDuration && hasDT {
		return nil, fmt.Errorf("invalid yearMonthDuration: %s", s)
	}
	if target == TypeDayTimeDuration && hasYM {
		return nil, fmt.Errorf("invalid dayTimeDuration: %s", s)
	}

	total := years*12 + months
	dur := time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	dur += time.Duration(math.Round(seconds * float64(time.Second)))
	if m[1] == "-" {
		total, dur = -total, -dur
	}
	return &DurationValue{Months: total, Dur: dur, T: target}, nil
}

// formatDuration returns the canonical form of a duration.
func formatDuration(months int64, dur time.Duration, t Type) string {
	if months == 0 && dur == 0 {
		if t == TypeYearMonthDuration {
			return "P0M"
		}
		return "PT0S"
	}
	s := &strings.Builder{}
	if months < 0 || dur < 0 {
		s.WriteString("-")
		months, dur = -months, -dur
	}
	s.WriteString("P")
	if y := months / 12; y > 0 {
		fmt.Fprintf(s, "%dY", y)
	}
	if m := months % 12; m > 0 {
		fmt.Fprintf(s, "%dM", m)
	}
	if d := dur / (24 * time.Hour); d > 0 {
		fmt.Fprintf(s, "%dD", d)
		dur -= d * 24 * time.Hour
	}
	if dur > 0 {
		s.WriteString("T")
		if h := dur / time.Hour; h > 0 {
			fmt.Fprintf(s, "%dH", h)
			dur -= h * time.Hour
		}
		if m := dur / time.Minute; m > 0 {
			fmt.Fprintf(s, "%dM", m)
			dur -= m * time.Minute
		}
		if dur > 0 {
			secs := strconv.FormatFloat(dur.Seconds(), 'f', -1, 64)
			fmt.Fprintf(s, "%sS", secs)
		}
	}
	return s.String()
}

// dateTimeLayouts are the time package layouts of the date and time types.
var dateTimeLayouts = map[Type]string{
	TypeDateTime: "2006-01-02T15:04:05.999999999",
	TypeDate:     "2006-01-02",
	TypeTime:     "15:04:05.999999999",
}

// parseDateTime parses the lexical form of one of the date and time types.
func parseDateTime(s string, target Type) (*DateTimeValue, error) {
	layout, exists := dateTimeLayouts[target]
	if !exists {
		return nil, fmt.Errorf("not a date or time type: %s", target)
	}
	tz := timezoneRegexp.MatchString(s)
	if target == TypeDate && !tz && strings.Count(s, "-") > 2 {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	if tz {
		layout += "Z07:00"
	}
	v, err := time.Parse(layout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", target, s)
	}
	if !tz {
		v = v.UTC()
	}
	return &DateTimeValue{V: v, T: target, TZ: tz}, nil
}

// formatDateTime returns the canonical form of a date or time value.
func formatDateTime(v time.Time, t Type, tz bool) string {
	layout, exists := dateTimeLayouts[t]
	if !exists {
		layout = dateTimeLayouts[TypeDateTime]
	}
	s := v.Format(layout)
	if tz {
		s += v.Format("Z07:00")
	}
	return s
}
