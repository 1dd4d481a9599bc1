package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Offset is a fixed GMT offset with the sign applied to both components,
// e.g. GMT-05:30 is {Hours: -5, Minutes: -30}. No DST, no IANA zones.
type Offset struct {
	Hours   int
	Minutes int
}

var offsetRe = regexp.MustCompile(`^GMT([+-])(\d{1,2})(?::(\d{2}))?$`)

// ParseOffset parses a timezone string of the form GMT±HH or GMT±HH:MM,
// case-insensitive. Hours above 14 and minutes of 60+ are rejected
// (real-world offsets span UTC-12..UTC+14).
func ParseOffset(s string) (Offset, error) {
	m := offsetRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return Offset{}, fmt.Errorf("invalid timezone %q, expected GMT±HH:MM", s)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if hours > 14 || minutes >= 60 {
		return Offset{}, fmt.Errorf("timezone %q out of range", s)
	}
	if m[1] == "-" {
		hours, minutes = -hours, -minutes
	}
	return Offset{Hours: hours, Minutes: minutes}, nil
}

// String renders the canonical storage form GMT±HH:MM, so a subsequent
// ParseOffset round-trips exactly.
func (o Offset) String() string {
	sign := "+"
	h, m := o.Hours, o.Minutes
	if h < 0 || m < 0 {
		sign = "-"
		h, m = -h, -m
	}
	return fmt.Sprintf("GMT%s%02d:%02d", sign, h, m)
}

// TotalMinutes returns the signed offset in minutes.
func (o Offset) TotalMinutes() int {
	return o.Hours*60 + o.Minutes
}

// ToGMT converts a user-local wall-clock time to the equivalent GMT
// hour and minute, wrapping across midnight. When the offset string is
// invalid it returns the input unchanged with ok=false; the caller is
// expected to log and carry on in server time rather than abort.
func ToGMT(hour, minute int, timezone string) (gmtHour, gmtMinute int, ok bool) {
	off, err := ParseOffset(timezone)
	if err != nil {
		return hour, minute, false
	}
	total := (hour*60 + minute - off.TotalMinutes()) % 1440
	if total < 0 {
		total += 1440
	}
	return total / 60, total % 60, true
}

// ToLocal shifts a UTC instant into the user's fixed-offset local time.
// Invalid offsets fall back to UTC unchanged.
func ToLocal(t time.Time, timezone string) time.Time {
	off, err := ParseOffset(timezone)
	if err != nil {
		return t.UTC()
	}
	return t.UTC().Add(time.Duration(off.TotalMinutes()) * time.Minute)
}
