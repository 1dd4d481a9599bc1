package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleType tags a user's feeding cadence.
type ScheduleType string

const (
	TwoTimes   ScheduleType = "2 times"
	ThreeTimes ScheduleType = "3 times"
	FourTimes  ScheduleType = "4 times"
	Manual     ScheduleType = "manual"
	Stopped    ScheduleType = "stopped"
)

// PresetTimes maps each fixed cadence to its local "HH:MM" slots.
// Manual and Stopped carry no slots.
var PresetTimes = map[ScheduleType][]string{
	TwoTimes:   {"08:00", "20:00"},
	ThreeTimes: {"08:00", "14:00", "20:00"},
	FourTimes:  {"08:00", "12:00", "16:00", "20:00"},
	Manual:     {},
	Stopped:    {},
}

// SetupChoices lists the types offered by /setup, in menu order.
var SetupChoices = []ScheduleType{TwoTimes, ThreeTimes, FourTimes, Manual}

// Schedule is a user's stored feeding cadence. It is overwritten wholesale
// on every /setup or /stop, never patched.
type Schedule struct {
	UserID    int64
	Type      ScheduleType
	Times     []string // ordered local "HH:MM", empty for manual/stopped
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the slot count matches the type's cardinality.
func (s *Schedule) Validate() error {
	want, ok := PresetTimes[s.Type]
	if !ok {
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}
	if len(s.Times) != len(want) {
		return fmt.Errorf("schedule %q expects %d times, got %d", s.Type, len(want), len(s.Times))
	}
	for _, t := range s.Times {
		if _, _, err := ParseHHMM(t); err != nil {
			return err
		}
	}
	return nil
}

// ParseHHMM parses a zero-padded 24-hour "HH:MM" string.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// FormatHHMM renders hour and minute as zero-padded "HH:MM".
func FormatHHMM(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
