package domain

import "testing"

func TestPresetCardinality(t *testing.T) {
	counts := map[ScheduleType]int{
		TwoTimes:   2,
		ThreeTimes: 3,
		FourTimes:  4,
		Manual:     0,
		Stopped:    0,
	}
	for typ, want := range counts {
		if got := len(PresetTimes[typ]); got != want {
			t.Fatalf("%s: %d times, want %d", typ, got, want)
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	good := Schedule{Type: TwoTimes, Times: []string{"08:00", "20:00"}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}

	short := Schedule{Type: FourTimes, Times: []string{"08:00"}}
	if err := short.Validate(); err == nil {
		t.Fatal("expected cardinality error")
	}

	stopped := Schedule{Type: Stopped, Times: nil}
	if err := stopped.Validate(); err != nil {
		t.Fatalf("stopped schedule rejected: %v", err)
	}

	malformed := Schedule{Type: TwoTimes, Times: []string{"08:00", "25:00"}}
	if err := malformed.Validate(); err == nil {
		t.Fatal("expected time parse error")
	}

	unknown := Schedule{Type: ScheduleType("5 times")}
	if err := unknown.Validate(); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestParseHHMM(t *testing.T) {
	h, m, err := ParseHHMM("08:05")
	if err != nil || h != 8 || m != 5 {
		t.Fatalf("ParseHHMM(08:05) = (%d,%d,%v)", h, m, err)
	}
	for _, bad := range []string{"8", "8:5:0", "24:00", "12:60", "ab:cd", ""} {
		if _, _, err := ParseHHMM(bad); err == nil {
			t.Fatalf("ParseHHMM(%q) accepted", bad)
		}
	}
	if got := FormatHHMM(8, 5); got != "08:05" {
		t.Fatalf("FormatHHMM = %s", got)
	}
}
