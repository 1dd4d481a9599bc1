package domain

import "testing"

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		hours   int
		minutes int
		wantErr bool
	}{
		{in: "GMT+5", hours: 5, minutes: 0},
		{in: "GMT+05", hours: 5, minutes: 0},
		{in: "GMT-05:30", hours: -5, minutes: -30},
		{in: "gmt+3", hours: 3, minutes: 0},
		{in: " GMT+14:00 ", hours: 14, minutes: 0},
		{in: "GMT+15", wantErr: true},
		{in: "GMT+5:60", wantErr: true},
		{in: "UTC+3", wantErr: true},
		{in: "GMT5", wantErr: true},
		{in: "garbage", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseOffset(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseOffset(%q) error: %v", tt.in, err)
		}
		if got.Hours != tt.hours || got.Minutes != tt.minutes {
			t.Fatalf("ParseOffset(%q) = (%d,%d), want (%d,%d)", tt.in, got.Hours, got.Minutes, tt.hours, tt.minutes)
		}
	}
}

func TestToGMT(t *testing.T) {
	tests := []struct {
		hour, minute int
		tz           string
		wantH, wantM int
	}{
		{8, 0, "GMT+3", 5, 0},
		{1, 0, "GMT+3", 22, 0},  // wraps backward across midnight
		{23, 30, "GMT-2", 1, 30}, // wraps forward
		{8, 0, "GMT+05:30", 2, 30},
		{0, 0, "GMT+00:00", 0, 0},
	}
	for _, tt := range tests {
		h, m, ok := ToGMT(tt.hour, tt.minute, tt.tz)
		if !ok {
			t.Fatalf("ToGMT(%d,%d,%q) not ok", tt.hour, tt.minute, tt.tz)
		}
		if h != tt.wantH || m != tt.wantM {
			t.Fatalf("ToGMT(%d,%d,%q) = (%d,%d), want (%d,%d)",
				tt.hour, tt.minute, tt.tz, h, m, tt.wantH, tt.wantM)
		}
	}
}

func TestToGMTInvalidOffsetKeepsInput(t *testing.T) {
	h, m, ok := ToGMT(8, 15, "not-a-timezone")
	if ok {
		t.Fatal("expected ok=false for invalid offset")
	}
	if h != 8 || m != 15 {
		t.Fatalf("got (%d,%d), want input unchanged (8,15)", h, m)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	for _, s := range []string{"GMT+5", "GMT-05:30", "GMT+03:00", "GMT-0", "GMT+14", "gmt-11:45"} {
		first, err := ParseOffset(s)
		if err != nil {
			t.Fatalf("ParseOffset(%q) error: %v", s, err)
		}
		second, err := ParseOffset(first.String())
		if err != nil {
			t.Fatalf("ParseOffset(%q) error: %v", first.String(), err)
		}
		if first != second {
			t.Fatalf("round trip of %q: %+v != %+v", s, first, second)
		}
	}
}
