package timesync

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseWorldTimeAPI(t *testing.T) {
	body := []byte(`{"datetime":"2025-06-01T12:34:56+00:00","unixtime":1748781296}`)
	got, err := parseWorldTimeAPI(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, time.June, 1, 12, 34, 56, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	if _, err := parseWorldTimeAPI([]byte(`{"datetime":"garbage"}`)); err == nil {
		t.Fatal("want error for malformed datetime")
	}
}

func TestParseTimeGov(t *testing.T) {
	want := time.Date(2025, time.June, 1, 12, 34, 56, 0, time.UTC)
	body := []byte(fmt.Sprintf(`<timestamp time="%d" delay="1"/>`, want.UnixMicro()))
	got, err := parseTimeGov(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	if _, err := parseTimeGov([]byte(`<timestamp delay="1"/>`)); err == nil {
		t.Fatal("want error when time attribute missing")
	}
	if _, err := parseTimeGov([]byte(`<timestamp time="abc"/>`)); err == nil {
		t.Fatal("want error for non-numeric time")
	}
}

func TestNow_Disabled(t *testing.T) {
	s := New(zap.NewNop(), true)
	before := time.Now().UTC()
	got := s.Now()
	after := time.Now().UTC()
	if got.Before(before) || got.After(after) {
		t.Fatalf("disabled service must track the system clock, got %v", got)
	}
}

func TestNow_UsesSkewedSource(t *testing.T) {
	const skew = 2 * time.Minute
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"datetime":%q}`, time.Now().UTC().Add(skew).Format(time.RFC3339Nano))
	}))
	defer srv.Close()

	s := New(zap.NewNop(), false)
	s.sources = []source{{url: srv.URL, parse: parseWorldTimeAPI}}

	got := s.Now()
	diff := got.Sub(time.Now().UTC().Add(skew))
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Fatalf("want clock skewed by ~%v, off by %v", skew, diff)
	}
}

func TestNow_AllSourcesFailFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(zap.NewNop(), false)
	s.sources = []source{{url: srv.URL, parse: parseWorldTimeAPI}}

	got := s.Now()
	diff := time.Since(got)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Fatalf("want system time fallback, off by %v", diff)
	}
}

func TestServerOffset_Override(t *testing.T) {
	if got := ServerOffset("GMT+1"); got != "GMT+01:00" {
		t.Fatalf("want GMT+01:00, got %s", got)
	}
	if got := ServerOffset("gmt-05:30"); got != "GMT-05:30" {
		t.Fatalf("want GMT-05:30, got %s", got)
	}

	// An invalid override falls back to the host zone, which is always
	// a valid canonical offset.
	got := ServerOffset("not-a-zone")
	if len(got) != len("GMT+00:00") || got[:3] != "GMT" {
		t.Fatalf("want canonical GMT offset, got %s", got)
	}
}
