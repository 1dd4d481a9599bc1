package scheduler

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

func newTestScheduler() (*Scheduler, clock.FakeClock) {
	clk := clock.NewFake()
	s := New(zap.NewNop(), clk)
	return s, clk
}

func TestSetRecurring_Idempotent(t *testing.T) {
	s, _ := newTestScheduler()

	if err := s.SetRecurring(42, 8, 0, "GMT+3"); err != nil {
		t.Fatalf("first SetRecurring: %v", err)
	}
	if err := s.SetRecurring(42, 8, 0, "GMT+3"); err != nil {
		t.Fatalf("second SetRecurring: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("want 1 job after re-registration, got %d", len(jobs))
	}
	if jobs[0].ID != "feed_42_08:00" {
		t.Fatalf("want job id feed_42_08:00, got %s", jobs[0].ID)
	}
	if jobs[0].ChatID != 42 {
		t.Fatalf("want chat 42, got %d", jobs[0].ChatID)
	}
}

func TestSetRecurring_RequiresTimezone(t *testing.T) {
	s, _ := newTestScheduler()

	if err := s.SetRecurring(1, 8, 0, ""); err != ErrNoTimezone {
		t.Fatalf("want ErrNoTimezone, got %v", err)
	}
	if err := s.SetRecurring(1, 8, 0, "   "); err != ErrNoTimezone {
		t.Fatalf("want ErrNoTimezone for blank tz, got %v", err)
	}
	if len(s.Jobs()) != 0 {
		t.Fatalf("no jobs expected, got %d", len(s.Jobs()))
	}
}

func TestSetRecurring_UnparsableTimezoneStillSchedules(t *testing.T) {
	s, _ := newTestScheduler()

	if err := s.SetRecurring(7, 9, 30, "UTC+banana"); err != nil {
		t.Fatalf("SetRecurring: %v", err)
	}
	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].ID != "feed_7_09:30" {
		t.Fatalf("want one job feed_7_09:30, got %+v", jobs)
	}
}

func TestClearChat_TokenIsolation(t *testing.T) {
	s, _ := newTestScheduler()

	// Chat 1 and chat 11: "_1_" must not match "_11_".
	if err := s.SetRecurring(1, 8, 0, "GMT+0"); err != nil {
		t.Fatalf("SetRecurring chat 1: %v", err)
	}
	if err := s.SetRecurring(11, 8, 0, "GMT+0"); err != nil {
		t.Fatalf("SetRecurring chat 11: %v", err)
	}
	s.SetOneShot(1, s.clk.Now().Add(time.Hour))
	s.SetOneShot(11, s.clk.Now().Add(time.Hour))

	removed := s.ClearChat(1)
	if removed != 2 {
		t.Fatalf("want 2 removed for chat 1, got %d", removed)
	}

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("want 2 surviving jobs for chat 11, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.ChatID != 11 {
			t.Fatalf("surviving job belongs to chat %d: %s", j.ChatID, j.ID)
		}
	}
}

func TestClearChat_Empty(t *testing.T) {
	s, _ := newTestScheduler()
	if removed := s.ClearChat(999); removed != 0 {
		t.Fatalf("want 0 removed, got %d", removed)
	}
}

func TestSetOneShot_IDAndReplace(t *testing.T) {
	s, clk := newTestScheduler()

	at := clk.Now().Add(time.Hour).UTC()
	id1 := s.SetOneShot(5, at)
	id2 := s.SetOneShot(5, at)

	if id1 != id2 {
		t.Fatalf("same instant must derive the same id: %s vs %s", id1, id2)
	}
	want := "followup_5_" + at.Format("20060102_1504")
	if id1 != want {
		t.Fatalf("want id %s, got %s", want, id1)
	}
	if len(s.Jobs()) != 1 {
		t.Fatalf("want 1 job after replace, got %d", len(s.Jobs()))
	}
}

func TestSetOneShot_FiresOnceAndSelfRemoves(t *testing.T) {
	s, clk := newTestScheduler()

	var mu sync.Mutex
	var fired []int64
	s.Bind(func(chatID int64, rescheduleIfMissed bool) {
		mu.Lock()
		fired = append(fired, chatID)
		mu.Unlock()
		if !rescheduleIfMissed {
			t.Errorf("one-shot must fire with rescheduleIfMissed=true")
		}
	})

	s.SetOneShot(5, clk.Now().Add(time.Hour))
	clk.Add(time.Hour + time.Second)

	// The fake clock may run the callback on another goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(fired)
		mu.Unlock()
		if n > 0 && len(s.Jobs()) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("one-shot did not fire and self-remove, fired=%v jobs=%+v", fired, s.Jobs())
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != 5 {
		t.Fatalf("want exactly one firing for chat 5, got %v", fired)
	}
}

func TestJobs_SortedSnapshot(t *testing.T) {
	s, clk := newTestScheduler()

	if err := s.SetRecurring(2, 20, 0, "GMT+0"); err != nil {
		t.Fatalf("SetRecurring: %v", err)
	}
	if err := s.SetRecurring(2, 8, 0, "GMT+0"); err != nil {
		t.Fatalf("SetRecurring: %v", err)
	}
	s.SetOneShot(2, clk.Now().Add(time.Hour))

	jobs := s.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("want 3 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i-1].ID > jobs[i].ID {
			t.Fatalf("jobs not sorted: %s before %s", jobs[i-1].ID, jobs[i].ID)
		}
	}
	if !strings.HasPrefix(jobs[0].ID, "feed_2_") {
		t.Fatalf("unexpected first job id %s", jobs[0].ID)
	}
}
