package timesync

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

const (
	fetchTimeout  = 5 * time.Second
	cacheDuration = 10 * time.Minute
)

// source is one public time server plus its payload parser.
type source struct {
	url   string
	parse func(body []byte) (time.Time, error)
}

var defaultSources = []source{
	{url: "http://worldtimeapi.org/api/timezone/UTC", parse: parseWorldTimeAPI},
	{url: "https://www.time.gov/actualtime.cgi", parse: parseTimeGov},
}

func parseWorldTimeAPI(body []byte) (time.Time, error) {
	var payload struct {
		Datetime string `json:"datetime"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, payload.Datetime)
}

// parseTimeGov extracts the microsecond timestamp from a response like
// <timestamp time="1693237954357000" delay="..."/>.
func parseTimeGov(body []byte) (time.Time, error) {
	s := string(body)
	i := strings.Index(s, `time="`)
	if i < 0 {
		return time.Time{}, fmt.Errorf("no time attribute in %q", s)
	}
	rest := s[i+len(`time="`):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return time.Time{}, fmt.Errorf("unterminated time attribute in %q", s)
	}
	micros, err := strconv.ParseInt(rest[:j], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(micros).UTC(), nil
}

// Service keeps a best-effort "true UTC" clock: the system clock corrected
// by an offset measured against public time servers, cached for ten
// minutes. When disabled or when every source fails it degrades to the
// plain system clock.
type Service struct {
	log      *zap.Logger
	httpc    *http.Client
	sources  []source
	disabled bool

	mu        sync.Mutex
	offset    time.Duration
	fetchedAt time.Time
}

func New(log *zap.Logger, disabled bool) *Service {
	return &Service{
		log:      log,
		httpc:    &http.Client{Timeout: fetchTimeout},
		sources:  defaultSources,
		disabled: disabled,
	}
}

// Now returns the current UTC time corrected by the cached true-time offset.
func (s *Service) Now() time.Time {
	if s.disabled {
		return time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchedAt.IsZero() || time.Since(s.fetchedAt) > cacheDuration {
		s.refreshLocked()
	}
	return time.Now().UTC().Add(s.offset)
}

func (s *Service) refreshLocked() {
	s.fetchedAt = time.Now()
	for _, src := range s.sources {
		trueUTC, err := s.fetch(src)
		if err != nil {
			s.log.Debug("time source failed", zap.String("url", src.url), zap.Error(err))
			continue
		}
		s.offset = trueUTC.Sub(time.Now().UTC())
		s.log.Debug("true time synced",
			zap.String("url", src.url),
			zap.Duration("offset", s.offset))
		return
	}
	s.log.Warn("all time servers failed, using system time")
	s.offset = 0
}

func (s *Service) fetch(src source) (time.Time, error) {
	resp, err := s.httpc.Get(src.url)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return time.Time{}, err
	}
	return src.parse(body)
}

// ServerOffset reports the server's own timezone as a canonical GMT±HH:MM
// string, honoring a valid override from configuration.
func ServerOffset(override string) string {
	if override != "" {
		if off, err := domain.ParseOffset(override); err == nil {
			return off.String()
		}
	}
	_, secs := time.Now().Zone()
	return domain.Offset{Hours: secs / 3600, Minutes: (secs % 3600) / 60}.String()
}
