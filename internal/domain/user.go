package domain

import "time"

// User is one Telegram account known to the bot. A row is created or
// refreshed on every inbound message and never deleted.
type User struct {
	UserID    int64
	Username  string
	FullName  string
	Timezone  string // canonical "GMT±HH:MM", empty until the user sets one
	Partners  []int64
	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC
}

// Feeding is an immutable log entry for one confirmed feeding.
// PartnersNotified is the only field that may be amended later.
type Feeding struct {
	ID               int64
	UserID           int64
	Timestamp        time.Time // UTC
	ScheduleType     ScheduleType
	PhotoID          string
	VideoID          string
	PartnersNotified []int64
}

// HasMedia reports whether the feeding carried a photo or video.
func (f *Feeding) HasMedia() bool {
	return f.PhotoID != "" || f.VideoID != ""
}
