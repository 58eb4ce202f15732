package member

import (
	"database/sql"
	"time"
)

// ParticipationStatus controls how a member takes part in weekly matching.
type ParticipationStatus string

const (
	StatusAlways      ParticipationStatus = "always"
	StatusNever       ParticipationStatus = "never"
	StatusAskEachTime ParticipationStatus = "ask_each_time"
)

// Member represents a registered Random Coffee participant.
type Member struct {
	ID            int64
	TelegramID    int64
	Username      sql.NullString // Telegram username, optional
	FirstName     string
	LastName      sql.NullString
	Bio           sql.NullString
	Interests     sql.NullString
	Participation ParticipationStatus
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns the display name, including the last name when present.
func (m *Member) FullName() string {
	if m.LastName.Valid && m.LastName.String != "" {
		return m.FirstName + " " + m.LastName.String
	}
	return m.FirstName
}
