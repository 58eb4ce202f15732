package member

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Member
// entities. The matching engine only reads from it; all mutation happens in
// the bot's profile handlers.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id int64) (*Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	Update(ctx context.Context, m *Member) error // FirstName, LastName, Bio, Interests, Participation, IsActive
	ListActiveByParticipation(ctx context.Context, status ParticipationStatus) ([]*Member, error)
	ListActive(ctx context.Context) ([]*Member, error)
	ListAll(ctx context.Context) ([]*Member, error) // For admin purposes
	CountActiveByParticipation(ctx context.Context) (map[ParticipationStatus]int, error)
}
