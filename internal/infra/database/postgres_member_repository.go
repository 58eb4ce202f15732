package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"random_coffee_bot/internal/domain/member"
)

// Custom errors
var ErrMemberNotFound = fmt.Errorf("member not found")
var ErrDuplicateTelegramID = fmt.Errorf("member with this Telegram ID already exists")

const memberColumns = `id, telegram_id, username, first_name, last_name, bio, interests, participation_status, is_active, created_at, updated_at`

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func scanMember(row interface{ Scan(...any) error }) (*member.Member, error) {
	m := &member.Member{}
	err := row.Scan(&m.ID, &m.TelegramID, &m.Username, &m.FirstName, &m.LastName,
		&m.Bio, &m.Interests, &m.Participation, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `INSERT INTO members (telegram_id, username, first_name, last_name, bio, interests, participation_status, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, m.TelegramID, m.Username, m.FirstName, m.LastName,
		m.Bio, m.Interests, m.Participation, m.IsActive).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "members_telegram_id_key") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE telegram_id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by Telegram ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) Update(ctx context.Context, m *member.Member) error {
	query := `UPDATE members
               SET username = $1, first_name = $2, last_name = $3, bio = $4, interests = $5,
                   participation_status = $6, is_active = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, m.Username, m.FirstName, m.LastName, m.Bio,
		m.Interests, m.Participation, m.IsActive, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrMemberNotFound
		}
		return fmt.Errorf("error updating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) listMembers(ctx context.Context, query string, args ...any) ([]*member.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *PostgresMemberRepository) ListActiveByParticipation(ctx context.Context, status member.ParticipationStatus) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
               WHERE is_active = TRUE AND participation_status = $1
               ORDER BY first_name, last_name`
	return r.listMembers(ctx, query, status)
}

func (r *PostgresMemberRepository) ListActive(ctx context.Context) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
               WHERE is_active = TRUE ORDER BY first_name, last_name`
	return r.listMembers(ctx, query)
}

func (r *PostgresMemberRepository) ListAll(ctx context.Context) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY id`
	return r.listMembers(ctx, query)
}

func (r *PostgresMemberRepository) CountActiveByParticipation(ctx context.Context) (map[member.ParticipationStatus]int, error) {
	query := `SELECT participation_status, COUNT(*) FROM members
               WHERE is_active = TRUE GROUP BY participation_status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error counting members by participation: %w", err)
	}
	defer rows.Close()

	counts := make(map[member.ParticipationStatus]int)
	for rows.Next() {
		var status member.ParticipationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("error scanning participation count: %w", err)
		}
		counts[status] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participation counts: %w", err)
	}
	return counts, nil
}
