package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"random_coffee_bot/internal/domain/matching"
	"random_coffee_bot/internal/domain/member"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to matching repository
var ErrSessionNotFound = fmt.Errorf("matching session not found")
var ErrNoActiveSession = fmt.Errorf("no active matching session")
var ErrSessionConflict = fmt.Errorf("another matching session is still active")
var ErrInvalidSessionState = fmt.Errorf("matching session is not in the expected state")
var ErrPairingRecordNotFound = fmt.Errorf("pairing record not found")

type PostgresMatchingRepository struct {
	db *sql.DB
}

func NewPostgresMatchingRepository(db *sql.DB) *PostgresMatchingRepository {
	return &PostgresMatchingRepository{db: db}
}

// --- MatchingSession Methods ---

func (r *PostgresMatchingRepository) CreateSession(ctx context.Context, s *matching.Session) error {
	query := `INSERT INTO matching_sessions (status, deadline)
               VALUES ($1, $2)
               RETURNING id, started_at`
	if s.Status == "" {
		s.Status = matching.SessionCollecting
	}
	err := r.db.QueryRowContext(ctx, query, s.Status, s.Deadline).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		// The partial unique index rejects a second non-completed session.
		if strings.Contains(err.Error(), "matching_sessions_single_active") {
			return ErrSessionConflict
		}
		return fmt.Errorf("error creating matching session: %w", err)
	}
	return nil
}

func (r *PostgresMatchingRepository) GetSessionByID(ctx context.Context, id int64) (*matching.Session, error) {
	query := `SELECT id, status, started_at, deadline, completed_at, forced_completion
               FROM matching_sessions WHERE id = $1`
	s := matching.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Status, &s.StartedAt, &s.Deadline, &s.CompletedAt, &s.ForcedCompletion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting matching session by ID: %w", err)
	}
	return &s, nil
}

func (r *PostgresMatchingRepository) GetCurrentSession(ctx context.Context) (*matching.Session, error) {
	query := `SELECT id, status, started_at, deadline, completed_at, forced_completion
               FROM matching_sessions WHERE status <> $1
               ORDER BY started_at DESC LIMIT 1`
	s := matching.Session{}
	err := r.db.QueryRowContext(ctx, query, matching.SessionCompleted).Scan(&s.ID, &s.Status, &s.StartedAt, &s.Deadline, &s.CompletedAt, &s.ForcedCompletion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("error getting current matching session: %w", err)
	}
	return &s, nil
}

// TransitionSession moves a session from one status to another. The update
// is conditional on the current status so a racing caller loses with
// ErrInvalidSessionState instead of overwriting the other's transition.
func (r *PostgresMatchingRepository) TransitionSession(ctx context.Context, id int64, from, to matching.SessionStatus) error {
	query := `UPDATE matching_sessions SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("error transitioning matching session %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking transition of matching session %d: %w", id, err)
	}
	if affected == 0 {
		return ErrInvalidSessionState
	}
	return nil
}

func (r *PostgresMatchingRepository) CompleteSession(ctx context.Context, id int64, from matching.SessionStatus, forced bool) error {
	query := `UPDATE matching_sessions
               SET status = $1, completed_at = NOW(), forced_completion = $2
               WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, matching.SessionCompleted, forced, id, from)
	if err != nil {
		return fmt.Errorf("error completing matching session %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking completion of matching session %d: %w", id, err)
	}
	if affected == 0 {
		return ErrInvalidSessionState
	}
	return nil
}

// --- PairingRecord Methods ---

func (r *PostgresMatchingRepository) CreatePairingRecord(ctx context.Context, rec *matching.PairingRecord) error {
	query := `INSERT INTO pairing_records (member1_id, member2_id)
               VALUES ($1, $2)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, rec.Member1ID, rec.Member2ID).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating pairing record: %w", err)
	}
	return nil
}

// LatestPairingTime returns the creation time of the most recent record for
// the unordered pair {memberA, memberB}.
func (r *PostgresMatchingRepository) LatestPairingTime(ctx context.Context, memberA, memberB int64) (time.Time, error) {
	query := `SELECT created_at FROM pairing_records
               WHERE (member1_id = $1 AND member2_id = $2)
                  OR (member1_id = $2 AND member2_id = $1)
               ORDER BY created_at DESC LIMIT 1`
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, query, memberA, memberB).Scan(&createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, ErrPairingRecordNotFound
		}
		return time.Time{}, fmt.Errorf("error getting latest pairing time: %w", err)
	}
	return createdAt, nil
}

func (r *PostgresMatchingRepository) HasRecentPairing(ctx context.Context, memberA, memberB int64, windowDays int) (bool, error) {
	createdAt, err := r.LatestPairingTime(ctx, memberA, memberB)
	if err != nil {
		if err == ErrPairingRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return matching.WithinWindow(createdAt, time.Now(), windowDays), nil
}

func (r *PostgresMatchingRepository) RecordMeetingFeedback(ctx context.Context, recordID int64, feedback matching.MeetingFeedback) error {
	query := `UPDATE pairing_records
               SET meeting_feedback = $1,
                   is_completed = is_completed OR $1 = $2
               WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(feedback), string(matching.FeedbackMet), recordID)
	if err != nil {
		return fmt.Errorf("error recording meeting feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking meeting feedback update: %w", err)
	}
	if affected == 0 {
		return ErrPairingRecordNotFound
	}
	return nil
}

func (r *PostgresMatchingRepository) CountPairingRecords(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairing_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting pairing records: %w", err)
	}
	return count, nil
}

func (r *PostgresMatchingRepository) CountPairingRecordsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairing_records WHERE created_at > $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting recent pairing records: %w", err)
	}
	return count, nil
}

// --- PendingConfirmation Methods ---

// EnqueueConfirmations inserts a PENDING row per member. A member already
// present keeps a single row with their state reset to PENDING, so the call
// is idempotent and stale state from a previous cycle cannot leak through.
func (r *PostgresMatchingRepository) EnqueueConfirmations(ctx context.Context, sessionID int64, memberIDs []int64) error {
	if len(memberIDs) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for enqueue: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO pending_confirmations (member_id, session_id, status, created_at)
                                         VALUES ($1, $2, $3, NOW())
                                         ON CONFLICT (member_id) DO UPDATE
                                         SET session_id = EXCLUDED.session_id, status = EXCLUDED.status, created_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for enqueue: %w", err)
	}
	defer stmt.Close()

	for _, memberID := range memberIDs {
		if _, err := stmt.ExecContext(ctx, memberID, sessionID, matching.ConfirmationPending); err != nil {
			return fmt.Errorf("error enqueueing confirmation for member %d: %w", memberID, err)
		}
	}

	return txn.Commit()
}

// RespondToConfirmation stores the member's answer. It returns false when
// the member has no pending row, which means they are simply not part of
// this cycle (or already answered).
func (r *PostgresMatchingRepository) RespondToConfirmation(ctx context.Context, memberID int64, accepted bool) (bool, error) {
	status := matching.ConfirmationDeclined
	if accepted {
		status = matching.ConfirmationAccepted
	}

	query := `UPDATE pending_confirmations SET status = $1
               WHERE member_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, status, memberID, matching.ConfirmationPending)
	if err != nil {
		return false, fmt.Errorf("error responding to confirmation for member %d: %w", memberID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error checking confirmation response for member %d: %w", memberID, err)
	}
	return affected > 0, nil
}

func (r *PostgresMatchingRepository) listConfirmationMembers(ctx context.Context, sessionID int64, status matching.ConfirmationStatus) ([]*member.Member, error) {
	query := `SELECT m.id, m.telegram_id, m.username, m.first_name, m.last_name, m.bio, m.interests,
                      m.participation_status, m.is_active, m.created_at, m.updated_at
               FROM members m
               JOIN pending_confirmations pc ON pc.member_id = m.id
               WHERE pc.session_id = $1 AND pc.status = $2 AND m.is_active = TRUE
               ORDER BY m.id`

	rows, err := r.db.QueryContext(ctx, query, sessionID, status)
	if err != nil {
		return nil, fmt.Errorf("error querying confirmation members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning confirmation member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confirmation members: %w", err)
	}
	return members, nil
}

func (r *PostgresMatchingRepository) ListPendingMembers(ctx context.Context, sessionID int64) ([]*member.Member, error) {
	return r.listConfirmationMembers(ctx, sessionID, matching.ConfirmationPending)
}

func (r *PostgresMatchingRepository) ListConfirmedMembers(ctx context.Context, sessionID int64) ([]*member.Member, error) {
	return r.listConfirmationMembers(ctx, sessionID, matching.ConfirmationAccepted)
}

func (r *PostgresMatchingRepository) CountConfirmations(ctx context.Context) (int, int, error) {
	query := `SELECT COUNT(*) FILTER (WHERE status = $1),
                      COUNT(*) FILTER (WHERE status = $2)
               FROM pending_confirmations`
	var pending, accepted int
	err := r.db.QueryRowContext(ctx, query, matching.ConfirmationPending, matching.ConfirmationAccepted).Scan(&pending, &accepted)
	if err != nil {
		return 0, 0, fmt.Errorf("error counting confirmations: %w", err)
	}
	return pending, accepted, nil
}

// ClearConfirmations removes all rows. Called once per completed session so
// no partial state leaks into the next cycle.
func (r *PostgresMatchingRepository) ClearConfirmations(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_confirmations`); err != nil {
		return fmt.Errorf("error clearing pending confirmations: %w", err)
	}
	return nil
}
