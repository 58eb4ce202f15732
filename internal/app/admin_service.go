package app

import (
	"context"
	"fmt"
	"time"

	"random_coffee_bot/internal/domain/matching"
	"random_coffee_bot/internal/domain/member"
	idb "random_coffee_bot/internal/infra/database"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrForcedCompletionNotAllowed = fmt.Errorf("forced completion is only allowed while a session is collecting")

// MatchingStats is the admin overview of the matching state.
type MatchingStats struct {
	ActiveMembers         int
	ByParticipation       map[member.ParticipationStatus]int
	PendingConfirmations  int
	AcceptedConfirmations int
	TotalPairings         int
	RecentPairings        int // within the recency window
	SessionStatus         string
}

type AdminService struct {
	memberRepo        member.Repository
	matchRepo         matching.Repository
	matchingService   MatchingService
	adminTelegramID   int64
	recencyWindowDays int
}

func NewAdminService(mr member.Repository, xr matching.Repository, ms MatchingService, adminID int64, recencyWindowDays int) *AdminService {
	return &AdminService{
		memberRepo:        mr,
		matchRepo:         xr,
		matchingService:   ms,
		adminTelegramID:   adminID,
		recencyWindowDays: recencyWindowDays,
	}
}

func (s *AdminService) authorize(performingID int64) error {
	if performingID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// OpenMatching manually opens a collection window with the given deadline.
func (s *AdminService) OpenMatching(ctx context.Context, performingAdminID int64, deadline time.Time) (*matching.Session, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.matchingService.OpenSession(ctx, deadline)
}

// ForceComplete ends the collection phase early. Only members who have
// already confirmed (plus the always pool) are paired; everyone else's
// pending rows are cleared with the session.
func (s *AdminService) ForceComplete(ctx context.Context, performingAdminID int64) (*matching.Result, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}

	session, err := s.matchRepo.GetCurrentSession(ctx)
	if err != nil {
		if err == idb.ErrNoActiveSession {
			return nil, idb.ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	if session.Status != matching.SessionCollecting {
		return nil, ErrForcedCompletionNotAllowed
	}

	return s.matchingService.Complete(ctx, session.ID, true)
}

func (s *AdminService) ListActiveMembers(ctx context.Context, performingAdminID int64) ([]*member.Member, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.memberRepo.ListActive(ctx)
}

func (s *AdminService) ListAllMembers(ctx context.Context, performingAdminID int64) ([]*member.Member, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.memberRepo.ListAll(ctx)
}

// Stats collects the admin overview counters.
func (s *AdminService) Stats(ctx context.Context, performingAdminID int64) (*MatchingStats, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}

	stats := &MatchingStats{SessionStatus: "none"}

	counts, err := s.memberRepo.CountActiveByParticipation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	stats.ByParticipation = counts
	for _, count := range counts {
		stats.ActiveMembers += count
	}

	stats.PendingConfirmations, stats.AcceptedConfirmations, err = s.matchRepo.CountConfirmations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmations: %w", err)
	}

	stats.TotalPairings, err = s.matchRepo.CountPairingRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pairing records: %w", err)
	}
	since := time.Now().AddDate(0, 0, -s.recencyWindowDays)
	stats.RecentPairings, err = s.matchRepo.CountPairingRecordsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent pairing records: %w", err)
	}

	session, err := s.matchRepo.GetCurrentSession(ctx)
	if err == nil {
		stats.SessionStatus = string(session.Status)
	} else if err != idb.ErrNoActiveSession {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}

	return stats, nil
}
