// internal/app/matching_service.go
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"random_coffee_bot/internal/domain/matching"
	"random_coffee_bot/internal/domain/member"
	domainTelegram "random_coffee_bot/internal/domain/telegram"
	idb "random_coffee_bot/internal/infra/database" // Alias for repository errors

	"gopkg.in/telebot.v3"
)

// Custom application-level errors for the matching engine
var ErrSessionAlreadyActive = fmt.Errorf("a matching session is already collecting or pairing")
var ErrCompletionNotAllowed = fmt.Errorf("session completion not allowed from its current state")

// MatchingService drives one weekly cycle: open a collection window, resolve
// the eligible pool and commit pairs.
type MatchingService interface {
	// OpenSession creates a new COLLECTING session with the given deadline
	// and enqueues a participation prompt for every ask-each-time member.
	// Fails with ErrSessionAlreadyActive while a session is still in flight.
	OpenSession(ctx context.Context, deadline time.Time) (*matching.Session, error)
	// AdvanceToPairing moves the session from COLLECTING to PAIRING.
	AdvanceToPairing(ctx context.Context, sessionID int64) error
	// Complete runs the pairing algorithm over the currently eligible pool,
	// records the results and finishes the session. Allowed from PAIRING
	// (normal) or, when forced, from COLLECTING: the forced path pairs only
	// members who have already confirmed, plus the always pool.
	Complete(ctx context.Context, sessionID int64, forced bool) (*matching.Result, error)

	// RespondToParticipation stores an ask-each-time member's answer for the
	// current cycle. Returns false when the member has no pending prompt.
	RespondToParticipation(ctx context.Context, telegramID int64, accepted bool) (bool, error)
	// RecordMeetingFeedback stores post-meeting feedback on a pairing record.
	RecordMeetingFeedback(ctx context.Context, recordID int64, met bool) error

	// RunScheduledOpen and RunScheduledPairing are the two weekly activation
	// points. They only log precondition failures; there is no interactive
	// caller to notify.
	RunScheduledOpen(ctx context.Context) error
	RunScheduledPairing(ctx context.Context) error
}

// MatchingServiceImpl implements the MatchingService interface.
type MatchingServiceImpl struct {
	memberRepo       member.Repository
	matchRepo        matching.Repository
	pairer           *matching.Pairer
	telegramClient   domainTelegram.Client
	logger           *log.Logger
	collectionWindow time.Duration
}

func NewMatchingServiceImpl(
	mr member.Repository,
	xr matching.Repository,
	tc domainTelegram.Client,
	logger *log.Logger,
	recencyWindowDays int,
	collectionWindow time.Duration,
) *MatchingServiceImpl {
	return &MatchingServiceImpl{
		memberRepo:       mr,
		matchRepo:        xr,
		pairer:           matching.NewPairer(xr, xr, recencyWindowDays),
		telegramClient:   tc,
		logger:           logger,
		collectionWindow: collectionWindow,
	}
}

// OpenSession starts a new weekly cycle.
func (s *MatchingServiceImpl) OpenSession(ctx context.Context, deadline time.Time) (*matching.Session, error) {
	// Reject early when a session is already in flight. The partial unique
	// index on matching_sessions closes the remaining race.
	if existing, err := s.matchRepo.GetCurrentSession(ctx); err == nil {
		s.logger.Printf("WARN: Session %d is still %s; refusing to open a new one.", existing.ID, existing.Status)
		return nil, ErrSessionAlreadyActive
	} else if err != idb.ErrNoActiveSession {
		return nil, fmt.Errorf("failed to check current session: %w", err)
	}

	session := &matching.Session{Status: matching.SessionCollecting, Deadline: deadline}
	if err := s.matchRepo.CreateSession(ctx, session); err != nil {
		if err == idb.ErrSessionConflict {
			return nil, ErrSessionAlreadyActive
		}
		return nil, fmt.Errorf("failed to create matching session: %w", err)
	}
	s.logger.Printf("INFO: Opened matching session %d (deadline %s).", session.ID, deadline.Format(time.RFC3339))

	askMembers, err := s.memberRepo.ListActiveByParticipation(ctx, member.StatusAskEachTime)
	if err != nil {
		return nil, fmt.Errorf("failed to list ask-each-time members: %w", err)
	}

	memberIDs := make([]int64, 0, len(askMembers))
	for _, m := range askMembers {
		memberIDs = append(memberIDs, m.ID)
	}
	if err := s.matchRepo.EnqueueConfirmations(ctx, session.ID, memberIDs); err != nil {
		return nil, fmt.Errorf("failed to enqueue confirmations: %w", err)
	}
	s.logger.Printf("INFO: Enqueued %d participation prompts for session %d.", len(memberIDs), session.ID)

	for _, m := range askMembers {
		s.sendParticipationPrompt(m)
	}

	return session, nil
}

// AdvanceToPairing is allowed only from COLLECTING.
func (s *MatchingServiceImpl) AdvanceToPairing(ctx context.Context, sessionID int64) error {
	err := s.matchRepo.TransitionSession(ctx, sessionID, matching.SessionCollecting, matching.SessionPairing)
	if err != nil {
		if err == idb.ErrInvalidSessionState {
			s.logger.Printf("WARN: Session %d is not in COLLECTING; advance to pairing skipped.", sessionID)
		}
		return err
	}
	s.logger.Printf("INFO: Session %d advanced to PAIRING.", sessionID)
	return nil
}

// Complete runs pairing over the eligible pool and finishes the session.
func (s *MatchingServiceImpl) Complete(ctx context.Context, sessionID int64, forced bool) (*matching.Result, error) {
	session, err := s.matchRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", sessionID, err)
	}

	expectedState := matching.SessionPairing
	if forced {
		expectedState = matching.SessionCollecting
	}
	if session.Status != expectedState {
		s.logger.Printf("WARN: Session %d is %s, completion (forced=%v) requires %s.", sessionID, session.Status, forced, expectedState)
		return nil, ErrCompletionNotAllowed
	}

	// Claim the session before anything is written. The conditional update
	// decides the race between concurrent completion callers; the loser
	// stops here with no pairing records behind it.
	if err := s.matchRepo.CompleteSession(ctx, sessionID, expectedState, forced); err != nil {
		if err == idb.ErrInvalidSessionState {
			s.logger.Printf("WARN: Session %d completion lost a state race; another caller finished it first.", sessionID)
		}
		return nil, fmt.Errorf("failed to complete session %d: %w", sessionID, err)
	}

	pool, err := s.resolvePairingPool(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("INFO: Session %d pairing pool resolved with %d members (forced=%v).", sessionID, len(pool), forced)

	result, err := s.pairer.Pair(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("pairing failed for session %d: %w", sessionID, err)
	}

	if err := s.matchRepo.ClearConfirmations(ctx); err != nil {
		// The session is already completed. Leftover rows carry this
		// session's ID, so later cycles never see them; the next enqueue
		// resets them anyway. Log and carry on.
		s.logger.Printf("ERROR: Failed to clear pending confirmations after session %d: %v", sessionID, err)
	}

	s.logger.Printf("INFO: Session %d completed: %d pairs, %d unmatched, %d blocked by recency.",
		sessionID, len(result.Pairs), len(result.Unmatched), len(result.BlockedByRecency))

	s.notifyResults(result)
	return result, nil
}

// resolvePairingPool is the union of the always pool and the confirmed pool.
// The two are disjoint by construction: a member is enqueued for
// confirmation only when their preference is ask-each-time. Confirmations
// are read for this session only, so a stale row that survived a failed
// clear cannot leak a member into a later cycle.
func (s *MatchingServiceImpl) resolvePairingPool(ctx context.Context, sessionID int64) ([]*member.Member, error) {
	alwaysMembers, err := s.memberRepo.ListActiveByParticipation(ctx, member.StatusAlways)
	if err != nil {
		return nil, fmt.Errorf("failed to list always-participating members: %w", err)
	}
	confirmedMembers, err := s.matchRepo.ListConfirmedMembers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed members: %w", err)
	}
	return append(alwaysMembers, confirmedMembers...), nil
}

func (s *MatchingServiceImpl) RespondToParticipation(ctx context.Context, telegramID int64, accepted bool) (bool, error) {
	m, err := s.memberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			s.logger.Printf("WARN: Participation response from unknown Telegram ID %d.", telegramID)
			return false, nil
		}
		return false, fmt.Errorf("failed to get member by Telegram ID %d: %w", telegramID, err)
	}

	responded, err := s.matchRepo.RespondToConfirmation(ctx, m.ID, accepted)
	if err != nil {
		return false, fmt.Errorf("failed to store participation response for member %d: %w", m.ID, err)
	}
	if !responded {
		s.logger.Printf("INFO: Member %d has no pending prompt; participation response ignored.", m.ID)
	}
	return responded, nil
}

func (s *MatchingServiceImpl) RecordMeetingFeedback(ctx context.Context, recordID int64, met bool) error {
	feedback := matching.FeedbackDidNotMet
	if met {
		feedback = matching.FeedbackMet
	}
	if err := s.matchRepo.RecordMeetingFeedback(ctx, recordID, feedback); err != nil {
		return fmt.Errorf("failed to record meeting feedback for pairing %d: %w", recordID, err)
	}
	return nil
}

// RunScheduledOpen is the first weekly activation point.
func (s *MatchingServiceImpl) RunScheduledOpen(ctx context.Context) error {
	deadline := time.Now().Add(s.collectionWindow)
	_, err := s.OpenSession(ctx, deadline)
	if err != nil {
		if err == ErrSessionAlreadyActive {
			s.logger.Printf("INFO: Scheduled open skipped, a session is already active.")
			return nil
		}
		return err
	}
	return nil
}

// RunScheduledPairing is the second weekly activation point: advance the
// current session to PAIRING and commit pairs.
func (s *MatchingServiceImpl) RunScheduledPairing(ctx context.Context) error {
	session, err := s.matchRepo.GetCurrentSession(ctx)
	if err != nil {
		if err == idb.ErrNoActiveSession {
			s.logger.Printf("INFO: Scheduled pairing skipped, no active session.")
			return nil
		}
		return fmt.Errorf("failed to get current session: %w", err)
	}

	if session.Status == matching.SessionCollecting {
		if err := s.AdvanceToPairing(ctx, session.ID); err != nil && err != idb.ErrInvalidSessionState {
			return err
		}
	}

	if _, err := s.Complete(ctx, session.ID, false); err != nil {
		return err
	}
	return nil
}

// --- Notifications ---

func (s *MatchingServiceImpl) notifyResults(result *matching.Result) {
	for _, pair := range result.Pairs {
		s.sendMatchNotification(pair.First, pair.Second, pair.RecordID)
		s.sendMatchNotification(pair.Second, pair.First, pair.RecordID)
	}
	for _, m := range result.Unmatched {
		s.sendPlainNotice(m, "В этот раз для вас не нашлось пары. Увидимся на следующей неделе!")
	}
	for _, m := range result.BlockedByRecency {
		s.sendPlainNotice(m, "Ваша случайная пара уже встречалась недавно, поэтому на этой неделе мы её не повторяем. До следующего раза!")
	}
}

func (s *MatchingServiceImpl) sendParticipationPrompt(m *member.Member) {
	messageText := fmt.Sprintf(
		"☕ Привет, %s!\n\nНаступило время еженедельного Random Coffee!\nХотите участвовать в мэтчинге на этой неделе?",
		m.FirstName)

	replyMarkup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	btnYes := replyMarkup.Data("✅ Да, участвую!", "participate_yes")
	btnNo := replyMarkup.Data("❌ Нет, пропускаю", "participate_no")
	replyMarkup.Inline(replyMarkup.Row(btnYes, btnNo))

	err := s.telegramClient.SendMessage(m.TelegramID, messageText, &telebot.SendOptions{ReplyMarkup: replyMarkup})
	if err != nil {
		s.logger.Printf("ERROR: Failed to send participation prompt to member %d (TG_ID: %d): %v", m.ID, m.TelegramID, err)
	}
}

func (s *MatchingServiceImpl) sendMatchNotification(recipient, partner *member.Member, recordID int64) {
	messageText := formatPartnerProfile(partner)

	replyMarkup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	btnMet := replyMarkup.Data("✅ Мы встретились", fmt.Sprintf("feedback_met_%d", recordID))
	btnNotMet := replyMarkup.Data("❌ Встреча не состоялась", fmt.Sprintf("feedback_not_%d", recordID))
	replyMarkup.Inline(replyMarkup.Row(btnMet), replyMarkup.Row(btnNotMet))

	err := s.telegramClient.SendMessage(recipient.TelegramID, messageText,
		&telebot.SendOptions{ReplyMarkup: replyMarkup, ParseMode: telebot.ModeMarkdown})
	if err != nil {
		s.logger.Printf("ERROR: Failed to send match notification to member %d (TG_ID: %d): %v", recipient.ID, recipient.TelegramID, err)
	}
}

func (s *MatchingServiceImpl) sendPlainNotice(m *member.Member, text string) {
	if err := s.telegramClient.SendMessage(m.TelegramID, text, nil); err != nil {
		s.logger.Printf("ERROR: Failed to send notice to member %d (TG_ID: %d): %v", m.ID, m.TelegramID, err)
	}
}

// formatPartnerProfile renders the partner's profile card for a match
// notification.
func formatPartnerProfile(partner *member.Member) string {
	var b strings.Builder
	b.WriteString("👤 Ваша пара на эту неделю:\n\n")
	b.WriteString("**" + partner.FullName() + "**")
	if partner.Username.Valid && partner.Username.String != "" {
		b.WriteString(" (@" + partner.Username.String + ")")
	}
	b.WriteString("\n\n")

	if partner.Bio.Valid && partner.Bio.String != "" {
		b.WriteString("📝 О себе: " + partner.Bio.String + "\n\n")
	}
	if partner.Interests.Valid && partner.Interests.String != "" {
		b.WriteString("🎯 Интересы: " + partner.Interests.String + "\n\n")
	}

	b.WriteString("💬 Напишите друг другу и договоритесь о встрече!\n")
	b.WriteString("☕ Удачного знакомства!")
	return b.String()
}
