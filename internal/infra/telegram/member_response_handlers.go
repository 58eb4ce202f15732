// internal/infra/telegram/member_response_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"random_coffee_bot/internal/app" // For MatchingService interface
	"random_coffee_bot/internal/domain/member"
	idb "random_coffee_bot/internal/infra/database"

	"gopkg.in/telebot.v3"
)

// RegisterMemberResponseHandlers wires the inline-button callbacks:
// participation prompts, preference changes and meeting feedback.
func RegisterMemberResponseHandlers(ctx context.Context, b *telebot.Bot, matchingService app.MatchingService, memberRepo member.Repository) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")

		switch {
		case data == "participate_yes" || data == "participate_no":
			accepted := data == "participate_yes"
			responded, err := matchingService.RespondToParticipation(ctx, c.Sender().ID, accepted)
			if err != nil {
				c.Bot().OnError(fmt.Errorf("error processing participation response %q: %w", data, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			if !responded {
				// Stale callback, or the member is not part of this cycle.
				return c.Respond(&telebot.CallbackResponse{Text: "Этот опрос уже не активен."})
			}
			if accepted {
				if err := c.Edit("✅ Отлично! Вы участвуете в мэтчинге этой недели.\nОжидайте уведомления о вашей паре!"); err != nil {
					c.Bot().OnError(err, c)
				}
				return c.Respond(&telebot.CallbackResponse{Text: "Участие подтверждено!"})
			}
			if err := c.Edit("❌ Понятно, в этот раз вы не участвуете.\nУвидимся на следующей неделе!"); err != nil {
				c.Bot().OnError(err, c)
			}
			return c.Respond()

		case strings.HasPrefix(data, "pref_"):
			return handlePreferenceChange(ctx, c, memberRepo, data)

		case strings.HasPrefix(data, "feedback_met_") || strings.HasPrefix(data, "feedback_not_"):
			return handleMeetingFeedback(ctx, c, matchingService, data)
		}

		// Fallback for unhandled callbacks by this handler.
		c.Bot().OnError(fmt.Errorf("unhandled callback data by member_response_handler: %s", data), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
	})
}

func handlePreferenceChange(ctx context.Context, c telebot.Context, memberRepo member.Repository, data string) error {
	statusMap := map[string]member.ParticipationStatus{
		"pref_always": member.StatusAlways,
		"pref_ask":    member.StatusAskEachTime,
		"pref_never":  member.StatusNever,
	}
	newStatus, ok := statusMap[data]
	if !ok {
		c.Bot().OnError(fmt.Errorf("invalid preference callback data: %s", data), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
	}

	m, err := memberRepo.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			return c.Respond(&telebot.CallbackResponse{Text: "Сначала зарегистрируйтесь: /start"})
		}
		c.Bot().OnError(fmt.Errorf("error loading member for preference change: %w", err), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
	}

	m.Participation = newStatus
	if err := memberRepo.Update(ctx, m); err != nil {
		c.Bot().OnError(fmt.Errorf("error updating participation preference for member %d: %w", m.ID, err), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
	}

	statusText := map[member.ParticipationStatus]string{
		member.StatusAlways:      "✅ Всегда участвовать",
		member.StatusAskEachTime: "❓ Спрашивать каждый раз",
		member.StatusNever:       "❌ Не участвовать",
	}
	if err := c.Edit(fmt.Sprintf("✅ Статус участия изменен на: %s", statusText[newStatus])); err != nil {
		c.Bot().OnError(err, c)
	}
	return c.Respond()
}

func handleMeetingFeedback(ctx context.Context, c telebot.Context, matchingService app.MatchingService, data string) error {
	met := strings.HasPrefix(data, "feedback_met_")

	parts := strings.Split(data, "_") // feedback_met_123 / feedback_not_123
	if len(parts) != 3 {
		c.Bot().OnError(fmt.Errorf("invalid callback data format for feedback: %s", data), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки ответа."})
	}
	recordID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		c.Bot().OnError(fmt.Errorf("invalid record ID %q in feedback callback: %w", parts[2], err), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки ответа."})
	}

	if err := matchingService.RecordMeetingFeedback(ctx, recordID, met); err != nil {
		c.Bot().OnError(fmt.Errorf("error recording feedback for pairing %d: %w", recordID, err), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка. Попробуйте позже."})
	}

	if met {
		if err := c.Edit("🎉 Спасибо за обратную связь! Рады, что встреча состоялась."); err != nil {
			c.Bot().OnError(err, c)
		}
	} else {
		if err := c.Edit("📝 Спасибо за обратную связь! Жаль, что встреча не состоялась.\nНадеемся, в следующий раз всё получится! 🤞"); err != nil {
			c.Bot().OnError(err, c)
		}
	}
	return c.Respond(&telebot.CallbackResponse{Text: "Ответ принят!"})
}
