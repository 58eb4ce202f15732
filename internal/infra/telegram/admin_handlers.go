package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"random_coffee_bot/internal/app"
	"random_coffee_bot/internal/domain/member"
	idb "random_coffee_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers handlers for admin commands.
// The privilege check happens here, at the caller side of the engine.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, collectionWindow time.Duration, baseLogger *logrus.Entry) {
	b.Handle("/open_matching", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/open_matching",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		// Expected format: /open_matching [hours]
		window := collectionWindow
		args := c.Args()
		if len(args) > 1 {
			return c.Send("Неверный формат команды. Используйте: /open_matching [часы до дедлайна]")
		}
		if len(args) == 1 {
			hours, err := strconv.Atoi(args[0])
			if err != nil || hours <= 0 {
				handlerLogger.WithField("arg", args[0]).Warn("Invalid hours argument")
				return c.Send("Ошибка: количество часов должно быть положительным числом.")
			}
			window = time.Duration(hours) * time.Hour
		}

		deadline := time.Now().Add(window)
		session, err := adminService.OpenMatching(ctx, c.Sender().ID, deadline)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case app.ErrAdminNotAuthorized:
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
			case app.ErrSessionAlreadyActive:
				logWithError.Warn("Session already active")
				return c.Send("Сессия мэтчинга уже идёт. Дождитесь её завершения или завершите принудительно: /force_complete")
			default:
				logWithError.Error("Failed to open matching session")
				return c.Send(fmt.Sprintf("Произошла ошибка при запуске мэтчинга: %s", err.Error()))
			}
		}

		handlerLogger.WithField("session_id", session.ID).Info("Matching session opened")
		return c.Send(fmt.Sprintf("✅ Сессия мэтчинга №%d открыта. Дедлайн: %s.",
			session.ID, deadline.Format("02.01.2006 15:04")))
	})

	b.Handle("/force_complete", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/force_complete",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		result, err := adminService.ForceComplete(ctx, c.Sender().ID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case app.ErrAdminNotAuthorized:
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
			case idb.ErrNoActiveSession:
				logWithError.Warn("No active session to complete")
				return c.Send("Нет активной сессии мэтчинга для завершения.")
			case app.ErrForcedCompletionNotAllowed:
				logWithError.Warn("Session is not collecting")
				return c.Send("Сессия уже в процессе создания пар или завершена; принудительное завершение невозможно.")
			default:
				logWithError.Error("Failed to force complete session")
				return c.Send(fmt.Sprintf("Произошла ошибка при завершении мэтчинга: %s", err.Error()))
			}
		}

		handlerLogger.WithFields(logrus.Fields{
			"pairs":     len(result.Pairs),
			"unmatched": len(result.Unmatched),
			"blocked":   len(result.BlockedByRecency),
		}).Info("Matching session force-completed")

		return c.Send(fmt.Sprintf(
			"✅ Мэтчинг завершен принудительно!\n\nПары созданы из участников, которые успели подтвердить участие.\nПар: %d, без пары: %d, отложено из-за недавней встречи: %d.",
			len(result.Pairs), len(result.Unmatched), len(result.BlockedByRecency)))
	})

	b.Handle("/list_members", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/list_members",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		args := c.Args()
		// Optional argument: 'active' or 'all'
		listType := "active"
		if len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		handlerLogger = handlerLogger.WithField("list_type", listType)

		var membersList []*member.Member
		var err error
		var title string

		switch listType {
		case "active":
			title = "Активные участники"
			membersList, err = adminService.ListActiveMembers(ctx, c.Sender().ID)
		case "all":
			title = "Все участники"
			membersList, err = adminService.ListAllMembers(ctx, c.Sender().ID)
		default:
			handlerLogger.Warn("Invalid list type argument")
			return c.Send("Неверный аргумент. Используйте 'active' или 'all', или оставьте пустым для отображения активных участников.")
		}

		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if err == app.ErrAdminNotAuthorized {
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
			}
			logWithError.Error("Failed to get list of members")
			return c.Send(fmt.Sprintf("Произошла ошибка при получении списка участников: %s", err.Error()))
		}

		if len(membersList) == 0 {
			handlerLogger.Info("No members found for the specified list type")
			return c.Send("Участников пока нет.")
		}

		handlerLogger.WithField("members_count", len(membersList)).Info("Successfully retrieved member list")

		statusText := map[member.ParticipationStatus]string{
			member.StatusAlways:      "всегда",
			member.StatusAskEachTime: "спрашивать",
			member.StatusNever:       "не участвует",
		}

		var response strings.Builder
		response.WriteString(fmt.Sprintf("--- %s ---\n", title))
		for _, m := range membersList {
			active := "Активен"
			if !m.IsActive {
				active = "Деактивирован"
			}
			response.WriteString(fmt.Sprintf("ID: %d, Telegram ID: %d, Имя: %s, Участие: %s, Статус: %s\n",
				m.ID, m.TelegramID, m.FullName(), statusText[m.Participation], active))
		}
		return c.Send(response.String())
	})

	b.Handle("/stats", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/stats",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		stats, err := adminService.Stats(ctx, c.Sender().ID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to collect matching stats")
			return c.Send(fmt.Sprintf("Произошла ошибка при получении статистики: %s", err.Error()))
		}

		sessionText := map[string]string{
			"none":       "нет активной сессии",
			"COLLECTING": "сбор участников",
			"PAIRING":    "создание пар",
		}[stats.SessionStatus]
		if sessionText == "" {
			sessionText = stats.SessionStatus
		}

		var response strings.Builder
		response.WriteString("📊 Статистика мэтчинга\n\n")
		response.WriteString("👥 Участники:\n")
		response.WriteString(fmt.Sprintf("• Всего активных: %d\n", stats.ActiveMembers))
		response.WriteString(fmt.Sprintf("• Всегда участвуют: %d\n", stats.ByParticipation[member.StatusAlways]))
		response.WriteString(fmt.Sprintf("• Спрашивать каждый раз: %d\n", stats.ByParticipation[member.StatusAskEachTime]))
		response.WriteString(fmt.Sprintf("• Не участвуют: %d\n\n", stats.ByParticipation[member.StatusNever]))
		response.WriteString("📬 Подтверждения:\n")
		response.WriteString(fmt.Sprintf("• Ожидают ответа: %d\n", stats.PendingConfirmations))
		response.WriteString(fmt.Sprintf("• Подтвердили участие: %d\n\n", stats.AcceptedConfirmations))
		response.WriteString("💫 Пары:\n")
		response.WriteString(fmt.Sprintf("• Всего создано: %d\n", stats.TotalPairings))
		response.WriteString(fmt.Sprintf("• За период кулдауна: %d\n\n", stats.RecentPairings))
		response.WriteString(fmt.Sprintf("🗓 Сессия: %s\n", sessionText))
		response.WriteString(fmt.Sprintf("📅 Обновлено: %s", time.Now().Format("02.01.2006 15:04")))

		handlerLogger.Info("Stats sent")
		return c.Send(response.String())
	})
}
