// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"random_coffee_bot/internal/domain/member"
	"random_coffee_bot/internal/infra/config"
	idb "random_coffee_bot/internal/infra/database" // For ErrMemberNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotCommands registers the member-facing commands: registration,
// profile editing and participation preference. The matching engine never
// touches member records; all mutation lives here.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For AdminTelegramID
	memberRepo member.Repository,
	baseLogger *logrus.Entry, // For contextual logging
) {
	commandsLogger := baseLogger.WithField("handler_group", "bot_commands")

	b.Handle("/start", func(c telebot.Context) error {
		sender := c.Sender()
		logCtx := commandsLogger.WithField("command", "/start").WithField("sender_id", sender.ID)
		logCtx.Info("Processing /start command")

		existing, err := memberRepo.GetByTelegramID(ctx, sender.ID)
		if err == nil {
			if !existing.IsActive {
				existing.IsActive = true
				if err := memberRepo.Update(ctx, existing); err != nil {
					logCtx.WithError(err).Error("Failed to reactivate member")
					return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
				}
				logCtx.WithField("member_id", existing.ID).Info("Member reactivated")
				return c.Send(fmt.Sprintf("С возвращением, %s! Вы снова участвуете в Random Coffee. ☕", existing.FirstName))
			}
			logCtx.WithField("member_id", existing.ID).Info("Member already registered")
			return c.Send(fmt.Sprintf("Привет, %s! Вы уже зарегистрированы. Настройте участие командой /participation.", existing.FirstName))
		}
		if err != idb.ErrMemberNotFound {
			logCtx.WithError(err).Error("Error checking member for /start command")
			return c.Send("Произошла ошибка при проверке вашего статуса. Пожалуйста, попробуйте позже.")
		}

		newMember := &member.Member{
			TelegramID:    sender.ID,
			Username:      nullableString(sender.Username),
			FirstName:     sender.FirstName,
			LastName:      nullableString(sender.LastName),
			Participation: member.StatusAskEachTime,
			IsActive:      true,
		}
		if err := memberRepo.Create(ctx, newMember); err != nil {
			logCtx.WithError(err).Error("Failed to register member")
			return c.Send("Произошла ошибка при регистрации. Пожалуйста, попробуйте позже.")
		}

		logCtx.WithField("member_id", newMember.ID).Info("Member registered")
		return c.Send(fmt.Sprintf(
			"Привет, %s! ☕ Добро пожаловать в Random Coffee.\n\nКаждую неделю мы подбираем вам собеседника для встречи за кофе.\nРасскажите о себе (/bio, /interests) и настройте участие: /participation.",
			newMember.FirstName))
	})

	b.Handle("/participation", func(c telebot.Context) error {
		logCtx := commandsLogger.WithField("command", "/participation").WithField("sender_id", c.Sender().ID)

		m, err := memberRepo.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			if err == idb.ErrMemberNotFound {
				return c.Send("Сначала зарегистрируйтесь командой /start.")
			}
			logCtx.WithError(err).Error("Error loading member for /participation")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}

		statusText := map[member.ParticipationStatus]string{
			member.StatusAlways:      "✅ Всегда участвую",
			member.StatusAskEachTime: "❓ Спрашивать каждый раз",
			member.StatusNever:       "❌ Не участвую",
		}

		replyMarkup := &telebot.ReplyMarkup{ResizeKeyboard: true}
		btnAlways := replyMarkup.Data("✅ Всегда участвовать", "pref_always")
		btnAsk := replyMarkup.Data("❓ Спрашивать каждый раз", "pref_ask")
		btnNever := replyMarkup.Data("❌ Не участвовать", "pref_never")
		replyMarkup.Inline(replyMarkup.Row(btnAlways), replyMarkup.Row(btnAsk), replyMarkup.Row(btnNever))

		return c.Send(fmt.Sprintf(
			"☕ Управление участием в Random Coffee\n\nТекущий статус: %s\n\nВыберите новый статус:",
			statusText[m.Participation]), &telebot.SendOptions{ReplyMarkup: replyMarkup})
	})

	b.Handle("/bio", func(c telebot.Context) error {
		return updateProfileField(ctx, c, memberRepo, commandsLogger, "/bio", func(m *member.Member, value string) {
			m.Bio = nullableString(value)
		}, "📝 О себе обновлено.", "Напишите пару слов о себе после команды: /bio <текст>")
	})

	b.Handle("/interests", func(c telebot.Context) error {
		return updateProfileField(ctx, c, memberRepo, commandsLogger, "/interests", func(m *member.Member, value string) {
			m.Interests = nullableString(value)
		}, "🎯 Интересы обновлены.", "Перечислите интересы после команды: /interests <текст>")
	})

	b.Handle("/stop", func(c telebot.Context) error {
		logCtx := commandsLogger.WithField("command", "/stop").WithField("sender_id", c.Sender().ID)

		m, err := memberRepo.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			if err == idb.ErrMemberNotFound {
				return c.Send("Вы не зарегистрированы.")
			}
			logCtx.WithError(err).Error("Error loading member for /stop")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		if !m.IsActive {
			return c.Send("Ваш профиль уже деактивирован. Вернуться можно командой /start.")
		}

		m.IsActive = false
		if err := memberRepo.Update(ctx, m); err != nil {
			logCtx.WithError(err).Error("Failed to deactivate member")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		logCtx.WithField("member_id", m.ID).Info("Member deactivated")
		return c.Send("Ваш профиль деактивирован, вы больше не будете получать приглашения. Вернуться можно командой /start.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := commandsLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == cfg.AdminTelegramID {
			var helpText strings.Builder
			helpText.WriteString("Доступные команды Администратора:\n\n")
			helpText.WriteString("`/open_matching [часы]`\n - Открыть сбор участников вручную.\n\n")
			helpText.WriteString("`/force_complete`\n - Принудительно завершить сбор и создать пары из подтвердивших.\n\n")
			helpText.WriteString("`/list_members [active|all]`\n - Показать список участников.\n\n")
			helpText.WriteString("`/stats`\n - Статистика мэтчинга.\n\n")
			helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
			return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		var helpText strings.Builder
		helpText.WriteString("Я бот Random Coffee: каждую неделю подбираю вам пару для встречи за кофе. ☕\n\n")
		helpText.WriteString("`/start` - Зарегистрироваться или вернуться.\n")
		helpText.WriteString("`/participation` - Настроить участие в мэтчинге.\n")
		helpText.WriteString("`/bio <текст>` - Рассказать о себе.\n")
		helpText.WriteString("`/interests <текст>` - Указать интересы.\n")
		helpText.WriteString("`/stop` - Отключить уведомления.\n")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func updateProfileField(
	ctx context.Context,
	c telebot.Context,
	memberRepo member.Repository,
	baseLogger *logrus.Entry,
	command string,
	apply func(*member.Member, string),
	successText, usageText string,
) error {
	logCtx := baseLogger.WithField("command", command).WithField("sender_id", c.Sender().ID)

	value := strings.TrimSpace(strings.TrimPrefix(c.Text(), command))
	if value == "" {
		return c.Send(usageText)
	}

	m, err := memberRepo.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			return c.Send("Сначала зарегистрируйтесь командой /start.")
		}
		logCtx.WithError(err).Error("Error loading member for profile update")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}

	apply(m, value)
	if err := memberRepo.Update(ctx, m); err != nil {
		logCtx.WithError(err).Error("Failed to update member profile")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	logCtx.WithField("member_id", m.ID).Info("Profile field updated")
	return c.Send(successText)
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
