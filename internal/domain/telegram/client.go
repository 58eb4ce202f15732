package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for sending messages via a Telegram bot.
// It is the fire-and-forget notification boundary of the matching engine:
// send failures are logged by callers and never block a session transition.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
