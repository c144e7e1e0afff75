// Package telegram runs the Telegram front-end: a long-poll listener
// that resolves senders to user profiles and answers through the chat
// router.
package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/vchukka/finsense/internal/chat"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
)

// ProfileResolver maps a Telegram account to a user profile.
type ProfileResolver interface {
	ByTelegramID(ctx context.Context, telegramID int64) (domain.UserProfile, error)
}

// Sender is the outbound half of the bot API.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const (
	greeting     = "Hi! I'm FinSense. Ask me anything about your budget."
	notOnboarded = "You are not onboarded yet. Create your profile first, then message me again."
	internalErr  = "Something went wrong, please try again."
)

// Listener long-polls Telegram and feeds text messages through the router.
type Listener struct {
	bot         *tgbotapi.BotAPI
	sender      Sender
	profiles    ProfileResolver
	router      *chat.Router
	log         zerolog.Logger
	pollTimeout int
}

func NewListener(bot *tgbotapi.BotAPI, profiles ProfileResolver, router *chat.Router, log zerolog.Logger) *Listener {
	return &Listener{
		bot:         bot,
		sender:      bot,
		profiles:    profiles,
		router:      router,
		log:         log,
		pollTimeout: 60,
	}
}

// Run consumes updates until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = l.pollTimeout
	updates := l.bot.GetUpdatesChan(u)

	l.log.Info().Str("bot", l.bot.Self.UserName).Msg("telegram listener started")

	for {
		select {
		case <-ctx.Done():
			l.bot.StopReceivingUpdates()
			l.log.Info().Msg("telegram listener stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.handle(ctx, update)
		}
	}
}

func (l *Listener) handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		if msg.Command() == "start" {
			l.reply(chatID, greeting)
		}
		return
	}

	log := l.log.With().Int64("telegram_id", msg.From.ID).Logger()
	ctx = logger.WithContext(ctx, log)

	profile, err := l.profiles.ByTelegramID(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		l.reply(chatID, notOnboarded)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("profile lookup failed")
		l.reply(chatID, internalErr)
		return
	}

	log.Info().Str("user_id", profile.UserID).Str("text", msg.Text).Msg("telegram message received")
	l.reply(chatID, l.router.Reply(ctx, profile.UserID, msg.Text))
}

func (l *Listener) reply(chatID int64, text string) {
	if _, err := l.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		l.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}
