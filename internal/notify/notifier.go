package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, msg string)
	Sendf(ctx context.Context, format string, args ...any)
}

// Reporter отдаёт текст для команды /stats.
type Reporter func() string

// Telegram: пассивный нотифайер + обработка одной команды /stats.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	report Reporter
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, report Reporter, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		report: report,
		log:    log,
	}, nil
}

func (t *Telegram) Send(_ context.Context, msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (t *Telegram) Sendf(ctx context.Context, format string, args ...any) {
	t.Send(ctx, fmt.Sprintf(format, args...))
}

func (t *Telegram) handleStats(ctx context.Context) {
	if t.report == nil {
		t.Send(ctx, "❗️ Статистика недоступна")
		return
	}
	var b strings.Builder
	b.WriteString("📊 Статистика:\n")
	b.WriteString(t.report())
	t.Send(ctx, b.String())
}

// Start: long-polling сообщений из своего чата.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "stats":
					t.handleStats(ctx)
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t != nil && t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}

// Stdout: всё пишет в лог.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout { return &Stdout{log: log} }

func (s *Stdout) Send(_ context.Context, msg string) { s.log.Info(msg) }
func (s *Stdout) Sendf(ctx context.Context, format string, args ...any) {
	s.Send(ctx, fmt.Sprintf(format, args...))
}
