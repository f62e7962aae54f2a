package sink

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"ghwatch/internal/pipeline"
	logx "ghwatch/pkg/logx"
)

// Telegram delivers alerts to the owner's chat. With MarkReadOnClick
// each alert carries an inline button that marks the underlying
// notification thread read upstream.
type Telegram struct {
	bot    *tele.Bot
	chat   *tele.Chat
	sound  bool
	onTap  bool
	marker pipeline.ReadMarker
	log    logx.Logger
}

type TelegramConfig struct {
	Token           string
	ChatID          int64
	Sound           bool
	MarkReadOnClick bool
}

const markReadUnique = "ghw_mark_read"

func NewTelegram(cfg TelegramConfig, marker pipeline.ReadMarker, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram sink: token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram sink: chat_id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}

	t := &Telegram{
		bot:    bot,
		chat:   &tele.Chat{ID: cfg.ChatID},
		sound:  cfg.Sound,
		onTap:  cfg.MarkReadOnClick,
		marker: marker,
		log:    log,
	}
	if t.onTap {
		bot.Handle(&tele.Btn{Unique: markReadUnique}, t.handleMarkRead)
	}
	return t, nil
}

// Run starts the update poller (needed for button callbacks) until
// ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	go t.bot.Start()
	<-ctx.Done()
	t.bot.Stop()
}

func (t *Telegram) Deliver(ctx context.Context, a pipeline.Alert) error {
	_ = ctx // telebot manages its own request deadlines

	text := a.Title + "\n" + a.Body
	if a.URL != "" {
		text += "\n" + a.URL
	}

	opts := []any{tele.NoPreview}
	if !t.sound {
		opts = append(opts, tele.Silent)
	}
	if t.onTap && a.ThreadID != "" {
		markup := &tele.ReplyMarkup{}
		btn := markup.Data("Mark read", markReadUnique, a.ThreadID)
		markup.Inline(markup.Row(btn))
		opts = append(opts, markup)
	}

	_, err := t.bot.Send(t.chat, text, opts...)
	return err
}

// Mirror adapts the sink into a logx mirror target so WARN+ log lines
// can reach the owner chat.
func (t *Telegram) Mirror(ctx context.Context, line string) {
	_ = ctx
	if _, err := t.bot.Send(t.chat, line, tele.Silent, tele.NoPreview); err != nil {
		t.log.Debug("log mirror send failed", logx.Err(err))
	}
}

func (t *Telegram) handleMarkRead(c tele.Context) error {
	id := strings.TrimSpace(c.Data())
	if id == "" || t.marker == nil {
		return c.Respond(&tele.CallbackResponse{})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.marker.MarkThreadRead(ctx, id); err != nil {
		t.log.Warn("mark-as-read from button failed", logx.String("thread", id), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Failed to mark read"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Marked read"})
}
