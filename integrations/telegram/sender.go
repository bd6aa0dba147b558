package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// maxGroupSize is the Telegram album limit.
const maxGroupSize = 10

// Sender publishes to a Telegram chat or channel through the Bot API.
type Sender struct {
	bot *tgbotapi.BotAPI
}

// NewSender authenticates the bot (getMe). An empty endpoint uses the public API.
func NewSender(cfg coreconfig.TelegramConfig) (*Sender, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token not configured")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: 60 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logrus.Infof("[TELEGRAM] Authorized as @%s", bot.Self.UserName)
	return &Sender{bot: bot}, nil
}

func NewSenderWithBot(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

// chatTarget is either a numeric chat ID or a channel username.
type chatTarget struct {
	id       int64
	username string
}

func parseChatRef(chatRef string) (chatTarget, error) {
	ref := strings.TrimSpace(chatRef)
	if ref == "" {
		return chatTarget{}, errors.New("empty chat reference")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return chatTarget{id: id}, nil
	}
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	return chatTarget{username: ref}, nil
}

func (c chatTarget) base() tgbotapi.BaseChat {
	return tgbotapi.BaseChat{ChatID: c.id, ChannelUsername: c.username}
}

func (s *Sender) SendText(ctx context.Context, chatRef, text string) error {
	target, err := parseChatRef(chatRef)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.MessageConfig{
		BaseChat:              target.base(),
		Text:                  text,
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: false,
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func (s *Sender) SendSingleMedia(ctx context.Context, chatRef string, media domain.MediaAttachment, caption string) error {
	target, err := parseChatRef(chatRef)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	file := tgbotapi.FileURL(media.URL)
	var cfg tgbotapi.Chattable
	if media.Kind == domain.MediaVideo {
		cfg = tgbotapi.VideoConfig{
			BaseFile:          tgbotapi.BaseFile{BaseChat: target.base(), File: file},
			Caption:           caption,
			ParseMode:         tgbotapi.ModeHTML,
			SupportsStreaming: true,
		}
	} else {
		cfg = tgbotapi.PhotoConfig{
			BaseFile:  tgbotapi.BaseFile{BaseChat: target.base(), File: file},
			Caption:   caption,
			ParseMode: tgbotapi.ModeHTML,
		}
	}
	if _, err := s.bot.Send(cfg); err != nil {
		return fmt.Errorf("telegram send %s: %w", media.Kind, err)
	}
	return nil
}

// SendMediaGroup sends an album. Only the first item carries the caption, without parse mode.
func (s *Sender) SendMediaGroup(ctx context.Context, chatRef string, media []domain.MediaAttachment, firstCaption string) error {
	target, err := parseChatRef(chatRef)
	if err != nil {
		return err
	}
	if len(media) == 0 {
		return errors.New("empty media group")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(media) > maxGroupSize {
		media = media[:maxGroupSize]
	}

	files := make([]interface{}, 0, len(media))
	for i, m := range media {
		caption := ""
		if i == 0 {
			caption = firstCaption
		}
		if m.Kind == domain.MediaVideo {
			v := tgbotapi.NewInputMediaVideo(tgbotapi.FileURL(m.URL))
			v.Caption = caption
			v.SupportsStreaming = true
			files = append(files, v)
			continue
		}
		p := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(m.URL))
		p.Caption = caption
		files = append(files, p)
	}

	group := tgbotapi.MediaGroupConfig{
		ChatID:          target.id,
		ChannelUsername: target.username,
		Media:           files,
	}
	if _, err := s.bot.SendMediaGroup(group); err != nil {
		return fmt.Errorf("telegram sendMediaGroup: %w", err)
	}
	return nil
}
