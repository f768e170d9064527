package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventsbot/internal/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxDownloadSize caps photo downloads; Telegram bots can't fetch more
// than 20MB anyway.
const maxDownloadSize = 20 << 20

// Telegram implements Transport on the Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	client *http.Client
}

func NewTelegram(api *tgbotapi.BotAPI) *Telegram {
	return &Telegram{
		api:    api,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, m Message) (int, error) {
	var c tgbotapi.Chattable
	if len(m.Photo) > 0 {
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "photo.jpg", Bytes: m.Photo})
		p.Caption = m.Text
		p.ParseMode = tgbotapi.ModeHTML
		if m.Keyboard != nil {
			p.ReplyMarkup = markup(m.Keyboard)
		}
		c = p
	} else {
		msg := tgbotapi.NewMessage(chatID, m.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if m.Keyboard != nil {
			msg.ReplyMarkup = markup(m.Keyboard)
		}
		c = msg
	}

	sent, err := t.api.Send(c)
	if err != nil {
		return 0, translate(err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if kb != nil {
		mk := markup(kb)
		edit.ReplyMarkup = &mk
	}
	_, err := t.api.Request(edit)
	return translate(err)
}

func (t *Telegram) EditKeyboard(ctx context.Context, chatID int64, messageID int, kb Keyboard) error {
	mk := markup(kb)
	_, err := t.api.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, mk))
	return translate(err)
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return translate(err)
}

func (t *Telegram) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, translate(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, maxDownloadSize)
}

// ErrFileTooLarge is returned for downloads over the size cap.
var ErrFileTooLarge = errors.New("file too large")

// readLimited reads all of r, failing instead of cutting the data when it
// holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

func markup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// translate maps Bot API errors onto the errors services understand.
// 403 means the user blocked the bot or deleted the account.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", services.ErrRecipientGone, apiErr.Message)
	case strings.Contains(apiErr.Message, "message is not modified"):
		return nil
	}
	return err
}
