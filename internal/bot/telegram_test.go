package bot

import (
	"bytes"
	"errors"
	"testing"

	"eventsbot/internal/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestTranslate(t *testing.T) {
	if translate(nil) != nil {
		t.Error("nil stays nil")
	}
	blocked := &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	if err := translate(blocked); !errors.Is(err, services.ErrRecipientGone) {
		t.Errorf("403 should map to ErrRecipientGone, got %v", err)
	}
	same := &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}
	if err := translate(same); err != nil {
		t.Errorf("unchanged edit is not an error, got %v", err)
	}
	other := &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	if err := translate(other); err != other {
		t.Errorf("other errors pass through, got %v", err)
	}
}

func TestMarkup(t *testing.T) {
	kb := Keyboard{
		Row(Button{Text: "A", Data: "a"}, Button{Text: "B", Data: "b"}),
		Row(Button{Text: "C", Data: "c"}),
	}
	mk := markup(kb)
	if len(mk.InlineKeyboard) != 2 || len(mk.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected layout %+v", mk.InlineKeyboard)
	}
	if d := mk.InlineKeyboard[1][0].CallbackData; d == nil || *d != "c" {
		t.Errorf("unexpected callback data %v", d)
	}
	if empty := markup(nil); empty.InlineKeyboard == nil || len(empty.InlineKeyboard) != 0 {
		t.Error("nil keyboard should produce an empty, non-nil markup")
	}
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(bytes.NewReader(make([]byte, 10)), 10)
	if err != nil || len(data) != 10 {
		t.Errorf("exactly at the limit should pass, got %d bytes, %v", len(data), err)
	}
	if _, err := readLimited(bytes.NewReader(make([]byte, 11)), 10); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("over the limit should fail, got %v", err)
	}
}
