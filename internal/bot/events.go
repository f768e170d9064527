package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventCallback
	EventText
	EventPhoto
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	}
	return "unknown"
}

// Origin identifies who sent an event and where to answer.
type Origin struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Event 统一的入站事件，消息和按钮回调都转换成这一种结构
type Event struct {
	Kind   EventKind
	Origin Origin

	Command string // EventCommand, without the slash
	Args    string // EventCommand

	CallbackID string // EventCallback
	Data       string // EventCallback

	Text   string // EventText; caption for EventPhoto
	FileID string // EventPhoto, largest size
}

// FromUpdate normalizes a Telegram update. Updates the bot does not act
// on (edits, channel posts, stickers...) return ok == false.
func FromUpdate(u tgbotapi.Update) (Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return Event{}, false
		}
		return Event{
			Kind:       EventCallback,
			Origin:     origin(cq.From, cq.Message.Chat.ID, cq.Message.MessageID),
			CallbackID: cq.ID,
			Data:       cq.Data,
		}, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return Event{}, false
	}
	ev := Event{Origin: origin(m.From, m.Chat.ID, m.MessageID)}
	switch {
	case m.IsCommand():
		ev.Kind = EventCommand
		ev.Command = strings.ToLower(m.Command())
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case len(m.Photo) > 0:
		ev.Kind = EventPhoto
		ev.FileID = m.Photo[len(m.Photo)-1].FileID
		ev.Text = m.Caption
	case m.Text != "":
		ev.Kind = EventText
		ev.Text = m.Text
	default:
		return Event{}, false
	}
	return ev, true
}

func origin(from *tgbotapi.User, chatID int64, messageID int) Origin {
	return Origin{
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}
