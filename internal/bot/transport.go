package bot

import "context"

// Button is an inline button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows. A nil keyboard sends no markup.
type Keyboard [][]Button

// Row is a convenience for building a keyboard line.
func Row(buttons ...Button) []Button { return buttons }

// Message is one outgoing chat message. With Photo set the text goes out
// as the caption.
type Message struct {
	Text     string
	Photo    []byte
	Keyboard Keyboard
}

// Transport 聊天平台的出站接口，handlers 只依赖这个接口
type Transport interface {
	Send(ctx context.Context, chatID int64, m Message) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	// EditKeyboard replaces the inline keyboard; a nil keyboard removes it.
	EditKeyboard(ctx context.Context, chatID int64, messageID int, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
