// Package bottest provides an in-memory Transport for tests.
package bottest

import (
	"context"
	"sync"

	"eventsbot/internal/bot"
)

// Sent is one recorded outgoing message or edit.
type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	HasPhoto  bool
	Keyboard  bot.Keyboard
	Edit      bool
}

// Recorder records everything the bot would have sent.
type Recorder struct {
	mu        sync.Mutex
	nextID    int
	Messages  []Sent
	Answers   []string
	Files     map[string][]byte
	FailFiles map[string]error
	FailChats map[int64]error
}

func NewRecorder() *Recorder {
	return &Recorder{
		nextID:    1000,
		Files:     map[string][]byte{},
		FailFiles: map[string]error{},
		FailChats: map[int64]error{},
	}
}

func (r *Recorder) Send(ctx context.Context, chatID int64, m bot.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailChats[chatID]; err != nil {
		return 0, err
	}
	r.nextID++
	r.Messages = append(r.Messages, Sent{
		ChatID:    chatID,
		MessageID: r.nextID,
		Text:      m.Text,
		HasPhoto:  len(m.Photo) > 0,
		Keyboard:  m.Keyboard,
	})
	return r.nextID, nil
}

func (r *Recorder) EditText(ctx context.Context, chatID int64, messageID int, text string, kb bot.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Sent{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb, Edit: true})
	return nil
}

func (r *Recorder) EditKeyboard(ctx context.Context, chatID int64, messageID int, kb bot.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Sent{ChatID: chatID, MessageID: messageID, Keyboard: kb, Edit: true})
	return nil
}

func (r *Recorder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, text)
	return nil
}

func (r *Recorder) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailFiles[fileID]; err != nil {
		return nil, err
	}
	return r.Files[fileID], nil
}

// To returns the messages sent to one chat.
func (r *Recorder) To(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, m := range r.Messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message to a chat.
func (r *Recorder) Last(chatID int64) (Sent, bool) {
	msgs := r.To(chatID)
	if len(msgs) == 0 {
		return Sent{}, false
	}
	return msgs[len(msgs)-1], true
}

// Reset forgets recorded traffic.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = nil
	r.Answers = nil
}

var _ bot.Transport = (*Recorder)(nil)
