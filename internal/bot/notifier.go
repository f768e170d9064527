package bot

import (
	"context"
	"unicode/utf8"

	"eventsbot/internal/log"
	"eventsbot/internal/services"
	"eventsbot/internal/storage"
)

// maxCaptionLength is Telegram's limit for photo captions.
const maxCaptionLength = 1024

// Notifier delivers new-post notifications through a Transport. It
// satisfies services.Notifier.
type Notifier struct {
	transport Transport
	blobs     storage.BlobStore
}

func NewNotifier(t Transport, blobs storage.BlobStore) *Notifier {
	return &Notifier{transport: t, blobs: blobs}
}

func (n *Notifier) Notify(ctx context.Context, recipientID int64, note services.Notification) error {
	photo := n.photo(ctx, note.ImageID)
	if photo == nil {
		_, err := n.transport.Send(ctx, recipientID, Message{Text: note.Text})
		return err
	}

	// 说明超过图片标题上限时，先发图片再单独发文字
	if utf8.RuneCountInString(note.Text) <= maxCaptionLength {
		_, err := n.transport.Send(ctx, recipientID, Message{Text: note.Text, Photo: photo})
		return err
	}
	if _, err := n.transport.Send(ctx, recipientID, Message{Photo: photo}); err != nil {
		return err
	}
	_, err := n.transport.Send(ctx, recipientID, Message{Text: note.Text})
	return err
}

// photo loads the image for a post; a missing image degrades to text.
func (n *Notifier) photo(ctx context.Context, imageID string) []byte {
	if imageID == "" || n.blobs == nil {
		return nil
	}
	data, err := n.blobs.Get(ctx, imageID)
	if err != nil {
		log.Warn.Printf("image %s unavailable: %v", imageID, err)
		return nil
	}
	return data
}
