package bot_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"eventsbot/internal/bot"
	"eventsbot/internal/bot/bottest"
	"eventsbot/internal/services"
	"eventsbot/internal/storage"
)

func TestNotifierSendsPhotoWithCaption(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewLocalStore(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	id, err := blobs.Save(ctx, []byte("jpeg"), "jpg")
	if err != nil {
		t.Fatal(err)
	}

	rec := bottest.NewRecorder()
	n := bot.NewNotifier(rec, blobs)

	if err := n.Notify(ctx, 5, services.Notification{PostID: 1, Text: "short", ImageID: id}); err != nil {
		t.Fatal(err)
	}
	msgs := rec.To(5)
	if len(msgs) != 1 || !msgs[0].HasPhoto || msgs[0].Text != "short" {
		t.Fatalf("expected one captioned photo, got %+v", msgs)
	}

	rec.Reset()
	long := strings.Repeat("a", 1025)
	if err := n.Notify(ctx, 5, services.Notification{PostID: 1, Text: long, ImageID: id}); err != nil {
		t.Fatal(err)
	}
	msgs = rec.To(5)
	if len(msgs) != 2 || !msgs[0].HasPhoto || msgs[0].Text != "" || msgs[1].Text != long {
		t.Errorf("long text should follow the photo separately, got %d messages", len(msgs))
	}

	rec.Reset()
	if err := n.Notify(ctx, 5, services.Notification{PostID: 1, Text: "gone image", ImageID: "missing"}); err != nil {
		t.Fatal(err)
	}
	if msgs := rec.To(5); len(msgs) != 1 || msgs[0].HasPhoto {
		t.Errorf("missing image should fall back to text, got %+v", msgs)
	}
}

func TestNotifierPassesErrorsThrough(t *testing.T) {
	rec := bottest.NewRecorder()
	rec.FailChats[9] = services.ErrRecipientGone
	n := bot.NewNotifier(rec, nil)

	err := n.Notify(context.Background(), 9, services.Notification{Text: "x"})
	if !errors.Is(err, services.ErrRecipientGone) {
		t.Errorf("expected ErrRecipientGone, got %v", err)
	}
}
