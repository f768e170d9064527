package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventsbot/internal/bot"
	"eventsbot/internal/bot/bottest"
	"eventsbot/internal/config"
	"eventsbot/internal/db/dbtest"
	"eventsbot/internal/drafts"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
	"eventsbot/internal/storage"
)

const (
	moderatorID = int64(900)
	modChatID   = int64(-1001)
)

type recordingScheduler struct {
	mu  sync.Mutex
	ids []uint
}

func (s *recordingScheduler) Schedule(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, postID)
	return true
}

func (s *recordingScheduler) scheduled() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint(nil), s.ids...)
}

type harness struct {
	chat      *ChatHandler
	admin     *AdminHandler
	rec       *bottest.Recorder
	scheduler *recordingScheduler
	deps      ChatDeps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	reg, err := services.LoadCategoryRegistry(conn)
	if err != nil {
		t.Fatal(err)
	}
	store, err := drafts.NewMemoryStore(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := storage.NewLocalStore(t.TempDir(), 8)
	if err != nil {
		t.Fatal(err)
	}

	posts := services.NewPostService(conn, reg)
	likes := services.NewLikeService(conn)
	rec := bottest.NewRecorder()
	sched := &recordingScheduler{}
	deps := ChatDeps{
		Config: &config.Config{
			ModerationChatID: modChatID,
			ModeratorIDs:     []int64{moderatorID},
			FeedPageSize:     1,
			Cities:           []string{"Kazan", "Omsk", "Rostov-on-Don"},
		},
		Transport:  rec,
		Categories: reg,
		Users:      services.NewUserService(conn, reg),
		Posts:      posts,
		Moderation: services.NewModerationService(conn, posts),
		Feed:       services.NewFeedService(conn, likes),
		Likes:      likes,
		Scheduler:  sched,
		Drafts:     store,
		Blobs:      blobs,
	}
	return &harness{
		chat:      NewChatHandler(deps),
		admin:     NewAdminHandler(deps.Moderation, sched, rec),
		rec:       rec,
		scheduler: sched,
		deps:      deps,
	}
}

func origin(userID int64) bot.Origin {
	return bot.Origin{ChatID: userID, UserID: userID, MessageID: 1, FirstName: "Tester"}
}

func (h *harness) command(userID int64, cmd, args string) {
	h.chat.Handle(context.Background(), bot.Event{Kind: bot.EventCommand, Origin: origin(userID), Command: cmd, Args: args})
}

func (h *harness) text(userID int64, text string) {
	h.chat.Handle(context.Background(), bot.Event{Kind: bot.EventText, Origin: origin(userID), Text: text})
}

func (h *harness) photo(userID int64, fileID string) {
	h.chat.Handle(context.Background(), bot.Event{Kind: bot.EventPhoto, Origin: origin(userID), FileID: fileID})
}

func (h *harness) click(o bot.Origin, data string) {
	h.chat.Handle(context.Background(), bot.Event{Kind: bot.EventCallback, Origin: o, CallbackID: "cb", Data: data})
}

// onboard registers a user with a city and subscriptions.
func (h *harness) onboard(t *testing.T, userID int64, city string, cats ...uint) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.deps.Users.Register(ctx, services.Profile{ID: userID, FirstName: "Tester"}); err != nil {
		t.Fatal(err)
	}
	if err := h.deps.Users.SetCity(ctx, userID, city); err != nil {
		t.Fatal(err)
	}
	if err := h.deps.Users.SetCategories(ctx, userID, cats); err != nil {
		t.Fatal(err)
	}
}

// published creates an approved post directly through the engines.
func (h *harness) published(t *testing.T, author int64, title string, cats ...uint) *models.Post {
	t.Helper()
	ctx := context.Background()
	p, err := h.deps.Moderation.Submit(ctx, services.NewPost{
		Title: title, Content: "details", AuthorID: author, City: "Kazan", CategoryIDs: cats,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := h.deps.Moderation.Decide(ctx, p.ID, moderatorID, models.ActionApprove, "")
	if err != nil {
		t.Fatal(err)
	}
	return out.Post
}

func hasButton(kb bot.Keyboard, data string) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

func buttonText(kb bot.Keyboard, data string) string {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return b.Text
			}
		}
	}
	return ""
}
