package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventsbot/internal/db/dbtest"
	"eventsbot/internal/models"

	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	categories   *CategoryRegistry
	users        *UserService
	posts        *PostService
	moderation   *ModerationService
	likes        *LikeService
	feed         *FeedService
	distribution *DistributionService
	notifier     *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.Open(t)

	categories, err := LoadCategoryRegistry(conn)
	if err != nil {
		t.Fatalf("load categories: %v", err)
	}
	env := &testEnv{db: conn, categories: categories, notifier: &fakeNotifier{}}
	env.users = NewUserService(conn, categories)
	env.posts = NewPostService(conn, categories)
	env.moderation = NewModerationService(conn, env.posts)
	env.likes = NewLikeService(conn)
	env.feed = NewFeedService(conn, env.likes)
	env.distribution = NewDistributionService(conn, env.users, env.notifier, func(p *models.Post) Notification {
		return Notification{PostID: p.ID, Text: p.Title, ImageID: p.ImageID}
	})

	// deterministic, strictly increasing publication times
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var (
		mu   sync.Mutex
		tick int
	)
	env.moderation.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return env
}

func (e *testEnv) user(t *testing.T, id int64, city string, cats ...uint) *models.User {
	t.Helper()
	ctx := context.Background()
	if _, err := e.users.Register(ctx, Profile{ID: id, FirstName: fmt.Sprintf("user%d", id)}); err != nil {
		t.Fatalf("register %d: %v", id, err)
	}
	if city != "" {
		if err := e.users.SetCity(ctx, id, city); err != nil {
			t.Fatalf("set city: %v", err)
		}
	}
	if len(cats) > 0 {
		if err := e.users.SetCategories(ctx, id, cats); err != nil {
			t.Fatalf("set categories: %v", err)
		}
	}
	u, err := e.users.Get(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u
}

func (e *testEnv) submit(t *testing.T, author int64, city string, cats ...uint) *models.Post {
	t.Helper()
	post, err := e.moderation.Submit(context.Background(), NewPost{
		Title:       "Meetup",
		Content:     "Come along",
		AuthorID:    author,
		City:        city,
		CategoryIDs: cats,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return post
}

func (e *testEnv) publish(t *testing.T, author int64, city string, cats ...uint) *models.Post {
	t.Helper()
	post := e.submit(t, author, city, cats...)
	out, err := e.moderation.Decide(context.Background(), post.ID, 999, models.ActionApprove, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return out.Post
}

// assertPublishedInvariant checks that no row is published without approval.
func (e *testEnv) assertPublishedInvariant(t *testing.T) {
	t.Helper()
	var bad int64
	e.db.Model(&models.Post{}).
		Where("published_at IS NOT NULL AND status <> ?", models.PostStatusApproved).
		Count(&bad)
	if bad != 0 {
		t.Fatalf("%d posts have published_at without approval", bad)
	}
	e.db.Model(&models.Post{}).
		Where("published_at IS NULL AND status = ?", models.PostStatusApproved).
		Count(&bad)
	if bad != 0 {
		t.Fatalf("%d approved posts lack published_at", bad)
	}
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []int64
	fail  map[int64]error
	delay time.Duration
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID int64, n Notification) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[recipientID]; err != nil {
		return err
	}
	f.sent = append(f.sent, recipientID)
	return nil
}

func (f *fakeNotifier) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.sent))
	copy(out, f.sent)
	return out
}
