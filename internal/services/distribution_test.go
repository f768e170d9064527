package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventsbot/internal/models"
)

func TestComputeRecipientsMatchesCityAndCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.user(t, 1, "Moscow", 1)    // author
	env.user(t, 2, "Moscow", 1, 2) // match
	env.user(t, 3, "Moscow", 2)    // wrong category
	env.user(t, 4, "Kazan", 1)     // wrong city
	env.user(t, 5, "moscow", 1)    // case differs
	env.user(t, 6, "Moscow", 1)    // inactive
	env.user(t, 7, "Moscow", 3, 1) // match
	if err := env.users.Deactivate(ctx, 6); err != nil {
		t.Fatal(err)
	}

	post := env.publish(t, 1, "Moscow", 1)
	got, err := env.distribution.ComputeRecipients(ctx, post)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ids := userIDs(got); fmt.Sprint(ids) != "[2 7]" {
		t.Errorf("expected recipients [2 7], got %v", ids)
	}

	// read only: same answer twice
	again, _ := env.distribution.ComputeRecipients(ctx, post)
	if fmt.Sprint(userIDs(again)) != fmt.Sprint(userIDs(got)) {
		t.Errorf("recipient set changed between calls")
	}
}

func TestComputeRecipientsSkipsOtherCityAndAuthor(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, 1, "X", 1) // U1
	env.user(t, 2, "Y", 1) // U2, other city
	env.user(t, 3, "X", 2) // U3, author

	post := env.publish(t, 3, "X", 1, 2)
	got, err := env.distribution.ComputeRecipients(context.Background(), post)
	if err != nil {
		t.Fatal(err)
	}
	if ids := userIDs(got); fmt.Sprint(ids) != "[1]" {
		t.Errorf("expected [1], got %v", ids)
	}
}

func TestSelectRecipientsPure(t *testing.T) {
	post := &models.Post{
		AuthorID:   1,
		City:       "Omsk",
		Categories: []models.Category{{ID: 4}},
	}
	candidates := []models.User{
		{ID: 9, City: "Omsk", IsActive: true, Categories: []models.Category{{ID: 4}}},
		{ID: 1, City: "Omsk", IsActive: true, Categories: []models.Category{{ID: 4}}},
		{ID: 3, City: "Omsk", IsActive: true, Categories: []models.Category{{ID: 5}, {ID: 4}}},
		{ID: 5, City: "Omsk", IsActive: false, Categories: []models.Category{{ID: 4}}},
		{ID: 6, City: "Tomsk", IsActive: true, Categories: []models.Category{{ID: 4}}},
		{ID: 8, City: "Omsk", IsActive: true},
	}
	if ids := userIDs(SelectRecipients(post, candidates)); fmt.Sprint(ids) != "[3 9]" {
		t.Errorf("expected [3 9], got %v", ids)
	}
}

func TestDistributeRequiresPublishedPost(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, 1, "Moscow", 1)
	env.user(t, 2, "Moscow", 1)
	post := env.submit(t, 1, "Moscow", 1)

	if _, err := env.distribution.Distribute(context.Background(), post); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for pending post, got %v", err)
	}
	if len(env.notifier.recipients()) != 0 {
		t.Error("pending post must not be delivered")
	}
}

func TestDeliverIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.user(t, 1, "Moscow", 1)
	for id := int64(2); id <= 5; id++ {
		env.user(t, id, "Moscow", 1)
	}
	env.notifier.fail = map[int64]error{
		3: errors.New("timeout"),
		4: fmt.Errorf("blocked: %w", ErrRecipientGone),
	}

	post := env.publish(t, 1, "Moscow", 1)
	report, err := env.distribution.Distribute(ctx, post)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if report.Sent != 2 || len(report.Failed) != 2 {
		t.Fatalf("expected 2 sent and 2 failed, got %d/%d", report.Sent, len(report.Failed))
	}
	if fmt.Sprint(env.notifier.recipients()) != "[2 5]" {
		t.Errorf("unexpected delivered set %v", env.notifier.recipients())
	}
	if report.Failed[0].RecipientID != 3 || report.Failed[1].RecipientID != 4 {
		t.Errorf("unexpected failures %v", report.Failed)
	}
	if !errors.Is(report.Failed[1], ErrRecipientGone) {
		t.Error("delivery error should unwrap to ErrRecipientGone")
	}

	gone, _ := env.users.Get(ctx, 4)
	if gone.IsActive {
		t.Error("unreachable recipient should be deactivated")
	}
	flaky, _ := env.users.Get(ctx, 3)
	if !flaky.IsActive {
		t.Error("transient failure must not deactivate")
	}
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, 1, "Moscow", 1)
	env.user(t, 2, "Moscow", 1)
	post := env.publish(t, 1, "Moscow", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan *DeliveryReport, 1)
	d := NewDispatcher(env.distribution, env.posts, 4)
	d.OnReport = func(r *DeliveryReport) { reports <- r }
	d.Start(ctx)

	if !d.Schedule(post.ID) {
		t.Fatal("schedule refused")
	}
	select {
	case r := <-reports:
		if r.PostID != post.ID || r.Sent != 1 {
			t.Errorf("unexpected report %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not deliver")
	}
}

func TestDispatcherQueueFullDeliversInline(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, 1, "Moscow", 1)
	env.user(t, 2, "Moscow", 1)
	first := env.publish(t, 1, "Moscow", 1)
	second := env.publish(t, 1, "Moscow", 1)
	d := NewDispatcher(env.distribution, env.posts, 1)

	// worker not started: the queue fills up
	if !d.Schedule(first.ID) {
		t.Fatal("first schedule should fit")
	}
	if !d.Schedule(first.ID) {
		t.Error("already queued post should be accepted without queuing twice")
	}
	if d.Schedule(second.ID) {
		t.Error("full queue should not report the post as queued")
	}
	if got := env.notifier.recipients(); fmt.Sprint(got) != "[2]" {
		t.Fatalf("overflowing post should be delivered inline, got %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()
	if got := env.notifier.recipients(); fmt.Sprint(got) != "[2 2]" {
		t.Errorf("queued post should be delivered on shutdown, got %v", got)
	}
}

func TestDispatcherDrainsQueueOnShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, 1, "Moscow", 1)
	env.user(t, 2, "Moscow", 1)
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, env.publish(t, 1, "Moscow", 1).ID)
	}

	var (
		mu       sync.Mutex
		reported []uint
	)
	d := NewDispatcher(env.distribution, env.posts, 4)
	d.OnReport = func(r *DeliveryReport) {
		mu.Lock()
		reported = append(reported, r.PostID)
		mu.Unlock()
	}
	for _, id := range ids {
		if !d.Schedule(id) {
			t.Fatalf("post %d not queued", id)
		}
	}

	// shutdown arrives with everything still waiting
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	mu.Lock()
	if len(reported) != 3 {
		t.Errorf("expected 3 fan-outs after shutdown, got %v", reported)
	}
	mu.Unlock()
	if got := len(env.notifier.recipients()); got != 3 {
		t.Errorf("expected 3 notifications, got %d", got)
	}

	// a late approval after the worker stopped still goes out
	late := env.publish(t, 1, "Moscow", 1)
	if d.Schedule(late.ID) {
		t.Error("stopped dispatcher should not queue")
	}
	if got := len(env.notifier.recipients()); got != 4 {
		t.Errorf("late post should be delivered inline, got %d notifications", got)
	}
}

func userIDs(users []models.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
