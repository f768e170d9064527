package services

import (
	"context"
	"errors"
	"sort"

	"eventsbot/internal/log"
	"eventsbot/internal/models"

	"gorm.io/gorm"
)

// Notification is what a recipient receives about a new post.
type Notification struct {
	PostID  uint
	Text    string
	ImageID string
}

// Notifier delivers one notification to one user.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, n Notification) error
}

// ErrRecipientGone tells the distribution engine that the recipient can no
// longer be reached (e.g. blocked the bot) and should be deactivated.
var ErrRecipientGone = errors.New("recipient unreachable")

// DeliveryReport summarizes one fan-out.
type DeliveryReport struct {
	PostID uint
	Sent   int
	Failed []*DeliveryError
}

// DistributionService 计算并发送新帖通知
type DistributionService struct {
	db       *gorm.DB
	users    *UserService
	notifier Notifier
	render   func(*models.Post) Notification
}

func NewDistributionService(db *gorm.DB, users *UserService, notifier Notifier, render func(*models.Post) Notification) *DistributionService {
	return &DistributionService{db: db, users: users, notifier: notifier, render: render}
}

// ComputeRecipients returns the active users in the post's city who
// subscribe to at least one of its categories, minus the author, ordered
// by id. It only reads, so it is safe to call again on retries.
func (s *DistributionService) ComputeRecipients(ctx context.Context, post *models.Post) ([]models.User, error) {
	catIDs := post.CategoryIDs()
	if len(catIDs) == 0 || post.City == "" {
		return nil, nil
	}

	subscribed := s.db.Table("user_categories").Select("user_id").Where("category_id IN ?", catIDs)

	var candidates []models.User
	err := s.db.WithContext(ctx).
		Preload("Categories").
		Where("is_active = ? AND city = ? AND id <> ?", true, post.City, post.AuthorID).
		Where("id IN (?)", subscribed).
		Find(&candidates).Error
	if err != nil {
		return nil, storageErr("compute recipients", err)
	}
	return SelectRecipients(post, candidates), nil
}

// SelectRecipients applies the matching rule to an in-memory candidate
// list. City comparison is exact and case-sensitive.
func SelectRecipients(post *models.Post, candidates []models.User) []models.User {
	want := make(map[uint]bool, len(post.Categories))
	for _, c := range post.Categories {
		want[c.ID] = true
	}

	out := make([]models.User, 0, len(candidates))
	for _, u := range candidates {
		if !u.IsActive || u.ID == post.AuthorID || u.City != post.City {
			continue
		}
		for _, c := range u.Categories {
			if want[c.ID] {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Deliver sends the post to every recipient. A failure only affects its
// own recipient; the rest of the batch still goes out. Must not be called
// inside a transaction.
func (s *DistributionService) Deliver(ctx context.Context, post *models.Post, recipients []models.User) *DeliveryReport {
	report := &DeliveryReport{PostID: post.ID}
	n := s.render(post)

	for _, u := range recipients {
		if err := s.notifier.Notify(ctx, u.ID, n); err != nil {
			derr := &DeliveryError{RecipientID: u.ID, Err: err}
			report.Failed = append(report.Failed, derr)
			log.Warn.Printf("post %d: %v", post.ID, derr)

			if errors.Is(err, ErrRecipientGone) && s.users != nil {
				if err := s.users.Deactivate(ctx, u.ID); err != nil {
					log.Error.Printf("deactivate user %d: %v", u.ID, err)
				}
			}
			continue
		}
		report.Sent++
	}

	log.Info.Printf("post %d delivered to %d/%d recipients", post.ID, report.Sent, len(recipients))
	return report
}

// Distribute is the full fan-out for a published post.
func (s *DistributionService) Distribute(ctx context.Context, post *models.Post) (*DeliveryReport, error) {
	if !post.IsPublished() {
		return nil, ErrInvalidTransition
	}
	recipients, err := s.ComputeRecipients(ctx, post)
	if err != nil {
		return nil, err
	}
	return s.Deliver(ctx, post, recipients), nil
}
