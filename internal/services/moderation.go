package services

import (
	"context"
	"strings"
	"time"

	"eventsbot/internal/log"
	"eventsbot/internal/models"

	"gorm.io/gorm"
)

// Outcome is the result of one Decide call.
type Outcome struct {
	Post   *models.Post
	Action models.ModerationAction
	// Changed is false when the post had already been decided; Post then
	// carries the existing terminal status.
	Changed bool
	Record  *models.ModerationRecord
}

// Published reports whether this call is the one that published the post
// and therefore owns the fan-out.
func (o *Outcome) Published() bool {
	return o.Changed && o.Action == models.ActionApprove
}

// Err returns ErrInvalidTransition for no-op decisions.
func (o *Outcome) Err() error {
	if o.Changed {
		return nil
	}
	return ErrInvalidTransition
}

// ModerationService 帖子审核状态机
type ModerationService struct {
	db    *gorm.DB
	posts *PostService
	now   func() time.Time
}

func NewModerationService(db *gorm.DB, posts *PostService) *ModerationService {
	return &ModerationService{db: db, posts: posts, now: time.Now}
}

// Submit stores a new post in the pending state.
func (s *ModerationService) Submit(ctx context.Context, in NewPost) (*models.Post, error) {
	post, err := s.posts.create(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Info.Printf("post %d submitted by %d, waiting for moderation", post.ID, post.AuthorID)
	return post, nil
}

// Decide applies a moderator's action to a pending post. The status change
// and the audit record commit together. A post that is no longer pending
// is left alone and returned as is, so repeated clicks never publish twice.
// Decide does not notify anybody.
func (s *ModerationService) Decide(ctx context.Context, postID uint, moderatorID int64, action models.ModerationAction, comment string) (*Outcome, error) {
	next, ok := models.PostStatusPending.Next(action)
	if !ok {
		return nil, &ValidationError{Field: "action", Reason: "unknown moderation action " + string(action)}
	}

	outcome := &Outcome{Action: action}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": next}
		if next == models.PostStatusApproved {
			updates["published_at"] = gorm.Expr("COALESCE(published_at, ?)", s.now().UTC())
		}

		// conditional update: only one concurrent decision can match
		res := tx.Model(&models.Post{}).
			Where("id = ? AND status = ?", postID, models.PostStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		record := models.ModerationRecord{
			PostID:      postID,
			ModeratorID: moderatorID,
			Action:      action,
			Comment:     strings.TrimSpace(comment),
		}
		if err := tx.Omit("Post").Create(&record).Error; err != nil {
			return err
		}
		outcome.Changed = true
		outcome.Record = &record
		return nil
	})
	if err != nil {
		return nil, storageErr("decide", err)
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	outcome.Post = post

	if outcome.Changed {
		log.Info.Printf("post %d: %s by moderator %d", postID, action, moderatorID)
	} else {
		log.Warn.Printf("post %d already %s, ignoring %s by %d", postID, post.Status, action, moderatorID)
	}
	return outcome, nil
}

// Queue lists posts waiting for a decision.
func (s *ModerationService) Queue(ctx context.Context) ([]models.Post, error) {
	return s.posts.Pending(ctx)
}

// History returns the audit trail of a post in the order it was written.
func (s *ModerationService) History(ctx context.Context, postID uint) ([]models.ModerationRecord, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	var records []models.ModerationRecord
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, storageErr("moderation history", err)
	}
	return records, nil
}

// ActionsByType lists every record with the given action, newest first.
func (s *ModerationService) ActionsByType(ctx context.Context, action models.ModerationAction) ([]models.ModerationRecord, error) {
	var records []models.ModerationRecord
	err := s.db.WithContext(ctx).
		Where("action = ?", action).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, storageErr("moderation records", err)
	}
	return records, nil
}
