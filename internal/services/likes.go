package services

import (
	"context"
	"errors"

	"eventsbot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeAction string

const (
	LikeAdded   LikeAction = "added"
	LikeRemoved LikeAction = "removed"
)

// maxToggleAttempts bounds the delete/insert loop under contention.
const maxToggleAttempts = 16

var errToggleContention = errors.New("like toggle did not settle")

type ToggleResult struct {
	Action LikeAction
	Count  int64
}

// LikeService 点赞
type LikeService struct {
	db *gorm.DB
}

func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{db: db}
}

// Toggle flips the user's like on a post. Every step is a single
// constrained statement: a conditional delete, then an insert that yields
// to the unique (user_id, post_id) index. When the insert loses to a
// concurrent toggle the loop goes round again, so every successful call is
// exactly one flip and the reported action is the one that was persisted.
func (s *LikeService) Toggle(ctx context.Context, userID int64, postID uint) (*ToggleResult, error) {
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		return nil, storageErr("check post", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	var action LikeAction
	for attempt := 0; attempt < maxToggleAttempts && action == ""; attempt++ {
		res := db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if res.Error != nil {
			return nil, storageErr("remove like", res.Error)
		}
		if res.RowsAffected > 0 {
			action = LikeRemoved
			break
		}

		like := models.Like{UserID: userID, PostID: postID}
		res = db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return nil, storageErr("add like", res.Error)
		}
		if res.RowsAffected > 0 {
			action = LikeAdded
		}
	}
	if action == "" {
		return nil, &StorageError{Op: "toggle like", Err: errToggleContention}
	}

	count, err := s.Count(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Action: action, Count: count}, nil
}

func (s *LikeService) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, storageErr("count likes", err)
	}
	return count, nil
}

func (s *LikeService) IsLiked(ctx context.Context, userID int64, postID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, storageErr("check like", err)
	}
	return count > 0, nil
}

// LikedPosts lists the posts a user liked, most recent like first.
func (s *LikeService) LikedPosts(ctx context.Context, userID int64) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") }).
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC, likes.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, storageErr("liked posts", err)
	}
	return posts, nil
}

// countsFor 批量查询点赞数和当前用户的点赞状态
func (s *LikeService) countsFor(ctx context.Context, userID int64, postIDs []uint) (map[uint]int64, map[uint]bool, error) {
	counts := make(map[uint]int64, len(postIDs))
	liked := make(map[uint]bool)
	if len(postIDs) == 0 {
		return counts, liked, nil
	}

	type CountResult struct {
		PostID uint
		Count  int64
	}
	var results []CountResult
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return nil, nil, storageErr("count likes", err)
	}
	for _, r := range results {
		counts[r.PostID] = r.Count
	}

	var mine []uint
	err = s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &mine).Error
	if err != nil {
		return nil, nil, storageErr("liked set", err)
	}
	for _, id := range mine {
		liked[id] = true
	}
	return counts, liked, nil
}
