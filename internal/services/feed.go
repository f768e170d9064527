package services

import (
	"context"

	"eventsbot/internal/models"

	"gorm.io/gorm"
)

// FeedItem is a published post with the viewer's like state.
type FeedItem struct {
	Post      models.Post
	LikeCount int64
	Liked     bool
}

// FeedPage 一页信息流及分页信息
type FeedPage struct {
	Items      []FeedItem
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func (p *FeedPage) HasPrev() bool { return p.Page > 0 }
func (p *FeedPage) HasNext() bool { return p.Page < p.TotalPages-1 }
func (p *FeedPage) Prev() int     { return PrevPage(p.Page) }
func (p *FeedPage) Next() int     { return NextPage(p.Page, p.TotalPages) }

// TotalPages is ceil(count / pageSize).
func TotalPages(count int64, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}

// PrevPage clamps at the first page.
func PrevPage(current int) int {
	if current <= 0 {
		return 0
	}
	return current - 1
}

// NextPage clamps at the last page.
func NextPage(current, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	if current >= totalPages-1 {
		return totalPages - 1
	}
	return current + 1
}

// FeedService 按用户订阅分类过滤的已发布帖子列表
type FeedService struct {
	db    *gorm.DB
	likes *LikeService
}

func NewFeedService(db *gorm.DB, likes *LikeService) *FeedService {
	return &FeedService{db: db, likes: likes}
}

// GetPage returns up to pageSize published posts from offset, newest
// first with id as tie-breaker. A user without subscriptions gets nothing.
func (s *FeedService) GetPage(ctx context.Context, userID int64, pageSize, offset int) ([]FeedItem, error) {
	if pageSize <= 0 || offset < 0 {
		return nil, &ValidationError{Field: "page", Reason: "page size must be positive and offset non-negative"}
	}
	ok, err := s.hasSubscriptions(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}

	var posts []models.Post
	err = s.db.WithContext(ctx).
		Scopes(s.visibleTo(userID)).
		Preload("Author").
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") }).
		Order("published_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, storageErr("feed page", err)
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, liked, err := s.likes.countsFor(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, len(posts))
	for i, p := range posts {
		items[i] = FeedItem{Post: p, LikeCount: counts[p.ID], Liked: liked[p.ID]}
	}
	return items, nil
}

// GetCount counts the posts GetPage can return.
func (s *FeedService) GetCount(ctx context.Context, userID int64) (int64, error) {
	ok, err := s.hasSubscriptions(ctx, userID)
	if err != nil || !ok {
		return 0, err
	}
	var total int64
	err = s.db.WithContext(ctx).Model(&models.Post{}).Scopes(s.visibleTo(userID)).Count(&total).Error
	if err != nil {
		return 0, storageErr("feed count", err)
	}
	return total, nil
}

// Page loads page number page (0-based) together with the totals needed
// for navigation.
func (s *FeedService) Page(ctx context.Context, userID int64, page, pageSize int) (*FeedPage, error) {
	if page < 0 {
		page = 0
	}
	total, err := s.GetCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.GetPage(ctx, userID, pageSize, page*pageSize)
	if err != nil {
		return nil, err
	}
	return &FeedPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: TotalPages(total, pageSize),
	}, nil
}

func (s *FeedService) hasSubscriptions(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("user_categories").Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return false, storageErr("feed subscriptions", err)
	}
	return n > 0, nil
}

func (s *FeedService) visibleTo(userID int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		subscribed := s.db.Table("user_categories").Select("category_id").Where("user_id = ?", userID)
		matching := s.db.Table("post_categories").Select("post_id").Where("category_id IN (?)", subscribed)
		return db.Where("posts.status = ? AND posts.published_at IS NOT NULL", models.PostStatusApproved).
			Where("posts.id IN (?)", matching)
	}
}
