package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"eventsbot/internal/models"
	"eventsbot/internal/utils"

	"gorm.io/gorm"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 4000
)

// NewPost is a submission before validation.
type NewPost struct {
	Title       string
	Content     string
	AuthorID    int64
	City        string
	ImageID     string
	CategoryIDs []uint
}

// PostService 帖子存储
type PostService struct {
	db         *gorm.DB
	categories *CategoryRegistry
}

func NewPostService(db *gorm.DB, categories *CategoryRegistry) *PostService {
	return &PostService{db: db, categories: categories}
}

// Validate sanitizes a submission and checks every bound. Nothing is
// written when it fails.
func (s *PostService) Validate(in NewPost) (NewPost, []models.Category, error) {
	in.Title = utils.StripHTML(in.Title)
	in.Content = utils.StripHTML(in.Content)
	in.ImageID = strings.TrimSpace(in.ImageID)

	switch {
	case in.Title == "":
		return in, nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		return in, nil, &ValidationError{Field: "title", Reason: "longer than 200 characters"}
	case in.Content == "":
		return in, nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	case utf8.RuneCountInString(in.Content) > MaxContentLength:
		return in, nil, &ValidationError{Field: "content", Reason: "longer than 4000 characters"}
	case in.AuthorID == 0:
		return in, nil, &ValidationError{Field: "author", Reason: "missing"}
	case len(in.CategoryIDs) == 0:
		return in, nil, &ValidationError{Field: "categories", Reason: "pick at least one category"}
	}

	city, err := validateCity(in.City)
	if err != nil {
		return in, nil, err
	}
	in.City = city

	cats, err := s.categories.Resolve(in.CategoryIDs)
	if err != nil {
		return in, nil, err
	}
	return in, cats, nil
}

// create inserts a pending post. Moderation.Submit is the public entry.
func (s *PostService) create(ctx context.Context, in NewPost) (*models.Post, error) {
	in, cats, err := s.Validate(in)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var author int64
	if err := db.Model(&models.User{}).Where("id = ?", in.AuthorID).Count(&author).Error; err != nil {
		return nil, storageErr("check author", err)
	}
	if author == 0 {
		return nil, ErrNotFound
	}

	post := models.Post{
		Title:      in.Title,
		Content:    in.Content,
		AuthorID:   in.AuthorID,
		City:       in.City,
		ImageID:    in.ImageID,
		Categories: cats,
		Status:     models.PostStatusPending,
	}
	// categories already exist, only the join rows are written
	if err := db.Omit("Author", "Categories.*").Create(&post).Error; err != nil {
		return nil, storageErr("create post", err)
	}
	return s.Get(ctx, post.ID)
}

func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.withDetails(s.db.WithContext(ctx)).First(&post, id).Error
	if err != nil {
		return nil, storageErr("get post", err)
	}
	return &post, nil
}

// ByAuthor lists a user's own posts, newest first, whatever their status.
func (s *PostService) ByAuthor(ctx context.Context, authorID int64) ([]models.Post, error) {
	var posts []models.Post
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, storageErr("list author posts", err)
	}
	return posts, nil
}

// Pending is the moderation queue, oldest first.
func (s *PostService) Pending(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("status = ?", models.PostStatusPending).
		Order("created_at ASC, id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, storageErr("list pending posts", err)
	}
	return posts, nil
}

func (s *PostService) withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") })
}
