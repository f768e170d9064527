package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"eventsbot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxCityLength = 100

// Profile is what the chat platform tells us about a user.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// UserService 用户身份存储：城市、订阅分类、启用状态
type UserService struct {
	db         *gorm.DB
	categories *CategoryRegistry
}

func NewUserService(db *gorm.DB, categories *CategoryRegistry) *UserService {
	return &UserService{db: db, categories: categories}
}

// Register creates the user on first contact and refreshes the names
// afterwards. A returning user is reactivated.
func (s *UserService) Register(ctx context.Context, p Profile) (*models.User, error) {
	user := models.User{
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		IsActive:  true,
	}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "is_active", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return nil, storageErr("register user", err)
	}
	return s.Get(ctx, p.ID)
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") }).
		First(&user, id).Error
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &user, nil
}

// SetCity stores the locality verbatim apart from surrounding spaces.
// Matching against posts is exact, so no further normalization happens.
func (s *UserService) SetCity(ctx context.Context, id int64, city string) error {
	city, err := validateCity(city)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("city", city)
	if res.Error != nil {
		return storageErr("set city", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleCategory flips one subscription and reports the new state. Like
// the like toggle it relies on the join table's primary key rather than
// a read before the write.
func (s *UserService) ToggleCategory(ctx context.Context, id int64, categoryID uint) (bool, error) {
	if _, ok := s.categories.Get(categoryID); !ok {
		return false, &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	res := db.Exec("DELETE FROM user_categories WHERE user_id = ? AND category_id = ?", id, categoryID)
	if res.Error != nil {
		return false, storageErr("unsubscribe", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	err := db.Table("user_categories").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{"user_id": id, "category_id": categoryID}).Error
	if err != nil {
		return false, storageErr("subscribe", err)
	}
	return true, nil
}

// SetCategories replaces the whole subscription set.
func (s *UserService) SetCategories(ctx context.Context, id int64, categoryIDs []uint) error {
	cats, err := s.categories.Resolve(categoryIDs)
	if err != nil {
		return err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Association("Categories").Replace(cats); err != nil {
		return storageErr("set categories", err)
	}
	return nil
}

// Deactivate soft-disables a user, e.g. after the chat reports the bot
// was blocked. Inactive users are never notified.
func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return storageErr("deactivate user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func validateCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", &ValidationError{Field: "city", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(city) > MaxCityLength {
		return "", &ValidationError{Field: "city", Reason: "too long"}
	}
	return city, nil
}
