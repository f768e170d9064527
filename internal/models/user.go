package models

import (
	"time"
)

// User 聊天用户，ID 由聊天平台签发
type User struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username   string     `gorm:"size:100" json:"username"`
	FirstName  string     `gorm:"size:100" json:"first_name"`
	LastName   string     `gorm:"size:100" json:"last_name"`
	City       string     `gorm:"size:100;index" json:"city"`
	IsActive   bool       `gorm:"default:true;not null;index" json:"is_active"`
	Categories []Category `gorm:"many2many:user_categories;" json:"categories"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// No DeletedAt: users are deactivated, never deleted
}

// DisplayName picks the friendliest available name.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "Anonymous"
	}
}

func (u *User) CategoryIDs() []uint {
	ids := make([]uint, len(u.Categories))
	for i, c := range u.Categories {
		ids[i] = c.ID
	}
	return ids
}
