package models

import (
	"time"
)

type PostStatus string

const (
	PostStatusPending          PostStatus = "pending"
	PostStatusApproved         PostStatus = "approved"
	PostStatusRejected         PostStatus = "rejected"
	PostStatusChangesRequested PostStatus = "changes_requested"
)

// transitions is the whole moderation state machine. Only pending posts
// move; every other status is terminal.
var transitions = map[PostStatus]map[ModerationAction]PostStatus{
	PostStatusPending: {
		ActionApprove:        PostStatusApproved,
		ActionReject:         PostStatusRejected,
		ActionRequestChanges: PostStatusChangesRequested,
	},
}

// Next returns the status reached by applying action, and false when the
// transition is not allowed from s.
func (s PostStatus) Next(action ModerationAction) (PostStatus, bool) {
	next, ok := transitions[s][action]
	return next, ok
}

func (s PostStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	AuthorID    int64      `gorm:"not null;index" json:"author_id"`
	Author      User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	City        string     `gorm:"size:100;not null;index" json:"city"`
	ImageID     string     `gorm:"size:255" json:"image_id"` // opaque blob id, optional
	Categories  []Category `gorm:"many2many:post_categories;" json:"categories"`
	Status      PostStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"` // set once, on first approval
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublished is derived from the status so an unapproved post can never
// be published.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusApproved && p.PublishedAt != nil
}

func (p *Post) CategoryIDs() []uint {
	ids := make([]uint, len(p.Categories))
	for i, c := range p.Categories {
		ids[i] = c.ID
	}
	return ids
}

func (p *Post) CategoryNames() []string {
	names := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		names[i] = c.Name
	}
	return names
}
