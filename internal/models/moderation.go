package models

import (
	"strings"
	"time"
)

type ModerationAction string

const (
	ActionApprove        ModerationAction = "approve"
	ActionReject         ModerationAction = "reject"
	ActionRequestChanges ModerationAction = "request_changes"
)

// ParseModerationAction accepts the canonical names plus the short
// "changes" form used in callback payloads.
func ParseModerationAction(s string) (ModerationAction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove, true
	case "reject":
		return ActionReject, true
	case "request_changes", "changes":
		return ActionRequestChanges, true
	}
	return "", false
}

// ModerationRecord 审核记录，只追加，不修改不删除
type ModerationRecord struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	PostID      uint             `gorm:"not null;index" json:"post_id"`
	Post        Post             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ModeratorID int64            `gorm:"not null;index" json:"moderator_id"`
	Action      ModerationAction `gorm:"type:varchar(20);not null" json:"action"`
	Comment     string           `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time        `json:"created_at"`
}
