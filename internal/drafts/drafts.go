// Package drafts keeps the state of an unfinished /post conversation.
package drafts

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Step 发帖对话当前等待的输入
type Step string

const (
	StepTitle      Step = "title"
	StepContent    Step = "content"
	StepCity       Step = "city"
	StepCategories Step = "categories"
	StepImage      Step = "image"
	StepConfirm    Step = "confirm"
)

// DefaultTTL is how long an untouched draft survives.
const DefaultTTL = 24 * time.Hour

var ErrNoDraft = errors.New("no draft in progress")

type Draft struct {
	Step        Step   `json:"step"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	City        string `json:"city"`
	CategoryIDs []uint `json:"category_ids"`
	ImageID     string `json:"image_id"`
}

// ToggleCategory adds or removes a category and reports whether it is
// now selected.
func (d *Draft) ToggleCategory(id uint) bool {
	for i, c := range d.CategoryIDs {
		if c == id {
			d.CategoryIDs = append(d.CategoryIDs[:i], d.CategoryIDs[i+1:]...)
			return false
		}
	}
	d.CategoryIDs = append(d.CategoryIDs, id)
	return true
}

func (d *Draft) HasCategory(id uint) bool {
	for _, c := range d.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Store holds at most one draft per user.
type Store interface {
	Get(ctx context.Context, userID int64) (*Draft, error)
	Put(ctx context.Context, userID int64, d *Draft) error
	Delete(ctx context.Context, userID int64) error
}

func key(userID int64) string {
	return "draft:" + strconv.FormatInt(userID, 10)
}
