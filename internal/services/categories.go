package services

import (
	"fmt"
	"sort"

	"eventsbot/internal/models"

	"gorm.io/gorm"
)

// CategoryRegistry is the read-only category catalog. It is loaded once at
// startup and passed to whoever needs it.
type CategoryRegistry struct {
	byID    map[uint]models.Category
	ordered []models.Category
}

func NewCategoryRegistry(cats []models.Category) *CategoryRegistry {
	r := &CategoryRegistry{byID: make(map[uint]models.Category, len(cats))}
	for _, c := range cats {
		if !c.IsActive {
			continue
		}
		r.byID[c.ID] = c
		r.ordered = append(r.ordered, c)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ID < r.ordered[j].ID })
	return r
}

// LoadCategoryRegistry 从数据库加载启用的分类
func LoadCategoryRegistry(db *gorm.DB) (*CategoryRegistry, error) {
	var cats []models.Category
	if err := db.Where("is_active = ?", true).Order("id ASC").Find(&cats).Error; err != nil {
		return nil, storageErr("load categories", err)
	}
	return NewCategoryRegistry(cats), nil
}

func (r *CategoryRegistry) Get(id uint) (models.Category, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *CategoryRegistry) All() []models.Category {
	out := make([]models.Category, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *CategoryRegistry) Name(id uint) string {
	if c, ok := r.byID[id]; ok {
		return c.Name
	}
	return "Unknown category"
}

// Resolve maps ids to catalog entries, dropping duplicates. Unknown or
// inactive ids are a validation error.
func (r *CategoryRegistry) Resolve(ids []uint) ([]models.Category, error) {
	seen := make(map[uint]bool, len(ids))
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := r.byID[id]
		if !ok {
			return nil, &ValidationError{Field: "categories", Reason: fmt.Sprintf("unknown category %d", id)}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
