package handlers

import (
	"net/http"
	"time"

	"eventsbot/internal/bot"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
	"eventsbot/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler 审核管理 HTTP 接口，与聊天里的审核按钮走同一套逻辑
type AdminHandler struct {
	moderation *services.ModerationService
	decisions  *decisionFlow
}

func NewAdminHandler(m *services.ModerationService, s Scheduler, t bot.Transport) *AdminHandler {
	return &AdminHandler{moderation: m, decisions: newDecisionFlow(m, s, t)}
}

type postView struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    int64      `json:"author_id"`
	City        string     `json:"city"`
	ImageID     string     `json:"image_id,omitempty"`
	Categories  []string   `json:"categories"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newPostView(p *models.Post) postView {
	return postView{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		AuthorID:    p.AuthorID,
		City:        p.City,
		ImageID:     p.ImageID,
		Categories:  p.CategoryNames(),
		Status:      string(p.Status),
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// Queue 待审核列表
func (h *AdminHandler) Queue(c *gin.Context) {
	posts, err := h.moderation.Queue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]postView, len(posts))
	for i := range posts {
		views[i] = newPostView(&posts[i])
	}
	c.JSON(http.StatusOK, gin.H{"posts": views})
}

// History 审核记录
func (h *AdminHandler) History(c *gin.Context) {
	id, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	records, err := h.moderation.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Actions 按操作类型查询审核记录 (?action=approve|reject|request_changes)
func (h *AdminHandler) Actions(c *gin.Context) {
	action, ok := models.ParseModerationAction(c.Query("action"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action", "field": "action"})
		return
	}
	records, err := h.moderation.ActionsByType(c.Request.Context(), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type decideRequest struct {
	ModeratorID int64  `json:"moderator_id" binding:"required"`
	Action      string `json:"action" binding:"required"`
	Comment     string `json:"comment"`
}

// Decide 审核帖子
func (h *AdminHandler) Decide(c *gin.Context) {
	id, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, ok := models.ParseModerationAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action", "field": "action"})
		return
	}

	out, err := h.decisions.decide(c.Request.Context(), id, req.ModeratorID, action, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := out.Err(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "post": newPostView(out.Post)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": newPostView(out.Post), "record": out.Record})
}
