package handlers

import (
	"errors"
	"html"
	"net/http"

	"eventsbot/internal/log"
	"eventsbot/internal/services"

	"github.com/gin-gonic/gin"
)

// userMessage turns an engine error into something safe to show a chat
// user. Empty means "internal, don't show".
func userMessage(err error) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return "⚠️ " + escape(verr.Error())
	case errors.Is(err, services.ErrNotFound):
		return "🔍 Not found. It may have been removed."
	case errors.Is(err, services.ErrInvalidTransition):
		return "This post has already been reviewed."
	}
	return ""
}

// JSON error helper
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
