package middleware

import (
	"net/http"
	"strings"

	"eventsbot/internal/log"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// TelegramSecretHeader carries the secret_token set when the webhook was
// registered.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret rejects webhook calls whose secret token does not match
// the configured bcrypt hash.
func WebhookSecret(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TelegramSecretHeader)
		if !matches(hash, token) {
			log.Warn.Printf("webhook call with bad secret from %s", c.ClientIP())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// AdminRequired guards the moderation API with a bearer token. Without a
// configured hash the API is closed.
func AdminRequired(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin API disabled"})
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || !matches(hash, strings.TrimSpace(token)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func matches(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
