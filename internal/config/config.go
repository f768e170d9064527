package config

import (
	"os"
	"strconv"
	"strings"

	"eventsbot/internal/log"
	"eventsbot/internal/utils"

	"github.com/joho/godotenv"
)

// Config 运行时配置，全部来自环境变量（可由 .env 提供）
type Config struct {
	DatabaseURL string
	Port        string

	BotToken          string
	WebhookSecretHash string // bcrypt hash of the secret token Telegram sends; empty means long polling

	AdminTokenHash string // bcrypt hash guarding /api

	ModerationChatID int64
	ModeratorIDs     []int64

	UploadDir    string
	RedisURL     string
	FeedPageSize int

	// Cities are offered as buttons wherever a city is asked for.
	Cities []string
}

// DefaultCities is used when CITIES is not set.
var DefaultCities = []string{
	"Moscow", "Saint Petersburg",
	"Novosibirsk", "Yekaterinburg",
	"Kazan", "Nizhny Novgorod",
	"Chelyabinsk", "Samara",
	"Ufa", "Rostov-on-Don",
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info.Println("No .env file found, finding env vars from system")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              getEnv("PORT", "8080"),
		BotToken:          os.Getenv("BOT_TOKEN"),
		WebhookSecretHash: os.Getenv("WEBHOOK_SECRET_HASH"),
		AdminTokenHash:    os.Getenv("ADMIN_TOKEN_HASH"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		RedisURL:          os.Getenv("REDIS_URL"),
		FeedPageSize:      1,
	}
	if cfg.DatabaseURL == "" {
		// Fallback for local dev if not set
		cfg.DatabaseURL = "host=localhost user=postgres password=postgres dbname=eventsbot port=5432 sslmode=disable"
	}

	if v := os.Getenv("MODERATION_CHAT_ID"); v != "" {
		id, ok := utils.ParseInt64(v)
		if !ok {
			log.Warn.Printf("invalid MODERATION_CHAT_ID %q", v)
		}
		cfg.ModerationChatID = id
	}
	cfg.ModeratorIDs = parseIDList(os.Getenv("MODERATOR_IDS"))

	cfg.Cities = DefaultCities
	if v := os.Getenv("CITIES"); v != "" {
		cfg.Cities = parseList(v)
	}

	if v := os.Getenv("FEED_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FeedPageSize = n
		}
	}

	return cfg
}

// WebhookMode reports whether updates arrive over HTTP instead of polling.
func (c *Config) WebhookMode() bool {
	return c.WebhookSecretHash != ""
}

// IsModerator 判断用户是否在版主名单中
func (c *Config) IsModerator(userID int64) bool {
	for _, id := range c.ModeratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ok := utils.ParseInt64(part)
		if !ok {
			log.Warn.Printf("skipping invalid moderator id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
