package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"eventsbot/internal/bot"
	"eventsbot/internal/config"
	"eventsbot/internal/db"
	"eventsbot/internal/drafts"
	"eventsbot/internal/handlers"
	"eventsbot/internal/log"
	"eventsbot/internal/router"
	"eventsbot/internal/services"
	"eventsbot/internal/storage"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	dispatchQueueSize = 1000
	blobCacheSize     = 128
	draftCacheSize    = 10000
)

func main() {
	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Error.Fatal("BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error.Fatalf("Failed to connect to database: %v", err)
	}
	categories, err := services.LoadCategoryRegistry(conn)
	if err != nil {
		log.Error.Fatalf("Failed to load categories: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error.Fatalf("Failed to connect to Telegram: %v", err)
	}
	log.Info.Printf("Authorized as @%s", api.Self.UserName)
	transport := bot.NewTelegram(api)

	blobs, err := storage.NewLocalStore(cfg.UploadDir, blobCacheSize)
	if err != nil {
		log.Error.Fatalf("Failed to open upload dir: %v", err)
	}
	draftStore := openDrafts(cfg)

	// Engines
	users := services.NewUserService(conn, categories)
	posts := services.NewPostService(conn, categories)
	moderation := services.NewModerationService(conn, posts)
	likes := services.NewLikeService(conn)
	feed := services.NewFeedService(conn, likes)
	distribution := services.NewDistributionService(conn, users, bot.NewNotifier(transport, blobs), handlers.NotificationText)

	// 异步分发：审核通过后后台发送通知
	dispatcher := services.NewDispatcher(distribution, posts, dispatchQueueSize)
	dispatcher.Start(ctx)

	chat := handlers.NewChatHandler(handlers.ChatDeps{
		Config:     cfg,
		Transport:  transport,
		Categories: categories,
		Users:      users,
		Posts:      posts,
		Moderation: moderation,
		Feed:       feed,
		Likes:      likes,
		Scheduler:  dispatcher,
		Drafts:     draftStore,
		Blobs:      blobs,
	})
	admin := handlers.NewAdminHandler(moderation, dispatcher, transport)

	// Initialize Gin
	r := gin.Default()
	router.RegisterRoutes(r, cfg, chat, admin)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info.Printf("Events bot server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error.Fatal(err)
		}
	}()

	polling := make(chan struct{})
	if cfg.WebhookMode() {
		log.Info.Printf("Receiving updates on %s", router.WebhookPath)
		close(polling)
	} else {
		go func() {
			defer close(polling)
			poll(ctx, api, chat)
		}()
	}

	<-ctx.Done()
	log.Info.Println("Shutting down")
	api.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error.Printf("server shutdown: %v", err)
	}
	<-polling

	// 等待分发队列发送完毕
	dispatcher.Wait()
	log.Info.Println("Server exiting")
}

// poll reads updates with long polling; each update runs on its own
// goroutine so a slow handler does not hold up the others. It returns
// once ctx is done and every started handler has finished.
func poll(ctx context.Context, api *tgbotapi.BotAPI, chat *handlers.ChatHandler) {
	var wg sync.WaitGroup
	defer wg.Wait()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	log.Info.Println("Long polling for updates")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := bot.FromUpdate(update)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				chat.Handle(ctx, ev)
			}()
		}
	}
}

func openDrafts(cfg *config.Config) drafts.Store {
	if cfg.RedisURL != "" {
		store, err := drafts.NewRedisStore(cfg.RedisURL, drafts.DefaultTTL)
		if err == nil {
			log.Info.Println("Drafts stored in Redis")
			return store
		}
		log.Warn.Printf("Redis unavailable (%v), keeping drafts in memory", err)
	}
	store, err := drafts.NewMemoryStore(draftCacheSize, drafts.DefaultTTL)
	if err != nil {
		log.Error.Fatalf("Failed to create draft store: %v", err)
	}
	return store
}
