package handlers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"eventsbot/internal/bot"
	"eventsbot/internal/config"
	"eventsbot/internal/drafts"
	"eventsbot/internal/log"
	"eventsbot/internal/services"
	"eventsbot/internal/storage"
	"eventsbot/internal/utils"
)

// Scheduler hands a published post over for fan-out. It reports false
// when the fan-out already ran on the calling goroutine.
type Scheduler interface {
	Schedule(postID uint) bool
}

// ChatDeps 聊天处理器依赖
type ChatDeps struct {
	Config     *config.Config
	Transport  bot.Transport
	Categories *services.CategoryRegistry
	Users      *services.UserService
	Posts      *services.PostService
	Moderation *services.ModerationService
	Feed       *services.FeedService
	Likes      *services.LikeService
	Scheduler  Scheduler
	Drafts     drafts.Store
	Blobs      storage.BlobStore
}

// ChatHandler turns inbound chat events into engine calls and replies.
type ChatHandler struct {
	ChatDeps
	decisions *decisionFlow
	pageSize  int
}

func NewChatHandler(d ChatDeps) *ChatHandler {
	pageSize := d.Config.FeedPageSize
	if pageSize <= 0 {
		pageSize = 1
	}
	return &ChatHandler{
		ChatDeps:  d,
		decisions: newDecisionFlow(d.Moderation, d.Scheduler, d.Transport),
		pageSize:  pageSize,
	}
}

// Handle processes one event. It never panics: a failing event is logged
// and the user gets a generic apology.
func (h *ChatHandler) Handle(ctx context.Context, ev bot.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("panic handling %s from %d: %v\n%s", ev.Kind, ev.Origin.UserID, r, debug.Stack())
		}
	}()

	if _, err := h.Users.Register(ctx, services.Profile{
		ID:        ev.Origin.UserID,
		Username:  ev.Origin.Username,
		FirstName: ev.Origin.FirstName,
		LastName:  ev.Origin.LastName,
	}); err != nil {
		h.fail(ctx, ev, err)
		return
	}

	var err error
	switch ev.Kind {
	case bot.EventCommand:
		err = h.command(ctx, ev)
	case bot.EventCallback:
		err = h.callback(ctx, ev)
	case bot.EventText, bot.EventPhoto:
		err = h.draftInput(ctx, ev)
	}
	if err != nil {
		h.fail(ctx, ev, err)
	}
}

func (h *ChatHandler) command(ctx context.Context, ev bot.Event) error {
	switch ev.Command {
	case "start":
		return h.start(ctx, ev)
	case "help":
		return h.help(ctx, ev)
	case "city":
		return h.city(ctx, ev)
	case "categories":
		return h.showCategories(ctx, ev)
	case "post":
		return h.startDraft(ctx, ev)
	case "cancel":
		return h.cancelDraft(ctx, ev)
	case "feed":
		return h.showFeed(ctx, ev.Origin, 0)
	case "liked":
		return h.liked(ctx, ev)
	case "my":
		return h.myPosts(ctx, ev)
	case "moderation":
		return h.queue(ctx, ev)
	}
	return h.reply(ctx, ev, msgUnknown, nil)
}

func (h *ChatHandler) callback(ctx context.Context, ev bot.Event) error {
	data := ev.Data
	switch {
	case data == "noop":
		return h.answer(ctx, ev, "")
	case strings.HasPrefix(data, cbCity):
		return h.pickCity(ctx, ev, strings.TrimPrefix(data, cbCity))
	case strings.HasPrefix(data, cbCategory):
		return h.toggleCategory(ctx, ev, strings.TrimPrefix(data, cbCategory))
	case strings.HasPrefix(data, "draft_"):
		return h.draftCallback(ctx, ev)
	case strings.HasPrefix(data, "feed_"):
		return h.feedCallback(ctx, ev)
	case strings.HasPrefix(data, cbModerate):
		return h.moderateCallback(ctx, ev)
	}
	log.Warn.Printf("unknown callback data %q from %d", data, ev.Origin.UserID)
	return h.answer(ctx, ev, "")
}

func (h *ChatHandler) start(ctx context.Context, ev bot.Event) error {
	user, err := h.Users.Get(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(msgWelcome, user.DisplayName())
	var cities bot.Keyboard
	if user.City == "" {
		text += "\n\n" + msgAskCity
		cities = cityKeyboard(h.Config.Cities, cbCity)
	} else {
		text += "\n\n" + fmt.Sprintf(msgCurrentCity, escape(user.City))
	}
	if err := h.reply(ctx, ev, text, cities); err != nil {
		return err
	}
	kb := categoryKeyboard(h.Categories, selectedSet(user.CategoryIDs()), cbCategory, nil)
	return h.reply(ctx, ev, msgPickCategories, kb)
}

func (h *ChatHandler) help(ctx context.Context, ev bot.Event) error {
	text := msgHelp
	if h.isModerator(ev.Origin) {
		text += msgModeratorHelp
	}
	return h.reply(ctx, ev, text, nil)
}

func (h *ChatHandler) city(ctx context.Context, ev bot.Event) error {
	if ev.Args == "" {
		user, err := h.Users.Get(ctx, ev.Origin.UserID)
		if err != nil {
			return err
		}
		kb := cityKeyboard(h.Config.Cities, cbCity)
		if user.City == "" {
			return h.reply(ctx, ev, msgAskCity, kb)
		}
		return h.reply(ctx, ev, fmt.Sprintf(msgCurrentCity, escape(user.City)), kb)
	}
	if err := h.Users.SetCity(ctx, ev.Origin.UserID, ev.Args); err != nil {
		return err
	}
	return h.reply(ctx, ev, fmt.Sprintf(msgCitySaved, escape(strings.TrimSpace(ev.Args))), nil)
}

func (h *ChatHandler) pickCity(ctx context.Context, ev bot.Event, raw string) error {
	city, ok := cityAt(h.Config.Cities, raw)
	if !ok {
		return h.answer(ctx, ev, "")
	}
	if err := h.Users.SetCity(ctx, ev.Origin.UserID, city); err != nil {
		return err
	}
	if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
		log.Warn.Printf("clear city keyboard: %v", err)
	}
	if err := h.answer(ctx, ev, ""); err != nil {
		return err
	}
	return h.reply(ctx, ev, fmt.Sprintf(msgCitySaved, escape(city)), nil)
}

func (h *ChatHandler) showCategories(ctx context.Context, ev bot.Event) error {
	user, err := h.Users.Get(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	kb := categoryKeyboard(h.Categories, selectedSet(user.CategoryIDs()), cbCategory, nil)
	return h.reply(ctx, ev, msgPickCategories, kb)
}

func (h *ChatHandler) toggleCategory(ctx context.Context, ev bot.Event, raw string) error {
	id, ok := utils.ParseUint(raw)
	if !ok {
		return h.answer(ctx, ev, "")
	}
	on, err := h.Users.ToggleCategory(ctx, ev.Origin.UserID, id)
	if err != nil {
		return err
	}
	user, err := h.Users.Get(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	kb := categoryKeyboard(h.Categories, selectedSet(user.CategoryIDs()), cbCategory, nil)
	if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, kb); err != nil {
		return err
	}
	note := "Unsubscribed from " + h.Categories.Name(id)
	if on {
		note = "Subscribed to " + h.Categories.Name(id)
	}
	return h.answer(ctx, ev, note)
}

func (h *ChatHandler) liked(ctx context.Context, ev bot.Event) error {
	posts, err := h.Likes.LikedPosts(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return h.reply(ctx, ev, msgLikedEmpty, nil)
	}
	return h.reply(ctx, ev, postList("❤️ <b>Posts you liked</b>", posts, false), nil)
}

func (h *ChatHandler) myPosts(ctx context.Context, ev bot.Event) error {
	posts, err := h.Posts.ByAuthor(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return h.reply(ctx, ev, msgMyEmpty, nil)
	}
	return h.reply(ctx, ev, postList("📝 <b>Your posts</b>", posts, true), nil)
}

func (h *ChatHandler) isModerator(o bot.Origin) bool {
	if h.Config.IsModerator(o.UserID) {
		return true
	}
	return h.Config.ModerationChatID != 0 && o.ChatID == h.Config.ModerationChatID
}

func (h *ChatHandler) reply(ctx context.Context, ev bot.Event, text string, kb bot.Keyboard) error {
	_, err := h.Transport.Send(ctx, ev.Origin.ChatID, bot.Message{Text: text, Keyboard: kb})
	return err
}

func (h *ChatHandler) answer(ctx context.Context, ev bot.Event, text string) error {
	if ev.Kind != bot.EventCallback {
		return nil
	}
	return h.Transport.AnswerCallback(ctx, ev.CallbackID, text)
}

// fail reports an error to the user. Validation problems are shown as is;
// anything else is logged and hidden behind a generic message.
func (h *ChatHandler) fail(ctx context.Context, ev bot.Event, err error) {
	text := userMessage(err)
	if text == "" {
		log.Error.Printf("%s from %d failed: %v", ev.Kind, ev.Origin.UserID, err)
		text = msgFailed
	}
	if errors.Is(err, services.ErrRecipientGone) {
		// can't talk to this user anyway
		return
	}
	if ev.Kind == bot.EventCallback {
		if aerr := h.Transport.AnswerCallback(ctx, ev.CallbackID, utils.StripHTML(text)); aerr != nil {
			log.Warn.Printf("answer callback: %v", aerr)
		}
		return
	}
	if _, serr := h.Transport.Send(ctx, ev.Origin.ChatID, bot.Message{Text: text}); serr != nil {
		log.Warn.Printf("send error reply to %d: %v", ev.Origin.ChatID, serr)
	}
}
