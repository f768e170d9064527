package handlers

import (
	"context"
	"strings"

	"eventsbot/internal/bot"
	"eventsbot/internal/log"
	"eventsbot/internal/services"
	"eventsbot/internal/utils"
)

// showFeed sends page number page of the user's feed as a new message.
// A page past the end falls back to the last one.
func (h *ChatHandler) showFeed(ctx context.Context, o bot.Origin, page int) error {
	fp, err := h.Feed.Page(ctx, o.UserID, page, h.pageSize)
	if err != nil {
		return err
	}
	if len(fp.Items) == 0 && fp.TotalPages > 0 {
		fp, err = h.Feed.Page(ctx, o.UserID, fp.TotalPages-1, h.pageSize)
		if err != nil {
			return err
		}
	}
	if len(fp.Items) == 0 {
		_, err := h.Transport.Send(ctx, o.ChatID, bot.Message{Text: msgFeedEmpty})
		return err
	}

	for i, item := range fp.Items {
		pos := fp.Page*fp.PageSize + i + 1
		msg := bot.Message{
			Text:     feedCard(item, pos, fp.Total),
			Keyboard: feedKeyboard(fp.Page, fp.TotalPages, item.Post.ID, item.Liked, item.LikeCount),
		}
		if item.Post.ImageID != "" && len([]rune(msg.Text)) <= 1024 {
			if photo, err := h.Blobs.Get(ctx, item.Post.ImageID); err == nil {
				msg.Photo = photo
			} else {
				log.Warn.Printf("feed image %s: %v", item.Post.ImageID, err)
			}
		}
		if _, err := h.Transport.Send(ctx, o.ChatID, msg); err != nil {
			return err
		}
	}
	return nil
}

// feedCallback handles feed_prev_<page>, feed_next_<page> and
// feed_like_<post>_<page>.
func (h *ChatHandler) feedCallback(ctx context.Context, ev bot.Event) error {
	data := ev.Data
	switch {
	case strings.HasPrefix(data, cbFeedPrev):
		cur := utils.StringToInt(strings.TrimPrefix(data, cbFeedPrev))
		return h.turnPage(ctx, ev, cur, services.PrevPage(cur))

	case strings.HasPrefix(data, cbFeedNext):
		cur := utils.StringToInt(strings.TrimPrefix(data, cbFeedNext))
		total, err := h.Feed.GetCount(ctx, ev.Origin.UserID)
		if err != nil {
			return err
		}
		return h.turnPage(ctx, ev, cur, services.NextPage(cur, services.TotalPages(total, h.pageSize)))

	case strings.HasPrefix(data, cbFeedLike):
		parts := strings.Split(strings.TrimPrefix(data, cbFeedLike), "_")
		if len(parts) != 2 {
			return h.answer(ctx, ev, "")
		}
		postID, ok := utils.ParseUint(parts[0])
		if !ok {
			return h.answer(ctx, ev, "")
		}
		return h.like(ctx, ev, postID, utils.StringToInt(parts[1]))
	}
	return h.answer(ctx, ev, "")
}

func (h *ChatHandler) turnPage(ctx context.Context, ev bot.Event, cur, target int) error {
	if target == cur {
		return h.answer(ctx, ev, msgFeedEnd)
	}
	if err := h.answer(ctx, ev, ""); err != nil {
		return err
	}
	// the old card keeps its content but loses the buttons
	if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
		log.Warn.Printf("clear feed keyboard: %v", err)
	}
	return h.showFeed(ctx, ev.Origin, target)
}

func (h *ChatHandler) like(ctx context.Context, ev bot.Event, postID uint, page int) error {
	res, err := h.Likes.Toggle(ctx, ev.Origin.UserID, postID)
	if err != nil {
		return err
	}
	total, err := h.Feed.GetCount(ctx, ev.Origin.UserID)
	if err != nil {
		return err
	}
	kb := feedKeyboard(page, services.TotalPages(total, h.pageSize), postID, res.Action == services.LikeAdded, res.Count)
	if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, kb); err != nil {
		return err
	}
	note := "💔 Like removed"
	if res.Action == services.LikeAdded {
		note = "❤️ Liked"
	}
	return h.answer(ctx, ev, note)
}
