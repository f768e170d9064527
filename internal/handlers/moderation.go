package handlers

import (
	"context"
	"fmt"
	"strings"

	"eventsbot/internal/bot"
	"eventsbot/internal/log"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
	"eventsbot/internal/utils"
)

// maxQueueCards limits how many pending posts /moderation shows at once.
const maxQueueCards = 10

// decisionFlow is what happens around a moderation decision, whichever
// surface it came from: persist, queue the fan-out, tell the author.
type decisionFlow struct {
	moderation *services.ModerationService
	scheduler  Scheduler
	transport  bot.Transport
}

func newDecisionFlow(m *services.ModerationService, s Scheduler, t bot.Transport) *decisionFlow {
	return &decisionFlow{moderation: m, scheduler: s, transport: t}
}

func (f *decisionFlow) decide(ctx context.Context, postID uint, moderatorID int64, action models.ModerationAction, comment string) (*services.Outcome, error) {
	out, err := f.moderation.Decide(ctx, postID, moderatorID, action, comment)
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		return out, nil
	}

	// 只有真正发布帖子的那次审核负责分发
	if out.Published() && f.scheduler != nil {
		if !f.scheduler.Schedule(out.Post.ID) {
			log.Info.Printf("post %d fan-out ran inline", out.Post.ID)
		}
	}

	if f.transport != nil {
		text := decisionText(out.Post, action, comment)
		if _, err := f.transport.Send(ctx, out.Post.AuthorID, bot.Message{Text: text}); err != nil {
			log.Warn.Printf("tell author %d about post %d: %v", out.Post.AuthorID, out.Post.ID, err)
		}
	}
	return out, nil
}

func (h *ChatHandler) queue(ctx context.Context, ev bot.Event) error {
	if !h.isModerator(ev.Origin) {
		return h.reply(ctx, ev, msgNotAllowed, nil)
	}
	posts, err := h.Moderation.Queue(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return h.reply(ctx, ev, msgQueueEmpty, nil)
	}

	header := fmt.Sprintf("🛡 %d post(s) waiting for review.", len(posts))
	if len(posts) > maxQueueCards {
		header += fmt.Sprintf(" Showing the oldest %d.", maxQueueCards)
		posts = posts[:maxQueueCards]
	}
	if err := h.reply(ctx, ev, header, nil); err != nil {
		return err
	}
	for i := range posts {
		if err := h.sendModerationCard(ctx, ev.Origin.ChatID, &posts[i]); err != nil {
			return err
		}
	}
	return nil
}

// sendModerationCard posts a review card. A photo goes out as its own
// message first so the card stays text and can be rewritten once decided.
func (h *ChatHandler) sendModerationCard(ctx context.Context, chatID int64, post *models.Post) error {
	if post.ImageID != "" {
		if photo, err := h.Blobs.Get(ctx, post.ImageID); err == nil {
			if _, err := h.Transport.Send(ctx, chatID, bot.Message{Photo: photo}); err != nil {
				return err
			}
		} else {
			log.Warn.Printf("image %s for post %d unavailable: %v", post.ImageID, post.ID, err)
		}
	}
	msg := bot.Message{Text: moderationCard(post), Keyboard: moderationKeyboard(post.ID)}
	_, err := h.Transport.Send(ctx, chatID, msg)
	return err
}

// moderateCallback handles moderate_<approve|reject|changes>_<post id>.
func (h *ChatHandler) moderateCallback(ctx context.Context, ev bot.Event) error {
	if !h.isModerator(ev.Origin) {
		return h.answer(ctx, ev, msgNotAllowed)
	}

	rest := strings.TrimPrefix(ev.Data, cbModerate)
	i := strings.LastIndex(rest, "_")
	if i < 0 {
		return h.answer(ctx, ev, "")
	}
	action, ok := models.ParseModerationAction(rest[:i])
	postID, idOK := utils.ParseUint(rest[i+1:])
	if !ok || !idOK {
		log.Warn.Printf("bad moderation callback %q", ev.Data)
		return h.answer(ctx, ev, "")
	}

	out, err := h.decisions.decide(ctx, postID, ev.Origin.UserID, action, "")
	if err != nil {
		return err
	}

	if !out.Changed {
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
			log.Warn.Printf("clear moderation keyboard: %v", err)
		}
		return h.answer(ctx, ev, "Already decided: "+utils.StripHTML(statusLabel(out.Post.Status)))
	}

	by := ev.Origin.FirstName
	if ev.Origin.Username != "" {
		by = "@" + ev.Origin.Username
	}
	if by == "" {
		by = fmt.Sprintf("#%d", ev.Origin.UserID)
	}
	// 审核结果写回原卡片，按钮一并移除
	verdict := fmt.Sprintf("%s by %s", statusLabel(out.Post.Status), escape(by))
	if err := h.Transport.EditText(ctx, ev.Origin.ChatID, ev.Origin.MessageID, decidedCard(out.Post, verdict), nil); err != nil {
		log.Warn.Printf("update moderation card: %v", err)
	}
	return h.answer(ctx, ev, "Done")
}
