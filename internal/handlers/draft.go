package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"eventsbot/internal/bot"
	"eventsbot/internal/drafts"
	"eventsbot/internal/log"
	"eventsbot/internal/services"
	"eventsbot/internal/utils"
)

// 发帖流程：标题 → 正文 → 城市 → 分类 → 图片（可跳过）→ 预览提交

func (h *ChatHandler) startDraft(ctx context.Context, ev bot.Event) error {
	d := &drafts.Draft{Step: drafts.StepTitle}
	if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
		return err
	}
	return h.reply(ctx, ev, fmt.Sprintf(msgDraftTitle, services.MaxTitleLength), nil)
}

func (h *ChatHandler) cancelDraft(ctx context.Context, ev bot.Event) error {
	d, err := h.Drafts.Get(ctx, ev.Origin.UserID)
	if errors.Is(err, drafts.ErrNoDraft) {
		return h.reply(ctx, ev, msgNoDraft, nil)
	}
	if err != nil {
		return err
	}
	h.dropImage(ctx, d)
	if err := h.Drafts.Delete(ctx, ev.Origin.UserID); err != nil {
		return err
	}
	return h.reply(ctx, ev, msgDraftCancelled, nil)
}

// draftInput handles free text and photos, which only mean something
// while a draft is in progress.
func (h *ChatHandler) draftInput(ctx context.Context, ev bot.Event) error {
	d, err := h.Drafts.Get(ctx, ev.Origin.UserID)
	if errors.Is(err, drafts.ErrNoDraft) {
		return h.reply(ctx, ev, msgNoDraft, nil)
	}
	if err != nil {
		return err
	}

	if ev.Kind == bot.EventPhoto && d.Step != drafts.StepImage {
		return h.reply(ctx, ev, "I wasn't expecting a photo yet.", nil)
	}

	text := strings.TrimSpace(ev.Text)
	switch d.Step {
	case drafts.StepTitle:
		if err := checkLength("title", text, services.MaxTitleLength); err != nil {
			return err
		}
		d.Title = text
		d.Step = drafts.StepContent
		if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
			return err
		}
		return h.reply(ctx, ev, fmt.Sprintf(msgDraftContent, services.MaxContentLength), nil)

	case drafts.StepContent:
		if err := checkLength("content", text, services.MaxContentLength); err != nil {
			return err
		}
		d.Content = text
		d.Step = drafts.StepCity
		if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
			return err
		}
		user, err := h.Users.Get(ctx, ev.Origin.UserID)
		if err != nil {
			return err
		}
		return h.reply(ctx, ev, msgDraftCity, draftCityKeyboard(user, h.Config.Cities))

	case drafts.StepCity:
		if err := checkLength("city", text, services.MaxCityLength); err != nil {
			return err
		}
		return h.draftSetCity(ctx, ev, d, text)

	case drafts.StepCategories:
		return h.reply(ctx, ev, msgDraftWaitCats, nil)

	case drafts.StepImage:
		if ev.Kind != bot.EventPhoto {
			return h.reply(ctx, ev, msgDraftWaitImage, draftImageKeyboard())
		}
		return h.draftSetImage(ctx, ev, d)

	case drafts.StepConfirm:
		return h.reply(ctx, ev, msgDraftWaitSubmit, nil)
	}
	return nil
}

func (h *ChatHandler) draftCallback(ctx context.Context, ev bot.Event) error {
	d, err := h.Drafts.Get(ctx, ev.Origin.UserID)
	if errors.Is(err, drafts.ErrNoDraft) {
		if aerr := h.answer(ctx, ev, "This draft has expired"); aerr != nil {
			return aerr
		}
		return h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil)
	}
	if err != nil {
		return err
	}

	data := ev.Data
	switch {
	case data == cbDraftCancel:
		h.dropImage(ctx, d)
		if err := h.Drafts.Delete(ctx, ev.Origin.UserID); err != nil {
			return err
		}
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
			return err
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.reply(ctx, ev, msgDraftCancelled, nil)

	case data == cbDraftCity && d.Step == drafts.StepCity:
		user, err := h.Users.Get(ctx, ev.Origin.UserID)
		if err != nil {
			return err
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.draftSetCity(ctx, ev, d, user.City)

	case strings.HasPrefix(data, cbDraftCityAt) && d.Step == drafts.StepCity:
		city, ok := cityAt(h.Config.Cities, strings.TrimPrefix(data, cbDraftCityAt))
		if !ok {
			return h.answer(ctx, ev, "")
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.draftSetCity(ctx, ev, d, city)

	case strings.HasPrefix(data, cbDraftCat) && d.Step == drafts.StepCategories:
		id, ok := utils.ParseUint(strings.TrimPrefix(data, cbDraftCat))
		if !ok {
			return h.answer(ctx, ev, "")
		}
		if _, ok := h.Categories.Get(id); !ok {
			return h.answer(ctx, ev, "Unknown category")
		}
		d.ToggleCategory(id)
		if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
			return err
		}
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, h.draftCategoryKeyboard(d)); err != nil {
			return err
		}
		return h.answer(ctx, ev, "")

	case data == cbDraftCatDone && d.Step == drafts.StepCategories:
		if len(d.CategoryIDs) == 0 {
			return h.answer(ctx, ev, "Pick at least one category")
		}
		d.Step = drafts.StepImage
		if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
			return err
		}
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
			return err
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.reply(ctx, ev, msgDraftImage, draftImageKeyboard())

	case data == cbDraftSkip && d.Step == drafts.StepImage:
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
			return err
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.draftPreview(ctx, ev, d)

	case data == cbDraftSubmit && d.Step == drafts.StepConfirm:
		if err := h.Transport.EditKeyboard(ctx, ev.Origin.ChatID, ev.Origin.MessageID, nil); err != nil {
			return err
		}
		if err := h.answer(ctx, ev, ""); err != nil {
			return err
		}
		return h.submitDraft(ctx, ev, d)
	}

	// button from an earlier step
	return h.answer(ctx, ev, "")
}

func (h *ChatHandler) draftSetCity(ctx context.Context, ev bot.Event, d *drafts.Draft, city string) error {
	d.City = city
	d.Step = drafts.StepCategories
	if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
		return err
	}
	return h.reply(ctx, ev, msgDraftCategories, h.draftCategoryKeyboard(d))
}

func (h *ChatHandler) draftCategoryKeyboard(d *drafts.Draft) bot.Keyboard {
	done := bot.Button{Text: "✔️ Done", Data: cbDraftCatDone}
	return categoryKeyboard(h.Categories, selectedSet(d.CategoryIDs), cbDraftCat, &done)
}

func (h *ChatHandler) draftSetImage(ctx context.Context, ev bot.Event, d *drafts.Draft) error {
	data, err := h.Transport.DownloadFile(ctx, ev.FileID)
	if errors.Is(err, bot.ErrFileTooLarge) {
		return h.reply(ctx, ev, msgPhotoTooLarge, draftImageKeyboard())
	}
	if err != nil {
		return err
	}
	id, err := h.Blobs.Save(ctx, data, "jpg")
	if err != nil {
		return err
	}
	h.dropImage(ctx, d) // replaced
	d.ImageID = id
	return h.draftPreview(ctx, ev, d)
}

func (h *ChatHandler) draftPreview(ctx context.Context, ev bot.Event, d *drafts.Draft) error {
	d.Step = drafts.StepConfirm
	if err := h.Drafts.Put(ctx, ev.Origin.UserID, d); err != nil {
		return err
	}
	msg := bot.Message{Text: draftPreview(d, h.Categories), Keyboard: draftConfirmKeyboard()}
	if d.ImageID != "" {
		if photo, err := h.Blobs.Get(ctx, d.ImageID); err == nil {
			msg.Photo = photo
		}
	}
	if msg.Photo != nil && utf8.RuneCountInString(msg.Text) > 1024 {
		// caption too long, preview without the photo
		msg.Photo = nil
	}
	_, err := h.Transport.Send(ctx, ev.Origin.ChatID, msg)
	return err
}

func (h *ChatHandler) submitDraft(ctx context.Context, ev bot.Event, d *drafts.Draft) error {
	post, err := h.Moderation.Submit(ctx, services.NewPost{
		Title:       d.Title,
		Content:     d.Content,
		AuthorID:    ev.Origin.UserID,
		City:        d.City,
		ImageID:     d.ImageID,
		CategoryIDs: d.CategoryIDs,
	})
	if err != nil {
		return err
	}
	if err := h.Drafts.Delete(ctx, ev.Origin.UserID); err != nil {
		log.Warn.Printf("delete draft of %d: %v", ev.Origin.UserID, err)
	}
	if err := h.reply(ctx, ev, msgDraftSubmitted, nil); err != nil {
		return err
	}
	h.sendForReview(ctx, post.ID)
	return nil
}

// sendForReview posts the card to the moderation chat. Failing here does
// not undo the submission: the post stays in the queue for /moderation.
func (h *ChatHandler) sendForReview(ctx context.Context, postID uint) {
	if h.Config.ModerationChatID == 0 {
		log.Warn.Printf("MODERATION_CHAT_ID not set, post %d waits in the queue", postID)
		return
	}
	post, err := h.Posts.Get(ctx, postID)
	if err != nil {
		log.Error.Printf("load post %d for review: %v", postID, err)
		return
	}
	if err := h.sendModerationCard(ctx, h.Config.ModerationChatID, post); err != nil {
		log.Error.Printf("send post %d to moderation: %v", postID, err)
	}
}

func (h *ChatHandler) dropImage(ctx context.Context, d *drafts.Draft) {
	if d.ImageID == "" {
		return
	}
	if err := h.Blobs.Delete(ctx, d.ImageID); err != nil {
		log.Warn.Printf("delete draft image %s: %v", d.ImageID, err)
	}
	d.ImageID = ""
}

func checkLength(field, text string, max int) error {
	if text == "" {
		return &services.ValidationError{Field: field, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(text) > max {
		return &services.ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d characters", max)}
	}
	return nil
}
