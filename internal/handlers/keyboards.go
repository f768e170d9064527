package handlers

import (
	"fmt"
	"strconv"

	"eventsbot/internal/bot"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
)

// callback data prefixes
const (
	cbCategory     = "cat_"
	cbCity         = "city_"
	cbDraftCat     = "draft_cat_"
	cbDraftCatDone = "draft_cats_done"
	cbDraftCity    = "draft_city_mine"
	cbDraftCityAt  = "draft_city_"
	cbDraftSkip    = "draft_skip_image"
	cbDraftSubmit  = "draft_submit"
	cbDraftCancel  = "draft_cancel"
	cbFeedPrev     = "feed_prev_"
	cbFeedNext     = "feed_next_"
	cbFeedLike     = "feed_like_"
	cbModerate     = "moderate_"
)

// categoryKeyboard lists the catalog two per row, marking selected ones.
func categoryKeyboard(reg *services.CategoryRegistry, selected map[uint]bool, prefix string, done *bot.Button) bot.Keyboard {
	var kb bot.Keyboard
	var row []bot.Button
	for _, c := range reg.All() {
		label := c.Name
		if selected[c.ID] {
			label = "✅ " + label
		}
		row = append(row, bot.Button{Text: label, Data: fmt.Sprintf("%s%d", prefix, c.ID)})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	if done != nil {
		kb = append(kb, bot.Row(*done))
	}
	return kb
}

func selectedSet(ids []uint) map[uint]bool {
	m := make(map[uint]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func feedKeyboard(page, totalPages int, postID uint, liked bool, likes int64) bot.Keyboard {
	heart := "🤍"
	if liked {
		heart = "❤️"
	}
	var nav []bot.Button
	if page > 0 {
		nav = append(nav, bot.Button{Text: "⬅️", Data: fmt.Sprintf("%s%d", cbFeedPrev, page)})
	}
	nav = append(nav, bot.Button{Text: fmt.Sprintf("%d/%d", page+1, totalPages), Data: "noop"})
	if page < totalPages-1 {
		nav = append(nav, bot.Button{Text: "➡️", Data: fmt.Sprintf("%s%d", cbFeedNext, page)})
	}
	return bot.Keyboard{
		bot.Row(bot.Button{Text: fmt.Sprintf("%s %d", heart, likes), Data: fmt.Sprintf("%s%d_%d", cbFeedLike, postID, page)}),
		nav,
	}
}

func moderationKeyboard(postID uint) bot.Keyboard {
	return bot.Keyboard{
		bot.Row(
			bot.Button{Text: "✅ Approve", Data: fmt.Sprintf("%sapprove_%d", cbModerate, postID)},
			bot.Button{Text: "❌ Reject", Data: fmt.Sprintf("%sreject_%d", cbModerate, postID)},
		),
		bot.Row(bot.Button{Text: "✏️ Request changes", Data: fmt.Sprintf("%schanges_%d", cbModerate, postID)}),
	}
}

// cityKeyboard offers the preset cities two per row; data carries the
// index into cities.
func cityKeyboard(cities []string, prefix string) bot.Keyboard {
	var kb bot.Keyboard
	for i := 0; i < len(cities); i += 2 {
		row := []bot.Button{{Text: cities[i], Data: fmt.Sprintf("%s%d", prefix, i)}}
		if i+1 < len(cities) {
			row = append(row, bot.Button{Text: cities[i+1], Data: fmt.Sprintf("%s%d", prefix, i+1)})
		}
		kb = append(kb, row)
	}
	return kb
}

// cityAt resolves the index from a city button.
func cityAt(cities []string, raw string) (string, bool) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 || i >= len(cities) {
		return "", false
	}
	return cities[i], true
}

func draftCityKeyboard(user *models.User, cities []string) bot.Keyboard {
	var kb bot.Keyboard
	if user != nil && user.City != "" {
		kb = append(kb, bot.Row(bot.Button{Text: "📍 " + user.City, Data: cbDraftCity}))
	}
	return append(kb, cityKeyboard(cities, cbDraftCityAt)...)
}

func draftImageKeyboard() bot.Keyboard {
	return bot.Keyboard{bot.Row(bot.Button{Text: "⏭ Skip", Data: cbDraftSkip})}
}

func draftConfirmKeyboard() bot.Keyboard {
	return bot.Keyboard{bot.Row(
		bot.Button{Text: "📨 Submit", Data: cbDraftSubmit},
		bot.Button{Text: "🗑 Cancel", Data: cbDraftCancel},
	)}
}
