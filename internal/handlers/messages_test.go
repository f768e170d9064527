package handlers

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"eventsbot/internal/drafts"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
)

func longestPost() *models.Post {
	published := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	return &models.Post{
		ID:          42,
		Title:       strings.Repeat("T&", services.MaxTitleLength/2),
		Content:     strings.Repeat("w&rd ", 790) + "**end**",
		City:        strings.Repeat("c", services.MaxCityLength),
		AuthorID:    7,
		Author:      models.User{ID: 7, FirstName: "Anna", Username: "anna"},
		Categories:  []models.Category{{ID: 1, Name: "Parties"}, {ID: 12, Name: "Music"}, {ID: 13, Name: "Cinema"}},
		Status:      models.PostStatusApproved,
		PublishedAt: &published,
	}
}

func TestCardsFitMessageLimit(t *testing.T) {
	p := longestPost()
	if n := utf8.RuneCountInString(p.Content); n > services.MaxContentLength {
		t.Fatalf("fixture content too long: %d", n)
	}
	reg := services.NewCategoryRegistry([]models.Category{{ID: 1, Name: "Parties"}})

	cards := map[string]string{
		"notification": NotificationText(p).Text,
		"feed":         feedCard(services.FeedItem{Post: *p}, 1000, 1000),
		"moderation":   moderationCard(p),
		"preview": draftPreview(&drafts.Draft{
			Title: p.Title, Content: p.Content, City: p.City, CategoryIDs: []uint{1},
		}, reg),
	}
	for name, text := range cards {
		if n := utf8.RuneCountInString(text); n > maxMessageLength {
			t.Errorf("%s card has %d characters, limit %d", name, n, maxMessageLength)
		}
		if !strings.Contains(text, "T&amp;T&amp;") {
			t.Errorf("%s card lost the title", name)
		}
		if !strings.Contains(text, p.City) {
			t.Errorf("%s card lost the city", name)
		}
		if !strings.Contains(text, "…") {
			t.Errorf("%s card should mark the cut body", name)
		}
	}
	if !strings.HasSuffix(cards["feed"], "📊 1000 of 1000") {
		t.Errorf("feed card lost its position line")
	}
}

func TestShortCardKeepsMarkup(t *testing.T) {
	p := &models.Post{Title: "Jam", Content: "Bring **drums**", City: "Omsk"}
	card := postCard(p, maxMessageLength)
	if !strings.Contains(card, "<strong>drums</strong>") {
		t.Errorf("short body should keep its formatting: %s", card)
	}
	if strings.Contains(card, "…") {
		t.Errorf("short body should not be cut: %s", card)
	}
}

func TestFitBody(t *testing.T) {
	if got := fitBody("a & b & c", 0); got != "" {
		t.Errorf("no room should give empty body, got %q", got)
	}
	got := fitBody(strings.Repeat("& ", 50), 20)
	if n := utf8.RuneCountInString(got); n > 20 {
		t.Errorf("body has %d characters, room 20: %q", n, got)
	}
	if strings.Count(got, "&") != strings.Count(got, "&amp;") {
		t.Errorf("escape sequence was split: %q", got)
	}
}
