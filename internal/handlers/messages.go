package handlers

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"eventsbot/internal/drafts"
	"eventsbot/internal/models"
	"eventsbot/internal/services"
	"eventsbot/internal/utils"
)

const dateLayout = "02.01.2006 15:04"

const (
	msgWelcome = "👋 Hi, %s!\n\nI share local events. Tell me your city and pick the categories you care about, " +
		"and I'll send you new posts as soon as moderators approve them."
	msgAskCity        = "🏙 Pick your city, or send <code>/city Your city</code>."
	msgCitySaved      = "🏙 City saved: <b>%s</b>"
	msgCurrentCity    = "🏙 Your city: <b>%s</b>\nPick another one or send <code>/city New city</code>."
	msgPickCategories = "📂 Choose the categories you want to hear about:"
	msgHelp           = "<b>Commands</b>\n" +
		"/start – register\n" +
		"/city &lt;name&gt; – set your city\n" +
		"/categories – choose categories\n" +
		"/post – create a post\n" +
		"/cancel – drop the post you are writing\n" +
		"/feed – browse published posts\n" +
		"/liked – posts you liked\n" +
		"/my – your posts and their status\n" +
		"/help – this message"
	msgModeratorHelp = "\n\n<b>Moderators</b>\n/moderation – posts waiting for review"

	msgDraftTitle      = "✏️ New post. Send the title (up to %d characters)."
	msgDraftContent    = "📝 Now the text of the post (up to %d characters). Markdown is fine."
	msgDraftCity       = "🏙 Which city is the event in? Pick one or type it."
	msgDraftCategories = "📂 Pick one or more categories, then press Done."
	msgDraftImage      = "🖼 Send a photo for the post, or skip."
	msgDraftPreview    = "👀 Preview:\n\n%s\n\nSend it to moderation?"
	msgDraftCancelled  = "🗑 Draft dropped."
	msgDraftSubmitted  = "📨 Your post was sent to moderation. I'll let you know the result."
	msgNoDraft         = "Nothing in progress. Use /post to create a post or /help to see what I can do."
	msgDraftWaitCats   = "Use the buttons above to pick categories."
	msgDraftWaitImage  = "Send a photo or press Skip."
	msgDraftWaitSubmit = "Press Submit or Cancel under the preview."
	msgPhotoTooLarge   = "🖼 That photo is too large. Send a smaller one or skip."

	msgFeedEmpty  = "📭 No posts in your categories yet. Try /categories to follow more."
	msgFeedEnd    = "That's all for now"
	msgLikedEmpty = "You haven't liked anything yet."
	msgMyEmpty    = "You haven't posted anything yet. /post to create one."
	msgQueueEmpty = "✅ Moderation queue is empty."
	msgNotAllowed = "⛔ Moderators only."
	msgUnknown    = "I didn't get that. /help lists the commands."
	msgFailed     = "⚠️ Something went wrong, please try again later."
)

// maxMessageLength is Telegram's limit for one text message.
const maxMessageLength = 4096

// postCard renders the common part of every post message, keeping it
// within limit characters. A body that does not fit is cut and sent as
// plain text.
func postCard(p *models.Post, limit int) string {
	head := fmt.Sprintf("<b>%s</b>\n\n", html.EscapeString(p.Title))

	var foot strings.Builder
	foot.WriteString("\n\n")
	fmt.Fprintf(&foot, "🏙 %s\n", html.EscapeString(p.City))
	fmt.Fprintf(&foot, "📂 %s", html.EscapeString(categoryList(p)))
	if p.PublishedAt != nil {
		fmt.Fprintf(&foot, "\n📅 %s", p.PublishedAt.Format(dateLayout))
	}

	room := limit - runeLen(head) - runeLen(foot.String())
	return head + fitBody(p.Content, room) + foot.String()
}

// fitBody renders content, falling back to escaped plain text cut to room
// characters when the markup does not fit.
func fitBody(content string, room int) string {
	body := utils.RenderTelegramHTML(content)
	if runeLen(body) <= room {
		return body
	}
	if room <= 0 {
		return ""
	}
	plain := utils.StripHTML(body)
	// escaping can grow the text, so shrink until it fits
	for n := room; n > 0; {
		out := html.EscapeString(utils.Truncate(plain, n))
		size := runeLen(out)
		if size <= room {
			return out
		}
		next := n * room / size
		if next >= n {
			next = n - 1
		}
		n = next
	}
	return ""
}

// cardLimit is what is left of a message after the text around a card.
func cardLimit(around string) int {
	return maxMessageLength - runeLen(around)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func categoryList(p *models.Post) string {
	names := p.CategoryNames()
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}

// NotificationText builds what subscribers receive for a newly published post.
func NotificationText(p *models.Post) services.Notification {
	const header = "🆕 New event in your categories\n\n"
	return services.Notification{
		PostID:  p.ID,
		Text:    header + postCard(p, cardLimit(header)),
		ImageID: p.ImageID,
	}
}

func feedCard(item services.FeedItem, position int, total int64) string {
	footer := fmt.Sprintf("\n\n📊 %d of %d", position, total)
	return postCard(&item.Post, cardLimit(footer)) + footer
}

func moderationCard(p *models.Post) string {
	header := moderationHeader(p)
	return header + postCard(p, cardLimit(header))
}

// decidedCard is a moderation card after the decision, with the verdict
// in place of the buttons.
func decidedCard(p *models.Post, verdict string) string {
	header := moderationHeader(p)
	footer := "\n\n" + verdict
	return header + postCard(p, cardLimit(header+footer)) + footer
}

func moderationHeader(p *models.Post) string {
	author := p.Author.DisplayName()
	if p.Author.Username != "" {
		author += " (@" + p.Author.Username + ")"
	}
	return fmt.Sprintf("🛡 <b>Post #%d for review</b>\nAuthor: %s\n\n",
		p.ID, html.EscapeString(author))
}

func draftPreview(d *drafts.Draft, reg *services.CategoryRegistry) string {
	post := &models.Post{Title: d.Title, Content: d.Content, City: d.City}
	for _, id := range d.CategoryIDs {
		if c, ok := reg.Get(id); ok {
			post.Categories = append(post.Categories, c)
		}
	}
	return fmt.Sprintf(msgDraftPreview, postCard(post, cardLimit(fmt.Sprintf(msgDraftPreview, ""))))
}

// decisionText is sent to the author after a moderator acts.
func decisionText(p *models.Post, action models.ModerationAction, comment string) string {
	title := html.EscapeString(p.Title)
	var text string
	switch action {
	case models.ActionApprove:
		text = fmt.Sprintf("🎉 Your post <b>%s</b> was approved and published.", title)
	case models.ActionReject:
		text = fmt.Sprintf("❌ Your post <b>%s</b> was rejected.", title)
	case models.ActionRequestChanges:
		text = fmt.Sprintf("✏️ Moderators asked for changes to <b>%s</b>. Please create a new post with the fixes.", title)
	}
	if comment != "" {
		text += "\n\nComment: " + html.EscapeString(comment)
	}
	return text
}

func statusLabel(s models.PostStatus) string {
	switch s {
	case models.PostStatusPending:
		return "⏳ pending"
	case models.PostStatusApproved:
		return "✅ published"
	case models.PostStatusRejected:
		return "❌ rejected"
	case models.PostStatusChangesRequested:
		return "✏️ changes requested"
	}
	return string(s)
}

func postList(header string, posts []models.Post, withStatus bool) string {
	var b strings.Builder
	b.WriteString(header)
	for i, p := range posts {
		fmt.Fprintf(&b, "\n%d. <b>%s</b>", i+1, html.EscapeString(utils.Truncate(p.Title, 60)))
		if withStatus {
			b.WriteString(" – " + statusLabel(p.Status))
		}
		if p.PublishedAt != nil {
			b.WriteString(" · " + p.PublishedAt.Format(dateLayout))
		}
	}
	return b.String()
}
