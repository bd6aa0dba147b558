package application

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
)

// CaptionLimit is the Telegram caption ceiling in characters.
const CaptionLimit = 1024

const dateLayout = "Jan 2, 2006, 03:04 PM"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Renderer turns a candidate into an HTML message.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render uses the schedule template when a body is set, otherwise the default card.
// text is the (possibly rewritten) body to show.
func (r *Renderer) Render(tpl domain.MessageTemplate, item domain.CandidateItem, text string) string {
	if strings.TrimSpace(tpl.Body) == "" {
		return r.DefaultCard(item, text)
	}
	return r.Template(tpl, item, text)
}

// DefaultCard is the author header, the text, the stats line and the link.
func (r *Renderer) DefaultCard(item domain.CandidateItem, text string) string {
	name := item.AuthorName
	if name == "" {
		name = item.AuthorHandle
	}

	verified := ""
	if item.AuthorVerified {
		verified = " ✓"
	}
	header := fmt.Sprintf("🐦 <b>%s</b> (@%s)%s\n\n", html.EscapeString(name), html.EscapeString(item.AuthorHandle), verified)

	stats := fmt.Sprintf("❤️ %s | 🔁 %s | 💬 %s",
		humanize.Comma(item.LikeCount), humanize.Comma(item.RetweetCount), humanize.Comma(item.ReplyCount))
	if item.ViewCount > 0 {
		stats += " | 👁️ " + humanize.Comma(item.ViewCount)
	}
	link := fmt.Sprintf(`🔗 <a href="%s">View on Twitter</a>`, html.EscapeString(item.URL))
	footer := "\n\n" + stats + "\n\n" + link

	limit := CaptionLimit - utf8.RuneCountInString(header) - utf8.RuneCountInString(footer) - 50
	body := html.EscapeString(truncateRunes(text, limit))

	return header + body + footer
}

// Template substitutes placeholders. Values are HTML-escaped; include flags blank
// the matching placeholders.
func (r *Renderer) Template(tpl domain.MessageTemplate, item domain.CandidateItem, text string) string {
	author := item.AuthorName
	if author == "" {
		author = item.AuthorHandle
	}

	when := func(on bool, v string) string {
		if !on {
			return ""
		}
		return v
	}
	replies := humanize.Comma(item.ReplyCount)

	replacer := strings.NewReplacer(
		"{{rewritten_text}}", html.EscapeString(text),
		"{{original_text}}", html.EscapeString(item.Text),
		"{{author}}", when(tpl.IncludeAuthor, html.EscapeString(author)),
		"{{handle}}", when(tpl.IncludeAuthor, "@"+html.EscapeString(item.AuthorHandle)),
		"{{likes}}", when(tpl.IncludeStats, humanize.Comma(item.LikeCount)),
		"{{retweets}}", when(tpl.IncludeStats, humanize.Comma(item.RetweetCount)),
		"{{comments}}", when(tpl.IncludeStats, replies),
		"{{replies}}", when(tpl.IncludeStats, replies),
		"{{views}}", when(tpl.IncludeStats, humanize.Comma(item.ViewCount)),
		"{{link}}", when(tpl.IncludeLink, item.URL),
		"{{url}}", when(tpl.IncludeLink, item.URL),
		"{{date}}", when(tpl.IncludeDate && !item.CreatedAt.IsZero(), item.CreatedAt.Format(dateLayout)),
	)
	msg := replacer.Replace(tpl.Body)
	msg = blankRuns.ReplaceAllString(msg, "\n\n")

	lines := strings.Split(msg, "\n")
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			// a single blank line survives only between two content lines
			prevOK := i > 0 && strings.TrimSpace(lines[i-1]) != ""
			nextOK := i < len(lines)-1 && strings.TrimSpace(lines[i+1]) != ""
			if !prevOK || !nextOK {
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// PlainText strips markup and decodes entities, for captions sent without a parse mode.
func PlainText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	return strings.TrimSpace(doc.Text())
}

func truncateRunes(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
