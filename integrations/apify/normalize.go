package apify

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

type rawAuthor struct {
	UserName       string `json:"userName"`
	Name           string `json:"name"`
	IsVerified     bool   `json:"isVerified"`
	IsBlueVerified bool   `json:"isBlueVerified"`
}

type rawVariant struct {
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Bitrate     int64  `json:"bitrate"`
}

type rawMedia struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	URL           string `json:"url"`
	PreviewImage  string `json:"preview_image_url"`
	ExpandedURL   string `json:"expanded_url"`
	VideoInfo     *struct {
		Variants []rawVariant `json:"variants"`
	} `json:"video_info"`
}

type rawURLEntity struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

// rawTweet is one dataset row. Several fields come either as JSON or as a
// JSON-encoded string depending on the actor version.
type rawTweet struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Text      string     `json:"text"`
	CreatedAt string     `json:"createdAt"`
	Language  string     `json:"lang"`
	Lang2     string     `json:"language"`
	Author    *rawAuthor `json:"author"`

	AuthorHandle   string `json:"authorHandle"`
	AuthorName     string `json:"authorName"`
	AuthorVerified bool   `json:"authorVerified"`

	ReplyCount   int64   `json:"replyCount"`
	RetweetCount int64   `json:"retweetCount"`
	QuoteCount   int64   `json:"quoteCount"`
	LikeCount    int64   `json:"likeCount"`
	ViewCount    int64   `json:"viewCount"`
	TrendScore   float64 `json:"trendScore"`

	ExtendedEntities *struct {
		Media []rawMedia `json:"media"`
	} `json:"extendedEntities"`
	Media     []rawMedia      `json:"media"`
	MediaURLs json.RawMessage `json:"mediaUrls"`

	Entities *struct {
		URLs []rawURLEntity `json:"urls"`
	} `json:"entities"`
	URLs json.RawMessage `json:"urls"`
}

var createdLayouts = []string{time.RFC3339, time.RubyDate, "2006-01-02T15:04:05.000Z"}

func normalize(raw rawTweet) (domain.CandidateItem, bool) {
	if raw.ID == "" || raw.URL == "" || raw.Text == "" {
		return domain.CandidateItem{}, false
	}

	item := domain.CandidateItem{
		ID:             raw.ID,
		URL:            raw.URL,
		Text:           expandURLs(raw),
		Language:       firstNonEmpty(raw.Language, raw.Lang2),
		AuthorHandle:   raw.AuthorHandle,
		AuthorName:     raw.AuthorName,
		AuthorVerified: raw.AuthorVerified,
		LikeCount:      raw.LikeCount,
		RetweetCount:   raw.RetweetCount,
		ReplyCount:     raw.ReplyCount,
		QuoteCount:     raw.QuoteCount,
		ViewCount:      raw.ViewCount,
		Media:          extractMedia(raw),
		RelevanceScore: raw.TrendScore,
	}
	if a := raw.Author; a != nil {
		item.AuthorHandle = firstNonEmpty(a.UserName, item.AuthorHandle)
		item.AuthorName = firstNonEmpty(a.Name, item.AuthorName)
		item.AuthorVerified = a.IsBlueVerified || a.IsVerified || item.AuthorVerified
	}
	if item.AuthorHandle == "" {
		item.AuthorHandle = "unknown"
	}
	if item.AuthorName == "" {
		item.AuthorName = "Unknown User"
	}
	for _, layout := range createdLayouts {
		if ts, err := time.Parse(layout, raw.CreatedAt); err == nil {
			item.CreatedAt = ts.UTC()
			break
		}
	}
	return item, true
}

// extractMedia tries extendedEntities, then the flat media list, then the
// legacy string array of photo URLs.
func extractMedia(raw rawTweet) []domain.MediaAttachment {
	var out []domain.MediaAttachment

	if raw.ExtendedEntities != nil {
		for _, m := range raw.ExtendedEntities.Media {
			if m.Type == "video" || m.Type == "animated_gif" {
				if best, ok := bestMP4(m); ok {
					out = append(out, domain.MediaAttachment{Kind: domain.MediaVideo, URL: best, Thumbnail: m.MediaURLHTTPS})
					continue
				}
			}
			if m.MediaURLHTTPS != "" {
				out = append(out, domain.MediaAttachment{Kind: domain.MediaPhoto, URL: m.MediaURLHTTPS})
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, m := range raw.Media {
		if u := firstNonEmpty(m.URL, m.MediaURLHTTPS, m.PreviewImage, m.ExpandedURL); u != "" {
			out = append(out, domain.MediaAttachment{Kind: domain.MediaPhoto, URL: u})
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, u := range stringList(raw.MediaURLs) {
		out = append(out, domain.MediaAttachment{Kind: domain.MediaPhoto, URL: u})
	}
	return out
}

func bestMP4(m rawMedia) (string, bool) {
	if m.VideoInfo == nil {
		return "", false
	}
	var mp4 []rawVariant
	for _, v := range m.VideoInfo.Variants {
		if v.ContentType == "video/mp4" && v.URL != "" {
			mp4 = append(mp4, v)
		}
	}
	if len(mp4) == 0 {
		return "", false
	}
	sort.SliceStable(mp4, func(i, j int) bool { return mp4[i].Bitrate > mp4[j].Bitrate })
	return mp4[0].URL, true
}

// expandURLs replaces t.co links with their expanded form.
func expandURLs(raw rawTweet) string {
	var entities []rawURLEntity
	if raw.Entities != nil && len(raw.Entities.URLs) > 0 {
		entities = raw.Entities.URLs
	} else {
		entities = urlEntities(raw.URLs)
	}

	text := raw.Text
	for _, e := range entities {
		if e.URL != "" && e.ExpandedURL != "" {
			text = strings.ReplaceAll(text, e.URL, e.ExpandedURL)
		}
	}
	return text
}

// decodeMaybeString unwraps a value that may itself be a JSON-encoded string.
func decodeMaybeString(msg json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return json.RawMessage(s)
	}
	return msg
}

func stringList(msg json.RawMessage) []string {
	if len(msg) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(decodeMaybeString(msg), &out); err != nil {
		return nil
	}
	return out
}

func urlEntities(msg json.RawMessage) []rawURLEntity {
	if len(msg) == 0 {
		return nil
	}
	var out []rawURLEntity
	if err := json.Unmarshal(decodeMaybeString(msg), &out); err != nil {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
