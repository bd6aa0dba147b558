package domain

import (
	"strings"
	"time"
)

// ScheduleKind decides whether weekdays gate the fire times.
type ScheduleKind string

const (
	KindDaily  ScheduleKind = "daily"
	KindWeekly ScheduleKind = "weekly"
	KindCustom ScheduleKind = "custom"
)

// SortCriterion orders the candidate pool before the mix is drawn.
type SortCriterion string

const (
	SortTrending SortCriterion = "trending"
	SortLikes    SortCriterion = "likes"
	SortRetweets SortCriterion = "retweets"
	SortViews    SortCriterion = "views"
	SortLatest   SortCriterion = "latest"
)

// ContentMix holds the percentage of each category in a batch. A valid mix sums to 100.
type ContentMix struct {
	Text   int `json:"text" yaml:"text"`
	Images int `json:"images" yaml:"images"`
	Videos int `json:"videos" yaml:"videos"`
}

func (m ContentMix) Total() int {
	return m.Text + m.Images + m.Videos
}

// IsZero reports an unset mix, which selects the first N candidates as-is.
func (m ContentMix) IsZero() bool {
	return m.Text == 0 && m.Images == 0 && m.Videos == 0
}

// FilterBundle is forwarded verbatim to the candidate fetcher.
// Zero values mean "not set".
type FilterBundle struct {
	// search
	QueryType string `json:"query_type,omitempty" yaml:"query_type,omitempty"` // Latest | Top
	Lang      string `json:"lang,omitempty" yaml:"lang,omitempty"`

	// engagement
	MinLikes    int `json:"min_likes,omitempty" yaml:"min_likes,omitempty"`
	MinRetweets int `json:"min_retweets,omitempty" yaml:"min_retweets,omitempty"`
	MinReplies  int `json:"min_replies,omitempty" yaml:"min_replies,omitempty"`
	MinViews    int `json:"min_views,omitempty" yaml:"min_views,omitempty"`

	// content
	HasImages    bool `json:"has_images,omitempty" yaml:"has_images,omitempty"`
	HasVideos    bool `json:"has_videos,omitempty" yaml:"has_videos,omitempty"`
	HasLinks     bool `json:"has_links,omitempty" yaml:"has_links,omitempty"`
	VerifiedOnly bool `json:"verified_only,omitempty" yaml:"verified_only,omitempty"`
	SafeOnly     bool `json:"safe_only,omitempty" yaml:"safe_only,omitempty"`

	// time
	Since      string `json:"since,omitempty" yaml:"since,omitempty"` // YYYY-MM-DD
	Until      string `json:"until,omitempty" yaml:"until,omitempty"`
	WithinTime string `json:"within_time,omitempty" yaml:"within_time,omitempty"` // e.g. 24h, 7d

	// user
	FromUser    string `json:"from_user,omitempty" yaml:"from_user,omitempty"`
	ToUser      string `json:"to_user,omitempty" yaml:"to_user,omitempty"`
	MentionUser string `json:"mention_user,omitempty" yaml:"mention_user,omitempty"`
}

// HasEngagement reports whether any engagement threshold is set.
func (f FilterBundle) HasEngagement() bool {
	return f.MinLikes > 0 || f.MinRetweets > 0 || f.MinReplies > 0 || f.MinViews > 0
}

// MessageTemplate controls how a candidate is rendered. An empty Body uses the default layout.
type MessageTemplate struct {
	Body          string `json:"body,omitempty" yaml:"body,omitempty"`
	IncludeStats  bool   `json:"include_stats" yaml:"include_stats"`
	IncludeLink   bool   `json:"include_link" yaml:"include_link"`
	IncludeAuthor bool   `json:"include_author" yaml:"include_author"`
	IncludeDate   bool   `json:"include_date" yaml:"include_date"`
}

// DefaultTemplate is applied when a schedule is created without one.
func DefaultTemplate() MessageTemplate {
	return MessageTemplate{IncludeStats: true, IncludeLink: true, IncludeAuthor: true}
}

type Schedule struct {
	ID       string       `json:"id"`
	UserID   string       `json:"user_id"`
	Name     string       `json:"name"`
	Active   bool         `json:"active"`
	Kind     ScheduleKind `json:"kind"`
	Timezone string       `json:"timezone"`

	FireTimes []string `json:"fire_times"`          // HH:MM, unique
	WeekDays  []int    `json:"week_days,omitempty"` // 0=Sunday..6=Saturday, weekly only

	PostsPerRun int           `json:"posts_per_run"`
	MaxItems    int           `json:"max_items"`
	SortBy      SortCriterion `json:"sort_by"`
	Mix         ContentMix    `json:"mix"`

	PreventDuplicates    bool `json:"prevent_duplicates"`
	DuplicateWindowHours int  `json:"duplicate_window_hours"`

	Keywords []string `json:"keywords"`
	// SkipKeywordFilter posts fetched items even when their text lacks every keyword.
	SkipKeywordFilter bool         `json:"skip_keyword_filter"`
	Filters           FilterBundle `json:"filters"`

	Template      MessageTemplate `json:"template"`
	UseAIRewrite  bool            `json:"use_ai_rewrite"`
	RewritePrompt string          `json:"rewrite_prompt,omitempty"`

	// ChatID overrides the globally configured channel when set.
	ChatID string `json:"chat_id,omitempty"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	TotalSent int64      `json:"total_sent"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Schedule) IsWeekly() bool {
	return s.Kind == KindWeekly
}

// CleanKeywords returns the trimmed, non-empty keywords.
func (s *Schedule) CleanKeywords() []string {
	out := make([]string, 0, len(s.Keywords))
	for _, k := range s.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

type MediaAttachment struct {
	Kind      MediaKind `json:"kind"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// CandidateItem is a fetched post. It lives only for one execution.
type CandidateItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Language  string    `json:"language,omitempty"`

	AuthorHandle   string `json:"author_handle"`
	AuthorName     string `json:"author_name"`
	AuthorVerified bool   `json:"author_verified"`

	LikeCount    int64 `json:"like_count"`
	RetweetCount int64 `json:"retweet_count"`
	ReplyCount   int64 `json:"reply_count"`
	QuoteCount   int64 `json:"quote_count"`
	ViewCount    int64 `json:"view_count"`

	Media []MediaAttachment `json:"media,omitempty"`

	// RelevanceScore is supplied by the fetcher and drives the trending sort.
	RelevanceScore float64 `json:"relevance_score"`
}

// ContentCategory is the mix bucket an item falls into.
type ContentCategory string

const (
	CategoryText   ContentCategory = "text"
	CategoryImages ContentCategory = "images"
	CategoryVideos ContentCategory = "videos"
)

// SentItem is the immutable audit row written after each successful send.
type SentItem struct {
	ID          string    `json:"id"`
	ScheduleID  string    `json:"schedule_id"`
	ExecutionID string    `json:"execution_id"`
	SourceID    string    `json:"source_id"`
	SentAt      time.Time `json:"sent_at"`

	URL            string `json:"url"`
	Text           string `json:"text"`
	AuthorHandle   string `json:"author_handle"`
	AuthorName     string `json:"author_name"`
	AuthorVerified bool   `json:"author_verified"`

	LikeCount    int64 `json:"like_count"`
	RetweetCount int64 `json:"retweet_count"`
	ReplyCount   int64 `json:"reply_count"`
	ViewCount    int64 `json:"view_count"`

	Media     []MediaAttachment `json:"media,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewSentItem copies the denormalised fields of item into a history row.
func NewSentItem(scheduleID, executionID string, item CandidateItem, sentAt time.Time) SentItem {
	return SentItem{
		ScheduleID:     scheduleID,
		ExecutionID:    executionID,
		SourceID:       item.ID,
		SentAt:         sentAt,
		URL:            item.URL,
		Text:           item.Text,
		AuthorHandle:   item.AuthorHandle,
		AuthorName:     item.AuthorName,
		AuthorVerified: item.AuthorVerified,
		LikeCount:      item.LikeCount,
		RetweetCount:   item.RetweetCount,
		ReplyCount:     item.ReplyCount,
		ViewCount:      item.ViewCount,
		Media:          item.Media,
		CreatedAt:      item.CreatedAt,
	}
}

type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	// RunSkipped covers empty pools and selections that matched nothing.
	RunSkipped RunStatus = "skipped"
	RunFailed  RunStatus = "failed"
)

// ExecutionRun is written once for every attempt that got past the lock,
// whatever its outcome. Its ID groups the SentItem rows of the attempt.
type ExecutionRun struct {
	ID             string     `json:"execution_id"`
	ScheduleID     string     `json:"schedule_id"`
	Minute         string     `json:"minute"`
	Trigger        RunTrigger `json:"trigger"`
	Status         RunStatus  `json:"status"`
	Message        string     `json:"message"`
	TotalFetched   int        `json:"total_fetched"`
	TotalAvailable int        `json:"total_available"`
	SelectedCount  int        `json:"selected_count"`
	SentCount      int        `json:"sent_count"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at"`
}

// ExecutionDetail is one run with the items it delivered.
type ExecutionDetail struct {
	Run   *ExecutionRun `json:"run,omitempty"`
	Items []SentItem    `json:"items"`
}

// ExecutionResult is returned by both the loop and the manual trigger.
type ExecutionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	SentCount      int    `json:"sent_count"`
	TotalAvailable int    `json:"total_available,omitempty"`
	ExecutionID    string `json:"execution_id,omitempty"`
}

// ScheduleFilter narrows List.
type ScheduleFilter struct {
	UserID     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
