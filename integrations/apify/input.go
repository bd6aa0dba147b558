package apify

import (
	"fmt"
	"strings"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

// BuildInput maps keywords and filters onto the actor input.
// Keywords are OR-ed; engagement, time and user filters become search operators.
func BuildInput(keywords []string, maxItems int, f domain.FilterBundle) map[string]any {
	query := strings.Join(keywords, " OR ")

	var ops []string
	if f.MinLikes > 0 {
		ops = append(ops, fmt.Sprintf("min_faves:%d", f.MinLikes))
	}
	if f.MinRetweets > 0 {
		ops = append(ops, fmt.Sprintf("min_retweets:%d", f.MinRetweets))
	}
	if f.MinReplies > 0 {
		ops = append(ops, fmt.Sprintf("min_replies:%d", f.MinReplies))
	}
	if f.FromUser != "" {
		ops = append(ops, "from:"+strings.TrimPrefix(f.FromUser, "@"))
	}
	if f.ToUser != "" {
		ops = append(ops, "to:"+strings.TrimPrefix(f.ToUser, "@"))
	}
	if f.MentionUser != "" {
		ops = append(ops, "@"+strings.TrimPrefix(f.MentionUser, "@"))
	}
	if f.Since != "" {
		ops = append(ops, "since:"+f.Since)
	}
	if f.Until != "" {
		ops = append(ops, "until:"+f.Until)
	}
	if f.WithinTime != "" {
		ops = append(ops, "within_time:"+f.WithinTime)
	}
	if len(ops) > 0 {
		query = fmt.Sprintf("(%s) %s", query, strings.Join(ops, " "))
	}

	queryType := f.QueryType
	if queryType == "" {
		queryType = "Latest"
	}
	lang := f.Lang
	if lang == "" {
		lang = "en"
	}

	input := map[string]any{
		"twitterContent": query,
		"maxItems":       maxItems,
		"queryType":      queryType,
		"lang":           lang,
	}
	if f.HasImages {
		input["filter:images"] = true
	}
	if f.HasVideos {
		input["filter:videos"] = true
	}
	if f.HasImages || f.HasVideos {
		input["filter:media"] = true
	}
	if f.HasLinks {
		input["filter:links"] = true
	}
	if f.VerifiedOnly {
		input["filter:blue_verified"] = true
	}
	if f.SafeOnly {
		input["filter:safe"] = true
	}
	return input
}
