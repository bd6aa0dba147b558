package application

import (
	"context"
	"strings"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

// FilterDuplicates drops candidates this schedule already sent within the window.
// Order is preserved. A disabled filter never touches history.
func FilterDuplicates(ctx context.Context, history domain.HistoryRepository, candidates []domain.CandidateItem, scheduleID string, preventDuplicates bool, windowHours int) ([]domain.CandidateItem, error) {
	if !preventDuplicates || windowHours <= 0 || len(candidates) == 0 {
		return candidates, nil
	}

	ids, err := history.RecentIDs(ctx, scheduleID, windowHours)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return candidates, nil
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	out := make([]domain.CandidateItem, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// FilterByKeywords keeps items whose text contains any keyword, case-insensitively.
func FilterByKeywords(items []domain.CandidateItem, keywords []string) []domain.CandidateItem {
	if len(keywords) == 0 {
		return items
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return items
	}

	out := make([]domain.CandidateItem, 0, len(items))
	for _, it := range items {
		text := strings.ToLower(it.Text)
		for _, k := range lowered {
			if strings.Contains(text, k) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
