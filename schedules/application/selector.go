package application

import (
	"sort"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

// SortCandidates returns a copy of items ordered by the criterion, highest first.
// Ties keep fetch order.
func SortCandidates(items []domain.CandidateItem, criterion domain.SortCriterion) []domain.CandidateItem {
	out := make([]domain.CandidateItem, len(items))
	copy(out, items)

	var less func(a, b domain.CandidateItem) bool
	switch criterion {
	case domain.SortLikes:
		less = func(a, b domain.CandidateItem) bool { return a.LikeCount > b.LikeCount }
	case domain.SortRetweets:
		less = func(a, b domain.CandidateItem) bool { return a.RetweetCount > b.RetweetCount }
	case domain.SortViews:
		less = func(a, b domain.CandidateItem) bool { return a.ViewCount > b.ViewCount }
	case domain.SortLatest:
		less = func(a, b domain.CandidateItem) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b domain.CandidateItem) bool { return a.RelevanceScore > b.RelevanceScore }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Category buckets an item by its first attachment.
func Category(item domain.CandidateItem) domain.ContentCategory {
	if len(item.Media) == 0 {
		return domain.CategoryText
	}
	if item.Media[0].Kind == domain.MediaVideo {
		return domain.CategoryVideos
	}
	return domain.CategoryImages
}

// quota is round-half-up of n*pct/100 in integer arithmetic.
func quota(n, pct int) int {
	if pct <= 0 {
		return 0
	}
	return (2*n*pct + 100) / 200
}

// SelectMix draws at most n items honouring the mix, then backfills from the
// pool in order when a bucket runs short.
func SelectMix(items []domain.CandidateItem, n int, mix domain.ContentMix) []domain.CandidateItem {
	if n <= 0 || len(items) == 0 {
		return []domain.CandidateItem{}
	}
	if mix.IsZero() {
		if len(items) > n {
			items = items[:n]
		}
		out := make([]domain.CandidateItem, len(items))
		copy(out, items)
		return out
	}

	buckets := map[domain.ContentCategory][]int{}
	for i, it := range items {
		c := Category(it)
		buckets[c] = append(buckets[c], i)
	}

	used := make([]bool, len(items))
	out := make([]domain.CandidateItem, 0, n)

	draws := []struct {
		cat domain.ContentCategory
		pct int
	}{
		{domain.CategoryText, mix.Text},
		{domain.CategoryImages, mix.Images},
		{domain.CategoryVideos, mix.Videos},
	}
	for _, d := range draws {
		q := quota(n, d.pct)
		for _, idx := range buckets[d.cat] {
			if q == 0 {
				break
			}
			out = append(out, items[idx])
			used[idx] = true
			q--
		}
	}

	for i, it := range items {
		if len(out) >= n {
			break
		}
		if !used[i] {
			out = append(out, it)
			used[i] = true
		}
	}

	if len(out) > n {
		out = out[:n]
	}
	return out
}
