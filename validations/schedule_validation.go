package validations

import (
	"context"
	"errors"
	"fmt"

	pkgError "github.com/AzielCF/az-tweetcast/pkg/error"
	"github.com/AzielCF/az-tweetcast/pkg/timeutils"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateSchedule(ctx context.Context, s *domain.Schedule) error {
	err := validation.ValidateStructWithContext(ctx, s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&s.Kind, validation.Required, validation.In(domain.KindDaily, domain.KindWeekly, domain.KindCustom)),
		validation.Field(&s.FireTimes,
			validation.Required,
			validation.Each(validation.Required, validation.By(clockRule)),
			validation.By(uniqueRule),
		),
		validation.Field(&s.WeekDays,
			validation.When(s.Kind == domain.KindWeekly, validation.Required),
			validation.Each(validation.Min(0), validation.Max(6)),
		),
		validation.Field(&s.Timezone, validation.By(timezoneRule)),
		validation.Field(&s.PostsPerRun, validation.Required, validation.Min(1)),
		validation.Field(&s.MaxItems, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&s.SortBy, validation.In(
			domain.SortTrending, domain.SortLikes, domain.SortRetweets, domain.SortViews, domain.SortLatest,
		)),
		validation.Field(&s.DuplicateWindowHours, validation.Min(0)),
		validation.Field(&s.Mix, validation.By(mixRule)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func clockRule(value interface{}) error {
	v, _ := value.(string)
	if _, _, err := timeutils.ParseClock(v); err != nil {
		return errors.New("must be a valid HH:MM time")
	}
	return nil
}

func uniqueRule(value interface{}) error {
	list, _ := value.([]string)
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		if seen[v] {
			return fmt.Errorf("duplicate time %s", v)
		}
		seen[v] = true
	}
	return nil
}

func timezoneRule(value interface{}) error {
	v, _ := value.(string)
	if _, err := timeutils.LoadLocation(v); err != nil {
		return errors.New("must be a valid IANA timezone")
	}
	return nil
}

func mixRule(value interface{}) error {
	m, _ := value.(domain.ContentMix)
	for _, pct := range []int{m.Text, m.Images, m.Videos} {
		if pct < 0 || pct > 100 {
			return errors.New("percentages must be between 0 and 100")
		}
	}
	if m.Total() != 100 {
		return fmt.Errorf("must sum to 100, got %d", m.Total())
	}
	return nil
}
