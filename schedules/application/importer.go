package application

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"gopkg.in/yaml.v3"
)

// ScheduleFile is the YAML document accepted by the import command.
type ScheduleFile struct {
	Schedules []ScheduleDoc `yaml:"schedules"`
}

type ScheduleDoc struct {
	ID       string `yaml:"id"`
	UserID   string `yaml:"user_id"`
	Name     string `yaml:"name"`
	Active   *bool  `yaml:"active"`
	Kind     string `yaml:"kind"`
	Timezone string `yaml:"timezone"`

	FireTimes []string `yaml:"fire_times"`
	WeekDays  []int    `yaml:"week_days"`

	PostsPerRun int               `yaml:"posts_per_run"`
	MaxItems    int               `yaml:"max_items"`
	SortBy      string            `yaml:"sort_by"`
	Mix         domain.ContentMix `yaml:"mix"`

	PreventDuplicates    bool `yaml:"prevent_duplicates"`
	DuplicateWindowHours int  `yaml:"duplicate_window_hours"`

	Keywords          []string            `yaml:"keywords"`
	SkipKeywordFilter bool                `yaml:"skip_keyword_filter"`
	Filters           domain.FilterBundle `yaml:"filters"`

	Template      *domain.MessageTemplate `yaml:"template"`
	UseAIRewrite  bool                    `yaml:"use_ai_rewrite"`
	RewritePrompt string                  `yaml:"rewrite_prompt"`
	ChatID        string                  `yaml:"chat_id"`
}

// Schedule converts the document. Active defaults to true.
func (d ScheduleDoc) Schedule() *domain.Schedule {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	tpl := domain.DefaultTemplate()
	if d.Template != nil {
		tpl = *d.Template
	}
	return &domain.Schedule{
		ID:                   d.ID,
		UserID:               d.UserID,
		Name:                 d.Name,
		Active:               active,
		Kind:                 domain.ScheduleKind(d.Kind),
		Timezone:             d.Timezone,
		FireTimes:            d.FireTimes,
		WeekDays:             d.WeekDays,
		PostsPerRun:          d.PostsPerRun,
		MaxItems:             d.MaxItems,
		SortBy:               domain.SortCriterion(d.SortBy),
		Mix:                  d.Mix,
		PreventDuplicates:    d.PreventDuplicates,
		DuplicateWindowHours: d.DuplicateWindowHours,
		Keywords:             d.Keywords,
		SkipKeywordFilter:    d.SkipKeywordFilter,
		Filters:              d.Filters,
		Template:             tpl,
		UseAIRewrite:         d.UseAIRewrite,
		RewritePrompt:        d.RewritePrompt,
		ChatID:               d.ChatID,
	}
}

func ParseScheduleYAML(data []byte) ([]*domain.Schedule, error) {
	var file ScheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out := make([]*domain.Schedule, 0, len(file.Schedules))
	for _, doc := range file.Schedules {
		out = append(out, doc.Schedule())
	}
	return out, nil
}

func ReadScheduleFile(path string) ([]*domain.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseScheduleYAML(data)
}

// ImportResult counts what Import did. Errors holds one entry per rejected schedule.
type ImportResult struct {
	Created int
	Updated int
	Errors  []error
}

// Import upserts each schedule: a known ID is updated, anything else is created.
// A rejected schedule does not stop the rest.
func (s *ScheduleService) Import(ctx context.Context, schedules []*domain.Schedule) ImportResult {
	var res ImportResult
	for i, sch := range schedules {
		var err error
		updated := false
		if sch.ID != "" {
			err = s.Update(ctx, sch)
			updated = err == nil
			if errors.Is(err, domain.ErrScheduleNotFound) {
				err = s.Create(ctx, sch)
			}
		} else {
			err = s.Create(ctx, sch)
		}

		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Errorf("schedule #%d (%s): %w", i+1, sch.Name, err))
		case updated:
			res.Updated++
		default:
			res.Created++
		}
	}
	return res
}
