package apify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	DefaultActorID  = "kaitoeasyapi~twitter-x-data-tweet-scraper-pay-per-result-cheapest"
	DefaultBaseURL  = "https://api.apify.com/v2"
	requestTimeout  = 30 * time.Second
	statusSucceeded = "SUCCEEDED"
)

type Config struct {
	Token        string
	ActorID      string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

// ConfigFrom maps the global Apify section.
func ConfigFrom(cfg coreconfig.ApifyConfig) Config {
	return Config{
		Token:        cfg.Token,
		ActorID:      cfg.ActorID,
		BaseURL:      cfg.BaseURL,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
	}
}

// Client runs the tweet scraper actor and waits for its dataset.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.ActorID == "" {
		cfg.ActorID = DefaultActorID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 60
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                "az-tweetcast",
			MaxIdleConnDuration: time.Minute,
			ReadTimeout:         requestTimeout,
			WriteTimeout:        requestTimeout,
		},
	}
}

type runEnvelope struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// Fetch implements domain.CandidateFetcher.
func (c *Client) Fetch(ctx context.Context, keywords []string, maxItems int, filters domain.FilterBundle) ([]domain.CandidateItem, error) {
	if c.cfg.Token == "" {
		return nil, errors.New("apify token not configured")
	}
	input := BuildInput(keywords, maxItems, filters)
	logrus.Debugf("[APIFY] Starting actor %s with query %q", c.cfg.ActorID, input["twitterContent"])

	runID, err := c.startRun(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := c.waitRun(ctx, runID); err != nil {
		return nil, err
	}
	raws, err := c.datasetItems(ctx, runID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CandidateItem, 0, len(raws))
	for _, raw := range raws {
		item, ok := normalize(raw)
		if !ok {
			logrus.Debugf("[APIFY] Skipping tweet with missing essential fields: %q", raw.ID)
			continue
		}
		if filters.MinViews > 0 && item.ViewCount < int64(filters.MinViews) {
			continue
		}
		items = append(items, item)
	}
	logrus.Infof("[APIFY] Run %s returned %d tweets, %d usable", runID, len(raws), len(items))
	return items, nil
}

func (c *Client) startRun(ctx context.Context, input map[string]any) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode actor input: %w", err)
	}
	var env runEnvelope
	if err := c.do(ctx, fasthttp.MethodPost, fmt.Sprintf("%s/acts/%s/runs", c.cfg.BaseURL, c.cfg.ActorID), body, &env); err != nil {
		return "", fmt.Errorf("failed to start apify actor: %w", err)
	}
	if env.Data.ID == "" {
		return "", errors.New("apify returned no run id")
	}
	return env.Data.ID, nil
}

// waitRun polls until the run leaves READY/RUNNING or MaxPolls is reached.
func (c *Client) waitRun(ctx context.Context, runID string) error {
	status := "RUNNING"
	for attempt := 0; attempt < c.cfg.MaxPolls; attempt++ {
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return err
		}
		var env runEnvelope
		if err := c.do(ctx, fasthttp.MethodGet, fmt.Sprintf("%s/actor-runs/%s", c.cfg.BaseURL, runID), nil, &env); err != nil {
			return fmt.Errorf("failed to poll apify run %s: %w", runID, err)
		}
		status = env.Data.Status
		if status != "RUNNING" && status != "READY" {
			break
		}
	}
	if status != statusSucceeded {
		return fmt.Errorf("apify actor run failed with status: %s", status)
	}
	return nil
}

func (c *Client) datasetItems(ctx context.Context, runID string) ([]rawTweet, error) {
	var out []rawTweet
	if err := c.do(ctx, fasthttp.MethodGet, fmt.Sprintf("%s/actor-runs/%s/dataset/items?format=json&clean=true", c.cfg.BaseURL, runID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch apify results: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < requestTimeout {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, requestTimeout)
	}
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("status %d: %s", code, truncate(string(resp.Body()), 200))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
