package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AzielCF/az-tweetcast/core/database"
	settingsApp "github.com/AzielCF/az-tweetcast/core/settings/application"
	"github.com/AzielCF/az-tweetcast/schedules/application"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/AzielCF/az-tweetcast/schedules/repository"
	"github.com/AzielCF/az-tweetcast/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	calls  []string
	result domain.ExecutionResult
	err    error
}

func (s *stubExecutor) ExecuteNow(_ context.Context, id string) (domain.ExecutionResult, error) {
	s.calls = append(s.calls, id)
	return s.result, s.err
}

type testEnv struct {
	app      *fiber.App
	service  *application.ScheduleService
	history  *repository.HistoryGormRepository
	runs     *repository.RunGormRepository
	exec     *stubExecutor
	settings *settingsApp.SettingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	schedules := repository.NewScheduleGormRepository(db)
	history := repository.NewHistoryGormRepository(db)
	runs := repository.NewRunGormRepository(db)
	require.NoError(t, schedules.InitSchema(ctx))
	require.NoError(t, history.InitSchema(ctx))
	require.NoError(t, runs.InitSchema(ctx))

	settings := settingsApp.NewSettingsService(db)
	require.NoError(t, settings.InitSchema(ctx))

	env := &testEnv{
		app:      fiber.New(),
		service:  application.NewScheduleService(schedules, history, runs),
		history:  history,
		runs:     runs,
		exec:     &stubExecutor{},
		settings: settings,
	}
	env.app.Use(middleware.Recovery())
	InitRestSchedule(env.app, env.service, env.exec)
	InitRestSettings(env.app, settings)
	return env
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

const scheduleBody = `{
	"name": "Go news",
	"active": true,
	"kind": "daily",
	"timezone": "UTC",
	"fire_times": ["09:00", "20:00"],
	"posts_per_run": 3,
	"max_items": 50,
	"sort_by": "likes",
	"mix": {"text": 100},
	"keywords": ["golang"]
}`

func createSchedule(t *testing.T, env *testEnv) domain.Schedule {
	t.Helper()
	status, res := env.do(t, http.MethodPost, "/schedules", scheduleBody)
	require.Equal(t, http.StatusCreated, status, res.Message)

	var sch domain.Schedule
	require.NoError(t, json.Unmarshal(res.Results, &sch))
	require.NotEmpty(t, sch.ID)
	return sch
}

func TestScheduleRest_CRUD(t *testing.T) {
	env := newTestEnv(t)
	sch := createSchedule(t, env)
	assert.Equal(t, domain.SortLikes, sch.SortBy)

	status, res := env.do(t, http.MethodGet, "/schedules", "")
	require.Equal(t, http.StatusOK, status)
	var list []domain.Schedule
	require.NoError(t, json.Unmarshal(res.Results, &list))
	require.Len(t, list, 1)

	status, res = env.do(t, http.MethodGet, "/schedules/"+sch.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SUCCESS", res.Code)

	updated := strings.Replace(scheduleBody, "Go news", "Rust news", 1)
	status, res = env.do(t, http.MethodPut, "/schedules/"+sch.ID, updated)
	require.Equal(t, http.StatusOK, status, res.Message)

	got, err := env.service.GetByID(context.Background(), sch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rust news", got.Name)

	status, _ = env.do(t, http.MethodPatch, "/schedules/"+sch.ID+"/active", `{"active": false}`)
	require.Equal(t, http.StatusOK, status)
	got, err = env.service.GetByID(context.Background(), sch.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	status, _ = env.do(t, http.MethodDelete, "/schedules/"+sch.ID, "")
	require.Equal(t, http.StatusOK, status)

	status, res = env.do(t, http.MethodGet, "/schedules/"+sch.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND_ERROR", res.Code)
}

func TestScheduleRest_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(t, http.MethodPost, "/schedules", `{"name": "x", "fire_times": ["25:00"], "mix": {"text": 100}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)

	status, res = env.do(t, http.MethodPost, "/schedules", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", res.Code)

	sch := createSchedule(t, env)
	dup := strings.Replace(scheduleBody, `"name"`, `"id": "`+sch.ID+`", "name"`, 1)
	status, res = env.do(t, http.MethodPost, "/schedules", dup)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", res.Code)

	status, _ = env.do(t, http.MethodPut, "/schedules/missing", scheduleBody)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/executions/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScheduleRest_ExecuteNow(t *testing.T) {
	env := newTestEnv(t)
	env.exec.result = domain.ExecutionResult{Success: true, Message: "Sent 2 of 2 items", SentCount: 2, ExecutionID: "exec_1"}

	status, res := env.do(t, http.MethodPost, "/schedules/abc/execute", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"abc"}, env.exec.calls)
	assert.Equal(t, "Sent 2 of 2 items", res.Message)

	var result domain.ExecutionResult
	require.NoError(t, json.Unmarshal(res.Results, &result))
	assert.Equal(t, 2, result.SentCount)

	env.exec.err = domain.ErrScheduleNotFound
	status, _ = env.do(t, http.MethodPost, "/schedules/gone/execute", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScheduleRest_NextRunAndHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sch := createSchedule(t, env)

	status, res := env.do(t, http.MethodGet, "/schedules/"+sch.ID+"/next-run", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(res.Results), "next_run_at")

	item := domain.CandidateItem{ID: "t1", URL: "https://x.com/golang/status/1", Text: "golang"}
	row := domain.NewSentItem(sch.ID, "exec_1", item, sch.CreatedAt)
	require.NoError(t, env.history.Record(ctx, &row))
	require.NoError(t, env.runs.Record(ctx, &domain.ExecutionRun{
		ID: "exec_1", ScheduleID: sch.ID, Minute: "08:00", Trigger: domain.TriggerScheduled,
		Status: domain.RunSuccess, Message: "Sent 1 tweets", SentCount: 1, StartedAt: sch.CreatedAt,
	}))

	status, res = env.do(t, http.MethodGet, "/schedules/"+sch.ID+"/executions", "")
	require.Equal(t, http.StatusOK, status)
	var execs []domain.ExecutionRun
	require.NoError(t, json.Unmarshal(res.Results, &execs))
	require.Len(t, execs, 1)
	assert.Equal(t, "exec_1", execs[0].ID)
	assert.Equal(t, domain.TriggerScheduled, execs[0].Trigger)

	status, res = env.do(t, http.MethodGet, "/executions/exec_1", "")
	require.Equal(t, http.StatusOK, status)
	var detail domain.ExecutionDetail
	require.NoError(t, json.Unmarshal(res.Results, &detail))
	require.NotNil(t, detail.Run)
	assert.Equal(t, domain.RunSuccess, detail.Run.Status)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "t1", detail.Items[0].SourceID)

	var rows []domain.SentItem
	status, res = env.do(t, http.MethodGet, "/schedules/"+sch.ID+"/history", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(res.Results, &rows))
	assert.Len(t, rows, 1)

	status, res = env.do(t, http.MethodDelete, "/schedules/"+sch.ID+"/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Deleted 1 history rows", res.Message)
}

func TestSettingsRest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodPut, "/settings/scheduler", `{"paused": true}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.settings.SchedulerPaused(ctx))

	status, _ = env.do(t, http.MethodPut, "/settings/rewrite-prompt", `{"prompt": "Make it short"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Make it short", env.settings.DefaultRewritePrompt(ctx))

	status, res := env.do(t, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, status)
	var body struct {
		Dynamic settingsApp.DynamicSettings `json:"dynamic"`
	}
	require.NoError(t, json.Unmarshal(res.Results, &body))
	assert.True(t, body.Dynamic.SchedulerPaused)
	assert.Equal(t, "Make it short", body.Dynamic.DefaultRewritePrompt)
}
