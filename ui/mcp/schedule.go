package mcp

import (
	"context"
	"fmt"
	"strconv"

	scheduleApp "github.com/AzielCF/az-tweetcast/schedules/application"
	domainSchedule "github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type scheduleExecutor interface {
	ExecuteNow(ctx context.Context, scheduleID string) (domainSchedule.ExecutionResult, error)
}

type ScheduleHandler struct {
	service  *scheduleApp.ScheduleService
	executor scheduleExecutor
}

func InitMcpSchedule(service *scheduleApp.ScheduleService, executor scheduleExecutor) *ScheduleHandler {
	return &ScheduleHandler{
		service:  service,
		executor: executor,
	}
}

func (h *ScheduleHandler) AddScheduleTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolListSchedules(), h.handleListSchedules)
	mcpServer.AddTool(h.toolExecuteSchedule(), h.handleExecuteSchedule)
	mcpServer.AddTool(h.toolSetActive(), h.handleSetActive)
	mcpServer.AddTool(h.toolListExecutions(), h.handleListExecutions)
}

func (h *ScheduleHandler) toolListSchedules() mcp.Tool {
	return mcp.NewTool(
		"tweetcast_list_schedules",
		mcp.WithDescription("List the configured posting schedules with their fire times and run statistics."),
		mcp.WithTitleAnnotation("List Schedules"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithBoolean("active_only",
			mcp.Description("Only return active schedules."),
		),
	)
}

func (h *ScheduleHandler) handleListSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domainSchedule.ScheduleFilter{}
	if raw, ok := request.GetArguments()["active_only"]; ok {
		activeOnly, err := toBool(raw)
		if err != nil {
			return nil, err
		}
		filter.ActiveOnly = activeOnly
	}

	schedules, err := h.service.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("Found %d schedules", len(schedules))
	return mcp.NewToolResultStructured(schedules, fallback), nil
}

func (h *ScheduleHandler) toolExecuteSchedule() mcp.Tool {
	return mcp.NewTool(
		"tweetcast_execute_schedule",
		mcp.WithDescription("Run a schedule immediately: fetch candidates, select the batch and post it to the channel."),
		mcp.WithTitleAnnotation("Execute Schedule Now"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("schedule_id",
			mcp.Description("ID of the schedule to run."),
			mcp.Required(),
		),
	)
}

func (h *ScheduleHandler) handleExecuteSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scheduleID, err := request.RequireString("schedule_id")
	if err != nil {
		return nil, err
	}

	res, err := h.executor.ExecuteNow(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultStructured(res, res.Message), nil
}

func (h *ScheduleHandler) toolSetActive() mcp.Tool {
	return mcp.NewTool(
		"tweetcast_set_schedule_active",
		mcp.WithDescription("Enable or disable a schedule."),
		mcp.WithTitleAnnotation("Toggle Schedule"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("schedule_id",
			mcp.Description("ID of the schedule."),
			mcp.Required(),
		),
		mcp.WithBoolean("active",
			mcp.Description("Whether the scheduler should fire it."),
			mcp.Required(),
		),
	)
}

func (h *ScheduleHandler) handleSetActive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scheduleID, err := request.RequireString("schedule_id")
	if err != nil {
		return nil, err
	}

	raw, ok := request.GetArguments()["active"]
	if !ok {
		return nil, fmt.Errorf("required argument \"active\" not found")
	}
	active, err := toBool(raw)
	if err != nil {
		return nil, err
	}

	sch, err := h.service.SetActive(ctx, scheduleID, active)
	if err != nil {
		return nil, err
	}

	state := "disabled"
	if sch.Active {
		state = "enabled"
	}
	return mcp.NewToolResultStructured(sch, fmt.Sprintf("Schedule %s %s", sch.Name, state)), nil
}

func (h *ScheduleHandler) toolListExecutions() mcp.Tool {
	return mcp.NewTool(
		"tweetcast_list_executions",
		mcp.WithDescription("List recent executions of a schedule: trigger, outcome, message and how many items each one posted."),
		mcp.WithTitleAnnotation("List Executions"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("schedule_id",
			mcp.Description("ID of the schedule."),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of executions to return (defaults to 20)."),
		),
	)
}

func (h *ScheduleHandler) handleListExecutions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scheduleID, err := request.RequireString("schedule_id")
	if err != nil {
		return nil, err
	}

	limit := 20
	if raw, ok := request.GetArguments()["limit"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			limit = n
		}
	}

	execs, err := h.service.ListExecutions(ctx, scheduleID, limit)
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("Found %d executions", len(execs))
	return mcp.NewToolResultStructured(execs, fallback), nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("unable to parse boolean value %q", v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported boolean value type %T", value)
	}
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("unable to parse integer value %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported integer value type %T", value)
	}
}
