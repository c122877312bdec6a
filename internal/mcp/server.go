package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Vsjangal/httpsched/internal/core"
)

// MCPServer exposes the same Control Surface operations the REST API
// serves, as MCP tools over stdio — a second control-plane transport
// (spec SPEC_FULL, DOMAIN STACK).
type MCPServer struct {
	repo    core.Repository
	control *core.ControlSurface
	logger  *slog.Logger
}

// NewMCPServer constructs an MCPServer over the given repository and
// control surface.
func NewMCPServer(repo core.Repository, control *core.ControlSurface, logger *slog.Logger) *MCPServer {
	return &MCPServer{repo: repo, control: control, logger: logger}
}

// Run starts the MCP server using stdio transport. It blocks until the
// transport closes.
func (s *MCPServer) Run() error {
	mcpServer := server.NewMCPServer(
		"httpsched",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.logger.Info("MCP server starting on stdio")
	return server.ServeStdio(mcpServer)
}

func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("list_targets",
		mcp.WithDescription("List all registered HTTP targets."),
	), s.handleListTargets)

	mcpServer.AddTool(mcp.NewTool("create_target",
		mcp.WithDescription("Register a new HTTP target to dispatch requests against."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Target URL, must start with http:// or https://")),
		mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method, e.g. GET or POST")),
	), s.handleCreateTarget)

	mcpServer.AddTool(mcp.NewTool("list_schedules",
		mcp.WithDescription("List all schedules with their current status."),
	), s.handleListSchedules)

	mcpServer.AddTool(mcp.NewTool("create_schedule",
		mcp.WithDescription("Create a recurring dispatch rule against a target. type is interval or window; window requires duration_seconds."),
		mcp.WithString("target_id", mcp.Required()),
		mcp.WithString("type", mcp.Required(), mcp.Enum("interval", "window")),
		mcp.WithNumber("interval_seconds", mcp.Required(), mcp.Min(1)),
		mcp.WithNumber("duration_seconds", mcp.Min(1)),
		mcp.WithNumber("max_retries", mcp.Min(0)),
		mcp.WithNumber("request_timeout_seconds", mcp.Min(1)),
	), s.handleCreateSchedule)

	mcpServer.AddTool(mcp.NewTool("pause_schedule",
		mcp.WithDescription("Pause an active schedule; an in-flight run completes, future ticks skip it."),
		mcp.WithString("schedule_id", mcp.Required()),
	), s.handlePauseSchedule)

	mcpServer.AddTool(mcp.NewTool("resume_schedule",
		mcp.WithDescription("Resume a paused schedule; its deadline (if windowed) is not extended."),
		mcp.WithString("schedule_id", mcp.Required()),
	), s.handleResumeSchedule)

	mcpServer.AddTool(mcp.NewTool("delete_schedule",
		mcp.WithDescription("Delete a schedule and cascade-delete its runs and attempts."),
		mcp.WithString("schedule_id", mcp.Required()),
	), s.handleDeleteSchedule)

	mcpServer.AddTool(mcp.NewTool("get_metrics",
		mcp.WithDescription("Fetch aggregate and per-schedule run metrics."),
	), s.handleGetMetrics)

	s.logger.Info("MCP tools registered", "count", 8)
}

func (s *MCPServer) handleListTargets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets, err := s.repo.ListTargets(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list targets failed: %v", err)), nil
	}
	if len(targets) == 0 {
		return mcp.NewToolResultText("no targets registered"), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d target(s):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(&b, "%s  %s %s  (%s)\n", t.ID, t.Method, t.URL, t.Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleCreateTarget(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")
	url := mcp.ParseString(request, "url", "")
	method := mcp.ParseString(request, "method", "")

	target, err := s.control.CreateTarget(ctx, name, url, method, nil, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create target failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("target created: %s", target.ID)), nil
}

func (s *MCPServer) handleListSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schedules, err := s.repo.ListSchedules(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list schedules failed: %v", err)), nil
	}
	if len(schedules) == 0 {
		return mcp.NewToolResultText("no schedules"), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d schedule(s):\n\n", len(schedules))
	for _, sc := range schedules {
		fmt.Fprintf(&b, "%s  target=%s  type=%s  status=%s  interval=%ds\n",
			sc.ID, sc.TargetID, sc.Type, sc.Status, sc.IntervalSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleCreateSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetID := mcp.ParseString(request, "target_id", "")
	scheduleType := core.ScheduleType(mcp.ParseString(request, "type", ""))
	interval := int(mcp.ParseFloat64(request, "interval_seconds", 0))
	maxRetries := int(mcp.ParseFloat64(request, "max_retries", 0))
	timeout := int(mcp.ParseFloat64(request, "request_timeout_seconds", 30))

	var duration *int
	if d := int(mcp.ParseFloat64(request, "duration_seconds", 0)); d > 0 {
		duration = &d
	}

	schedule, err := s.control.CreateSchedule(ctx, core.ScheduleInput{
		TargetID:              targetID,
		Type:                  scheduleType,
		IntervalSeconds:       interval,
		DurationSeconds:       duration,
		MaxRetries:            maxRetries,
		RequestTimeoutSeconds: timeout,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create schedule failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("schedule created: %s (status=%s)", schedule.ID, schedule.Status)), nil
}

func (s *MCPServer) handlePauseSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "schedule_id", "")
	schedule, err := s.control.PauseSchedule(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pause schedule failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("schedule %s paused", schedule.ID)), nil
}

func (s *MCPServer) handleResumeSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "schedule_id", "")
	schedule, err := s.control.ResumeSchedule(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resume schedule failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("schedule %s resumed", schedule.ID)), nil
}

func (s *MCPServer) handleDeleteSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "schedule_id", "")
	if err := s.control.DeleteSchedule(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete schedule failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("schedule %s deleted", id)), nil
}

func (s *MCPServer) handleGetMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot, err := s.repo.Aggregate(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregate metrics failed: %v", err)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "schedules: %d total, %d active, %d paused\n", snapshot.TotalSchedules, snapshot.ActiveSchedules, snapshot.PausedSchedules)
	fmt.Fprintf(&b, "runs: %d total, %d success, %d failed\n", snapshot.TotalRuns, snapshot.TotalSuccess, snapshot.TotalFailures)
	if snapshot.AvgLatencyMs != nil {
		fmt.Fprintf(&b, "avg latency: %.1fms\n", *snapshot.AvgLatencyMs)
	}
	return mcp.NewToolResultText(b.String()), nil
}
