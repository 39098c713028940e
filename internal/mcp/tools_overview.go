package mcpserver

import (
	"context"
	"fmt"

	"opsdash/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerOverviewTools() {
	// ── get_overview ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_overview",
		mcp.WithDescription("Aggregate the dashboard overview (work, deadlines, sprint, health, team, blockers, financials, risks, alerts, activity) for the configured identity"),
		mcp.WithString("section", mcp.Description("Return only this section, e.g. blockers, team or activity")),
	), s.handleGetOverview)

	// ── get_board ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Get the rendered dashboard: visible widgets in order with their views and live annotations"),
		mcp.WithString("role", mcp.Description("Role whose layout to use (default: configured role)")),
		mcp.WithString("scope", mcp.Description("Session scope (default: this process's session)")),
	), s.handleGetBoard)

	// ── refresh_overview ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("refresh_overview",
		mcp.WithDescription("Re-aggregate the overview now. Does nothing if a refresh is already running"),
	), s.handleRefreshOverview)

	// ── get_connection_state ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_connection_state",
		mcp.WithDescription("Get the live-feed connection status and new-activity counters"),
	), s.handleGetConnectionState)

	// ── view_widget ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("view_widget",
		mcp.WithDescription("Mark a widget's new activity as seen. mode=focus keeps it seen until blur"),
		mcp.WithString("widget", mcp.Description("Widget type, e.g. recent-activity"), mcp.Required()),
		mcp.WithString("mode", mcp.Description("view (default), focus or blur")),
	), s.handleViewWidget)

	// ── list_widget_types ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_widget_types",
		mcp.WithDescription("List widget types with a registered renderer"),
	), s.handleListWidgetTypes)
}

func (s *Server) handleGetOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.overview.Snapshot(ctx, s.identity)
	if err != nil {
		return nil, fmt.Errorf("aggregate overview: %w", err)
	}
	section := req.GetString("section", "")
	if section == "" {
		return jsonResult(data)
	}
	all := toParams(data)
	v, ok := all[section]
	if !ok {
		return nil, fmt.Errorf("unknown section: %s", section)
	}
	return jsonResult(v)
}

func (s *Server) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.sessionFrom(req.GetArguments())
	id := s.identity
	id.Role = sess.Role
	board, err := s.dashboard.Board(ctx, sess, id)
	if err != nil {
		return nil, fmt.Errorf("build board: %w", err)
	}
	return jsonResult(board)
}

func (s *Server) handleRefreshOverview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.overview.Refresh(ctx, s.identity); err != nil {
		return nil, fmt.Errorf("refresh overview: %w", err)
	}
	data, ok := s.overview.Latest(s.identity.ScopeKey())
	if !ok {
		return textResult("Refresh started"), nil
	}
	return textResult(fmt.Sprintf("Overview refreshed (generation %d)", data.Generation)), nil
}

func (s *Server) handleGetConnectionState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.presence.State())
}

func (s *Server) handleViewWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	widget, err := requireString(req.GetArguments(), "widget")
	if err != nil {
		return nil, err
	}
	switch mode := req.GetString("mode", "view"); mode {
	case "view":
		s.presence.View(ctx, widget)
	case "focus":
		s.presence.Focus(ctx, widget)
	case "blur":
		s.presence.Blur(widget)
	default:
		return nil, &domain.ValidationError{Field: "mode", Reason: "must be view, focus or blur"}
	}
	return jsonResult(s.presence.State())
}

func (s *Server) handleListWidgetTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.registry.Types())
}
