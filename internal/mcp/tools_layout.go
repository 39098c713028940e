package mcpserver

import (
	"context"
	"fmt"

	"opsdash/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

// sessionArgs are accepted by every layout tool.
func sessionArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("role", mcp.Description("Role whose layout to use (default: configured role)")),
		mcp.WithString("scope", mcp.Description("Session scope (default: this process's session)")),
	}
}

func layoutTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	return mcp.NewTool(name, append(all, sessionArgs()...)...)
}

func (s *Server) registerLayoutTools() {
	// ── get_layout ─────────────────────────────────────
	s.mcp.AddTool(layoutTool("get_layout",
		"Get the dashboard layout: ordered widgets with size and visibility",
	), s.handleGetLayout)

	// ── set_layout ─────────────────────────────────────
	s.mcp.AddTool(layoutTool("set_layout",
		"Replace the whole widget list. Widgets are ordered by their order field and renumbered 0..n-1",
		mcp.WithString("widgets",
			mcp.Description(`JSON array of widgets: [{"id":"blockers","type":"blockers","size":"md","order":0,"visible":true}]`),
			mcp.Required(),
		),
	), s.handleSetLayout)

	// ── reorder_widget ─────────────────────────────────
	s.mcp.AddTool(layoutTool("reorder_widget",
		"Move a widget to a new position (list move; out-of-range targets are clamped)",
		mcp.WithString("widgetId", mcp.Description("ID of the widget to move"), mcp.Required()),
		mcp.WithNumber("targetIndex", mcp.Description("Zero-based destination index"), mcp.Required()),
	), s.handleReorderWidget)

	// ── resize_widget ──────────────────────────────────
	s.mcp.AddTool(layoutTool("resize_widget",
		"Change the size of a widget",
		mcp.WithString("widgetId", mcp.Description("ID of the widget"), mcp.Required()),
		mcp.WithString("size", mcp.Description("New size: sm, md, lg or full"), mcp.Required()),
	), s.handleResizeWidget)

	// ── set_widget_visibility ──────────────────────────
	s.mcp.AddTool(layoutTool("set_widget_visibility",
		"Show or hide a widget",
		mcp.WithString("widgetId", mcp.Description("ID of the widget"), mcp.Required()),
		mcp.WithBoolean("visible", mcp.Description("true to show, false to hide"), mcp.Required()),
	), s.handleSetWidgetVisibility)

	// ── add_widget ─────────────────────────────────────
	s.mcp.AddTool(layoutTool("add_widget",
		"Append a widget to the layout",
		mcp.WithString("type", mcp.Description("Widget type, e.g. blockers, team-status, recent-activity"), mcp.Required()),
		mcp.WithString("widgetId", mcp.Description("ID for the new widget (generated when omitted)")),
		mcp.WithString("size", mcp.Description("sm, md, lg or full (default md)")),
	), s.handleAddWidget)

	// ── remove_widget ──────────────────────────────────
	s.mcp.AddTool(layoutTool("remove_widget",
		"Remove a widget from the layout",
		mcp.WithString("widgetId", mcp.Description("ID of the widget"), mcp.Required()),
	), s.handleRemoveWidget)

	// ── toggle_collapsed ───────────────────────────────
	s.mcp.AddTool(layoutTool("toggle_collapsed",
		"Collapse or expand a widget",
		mcp.WithString("widgetId", mcp.Description("ID of the widget"), mcp.Required()),
	), s.handleToggleCollapsed)

	// ── set_widget_config ──────────────────────────────
	s.mcp.AddTool(layoutTool("set_widget_config",
		"Merge settings into a widget's configuration, e.g. maxItems or filterCategory",
		mcp.WithString("widgetId", mcp.Description("ID of the widget"), mcp.Required()),
		mcp.WithString("config", mcp.Description(`JSON object of settings, e.g. {"maxItems":5}`), mcp.Required()),
	), s.handleSetWidgetConfig)

	// ── reset_layout ───────────────────────────────────
	s.mcp.AddTool(layoutTool("reset_layout",
		"Discard customizations and restore the role's default layout",
	), s.handleResetLayout)

	// ── apply_preset ───────────────────────────────────
	s.mcp.AddTool(layoutTool("apply_preset",
		"Replace the layout with another role's default (admin, pm, developer, designer, qa, client)",
		mcp.WithString("preset", mcp.Description("Role whose default layout to apply"), mcp.Required()),
	), s.handleApplyPreset)
}

func (s *Server) handleGetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.layouts.GetLayout(ctx, s.sessionFrom(req.GetArguments()))
	if err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleSetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	raw, err := requireString(args, "widgets")
	if err != nil {
		return nil, err
	}
	var widgets []domain.WidgetDescriptor
	if err := parseJSON(raw, &widgets); err != nil {
		return nil, fmt.Errorf("invalid widgets JSON: %w", err)
	}
	l, err := s.layouts.SetLayout(ctx, s.sessionFrom(args), widgets)
	if err != nil {
		return nil, fmt.Errorf("set layout: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleReorderWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	target, ok := intArg(args, "targetIndex")
	if !ok {
		return nil, fmt.Errorf("targetIndex is required")
	}
	l, err := s.layouts.Reorder(ctx, s.sessionFrom(args), id, target)
	if err != nil {
		return nil, fmt.Errorf("reorder widget: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleResizeWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	size, err := requireString(args, "size")
	if err != nil {
		return nil, err
	}
	l, err := s.layouts.Resize(ctx, s.sessionFrom(args), id, domain.WidgetSize(size))
	if err != nil {
		return nil, fmt.Errorf("resize widget: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleSetWidgetVisibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	visible, ok := args["visible"].(bool)
	if !ok {
		return nil, fmt.Errorf("visible is required")
	}
	l, err := s.layouts.SetVisible(ctx, s.sessionFrom(args), id, visible)
	if err != nil {
		return nil, fmt.Errorf("set visibility: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleAddWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	widgetType, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	d := domain.WidgetDescriptor{
		ID:   req.GetString("widgetId", ""),
		Type: widgetType,
		Size: domain.WidgetSize(req.GetString("size", "")),
	}
	l, err := s.layouts.AddWidget(ctx, s.sessionFrom(args), d)
	if err != nil {
		return nil, fmt.Errorf("add widget: %w", err)
	}
	if !s.registry.Has(widgetType) {
		s.log.Warn("added widget has no renderer", "type", widgetType)
	}
	return jsonResult(l)
}

func (s *Server) handleRemoveWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	l, err := s.layouts.RemoveWidget(ctx, s.sessionFrom(args), id)
	if err != nil {
		return nil, fmt.Errorf("remove widget: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleToggleCollapsed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	l, err := s.layouts.ToggleCollapsed(ctx, s.sessionFrom(args), id)
	if err != nil {
		return nil, fmt.Errorf("toggle collapsed: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleSetWidgetConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	raw, err := requireString(args, "config")
	if err != nil {
		return nil, err
	}
	var cfg domain.WidgetConfig
	if err := parseJSON(raw, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	sess := s.sessionFrom(args)
	if _, err := s.layouts.SetWidgetConfig(ctx, sess, id, cfg); err != nil {
		return nil, fmt.Errorf("set widget config: %w", err)
	}
	merged, err := s.layouts.WidgetConfig(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return textResult(fmt.Sprintf("Widget %s not found; nothing changed", id)), nil
	}
	return jsonResult(merged)
}

func (s *Server) handleResetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.layouts.ResetToDefault(ctx, s.sessionFrom(req.GetArguments()))
	if err != nil {
		return nil, fmt.Errorf("reset layout: %w", err)
	}
	return jsonResult(l)
}

func (s *Server) handleApplyPreset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	preset, err := requireString(args, "preset")
	if err != nil {
		return nil, err
	}
	l, err := s.layouts.ApplyPreset(ctx, s.sessionFrom(args), preset)
	if err != nil {
		return nil, fmt.Errorf("apply preset: %w", err)
	}
	return jsonResult(l)
}
