package mcpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"opsdash/internal/domain"
	"opsdash/internal/presence"
	"opsdash/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the dashboard.
// It exposes tools, resources, and prompts so agents can arrange the
// dashboard and read the overview.
type Server struct {
	mcp *server.MCPServer
	log *slog.Logger

	// Services (injected from app layer)
	layouts   *service.LayoutService
	overview  *service.OverviewService
	dashboard *service.DashboardService
	registry  *service.WidgetRegistry
	presence  *presence.Machine

	// Caller served by this process; tools may override role and scope.
	identity domain.Identity
	session  service.Session
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Layouts   *service.LayoutService
	Overview  *service.OverviewService
	Dashboard *service.DashboardService
	Registry  *service.WidgetRegistry
	Presence  *presence.Machine
	Notifier  *Notifier // attached to the new server so service events reach clients
	Identity  domain.Identity
	Session   service.Session
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		log:       slog.Default().With("component", "mcp"),
		layouts:   deps.Layouts,
		overview:  deps.Overview,
		dashboard: deps.Dashboard,
		registry:  deps.Registry,
		presence:  deps.Presence,
		identity:  deps.Identity,
		session:   deps.Session,
	}

	s.mcp = server.NewMCPServer(
		"opsdash-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)
	if deps.Notifier != nil {
		deps.Notifier.attach(s.mcp)
	}

	s.registerLayoutTools()
	s.registerOverviewTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// sessionFrom returns the default session, overridden by optional role and
// scope arguments.
func (s *Server) sessionFrom(args map[string]any) service.Session {
	sess := s.session
	if role, ok := args["role"].(string); ok && role != "" {
		sess.Role = role
	}
	if scope, ok := args["scope"].(string); ok && scope != "" {
		sess.Scope = scope
	}
	return sess
}

// requireString reads a non-empty string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// intArg reads a JSON number argument.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}
