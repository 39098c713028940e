package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	layoutURI        = "opsdash://layout"
	overviewURI      = "opsdash://overview"
	layoutRolePrefix = "opsdash://layout/"
	connectionURI    = "opsdash://connection"
	jsonMIMEType     = "application/json"
)

func (s *Server) registerResources() {
	// ── opsdash://layout ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		layoutURI,
		"Dashboard Layout",
		mcp.WithMIMEType(jsonMIMEType),
	), s.handleLayoutResource)

	// ── opsdash://overview ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		overviewURI,
		"Dashboard Overview",
		mcp.WithMIMEType(jsonMIMEType),
	), s.handleOverviewResource)

	// ── opsdash://connection ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		connectionURI,
		"Live Feed Connection",
		mcp.WithMIMEType(jsonMIMEType),
	), s.handleConnectionResource)

	// ── opsdash://layout/{role} ────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			layoutRolePrefix+"{role}",
			"Layout of a Role",
		),
		s.handleRoleLayoutResource,
	)
}

func (s *Server) handleLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	l, err := s.layouts.GetLayout(ctx, s.session)
	if err != nil {
		return nil, err
	}
	return jsonContents(layoutURI, l)
}

func (s *Server) handleOverviewResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, ok := s.overview.Latest(s.identity.ScopeKey())
	if !ok {
		var err error
		if data, err = s.overview.Snapshot(ctx, s.identity); err != nil {
			return nil, err
		}
	}
	return jsonContents(overviewURI, data)
}

func (s *Server) handleConnectionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(connectionURI, s.presence.State())
}

func (s *Server) handleRoleLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	role := roleFromURI(uri)
	if role == "" {
		return nil, fmt.Errorf("could not extract role from URI: %s", uri)
	}
	sess := s.session
	sess.Role = role
	l, err := s.layouts.GetLayout(ctx, sess)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, l)
}

// roleFromURI extracts the role from "opsdash://layout/{role}".
func roleFromURI(uri string) string {
	role, ok := strings.CutPrefix(uri, layoutRolePrefix)
	if !ok || strings.Contains(role, "/") {
		return ""
	}
	return role
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		},
	}, nil
}
