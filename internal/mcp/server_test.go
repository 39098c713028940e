package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"
	"opsdash/internal/plugins"
	"opsdash/internal/presence"
	"opsdash/internal/service"
	"opsdash/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "opsdash.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := storage.NewSQLiteLayoutStore(db)
	layouts := service.NewLayoutService(store, service.NewPersister(store, time.Hour), nil)
	ov := service.NewOverviewService(service.Sources{}, overview.DefaultLimits(), nil)
	registry := service.NewWidgetRegistry()
	plugins.RegisterBuiltins(registry)
	machine := presence.New(nil)

	return New(Deps{
		Layouts:   layouts,
		Overview:  ov,
		Dashboard: service.NewDashboardService(layouts, ov, registry, machine),
		Registry:  registry,
		Presence:  machine,
		Identity:  domain.Identity{UserID: "u1", Role: "developer"},
		Session:   service.Session{Role: "developer", Scope: "test"},
	})
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var out T
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("decode %q: %v", text.Text, err)
	}
	return out
}

func TestGetLayout_SeedsRoleDefault(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleGetLayout(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("get_layout: %v", err)
	}
	l := decode[domain.Layout](t, res)
	if len(l.Widgets) == 0 {
		t.Fatal("expected default widgets")
	}
	for i, w := range l.Widgets {
		if w.Order != i {
			t.Errorf("widget %s has order %d at index %d", w.ID, w.Order, i)
		}
	}
}

func TestReorderWidget_MovesToTarget(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	l := decode[domain.Layout](t, must(s.handleGetLayout(ctx, call(nil))))
	if len(l.Widgets) < 2 {
		t.Skip("default layout too small to reorder")
	}
	first := l.Widgets[0].ID
	last := len(l.Widgets) - 1

	res, err := s.handleReorderWidget(ctx, call(map[string]any{
		"widgetId":    first,
		"targetIndex": float64(last),
	}))
	if err != nil {
		t.Fatalf("reorder_widget: %v", err)
	}
	got := decode[domain.Layout](t, res)
	if got.Widgets[last].ID != first {
		t.Errorf("expected %s at index %d, got %s", first, last, got.Widgets[last].ID)
	}
}

func TestReorderWidget_RequiresTargetIndex(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleReorderWidget(context.Background(), call(map[string]any{"widgetId": "x"}))
	if err == nil {
		t.Fatal("expected error without targetIndex")
	}
}

func TestResizeWidget_RejectsUnknownSize(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	l := decode[domain.Layout](t, must(s.handleGetLayout(ctx, call(nil))))

	_, err := s.handleResizeWidget(ctx, call(map[string]any{
		"widgetId": l.Widgets[0].ID,
		"size":     "huge",
	}))
	if err == nil {
		t.Fatal("expected validation error for size huge")
	}
}

func TestSetLayout_ParsesWidgetsJSON(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleSetLayout(context.Background(), call(map[string]any{
		"widgets": `[{"id":"b","type":"blockers","size":"md","order":5,"visible":true},
		             {"id":"a","type":"team-status","size":"lg","order":1,"visible":true}]`,
	}))
	if err != nil {
		t.Fatalf("set_layout: %v", err)
	}
	l := decode[domain.Layout](t, res)
	if len(l.Widgets) != 2 || l.Widgets[0].ID != "a" || l.Widgets[1].Order != 1 {
		t.Errorf("unexpected layout: %+v", l.Widgets)
	}

	if _, err := s.handleSetLayout(context.Background(), call(map[string]any{"widgets": "not json"})); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestRoleOverrideUsesSeparateLayout(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	_, err := s.handleSetLayout(ctx, call(map[string]any{
		"widgets": `[{"id":"only","type":"blockers","size":"sm","order":0,"visible":true}]`,
	}))
	if err != nil {
		t.Fatalf("set_layout: %v", err)
	}

	res, err := s.handleGetLayout(ctx, call(map[string]any{"role": "pm"}))
	if err != nil {
		t.Fatalf("get_layout: %v", err)
	}
	if pm := decode[domain.Layout](t, res); len(pm.Widgets) == 1 {
		t.Error("pm layout should not see the developer's changes")
	}
}

func TestSetWidgetVisibility_RequiresBool(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleSetWidgetVisibility(context.Background(), call(map[string]any{
		"widgetId": "x",
		"visible":  "yes",
	}))
	if err == nil {
		t.Fatal("expected error for non-boolean visible")
	}
}

func TestSetWidgetConfig_ReturnsMergedConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	_, err := s.handleSetLayout(ctx, call(map[string]any{
		"widgets": `[{"id":"act","type":"recent-activity","size":"md","order":0,"visible":true}]`,
	}))
	if err != nil {
		t.Fatalf("set_layout: %v", err)
	}

	res, err := s.handleSetWidgetConfig(ctx, call(map[string]any{
		"widgetId": "act",
		"config":   `{"maxItems":3}`,
	}))
	if err != nil {
		t.Fatalf("set_widget_config: %v", err)
	}
	cfg := decode[map[string]any](t, res)
	if cfg["maxItems"] != float64(3) {
		t.Errorf("expected maxItems 3, got %v", cfg["maxItems"])
	}
}

func TestGetBoard_EmptySourcesStillRenders(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleGetBoard(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("get_board: %v", err)
	}
	b := decode[service.Board](t, res)
	if len(b.Widgets) == 0 {
		t.Error("expected visible widgets on the board")
	}
}

func TestViewWidget_Modes(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	s.presence.Open(ctx)
	s.presence.Observe(ctx, domain.WidgetRecentActivity)

	res, err := s.handleViewWidget(ctx, call(map[string]any{"widget": domain.WidgetRecentActivity}))
	if err != nil {
		t.Fatalf("view_widget: %v", err)
	}
	if st := decode[domain.ConnectionState](t, res); st.PerWidget[domain.WidgetRecentActivity] != 0 {
		t.Errorf("expected counter reset, got %d", st.PerWidget[domain.WidgetRecentActivity])
	}

	if _, err := s.handleViewWidget(ctx, call(map[string]any{"widget": "x", "mode": "stare"})); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestGetOverview_UnknownSection(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleGetOverview(context.Background(), call(map[string]any{"section": "weather"}))
	if err == nil {
		t.Fatal("expected error for unknown section")
	}
}

func TestRoleFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"opsdash://layout/pm", "pm"},
		{"opsdash://layout/", ""},
		{"opsdash://layout/pm/extra", ""},
		{"opsdash://overview", ""},
	}
	for _, tt := range tests {
		if got := roleFromURI(tt.uri); got != tt.want {
			t.Errorf("roleFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestToParams(t *testing.T) {
	p := toParams(domain.ConnectionState{Status: domain.StatusConnected, NewCount: 2})
	if p["status"] != "connected" || p["newCount"] != float64(2) {
		t.Errorf("unexpected params: %v", p)
	}
	if v := toParams([]int{1, 2}); v["value"] == nil {
		t.Errorf("expected non-object payload under value, got %v", v)
	}
}

func must(res *mcp.CallToolResult, err error) *mcp.CallToolResult {
	if err != nil {
		panic(err)
	}
	return res
}
