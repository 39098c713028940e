package service

import (
	"context"
	"time"

	"opsdash/internal/domain"
)

// LiveWidgetTypes are the widget types annotated with connection state.
var LiveWidgetTypes = map[string]bool{
	domain.WidgetRecentActivity:   true,
	domain.WidgetCommunicationHub: true,
}

// ConnectionSource exposes the current connection state.
type ConnectionSource interface {
	State() domain.ConnectionState
}

// LiveAnnotation carries freshness and connectivity for a live widget.
type LiveAnnotation struct {
	Status      domain.ConnectionStatus `json:"status"`
	NewCount    int                     `json:"newCount"`
	LastEventAt *time.Time              `json:"lastEventAt,omitempty"`
}

// BoardWidget is one visible widget, resolved and rendered.
type BoardWidget struct {
	domain.WidgetDescriptor
	Collapsed bool                `json:"collapsed,omitempty"`
	Config    domain.WidgetConfig `json:"config,omitempty"`
	View      WidgetView          `json:"view"`
	Live      *LiveAnnotation     `json:"live,omitempty"`
}

// Board is the (layout, overview, connection) triple handed to rendering,
// with every visible widget already resolved.
type Board struct {
	Session     Session                `json:"session"`
	Layout      domain.Layout          `json:"layout"`
	Widgets     []BoardWidget          `json:"widgets"`
	Connection  domain.ConnectionState `json:"connection"`
	Generation  uint64                 `json:"generation"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// DashboardService composes the layout, the registry, the overview and the
// connection state into a Board.
type DashboardService struct {
	layouts  *LayoutService
	overview *OverviewService
	registry *WidgetRegistry
	conn     ConnectionSource
}

func NewDashboardService(layouts *LayoutService, ov *OverviewService, registry *WidgetRegistry, conn ConnectionSource) *DashboardService {
	return &DashboardService{layouts: layouts, overview: ov, registry: registry, conn: conn}
}

// Board builds the board of sess for id. Overview failures never fail the
// board: sections carry their own status.
func (d *DashboardService) Board(ctx context.Context, sess Session, id domain.Identity) (*Board, error) {
	layout, err := d.layouts.GetLayout(ctx, sess)
	if err != nil {
		return nil, err
	}
	data, err := d.overview.Snapshot(ctx, id)
	if err != nil {
		data = &domain.OverviewData{Scope: id.ScopeKey()}
	}

	var conn domain.ConnectionState
	if d.conn != nil {
		conn = d.conn.State()
	}

	board := &Board{
		Session:     sess,
		Layout:      layout,
		Widgets:     make([]BoardWidget, 0, len(layout.Widgets)),
		Connection:  conn,
		Generation:  data.Generation,
		GeneratedAt: data.GeneratedAt,
	}
	for _, w := range layout.Widgets {
		if !w.Visible {
			continue
		}
		cfg := mergeConfig(w.Type, layout.Configs[w.ID])
		bw := BoardWidget{
			WidgetDescriptor: w,
			Collapsed:        layout.IsCollapsed(w.ID),
			Config:           cfg,
			View:             d.registry.Resolve(w.Type).Render(data, cfg),
		}
		if LiveWidgetTypes[w.Type] && d.conn != nil {
			bw.Live = &LiveAnnotation{
				Status:      conn.Status,
				NewCount:    conn.PerWidget[w.Type],
				LastEventAt: conn.LastEventAt,
			}
		}
		board.Widgets = append(board.Widgets, bw)
	}
	return board, nil
}
