package service_test

import (
	"testing"

	"opsdash/internal/domain"
	"opsdash/internal/service"

	"github.com/stretchr/testify/assert"
)

func staticView(label string) service.RenderCapability {
	return service.RenderFunc(func(*domain.OverviewData, domain.WidgetConfig) service.WidgetView {
		return service.WidgetView{Type: label}
	})
}

func TestWidgetRegistry_ResolveRegistered(t *testing.T) {
	r := service.NewWidgetRegistry()
	r.Register(domain.WidgetBlockers, staticView("blockers-v1"))

	view := r.Resolve(domain.WidgetBlockers).Render(nil, nil)

	assert.Equal(t, "blockers-v1", view.Type)
	assert.False(t, view.Placeholder)
	assert.True(t, r.Has(domain.WidgetBlockers))
}

func TestWidgetRegistry_LastWriteWins(t *testing.T) {
	r := service.NewWidgetRegistry()
	r.Register("kpi", staticView("first"))
	r.Register("kpi", staticView("second"))

	assert.Equal(t, "second", r.Resolve("kpi").Render(nil, nil).Type)
	assert.Equal(t, []string{"kpi"}, r.Types())
}

func TestWidgetRegistry_UnknownTypeFallsBack(t *testing.T) {
	r := service.NewWidgetRegistry()

	for _, typ := range []string{"weather-radar", "", "ünïcode"} {
		c := r.Resolve(typ)
		if !assert.NotNil(t, c) {
			continue
		}
		view := c.Render(&domain.OverviewData{}, nil)
		assert.True(t, view.Placeholder)
		assert.Equal(t, typ, view.Type)
		assert.Equal(t, typ+": widget coming soon", view.Message)
	}

	r.Resolve("weather-radar")
	assert.Equal(t, 2, r.Misses()["weather-radar"])
	assert.False(t, r.Has("weather-radar"))
}
