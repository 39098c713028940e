package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"
	"opsdash/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RefreshAllTrackedScopes(t *testing.T) {
	ov := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), nil)
	s := service.NewRefreshScheduler(ov)
	other := domain.Identity{UserID: "u2"}

	s.Track(scopedUser)
	s.Track(other)
	s.Track(scopedUser)
	assert.Equal(t, 2, s.Tracked())

	s.RefreshAll(context.Background())

	for _, id := range []domain.Identity{scopedUser, other} {
		_, ok := ov.Latest(id.ScopeKey())
		assert.True(t, ok, id.ScopeKey())
	}
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s := service.NewRefreshScheduler(service.NewOverviewService(service.Sources{}, overview.DefaultLimits(), nil))

	assert.Error(t, s.Start(context.Background(), "every now and then"))

	require.NoError(t, s.Start(context.Background(), "@every 1h"))
	s.Stop()
}

func TestScheduler_WatchConfigReloadsLimits(t *testing.T) {
	ov := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), nil)
	s := service.NewRefreshScheduler(ov)
	s.Track(scopedUser)
	t.Cleanup(s.Stop)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[overview]\n"), 0o644))

	loader := func() (overview.Limits, error) {
		l := overview.DefaultLimits()
		l.Blockers = 1
		return l, nil
	}
	require.NoError(t, s.WatchConfig(context.Background(), path, loader))
	require.NoError(t, os.WriteFile(path, []byte("[overview]\nblocker_limit = 1\n"), 0o644))

	require.Eventually(t, func() bool {
		latest, ok := ov.Latest(scopedUser.ScopeKey())
		return ov.Limits().Blockers == 1 && ok && len(latest.Blockers.Data) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
