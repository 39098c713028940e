package presence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/presence"
	"opsdash/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = domain.WidgetRecentActivity

func TestMachine_InitialState(t *testing.T) {
	m := presence.New(nil)

	st := m.State()
	assert.Equal(t, domain.StatusConnecting, st.Status)
	assert.Equal(t, 0, st.NewCount)
}

func TestMachine_CountsFreezeAcrossReconnect(t *testing.T) {
	ctx := context.Background()
	m := presence.New(nil)
	require.NoError(t, m.Open(ctx))

	for range 3 {
		m.Observe(ctx, feed)
	}
	assert.Equal(t, 3, m.State().NewCount)

	require.NoError(t, m.Closed(ctx))
	assert.Equal(t, domain.StatusDisconnected, m.State().Status)
	assert.Equal(t, 3, m.State().NewCount)

	m.Observe(ctx, feed)
	assert.Equal(t, 3, m.State().NewCount, "events while disconnected are not counted")

	require.NoError(t, m.Reconnect(ctx))
	assert.Equal(t, domain.StatusConnecting, m.State().Status)
	require.NoError(t, m.Open(ctx))
	assert.Equal(t, domain.StatusConnected, m.State().Status)
	assert.Equal(t, 3, m.State().NewCount)

	m.Focus(ctx, feed)
	assert.Equal(t, 0, m.State().NewCount)
}

func TestMachine_FocusedWidgetDoesNotCount(t *testing.T) {
	ctx := context.Background()
	m := presence.New(nil)
	require.NoError(t, m.Open(ctx))

	m.Focus(ctx, feed)
	m.Observe(ctx, feed)
	m.Observe(ctx, domain.WidgetCommunicationHub)
	st := m.State()
	assert.Equal(t, 1, st.NewCount)
	assert.Equal(t, 1, st.PerWidget[domain.WidgetCommunicationHub])
	require.NotNil(t, st.LastEventAt)

	m.Blur(feed)
	m.Observe(ctx, feed)
	assert.Equal(t, 2, m.State().NewCount)

	m.View(ctx, domain.WidgetCommunicationHub)
	assert.Equal(t, 1, m.State().NewCount)
}

func TestMachine_Transitions(t *testing.T) {
	ctx := context.Background()
	m := presence.New(nil)

	err := m.Reconnect(ctx)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, domain.StatusConnecting, m.State().Status)

	require.NoError(t, m.Closed(ctx))
	assert.ErrorIs(t, m.Open(ctx), domain.ErrInvalidTransition)

	m.Fail(ctx, errors.New("handshake refused"))
	st := m.State()
	assert.Equal(t, domain.StatusError, st.Status)
	assert.Equal(t, "handshake refused", st.LastError)

	require.NoError(t, m.Reconnect(ctx))
	require.NoError(t, m.Open(ctx))
	assert.Equal(t, domain.StatusConnected, m.State().Status)
	assert.Empty(t, m.State().LastError)

	m.Fail(ctx, nil)
	assert.Equal(t, domain.StatusError, m.State().Status)
}

func TestMachine_ErrorFreezesCount(t *testing.T) {
	ctx := context.Background()
	m := presence.New(nil)
	require.NoError(t, m.Open(ctx))
	m.Observe(ctx, feed)
	m.Fail(ctx, errors.New("boom"))
	m.Observe(ctx, feed)

	assert.Equal(t, 1, m.State().NewCount)
}

func TestMachine_ResetAndEmit(t *testing.T) {
	ctx := context.Background()
	em := &service.MockEmitter{}
	m := presence.New(em)
	require.NoError(t, m.Open(ctx))
	m.Observe(ctx, feed)

	m.Reset(ctx)

	st := m.State()
	assert.Equal(t, domain.StatusConnecting, st.Status)
	assert.Equal(t, 0, st.NewCount)
	events := em.Named(presence.EventConnectionChanged)
	require.Len(t, events, 3)
	last := events[2].Data.(domain.ConnectionState)
	assert.Equal(t, domain.StatusConnecting, last.Status)
}

func TestMachine_RunConsumesSignals(t *testing.T) {
	m := presence.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan presence.Signal)
	done := make(chan struct{})
	go func() {
		m.Run(ctx, signals)
		close(done)
	}()

	signals <- presence.Signal{Kind: presence.SignalOpen}
	signals <- presence.Signal{Kind: presence.SignalEvent, Event: &domain.LiveEvent{Widget: feed, At: time.Now()}}
	signals <- presence.Signal{Kind: presence.SignalReconnect} // invalid from connected, ignored
	close(signals)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	st := m.State()
	assert.Equal(t, domain.StatusConnected, st.Status)
	assert.Equal(t, 1, st.NewCount)
}

func TestMachine_ConcurrentEvents(t *testing.T) {
	ctx := context.Background()
	m := presence.New(nil)
	require.NoError(t, m.Open(ctx))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Observe(ctx, feed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.State().NewCount)
}
