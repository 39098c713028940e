package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"opsdash/internal/presence"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// ErrRetriesExhausted is returned when the push channel could not be
// re-established within the retry budget.
var ErrRetriesExhausted = errors.New("live: reconnect retries exhausted")

// WSOptions configures a WSTransport.
type WSOptions struct {
	URL              string
	Header           http.Header
	MaxRetries       int // consecutive failed dials before giving up; 0 means retry forever
	InitialInterval  time.Duration
	MaxInterval      time.Duration
	HandshakeTimeout time.Duration
}

// WSTransport reads activity frames from a websocket and reconnects with
// exponential backoff when the connection drops.
type WSTransport struct {
	opts   WSOptions
	sink   Sink
	dialer *websocket.Dialer
	log    *slog.Logger
}

func NewWSTransport(opts WSOptions, sink Sink) *WSTransport {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &WSTransport{
		opts:   opts,
		sink:   sink,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		log:    slog.Default().With("component", "live-ws", "url", opts.URL),
	}
}

func (t *WSTransport) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.opts.InitialInterval
	exp.MaxInterval = t.opts.MaxInterval
	exp.MaxElapsedTime = 0
	var b backoff.BackOff = exp
	if t.opts.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(t.opts.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// Run connects and reads until ctx is cancelled (nil) or the retry budget
// is spent (ErrRetriesExhausted, after moving the sink to error).
func (t *WSTransport) Run(ctx context.Context) error {
	b := t.newBackOff(ctx)

	for {
		conn, _, err := t.dialer.DialContext(ctx, t.opts.URL, t.opts.Header)
		if err == nil {
			b.Reset()
			signal(ctx, t.sink, presence.SignalOpen, nil)
			t.log.Info("live feed connected")
			err = t.readLoop(ctx, conn)
			conn.Close()
		}
		if ctx.Err() != nil {
			signal(context.WithoutCancel(ctx), t.sink, presence.SignalClosed, nil)
			return nil
		}
		signal(ctx, t.sink, presence.SignalClosed, nil)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			cause := fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
			signal(ctx, t.sink, presence.SignalError, cause)
			t.log.Error("live feed unavailable", "err", err)
			return cause
		}
		t.log.Warn("live feed disconnected, reconnecting", "err", err, "backoff", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		signal(ctx, t.sink, presence.SignalReconnect, nil)
	}
}

// readLoop decodes frames until the connection fails or ctx is done.
func (t *WSTransport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.log.Debug("skipping malformed frame", "err", err)
			continue
		}
		if f.Type == FramePing {
			continue
		}
		deliver(ctx, t.sink, f)
	}
}
