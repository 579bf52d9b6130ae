// Package realtime subscribes to a bill's server-sent event stream and
// dispatches refresh and reaction signals.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/fkhayef/splitthebill/internal/notification"
)

// Handler receives decoded signals. Calls come from the subscription goroutine.
type Handler interface {
	OnRefresh()
	OnReaction(userID int64, emoji string)
}

// Options tune the subscription
type Options struct {
	HTTPClient *http.Client
	Headers    map[string]string

	// Reconnect delays; zero values use the exponential backoff defaults
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Channel is one live subscription
type Channel struct {
	url    string
	cancel context.CancelFunc
	done   chan struct{}
}

// StreamURL builds the events endpoint for a bill under the API base URL
func StreamURL(baseURL string, billID int64) string {
	return fmt.Sprintf("%s/bills/%d/events", strings.TrimRight(baseURL, "/"), billID)
}

// Subscribe starts listening to billID's stream. It reconnects forever with
// exponential backoff until ctx is done or Close is called. Transport errors
// are logged, never returned.
func Subscribe(ctx context.Context, baseURL string, billID int64, h Handler, opts Options) *Channel {
	ctx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		url:    StreamURL(baseURL, billID),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 0
	if opts.InitialInterval > 0 {
		eb.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		eb.MaxInterval = opts.MaxInterval
	}

	client := sse.NewClient(ch.url)
	client.ReconnectStrategy = backoff.WithContext(eb, ctx)
	client.ReconnectNotify = func(err error, next time.Duration) {
		slog.Debug("event stream reconnecting", "bill_id", billID, "error", err, "in", next)
	}
	client.OnDisconnect(func(*sse.Client) {
		slog.Debug("event stream disconnected", "bill_id", billID)
	})
	if opts.HTTPClient != nil {
		client.Connection = opts.HTTPClient
	}
	for k, v := range opts.Headers {
		client.Headers[k] = v
	}

	go func() {
		defer close(ch.done)
		for {
			err := client.SubscribeRawWithContext(ctx, func(ev *sse.Event) {
				dispatch(billID, ev, h)
			})
			if ctx.Err() != nil {
				return
			}

			// a clean EOF ends the library's retry loop, so reconnect here
			wait := eb.NextBackOff()
			slog.Debug("event stream ended", "bill_id", billID, "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()

	return ch
}

func dispatch(billID int64, ev *sse.Event, h Handler) {
	// heartbeats arrive as comments with no data
	if len(ev.Data) == 0 {
		return
	}

	sig, err := notification.Decode(string(ev.Data))
	if err != nil {
		slog.Debug("dropping signal", "bill_id", billID, "error", err)
		return
	}

	switch sig.Kind {
	case notification.KindRefresh:
		h.OnRefresh()
	case notification.KindReaction:
		h.OnReaction(sig.UserID, sig.Emoji)
	}
}

// Close cancels the subscription and waits for its goroutine to exit
func (c *Channel) Close() {
	c.cancel()
	<-c.done
}
