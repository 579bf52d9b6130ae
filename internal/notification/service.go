package notification

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/r3labs/sse/v2"
)

// DefaultHeartbeat keeps idle streams alive through proxies
const DefaultHeartbeat = 20 * time.Second

// Notifier fans bill signals out to every open event stream of that bill.
// One SSE stream exists per bill id; streams are created on first subscribe.
type Notifier struct {
	server    *sse.Server
	heartbeat time.Duration
	metrics   *Metrics

	mu      sync.Mutex
	streams map[string]int // stream id -> open subscribers
}

// NewNotifier creates a new notifier. A zero heartbeat uses DefaultHeartbeat.
func NewNotifier(heartbeat time.Duration, reg prometheus.Registerer) *Notifier {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	server := sse.New()
	server.AutoStream = true
	server.AutoReplay = false

	return &Notifier{
		server:    server,
		heartbeat: heartbeat,
		metrics:   NewMetrics(reg),
		streams:   make(map[string]int),
	}
}

func streamID(billID int64) string {
	return strconv.FormatInt(billID, 10)
}

// NotifyRefresh tells every viewer of the bill to re-fetch it
func (n *Notifier) NotifyRefresh(billID int64) {
	n.Broadcast(billID, Refresh())
}

// Broadcast publishes a signal to the bill's stream. Bills nobody watches are skipped.
func (n *Notifier) Broadcast(billID int64, sig Signal) {
	id := streamID(billID)
	if n.Subscribers(billID) == 0 {
		return
	}

	n.server.Publish(id, &sse.Event{Data: []byte(sig.Encode())})
	n.metrics.signals.WithLabelValues(string(sig.Kind)).Inc()

	slog.Debug("signal published", "bill_id", billID, "kind", sig.Kind)
}

// Subscribers returns the number of open streams for a bill
func (n *Notifier) Subscribers(billID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.streams[streamID(billID)]
}

// Serve streams the bill's signals to w until the client goes away
func (n *Notifier) Serve(w http.ResponseWriter, r *http.Request, billID int64) {
	id := streamID(billID)

	q := r.URL.Query()
	q.Set("stream", id)
	r.URL.RawQuery = q.Encode()

	n.track(id, 1)
	defer n.track(id, -1)

	n.server.ServeHTTP(w, r)
}

func (n *Notifier) track(id string, delta int) {
	n.mu.Lock()
	n.streams[id] += delta
	if n.streams[id] <= 0 {
		delete(n.streams, id)
	}
	n.mu.Unlock()

	n.metrics.subscribers.Add(float64(delta))
}

func (n *Notifier) active() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, 0, len(n.streams))
	for id := range n.streams {
		ids = append(ids, id)
	}
	return ids
}

// Run writes heartbeat comments to every open stream until ctx is done
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range n.active() {
				n.server.Publish(id, &sse.Event{Comment: []byte("ping")})
				n.metrics.heartbeats.Inc()
			}
		}
	}
}

// Close disconnects every subscriber
func (n *Notifier) Close() {
	n.server.Close()
}
