package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fkhayef/splitthebill/internal/reaction"
	"github.com/fkhayef/splitthebill/internal/realtime"
)

// ViewConfig wires a View to the backend and its event stream
type ViewConfig struct {
	Backend     Backend
	BaseURL     string
	UserID      int64
	ReactionTTL time.Duration
	Clock       clockwork.Clock
	Stream      realtime.Options

	// OnChange runs after the snapshot or the reaction overlay changes
	OnChange func()
}

// View is an open bill screen: the ledger, its live subscription and the
// reaction overlay. A REFRESH signal re-fetches the bill; bursts collapse
// into a single pending fetch.
type View struct {
	cfg     ViewConfig
	ledger  *Ledger
	overlay *reaction.Overlay
	channel *realtime.Channel

	refresh chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Open loads billID and starts listening for its signals. The subscription
// outlives ctx only until Close.
func Open(ctx context.Context, cfg ViewConfig, billID int64) (*View, error) {
	if cfg.Backend == nil {
		return nil, errors.New("ledger: backend is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.ReactionTTL <= 0 {
		cfg.ReactionTTL = reaction.DefaultTTL
	}

	v := &View{
		cfg:     cfg,
		refresh: make(chan struct{}, 1),
	}
	v.ledger = New(cfg.Backend, billID, cfg.UserID, v.changed)

	if err := v.ledger.Refresh(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.overlay = reaction.New(cfg.Clock, cfg.ReactionTTL, v.changed)

	v.wg.Add(1)
	go v.refreshLoop(runCtx)

	if cfg.BaseURL != "" {
		v.channel = realtime.Subscribe(runCtx, cfg.BaseURL, billID, v, cfg.Stream)
	}
	return v, nil
}

// Ledger returns the bill's ledger
func (v *View) Ledger() *Ledger { return v.ledger }

// ActiveReactions returns the emoji currently shown per user id
func (v *View) ActiveReactions() map[int64]string {
	return v.overlay.Active()
}

// OnRefresh queues a re-fetch; it never blocks
func (v *View) OnRefresh() {
	select {
	case v.refresh <- struct{}{}:
	default:
	}
}

// OnReaction shows emoji next to userID for the configured TTL
func (v *View) OnReaction(userID int64, emoji string) {
	v.overlay.Push(userID, emoji)
}

func (v *View) refreshLoop(ctx context.Context) {
	defer v.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.refresh:
			if err := v.ledger.Refresh(ctx); err != nil && !errors.Is(err, ErrDetached) && ctx.Err() == nil {
				slog.Warn("bill refresh failed", "bill_id", v.ledger.BillID(), "error", err)
			}
		}
	}
}

func (v *View) changed() {
	if v.cfg.OnChange != nil {
		v.cfg.OnChange()
	}
}

// Close stops the subscription, cancels pending reaction timers and
// detaches the ledger so in-flight responses are dropped.
func (v *View) Close() {
	v.ledger.Detach()
	v.cancel()
	if v.channel != nil {
		v.channel.Close()
	}
	v.wg.Wait()
	v.overlay.Close()
}

// Switch closes v and opens billID with the same configuration
func (v *View) Switch(ctx context.Context, billID int64) (*View, error) {
	v.Close()
	return Open(ctx, v.cfg, billID)
}
