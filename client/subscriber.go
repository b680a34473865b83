package client

import (
	"context"
	"encoding/json"
	"time"

	"fasteyes/services"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 2 * time.Second

// Subscribe connects to the room's change feed and keeps the local view
// current until ctx is cancelled. Each (re)connection starts with a full
// resync; the feed gives no ordering guarantees, so delta replay after a
// gap is never attempted.
func (r *Reconciler) Subscribe(ctx context.Context, wsBaseURL string) {
	url := wsBaseURL + "/ws/" + r.code

	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.runSubscription(ctx, url); err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

func (r *Reconciler) runSubscription(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Baseline after the subscription is live, so nothing can slip into
	// the gap between snapshot and feed.
	if err := r.Resync(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event services.ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			// An unreadable event is just a missed hint; the next
			// resync heals it.
			continue
		}
		if err := r.Apply(ctx, event); err != nil {
			return err
		}
	}
}
