package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	listenInitialBackoff = time.Second
	listenMaxBackoff     = 30 * time.Second
)

// Listen implements [SnapshotSource]. It opens a websocket to
// users/{userId}/{collection}/watch and forwards every snapshot the remote
// pushes. A dropped or failed socket is re-dialled with doubling backoff;
// a session that delivered at least one snapshot resets the backoff, so a
// long-lived connection that finally breaks reconnects quickly. The
// subscription survives listener errors and ends only when ctx is
// cancelled, at which point the channel is closed.
func (h *HTTPRemoteStore) Listen(ctx context.Context, userID, collection string) (<-chan []json.RawMessage, error) {
	wsURL := wsBaseURL(h.baseURL) + documentPath(userID, collection, "watch")
	out := make(chan []json.RawMessage)

	go func() {
		defer close(out)
		backoff := h.listenBackoff

		for ctx.Err() == nil {
			delivered, err := h.listenOnce(ctx, wsURL, out)
			if ctx.Err() != nil {
				return
			}
			if delivered {
				backoff = h.listenBackoff
			}
			h.logger.Err(err).
				Str("func", "HTTPRemoteStore.Listen").
				Str("collection", collection).
				Str("user_id", userID).
				Dur("backoff", backoff).
				Msg("listener dropped, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, h.listenBackoffMax)
		}
	}()

	return out, nil
}

// listenOnce runs a single websocket session: dial, then read snapshots
// until the socket breaks or ctx is cancelled. It reports whether the
// session forwarded at least one snapshot before ending.
func (h *HTTPRemoteStore) listenOnce(ctx context.Context, wsURL string, out chan<- []json.RawMessage) (bool, error) {
	header := http.Header{}
	if sess, ok := h.session.Current(); ok && sess.Token != "" {
		header.Set("Authorization", "Bearer "+sess.Token)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return false, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	delivered := false
	for {
		var snapshot []json.RawMessage
		if err = wsjson.Read(ctx, conn, &snapshot); err != nil {
			return delivered, err
		}

		select {
		case out <- snapshot:
			delivered = true
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}
}

func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
