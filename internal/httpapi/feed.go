package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/diplomado/internal/auth"
)

const (
	feedBuffer       = 32
	feedWriteTimeout = 5 * time.Second
)

var errFeedDisabled = errors.New("progress feed disabled")

// handleProgressFeed streams activity events to an administrator over a websocket.
func (s *Server) handleProgressFeed(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if !pr.IsAdmin() {
		writeError(w, r, auth.ErrForbidden)
		return
	}
	if s.feed == nil {
		writeJSON(w, http.StatusNotFound, errorBody{errorDetail{Message: "El seguimiento en vivo no está disponible.", Code: "feed_disabled"}})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originHosts(s.origins)})
	if err != nil {
		slog.Warn("progress feed handshake failed", "user_id", pr.ID, "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := s.feed.Subscribe(feedBuffer)
	defer cancel()
	slog.Info("progress feed opened", "user_id", pr.ID)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			slog.Info("progress feed closed", "user_id", pr.ID)
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, errFeedDisabled.Error())
				return
			}
			writeCtx, done := context.WithTimeout(ctx, feedWriteTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			done()
			if err != nil {
				slog.Warn("progress feed write failed", "user_id", pr.ID, "error", err)
				return
			}
		}
	}
}
