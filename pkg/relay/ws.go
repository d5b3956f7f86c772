package relay

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleResumeWS mirrors the SSE resume endpoint over a websocket. All
// pre-streaming checks (auth, ownership, empty stream) answer with plain HTTP
// statuses before the upgrade; after the upgrade the same state machine runs
// with frames instead of SSE lines.
func (s *Server) handleResumeWS(w http.ResponseWriter, r *http.Request) {
	jobID, _, ok := s.authorizeJob(w, r)
	if !ok {
		return
	}
	module := r.PathValue("module")
	key := streamstate.OwnerKey{JobID: jobID, Module: module}
	lg := log.With().Str("component", "relay").Str("job_id", jobID).Str("module", module).Logger()

	st, err := s.classify(r.Context(), key)
	if err != nil {
		lg.Error().Err(err).Msg("stream state read failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if st.empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		lg.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	// Reads are only used to notice the client going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.relayStream(ctx, key, st, &wsEmitter{conn: conn}); err != nil {
		lg.Warn().Err(err).Msg("websocket relay ended with error")
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
