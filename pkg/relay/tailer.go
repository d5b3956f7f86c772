package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

// Waker wakes an attached tailer when the producer writes, instead of waiting
// out the full poll interval. Optional; polling alone is sufficient for
// correctness.
type Waker interface {
	Subscribe(ctx context.Context, key streamstate.OwnerKey) (<-chan struct{}, func(), error)
}

// resumeState is the initial classification of a resume request: the record
// (nil when absent or expired) and whatever content is buffered right now.
type resumeState struct {
	rec        *streamstate.StreamRecord
	content    string
	hasContent bool
}

func (st resumeState) empty() bool {
	return st.rec == nil && !st.hasContent
}

func (s *Server) classify(ctx context.Context, key streamstate.OwnerKey) (resumeState, error) {
	rec, err := s.registry.Get(ctx, key)
	if err != nil {
		return resumeState{}, err
	}
	content, ok, err := s.buffer.Read(ctx, key)
	if err != nil {
		return resumeState{}, err
	}
	return resumeState{rec: rec, content: content, hasContent: ok}, nil
}

// relayStream runs the resume state machine against an already-started
// response. From here on failures can only surface in-band: the returned
// error is for logging, not for the client.
func (s *Server) relayStream(ctx context.Context, key streamstate.OwnerKey, st resumeState, em emitter) error {
	rec := st.rec

	// Finished stream: the record completed, or already expired while its
	// content lingers. Replay and close.
	if rec == nil || rec.Status == streamstate.StatusCompleted {
		if err := em.Content(st.content); err != nil {
			return err
		}
		return em.Event(eventDone, key.Module)
	}
	if rec.Status == streamstate.StatusError {
		if err := em.Content(st.content); err != nil {
			return err
		}
		return em.Event(eventError, key.Module)
	}

	// Active stream: replay what exists, then tail.
	if err := em.Content(st.content); err != nil {
		return err
	}
	return s.tail(ctx, key, len(st.content), em)
}

// tail polls the store until the stream leaves the active state, relaying
// each length delta exactly once. The ceiling closes the connection silently;
// client disconnects stop the loop on the next iteration.
func (s *Server) tail(ctx context.Context, key streamstate.OwnerKey, sent int, em emitter) error {
	lg := log.With().
		Str("component", "relay").
		Str("job_id", key.JobID).
		Str("module", key.Module).
		Logger()

	var wake <-chan struct{}
	if s.waker != nil {
		ch, cleanup, err := s.waker.Subscribe(ctx, key)
		if err != nil {
			lg.Warn().Err(err).Msg("append notifications unavailable, polling only")
		} else {
			wake = ch
			defer cleanup()
		}
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	ceiling := time.NewTimer(s.maxStreamDuration)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Debug().Msg("client disconnected while tailing")
			return nil
		case <-ceiling.C:
			lg.Info().Dur("ceiling", s.maxStreamDuration).Msg("tail ceiling reached, closing stream")
			return nil
		case <-ticker.C:
		case <-wake:
		}

		rec, err := s.registry.Get(ctx, key)
		if err != nil {
			_ = em.Event(eventError, key.Module)
			return err
		}
		content, _, err := s.buffer.Read(ctx, key)
		if err != nil {
			_ = em.Event(eventError, key.Module)
			return err
		}

		if len(content) > sent {
			if err := em.Content(content[sent:]); err != nil {
				return err
			}
			sent = len(content)
		}

		// Record gone mid-tail means it expired after finishing; treat as done.
		if rec == nil || rec.Status == streamstate.StatusCompleted {
			return em.Event(eventDone, key.Module)
		}
		if rec.Status == streamstate.StatusError {
			return em.Event(eventError, key.Module)
		}
	}
}
