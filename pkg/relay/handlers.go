package relay

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/jobstore"
	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

func (s *Server) registerHTTPHandlers() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	s.mux.HandleFunc("DELETE /api/jobs/{jobID}", s.handleDeleteJob)
	s.mux.HandleFunc("GET /api/jobs/{jobID}/streams", s.handleListStreams)
	s.mux.HandleFunc("GET /api/jobs/{jobID}/stream/{module}", s.handleResume)
	s.mux.HandleFunc("GET /api/jobs/{jobID}/stream/{module}/ws", s.handleResumeWS)
	s.mux.HandleFunc("DELETE /api/jobs/{jobID}/stream/{module}", s.handleClearStream)
}

// authorizeJob runs the pre-streaming checks shared by all job-scoped
// endpoints: authentication, job existence, ownership. It writes the error
// response itself and reports ok=false when the caller should stop.
func (s *Server) authorizeJob(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, err := s.auth.Authenticate(r)
	if errors.Is(err, ErrUnauthenticated) {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return "", "", false
	}
	if err != nil {
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return "", "", false
	}

	jobID := r.PathValue("jobID")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return "", "", false
	}
	if err != nil {
		log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Msg("job lookup failed")
		http.Error(w, "job lookup failed", http.StatusInternalServerError)
		return "", "", false
	}
	if job.UserID != userID {
		http.Error(w, "not owner", http.StatusForbidden)
		return "", "", false
	}
	return jobID, userID, true
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
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

	em, err := newSSEEmitter(w)
	if err != nil {
		lg.Error().Err(err).Msg("streaming unsupported")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resumed := st.rec == nil || st.content != ""
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	if st.rec != nil {
		w.Header().Set("X-Stream-Id", st.rec.StreamID)
	}
	if resumed {
		w.Header().Set("X-Stream-Resumed", "true")
	} else {
		w.Header().Set("X-Stream-Resumed", "false")
	}
	w.WriteHeader(http.StatusOK)

	lg.Debug().Bool("resumed", resumed).Int("buffered", len(st.content)).Msg("resume stream attached")
	if err := s.relayStream(r.Context(), key, st, em); err != nil {
		lg.Warn().Err(err).Msg("stream relay ended with error")
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	userID, err := s.auth.Authenticate(r)
	if errors.Is(err, ErrUnauthenticated) {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	var body struct {
		JobID string `json:"job_id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if body.JobID == "" {
		body.JobID = uuid.NewString()
	}
	if err := s.jobs.CreateJob(r.Context(), jobstore.Job{ID: body.JobID, UserID: userID, Title: body.Title}); err != nil {
		log.Error().Err(err).Str("component", "relay").Msg("create job failed")
		http.Error(w, "create job failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": body.JobID})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, _, ok := s.authorizeJob(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	// Tear down any live streams along with the job itself.
	recs, err := s.registry.ListForJob(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Msg("stream listing failed")
		http.Error(w, "stream listing failed", http.StatusInternalServerError)
		return
	}
	for module := range recs {
		if err := s.registry.Clear(ctx, streamstate.OwnerKey{JobID: jobID, Module: module}); err != nil {
			log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Str("module", module).Msg("stream teardown failed")
			http.Error(w, "stream teardown failed", http.StatusInternalServerError)
			return
		}
	}
	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Msg("delete job failed")
		http.Error(w, "delete job failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	jobID, _, ok := s.authorizeJob(w, r)
	if !ok {
		return
	}
	recs, err := s.registry.ListForJob(r.Context(), jobID)
	if err != nil {
		log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Msg("stream listing failed")
		http.Error(w, "stream listing failed", http.StatusInternalServerError)
		return
	}

	type streamInfo struct {
		StreamID  string `json:"stream_id"`
		Status    string `json:"status"`
		CreatedAt int64  `json:"created_at"`
	}
	out := map[string]streamInfo{}
	for module, rec := range recs {
		out[module] = streamInfo{
			StreamID:  rec.StreamID,
			Status:    string(rec.Status),
			CreatedAt: rec.CreatedAt,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleClearStream(w http.ResponseWriter, r *http.Request) {
	jobID, _, ok := s.authorizeJob(w, r)
	if !ok {
		return
	}
	module := r.PathValue("module")
	if err := s.registry.Clear(r.Context(), streamstate.OwnerKey{JobID: jobID, Module: module}); err != nil {
		log.Error().Err(err).Str("component", "relay").Str("job_id", jobID).Str("module", module).Msg("stream teardown failed")
		http.Error(w, "stream teardown failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
