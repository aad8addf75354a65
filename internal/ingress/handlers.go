package ingress

import (
	"net/http"

	"hearsay/internal/queue"
	"hearsay/internal/types"
)

// eventResult is the response payload for POST /v1/events. Accepted events
// return the assigned message ID; rejected ones return accepted=false with a
// 200, since a dedup or staleness drop is the pipeline working as intended,
// not a client error.
type eventResult struct {
	Accepted bool        `json:"accepted"`
	ID       string      `json:"id,omitempty"`
	State    queue.State `json:"state"`
}

// stateResult is the response payload for the pause/resume/clear controls.
type stateResult struct {
	State queue.State `json:"state"`
}

// handleEvent ingests one hook event: decode, validate, resolve priority and
// type, construct the message, offer it to the queue.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev types.HookEvent
	if err := DecodeJSON(w, r, &ev); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(&ev); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeEventInvalidValue,
			"event validation failed", err))
		return
	}

	priority, msgType, err := ev.Resolve()
	if err != nil {
		Error(w, r, err)
		return
	}

	opts := []types.MessageOption{
		types.WithProvenance(ev.ToolName, ev.HookType),
		types.WithMetadata(ev.Metadata),
	}
	if ev.CreatedAt != nil {
		opts = append(opts, types.WithCreatedAt(ev.CreatedAt.UTC()))
	}

	msg, err := types.NewMessage(ev.Message, priority, msgType, opts...)
	if err != nil {
		Error(w, r, err)
		return
	}

	if s.queue.Enqueue(msg) {
		JSON(w, r, http.StatusAccepted, APIResponse{Data: eventResult{
			Accepted: true,
			ID:       msg.ID,
			State:    s.queue.State(),
		}})
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: eventResult{
		Accepted: false,
		State:    s.queue.State(),
	}})
}

// handleStats returns a consistent snapshot of queue sizes and analytics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: s.queue.Stats()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.queue.Pause()
	s.logger.Info("queue paused")
	JSON(w, r, http.StatusOK, APIResponse{Data: stateResult{State: s.queue.State()}})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.queue.Resume()
	s.logger.Info("queue resumed")
	JSON(w, r, http.StatusOK, APIResponse{Data: stateResult{State: s.queue.State()}})
}

// handleClear resets the queue to its freshly constructed state: messages,
// dedup history, pending batches, and analytics all discarded.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.queue.ClearAll()
	s.logger.Info("queue cleared")
	JSON(w, r, http.StatusOK, APIResponse{Data: stateResult{State: s.queue.State()}})
}

// handleHealth reports liveness plus a queue size hint for quick diagnosis.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]any{
		"status": "ok",
		"state":  s.queue.State(),
		"size":   s.queue.Size(),
	}})
}
