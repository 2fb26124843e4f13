package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/signaling"
)

const keepAliveInterval = 25 * time.Second

type signalRequest struct {
	Type    string          `json:"type" validate:"required,oneof=join-room signal send-message share-screen"`
	Payload json.RawMessage `json:"payload"`
}

// handleSignal publishes one event into the session's room. The payload is
// relayed verbatim.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	session, ok := s.loadSessionForParty(w, r)
	if !ok {
		return
	}
	var req signalRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	ev := signaling.Event{
		ID:      uuid.NewString(),
		Type:    req.Type,
		Room:    session.ID,
		From:    claims.UserID,
		Payload: req.Payload,
		SentAt:  s.clock(),
	}
	if err := s.relay.Publish(r.Context(), ev); err != nil {
		log.Printf("publish %s to room %s: %v", ev.Type, ev.Room, err)
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	s.metrics.SignalPublished()
	writeJSON(w, http.StatusAccepted, ev)
}

// handleEvents streams the session room as server-sent events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSessionForParty(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	events, cancel, err := s.relay.Subscribe(r.Context(), session.ID)
	if err != nil {
		log.Printf("subscribe room %s: %v", session.ID, err)
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("encode event %s: %v", ev.ID, err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
			flusher.Flush()
		}
	}
}
