package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/logicloom/pkg/domain"
)

// DoneSentinel terminates every chat stream, whatever happened before it.
const DoneSentinel = "[DONE]"

var errStreamingUnsupported = errors.New("streaming not supported")

type tokenEvent struct {
	Type    domain.EventType `json:"type"`
	Content string           `json:"content"`
}

type finalEvent struct {
	Type domain.EventType `json:"type"`
	domain.TurnResult
}

// sseWriter frames data-only Server-Sent Events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) data(payload string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) event(ev domain.Event) error {
	var v any
	switch ev.Type {
	case domain.EventFinal:
		v = finalEvent{Type: domain.EventFinal, TurnResult: *ev.Result}
	default:
		v = tokenEvent{Type: ev.Type, Content: ev.Content}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.data(string(b))
}

// chatStream handles POST /api/chat_stream.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() {
		if err := sse.data(DoneSentinel); err != nil {
			s.logger.Debug("stream terminator not delivered", "err", err)
		}
	}()

	err = s.engine.Stream(r.Context(), req, sse.event)
	if err != nil {
		s.logger.Error("chat stream failed", "conversation_id", req.ConversationID, "stage", req.Stage, "err", err)
	}
}
