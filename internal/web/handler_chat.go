package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vbonduro/restaurantqr/internal/advisor"
	"github.com/vbonduro/restaurantqr/internal/domain"
)

type chatData struct {
	Messages []domain.ChatMessage
	Busy     bool
}

func (s *Server) renderChatLog(w http.ResponseWriter, c *advisor.Controller) {
	data := chatData{Messages: c.Messages(), Busy: c.Busy()}
	if err := s.renderPartial(w, "partials/chat_log.html", data); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleChatLog(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chatScreen(w)
	if !ok {
		return
	}
	s.renderChatLog(w, c)
}

func (s *Server) handleChatSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chatScreen(w)
	if !ok {
		return
	}

	_, err := c.Submit(r.FormValue("message"))
	switch {
	case err == nil, errors.Is(err, advisor.ErrEmptyInput):
		s.renderChatLog(w, c)
	case errors.Is(err, advisor.ErrBusy):
		http.Error(w, "a reply is still streaming", http.StatusConflict)
	default:
		http.Error(w, "advisor unavailable", http.StatusConflict)
		s.logger.Warn("chat submit rejected", "error", err)
	}
}

// handleChatStream streams the in-flight reply as SSE. Each event carries a
// JSON object {"id":"...","text":"..."} with the full text so far. The stream
// ends with a "done" event. Events have a single reader: a second concurrent
// stream splits the snapshots with the first.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chatScreen(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// A reply can outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	if events := c.Events(); events != nil {
		if !s.writeChatEvents(w, r, rc, events) {
			return
		}
	}

	if _, err := w.Write([]byte("event: done\ndata: {}\n\n")); err != nil {
		s.logger.Error("write done event failed", "error", err)
	}
	_ = rc.Flush()
}

// writeChatEvents copies events to w until the turn ends. It reports false if
// the client went away.
func (s *Server) writeChatEvents(w http.ResponseWriter, r *http.Request, rc *http.ResponseController, events <-chan advisor.Event) bool {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return true
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return false
			}
			if err := enc.Encode(map[string]string{"id": ev.MessageID, "text": ev.Text}); err != nil {
				return false
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return false
			}
			_ = rc.Flush()
			if ev.Done {
				return true
			}
		}
	}
}
