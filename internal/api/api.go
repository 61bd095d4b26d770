// Package api provides the HTTP presentation boundary for WellnessPipe.
//
// It exposes the message endpoint, session snapshots, and a health probe.
// The API renders nothing: replies carry the display hint and structured
// state for the caller to present.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/router"
	"github.com/BTreeMap/WellnessPipe/internal/session"
)

// streamChunkSize is the fragment size for chunked reply streaming.
const streamChunkSize = 64

// MessageRequest is the body of POST /messages. UserID identifies the
// session and doubles as the reminder delivery address: deployments using
// the Twilio notifier must submit the user's E.164 phone number here.
type MessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// MessageResponse is the reply envelope for POST /messages.
type MessageResponse struct {
	Reply       string                `json:"reply"`
	DisplayHint models.DisplayHint    `json:"display_hint"`
	Category    models.Category       `json:"category"`
	Tier        models.ConfidenceTier `json:"confidence_tier"`
}

// ErrorResponse is the envelope for client and server errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server wires the routing core behind HTTP handlers.
type Server struct {
	router   *router.Router
	sessions *session.Manager
	mux      *http.ServeMux
}

// NewServer creates the API server over a router and session manager.
func NewServer(rt *router.Router, sessions *session.Manager) *Server {
	s := &Server{router: rt, sessions: sessions, mux: http.NewServeMux()}
	s.mux.HandleFunc("/messages", s.messagesHandler)
	s.mux.HandleFunc("/sessions/", s.sessionHandler)
	s.mux.HandleFunc("/healthz", s.healthHandler)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	slog.Info("API listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

// writeJSONResponse writes a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		jsonData = []byte(`{"error":"internal server error"}`)
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(jsonData); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// messagesHandler routes one utterance and returns the validated reply.
// With ?stream=1 the reply text is delivered as chunked plain text instead.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON format"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	if r.URL.Query().Get("stream") == "1" {
		s.streamMessage(w, r, req)
		return
	}

	var reply *models.Reply
	s.sessions.With(r.Context(), req.UserID, func(sc *models.SessionContext) {
		reply = s.router.Route(r.Context(), req.Text, sc)
	})
	writeJSONResponse(w, http.StatusOK, MessageResponse{
		Reply:       reply.Text,
		DisplayHint: reply.Hint,
		Category:    reply.Decision.MatchedCategory,
		Tier:        reply.Decision.Tier,
	})
}

// streamMessage routes the utterance and delivers the reply as chunked plain
// text. Generated replies stream fragment-by-fragment as they arrive from
// the engine; handler and specialist replies are chunked after the fact.
func (s *Server) streamMessage(w http.ResponseWriter, r *http.Request, req MessageRequest) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	streamed := false
	emit := func(fragment string) {
		if fragment == "" {
			return
		}
		if _, err := w.Write([]byte(fragment)); err != nil {
			slog.Warn("stream write failed", "error", err)
			return
		}
		streamed = true
		if flusher != nil {
			flusher.Flush()
		}
	}

	var reply *models.Reply
	s.sessions.With(r.Context(), req.UserID, func(sc *models.SessionContext) {
		reply = s.router.RouteStream(r.Context(), req.Text, sc, emit)
	})
	if !streamed {
		writeChunks(w, flusher, reply.Text)
	}
}

// writeChunks writes text in fixed-size fragments, flushing after each.
func writeChunks(w http.ResponseWriter, flusher http.Flusher, text string) {
	for len(text) > 0 {
		n := streamChunkSize
		if n > len(text) {
			n = len(text)
		}
		if _, err := w.Write([]byte(text[:n])); err != nil {
			slog.Warn("stream write failed", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		text = text[n:]
	}
}

// sessionHandler returns the session snapshot for GET /sessions/{id}.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if userID == "" || strings.Contains(userID, "/") {
		writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}
	sc := s.sessions.Peek(r.Context(), userID)
	if sc == nil {
		writeJSONResponse(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	writeJSONResponse(w, http.StatusOK, sc)
}

// healthHandler is the liveness probe.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
