package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/nodes"
	statex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
)

const maxBodyBytes = 64 << 10

type Sessions interface {
	Start(ctx context.Context) (*statex.Session, error)
	Get(id string) (*statex.Session, error)
	End(id string) error
	Len() int
}

type Conversation interface {
	Handle(ctx context.Context, sessionID string, text string) (nodex.GraphOutput, error)
	Ready() bool
}

type Config struct {
	Sessions     Sessions
	Conversation Conversation
	Tools        []tool.Schema
	Metrics      http.Handler
	Timeout      time.Duration
}

type Server struct {
	sessions     Sessions
	conversation Conversation
	tools        []tool.Schema
}

func NewHandler(cfg Config) http.Handler {
	s := &Server{
		sessions:     cfg.Sessions,
		conversation: cfg.Conversation,
		tools:        cfg.Tools,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Get("/tools", s.handleListTools)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleEndSession)
				r.Post("/tools/invoke", s.handleInvokeTool)
				r.Post("/messages", s.handleMessage)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"sessions":        s.sessions.Len(),
		"assistant_ready": s.conversation != nil && s.conversation.Ready(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"tools": s.tools})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Start(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start session", nil)
		log.Error().Err(err).Msg("start session")
		return
	}
	respondJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(chi.URLParam(r, "sessionId")); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInvokeTool calls one tool directly. Tool failures are reported in the
// result body with status 200; ?wait=true blocks until the customer records
// finish loading.
func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req contractx.ToolRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-sess.Customers.Done():
		case <-r.Context().Done():
			respondError(w, http.StatusGatewayTimeout, "customer records still loading", nil)
			return
		}
	}

	respondJSON(w, http.StatusOK, sess.Gateway.Invoke(r.Context(), req))
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	SessionID   string              `json:"session_id"`
	Reply       string              `json:"reply"`
	ToolResults []nodex.ToolOutcome `json:"tool_results,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if s.conversation == nil || !s.conversation.Ready() {
		respondError(w, http.StatusServiceUnavailable, "assistant is not configured", nil)
		return
	}

	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	out, err := s.conversation.Handle(r.Context(), chi.URLParam(r, "sessionId"), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, statex.ErrSessionNotFound), errors.Is(err, statex.ErrInvalidSession):
			respondSessionError(w, err)
		case errors.Is(err, nodex.ErrInvalidMessage), errors.Is(err, nodex.ErrInvalidSession):
			respondError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, nodex.ErrAssistantUnavailable):
			respondError(w, http.StatusServiceUnavailable, "assistant is not configured", nil)
		case errors.Is(err, contractx.ErrModelInvoke), errors.Is(err, contractx.ErrSchemaViolation), errors.Is(err, contractx.ErrToolLoop):
			log.Warn().Err(err).Msg("assistant turn failed")
			respondError(w, http.StatusBadGateway, "assistant could not complete the turn", nil)
		default:
			log.Error().Err(err).Msg("assistant turn failed")
			respondError(w, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		SessionID:   out.SessionID,
		Reply:       out.Reply,
		ToolResults: out.ToolResults,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*statex.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondSessionError(w, err)
		return nil, false
	}
	return sess, true
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, statex.ErrInvalidSession):
		respondError(w, http.StatusBadRequest, "session id is required", nil)
	case errors.Is(err, statex.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found", nil)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}
