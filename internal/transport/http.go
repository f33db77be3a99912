package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/models"
)

const maxBodyBytes = 1 << 20

// HTTPServer exposes the chat services as a JSON API
type HTTPServer struct {
	server   *http.Server
	services *Services
	timeout  time.Duration
}

func NewHTTPServer(addr string, services *Services, timeout time.Duration) *HTTPServer {
	s := &HTTPServer{
		services: services,
		timeout:  timeout,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("GET /api/characters", s.handleCharacters)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/conversations/{characterId}", s.handleHistory)
	mux.HandleFunc("DELETE /api/conversations/{characterId}", s.handleClear)
	mux.HandleFunc("POST /api/conversations/{characterId}/messages", s.handleSend)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logRequests(mux)
}

// Start serves until Shutdown is called
func (s *HTTPServer) Start() error {
	log.Printf("🌐 HTTP server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if !s.decode(w, r, chatRequestSchema, &request) {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	response, err := s.services.Chat.ProcessChat(ctx, &request)
	s.respond(w, response, err)
}

func (s *HTTPServer) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var request models.SummarizeRequest
	if !s.decode(w, r, summarizeRequestSchema, &request) {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	response, err := s.services.Summarize.ProcessSummarize(ctx, &request)
	s.respond(w, response, err)
}

func (s *HTTPServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var request models.SendRequest
	if !s.decode(w, r, messageBodySchema, &request) {
		return
	}
	request.CharacterID = r.PathValue("characterId")

	ctx, cancel := s.requestContext(r)
	defer cancel()

	response, err := s.services.send(ctx, &request)
	s.respond(w, response, err)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	response, err := s.services.history(r.Context(), r.PathValue("characterId"))
	s.respond(w, response, err)
}

func (s *HTTPServer) handleClear(w http.ResponseWriter, r *http.Request) {
	response, err := s.services.clear(r.Context(), r.PathValue("characterId"))
	s.respond(w, response, err)
}

func (s *HTTPServer) handleConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services.conversations(r.Context()))
}

func (s *HTTPServer) handleCharacters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		DefaultLanguage string                  `json:"defaultLanguage"`
		Characters      []*characters.Character `json:"characters"`
	}{
		DefaultLanguage: s.services.Catalogue.DefaultLanguage(),
		Characters:      s.services.Catalogue.List(),
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads and validates a request body, writing a 400 on failure
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, v any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, invalidRequest("Request body too large or unreadable"))
		return false
	}
	if err := decodeRequest(schema, data, v); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (s *HTTPServer) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *HTTPServer) respond(w http.ResponseWriter, response any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func writeError(w http.ResponseWriter, err error) {
	errResp := asErrorResponse(err)
	status := errResp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errResp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
