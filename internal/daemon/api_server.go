package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobdraft/internal/api"
	"jobdraft/internal/classify"
	"jobdraft/internal/drafts"
	"jobdraft/internal/extract"
	"jobdraft/internal/logging"
	"jobdraft/internal/orchestrator"
	"jobdraft/internal/services"
)

const maxRequestBytes = 1 << 20

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	draftSvc *api.DraftService
	router   chi.Router

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(bind),
		logger:   logger,
		daemon:   d,
		draftSvc: api.NewDraftService(d.store),
	}
	srv.router = srv.routes()
	return srv
}

func (s *apiServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Post("/classify", s.handleClassify)
		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", s.handleListDrafts)
			r.Post("/", s.handleSubmit)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDraft)
				r.Delete("/", s.handleDeleteDraft)
				r.Get("/document", s.handleDocument)
				r.Post("/retry", s.handleRetry)
				r.Post("/cancel", s.handleCancel)
				r.Get("/watch", s.handleWatch)
			})
		})
	})
	return r
}

// requestContext copies the chi request id into the services context so log
// lines carry it as the correlation id.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type classifyRequest struct {
	Text            string `json:"text"`
	IncludeOptional bool   `json:"includeOptional"`
}

func (s *apiServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	classifier := s.daemon.Orchestrator().Classifier()
	cls := classifier.Classify(req.Text)
	advice := classifier.Advise(cls, classify.AdviseOptions{IncludeOptional: req.IncludeOptional})
	s.writeJSON(w, http.StatusOK, api.FromAdvice(cls, advice))
}

type submitRequest struct {
	Text            string            `json:"text"`
	OwnerID         string            `json:"ownerId"`
	ConversationID  string            `json:"conversationId"`
	AskFollowUps    bool              `json:"askFollowUps"`
	IncludeOptional bool              `json:"includeOptional"`
	Answers         map[string]string `json:"answers"`
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	out, err := s.daemon.Submit(r.Context(), orchestrator.Submission{
		OwnerID:         req.OwnerID,
		ConversationID:  req.ConversationID,
		Text:            req.Text,
		AskFollowUps:    req.AskFollowUps,
		IncludeOptional: req.IncludeOptional,
		Answers:         req.Answers,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	status := http.StatusAccepted
	if out.NeedsInput() {
		status = http.StatusOK
	}
	s.writeJSON(w, status, api.FromOutcome(out))
}

func (s *apiServer) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := drafts.ListFilter{
		OwnerID:        strings.TrimSpace(query.Get("owner")),
		ConversationID: strings.TrimSpace(query.Get("conversation")),
	}
	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := drafts.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	items, err := s.draftSvc.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DraftListResponse{Drafts: items})
}

func (s *apiServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := s.draftSvc.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DraftResponse{Draft: *view})
}

func (s *apiServer) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	draft, doc, err := s.daemon.Orchestrator().Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	switch normalizeFormat(r.URL.Query().Get("format")) {
	case "", "json":
		view := api.FromDocument(draft.ID, doc)
		view.Markdown = extract.Markdown(*doc)
		s.writeJSON(w, http.StatusOK, view)
	case "markdown", "md":
		s.writeText(w, "text/markdown; charset=utf-8", extract.Markdown(*doc))
	case "html":
		rendered, err := extract.HTML(*doc)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.writeText(w, "text/html; charset=utf-8", rendered)
	default:
		s.writeError(w, http.StatusBadRequest, "format must be json, markdown, or html")
	}
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	draft, err := s.daemon.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.DraftResponse{Draft: api.FromDraft(draft)})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.daemon.store.Get(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.daemon.Cancel(id)})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := drafts.EventFilter{
		Kind:    strings.TrimSpace(query.Get("kind")),
		DraftID: strings.TrimSpace(query.Get("draft")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	events, err := s.draftSvc.Events(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: events})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, drafts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, drafts.ErrInvalidTransition),
		errors.Is(err, drafts.ErrDraftInFlight),
		errors.Is(err, services.ErrNotFound):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		s.log().Error("failed to write response", logging.Error(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
