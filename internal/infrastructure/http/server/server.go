// Package server provides AETIM's pure JSON API HTTP server: health/
// readiness/liveness probes plus the authenticated operator surface for
// feed, PIR, and ticket management.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/aetim/core/internal/application/audit"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/infrastructure/config"
	"github.com/aetim/core/internal/infrastructure/http/middleware"
	"github.com/aetim/core/internal/infrastructure/monitoring"
	"github.com/aetim/core/internal/infrastructure/security"
	"github.com/aetim/core/internal/ports/inbound"
	apperrors "github.com/aetim/core/pkg/errors"
	"github.com/aetim/core/pkg/healthcheck"
)

// Server is AETIM's operator-facing HTTP surface. It owns no business
// logic: every route decodes a request, calls an inbound port, and
// encodes the result.
type Server struct {
	config        *config.Config
	logger        *zap.Logger
	server        *http.Server
	router        *chi.Mux
	feedService   inbound.FeedService
	pirService    inbound.PIRService
	ticketService inbound.TicketService
	auth          *security.OIDCAuthenticator
	healthCheck   *healthcheck.HealthCheck
	access        *monitoring.RequestLogger
	metrics       *monitoring.MetricsCollector
}

// New builds the HTTP server and wires its routes.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	feedService inbound.FeedService,
	pirService inbound.PIRService,
	ticketService inbound.TicketService,
	auth *security.OIDCAuthenticator,
	healthCheck *healthcheck.HealthCheck,
	access *monitoring.RequestLogger,
	metrics *monitoring.MetricsCollector,
) *Server {
	s := &Server{
		config:        cfg,
		logger:        logger,
		feedService:   feedService,
		pirService:    pirService,
		ticketService: ticketService,
		auth:          auth,
		healthCheck:   healthCheck,
		access:        access,
		metrics:       metrics,
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.access))
	r.Use(s.metrics.HTTPMiddleware())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if s.config.RateLimit.Enable {
		r.Use(middleware.Throttle(s.config.RateLimit.RequestsPerMin, s.config.RateLimit.BurstSize))
	}
	r.Use(middleware.JSONOnly())
	r.Use(middleware.Performance())

	r.Get("/health", s.healthCheck.Handler())
	r.Get("/ready", s.healthCheck.ReadinessHandler())
	r.Get("/live", s.healthCheck.LivenessHandler())

	if s.config.Monitoring.EnableMetrics {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", s.setupAPIV1Routes)

	return r
}

// setupAPIV1Routes wires the authenticated operator surface. Every route
// here requires a valid bearer token; there is no public/protected split
// since every AETIM command is an operator action.
func (s *Server) setupAPIV1Routes(r chi.Router) {
	r.Use(middleware.Authenticate(s.auth))

	r.Route("/feeds", func(r chi.Router) {
		r.Get("/", s.listFeeds)
		r.Post("/", s.createFeed)
		r.Get("/{id}", s.getFeed)
		r.Put("/{id}", s.updateFeed)
		r.Post("/{id}/toggle", s.toggleFeed)
		r.Post("/{id}/run-now", s.runFeedNow)
	})

	r.Route("/pirs", func(r chi.Router) {
		r.Get("/", s.listPIRs)
		r.Post("/", s.createPIR)
		r.Put("/{id}", s.updatePIR)
		r.Post("/{id}/toggle", s.togglePIR)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", s.listTicketsByStatus)
		r.Get("/{id}", s.getTicket)
		r.Post("/{id}/transition", s.transitionTicket)
		r.Get("/{id}/export", s.exportTicket)
		r.Post("/export", s.exportTicketBatch)
	})
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying chi.Mux, primarily for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// --- shared helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as AETIM's taxonomy-tagged error response
// (pkg/errors). Handlers that already classified the failure pass an
// *apperrors.AppError and status is ignored in favor of its own
// StatusCode(); anything else is wrapped as the generic code implied by
// status so every error response carries the same shape.
func writeError(w http.ResponseWriter, status int, err error) {
	var appErr *apperrors.AppError
	switch {
	case stderrors.As(err, &appErr):
		// already classified
	case stderrors.Is(err, appaudit.ErrPermissionDenied):
		appErr = apperrors.NewAuthorisationFailure(err.Error())
	default:
		appErr = genericAppError(status, err)
	}
	writeJSON(w, appErr.StatusCode(), apperrors.ToErrorResponse(appErr, ""))
}

func genericAppError(status int, err error) *apperrors.AppError {
	switch status {
	case http.StatusNotFound:
		return apperrors.NewAppError(apperrors.CodeNotFound, "not found", err.Error())
	case http.StatusForbidden:
		return apperrors.NewAppError(apperrors.CodeAuthorisationFailure, "authorisation failure", err.Error())
	case http.StatusBadRequest:
		return apperrors.NewAppError(apperrors.CodeValidationFailure, "validation failure", err.Error())
	default:
		return apperrors.NewAppError(apperrors.CodeInternalInvariant, "internal error", err.Error())
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}

// --- feed DTOs and handlers ---

type feedDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Priority      string     `json:"priority"`
	Enabled       bool       `json:"enabled"`
	Cadence       string     `json:"cadence"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
	LastRunError  string     `json:"last_run_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toFeedDTO(f *feed.Feed) feedDTO {
	dto := feedDTO{
		ID:        f.ID().String(),
		Name:      f.Name(),
		Priority:  string(f.Priority()),
		Enabled:   f.Enabled(),
		Cadence:   string(f.Cadence()),
		LastRunAt: f.LastRunAt(),
		CreatedAt: f.CreatedAt(),
		UpdatedAt: f.UpdatedAt(),
	}
	if st := f.LastRunStatus(); st != nil {
		dto.LastRunStatus = string(*st)
	}
	dto.LastRunError = f.LastRunError()
	return dto
}

type createFeedRequest struct {
	Name           string        `json:"name"`
	Priority       feed.Priority `json:"priority"`
	Cadence        feed.Cadence  `json:"cadence"`
	CredentialBlob []byte        `json:"credential_blob,omitempty"`
}

func (s *Server) createFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	f, err := s.feedService.CreateFeed(r.Context(), inbound.CreateFeedCommand{
		Name:           req.Name,
		Priority:       req.Priority,
		Cadence:        req.Cadence,
		CredentialBlob: req.CredentialBlob,
		Principal:      principal,
		Origin:         middleware.OriginFromRequest(r),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeedDTO(f))
}

type updateFeedRequest struct {
	Name           *string        `json:"name,omitempty"`
	Priority       *feed.Priority `json:"priority,omitempty"`
	Cadence        *feed.Cadence  `json:"cadence,omitempty"`
	CredentialBlob []byte         `json:"credential_blob,omitempty"`
}

func (s *Server) updateFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req updateFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	f, err := s.feedService.UpdateFeed(r.Context(), inbound.UpdateFeedCommand{
		FeedID:         id,
		Name:           req.Name,
		Priority:       req.Priority,
		Cadence:        req.Cadence,
		CredentialBlob: req.CredentialBlob,
		Principal:      principal,
		Origin:         middleware.OriginFromRequest(r),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedDTO(f))
}

func (s *Server) toggleFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	f, err := s.feedService.ToggleFeed(r.Context(), id, principal, middleware.OriginFromRequest(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedDTO(f))
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := s.feedService.GetFeed(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedDTO(f))
}

func (s *Server) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.feedService.ListFeeds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]feedDTO, len(feeds))
	for i, f := range feeds {
		dtos[i] = toFeedDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) runFeedNow(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	if err := s.feedService.RunNow(r.Context(), id, principal, middleware.OriginFromRequest(r)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "collection triggered"})
}

// --- PIR DTOs and handlers ---

type pirDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	ConditionType  string `json:"condition_type"`
	ConditionValue string `json:"condition_value"`
	Enabled        bool   `json:"enabled"`
}

func toPIRDTO(p *pir.PIR) pirDTO {
	return pirDTO{
		ID:             p.ID().String(),
		Name:           p.Name(),
		Description:    p.Description(),
		Priority:       string(p.Priority()),
		ConditionType:  string(p.ConditionType()),
		ConditionValue: p.ConditionValue(),
		Enabled:        p.Enabled(),
	}
}

type createPIRRequest struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Priority       pir.Priority      `json:"priority"`
	ConditionType  pir.ConditionType `json:"condition_type"`
	ConditionValue string            `json:"condition_value"`
}

func (s *Server) createPIR(w http.ResponseWriter, r *http.Request) {
	var req createPIRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	p, err := s.pirService.CreatePIR(r.Context(), inbound.CreatePIRCommand{
		Name:           req.Name,
		Description:    req.Description,
		Priority:       req.Priority,
		ConditionType:  req.ConditionType,
		ConditionValue: req.ConditionValue,
		Principal:      principal,
		Origin:         middleware.OriginFromRequest(r),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPIRDTO(p))
}

type updatePIRRequest struct {
	Name           *string            `json:"name,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Priority       *pir.Priority      `json:"priority,omitempty"`
	ConditionType  *pir.ConditionType `json:"condition_type,omitempty"`
	ConditionValue *string            `json:"condition_value,omitempty"`
}

func (s *Server) updatePIR(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updatePIRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	p, err := s.pirService.UpdatePIR(r.Context(), inbound.UpdatePIRCommand{
		PIRID:          id,
		Name:           req.Name,
		Description:    req.Description,
		Priority:       req.Priority,
		ConditionType:  req.ConditionType,
		ConditionValue: req.ConditionValue,
		Principal:      principal,
		Origin:         middleware.OriginFromRequest(r),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toPIRDTO(p))
}

func (s *Server) togglePIR(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	p, err := s.pirService.TogglePIR(r.Context(), id, principal, middleware.OriginFromRequest(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toPIRDTO(p))
}

func (s *Server) listPIRs(w http.ResponseWriter, r *http.Request) {
	pirs, err := s.pirService.ListPIRs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]pirDTO, len(pirs))
	for i, p := range pirs {
		dtos[i] = toPIRDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// --- ticket DTOs and handlers ---

type ticketDTO struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Path        string            `json:"path"`
	Format      string            `json:"format"`
	GeneratedAt time.Time         `json:"generated_at"`
	AISummary   string            `json:"ai_summary,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Status      string            `json:"status,omitempty"`
	Priority    string            `json:"priority,omitempty"`
}

func toTicketDTO(rep *report.Report) ticketDTO {
	dto := ticketDTO{
		ID:          rep.ID().String(),
		Title:       rep.Title(),
		Path:        rep.Path(),
		Format:      string(rep.Format()),
		GeneratedAt: rep.GeneratedAt(),
		AISummary:   rep.AISummary(),
		Metadata:    rep.Metadata(),
	}
	if st := rep.TicketStatus(); st != nil {
		dto.Status = string(*st)
	}
	if p := rep.TicketPriority(); p != nil {
		dto.Priority = string(*p)
	}
	return dto
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, err := s.ticketService.GetTicket(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

func (s *Server) listTicketsByStatus(w http.ResponseWriter, r *http.Request) {
	status := report.TicketStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid or missing status query parameter"))
		return
	}
	tickets, err := s.ticketService.ListTicketsByStatus(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ticketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = toTicketDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

type transitionTicketRequest struct {
	NewStatus report.TicketStatus `json:"new_status"`
}

func (s *Server) transitionTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req transitionTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, _ := middleware.PrincipalFromContext(r.Context())
	t, err := s.ticketService.TransitionTicket(r.Context(), inbound.TransitionTicketCommand{
		TicketID:  id,
		NewStatus: req.NewStatus,
		Principal: principal,
		Origin:    middleware.OriginFromRequest(r),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

func (s *Server) exportTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := report.Format(r.URL.Query().Get("format"))
	if !format.Valid() {
		format = report.FormatJSON
	}
	data, err := s.ticketService.ExportTicket(r.Context(), id, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+extensionFor(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeFor(f report.Format) string {
	switch f {
	case report.FormatPDF:
		return "application/pdf"
	case report.FormatHTML:
		return "text/html"
	case report.FormatTXT:
		return "text/plain"
	default:
		return "application/json"
	}
}

type exportTicketBatchRequest struct {
	TicketIDs []uuid.UUID   `json:"ticket_ids"`
	Format    report.Format `json:"format"`
}

func (s *Server) exportTicketBatch(w http.ResponseWriter, r *http.Request) {
	var req exportTicketBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !req.Format.Valid() {
		req.Format = report.FormatJSON
	}
	batch, err := s.ticketService.ExportTicketBatch(r.Context(), req.TicketIDs, req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func extensionFor(f report.Format) string {
	switch f {
	case report.FormatPDF:
		return ".pdf"
	case report.FormatHTML:
		return ".html"
	case report.FormatTXT:
		return ".txt"
	default:
		return ".json"
	}
}
