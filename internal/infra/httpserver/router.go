package httpserver

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/paperlens/internal/application/analysis"
	"github.com/bryanwahyu/paperlens/internal/config"
	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai"
	"github.com/bryanwahyu/paperlens/internal/infra/extract"
	"github.com/bryanwahyu/paperlens/internal/middleware"
	"github.com/bryanwahyu/paperlens/internal/settings"
)

type Router struct {
	svc       *appanalysis.Service
	cfg       *config.Config
	prefs     *settings.Settings
	relay     *relayClient
	extractor domain.TextExtractor
	checkers  map[string]middleware.HealthChecker
}

func NewRouter(svc *appanalysis.Service, cfg *config.Config, prefs *settings.Settings, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{
		svc:       svc,
		cfg:       cfg,
		prefs:     prefs,
		relay:     newRelayClient(cfg.Relay.AllowedOrigins, cfg.RequestTimeout()),
		extractor: extract.PlainText{},
		checkers:  checkers,
	}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	// auth first so the rate-limit key can include the resolved owner
	mux.Use(middleware.APIKeyAuth(cfg.Auth.Keys))
	mux.Use(middleware.RateLimitMiddleware(60, 1))

	mux.Get("/health", middleware.HealthHandler(r.checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/providers", r.wrap(r.handleProviders))
		rt.Get("/state", r.wrap(r.handleState))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/sessions", r.wrap(r.handleListSessions))
		rt.Post("/sessions", r.wrap(r.handleCreateSession))
		rt.Delete("/sessions", r.wrap(r.handleClearSessions))
		rt.Delete("/sessions/{id}", r.wrap(r.handleDeleteSession))
		rt.Post("/relay", r.wrap(r.handleRelay))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Transport
// failures and upstream refusals stay distinguishable for callers.
func writeError(w http.ResponseWriter, err error) {
	var (
		cfgErr   *domain.ConfigurationError
		authErr  *domain.AuthError
		authzErr *domain.AuthorizationError
		ncErr    *domain.NotConfiguredError
		netErr   *domain.NetworkError
		upErr    *domain.UpstreamError
		parseErr *domain.ParseError
		relayErr *relayError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &authzErr):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAnalysisBusy):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConfirmRequired):
		status = http.StatusBadRequest
	case errors.As(err, &ncErr):
		status = http.StatusPreconditionFailed
	case errors.As(err, &netErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &upErr):
		status = http.StatusBadGateway
	case errors.As(err, &parseErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &relayErr):
		status = relayErr.Status
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// GET /v1/providers
func (r *Router) handleProviders(w http.ResponseWriter, req *http.Request) error {
	resp := map[string]any{
		"providers":        ai.Providers(),
		"default_provider": r.prefs.Provider,
		"default_model":    r.prefs.Model,
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// GET /v1/state
func (r *Router) handleState(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{"state": r.svc.State()})
}

// POST /v1/analyze
// Body: {"document_name": ..., "document_text": ..., "provider": ..., ...}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		DocumentName   string   `json:"document_name"`
		DocumentText   string   `json:"document_text"`
		DocumentBase64 string   `json:"document_base64"`
		Provider       string   `json:"provider"`
		Model          string   `json:"model"`
		Temperature    *float32 `json:"temperature"`
		APIKey         string   `json:"api_key"`
		Endpoint       string   `json:"endpoint"`
		KeepRawText    bool     `json:"keep_raw_text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &domain.ConfigurationError{Reason: "invalid request body: " + err.Error()}
	}

	raw := []byte(body.DocumentText)
	if body.DocumentText == "" && body.DocumentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(body.DocumentBase64)
		if err != nil {
			return &domain.ConfigurationError{Reason: "document_base64 is not valid base64"}
		}
		raw = decoded
	}
	text, err := r.extractor.Extract(req.Context(), body.DocumentName, raw)
	if err != nil {
		return &domain.ConfigurationError{Reason: err.Error()}
	}

	provider := body.Provider
	if provider == "" {
		provider = r.prefs.Provider
	}
	model := body.Model
	if model == "" && provider == r.prefs.Provider {
		model = r.prefs.Model
	}
	temperature := r.prefs.Temperature
	if body.Temperature != nil {
		temperature = *body.Temperature
	}
	apiKey := body.APIKey
	if apiKey == "" {
		apiKey = r.cfg.Providers.Keys[provider]
	}
	if body.Endpoint != "" {
		if err := middleware.ValidateEndpointURL(body.Endpoint); err != nil {
			return &domain.ConfigurationError{Reason: err.Error()}
		}
	}

	cmd := appanalysis.AnalyzeCommand{
		OwnerID:      middleware.GetOwnerFromContext(req.Context()),
		DocumentName: middleware.SanitizeString(body.DocumentName),
		DocumentText: text,
		Temperature:  temperature,
		Provider:     provider,
		Model:        model,
		APIKey:       apiKey,
		Endpoint:     body.Endpoint,
		KeepRawText:  body.KeepRawText,
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	sess, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	// result fields flattened into the top-level object
	resp := struct {
		domain.Result
		ID            domain.SessionID `json:"id"`
		DocumentName  string           `json:"document_name"`
		CreatedAt     time.Time        `json:"created_at"`
		RawTextURL    string           `json:"raw_text_url,omitempty"`
		StoredLocally bool             `json:"stored_locally,omitempty"`
	}{
		Result:        sess.Result,
		ID:            sess.ID,
		DocumentName:  sess.DocumentName,
		CreatedAt:     sess.CreatedAt,
		RawTextURL:    sess.RawTextURL,
		StoredLocally: sess.StoredLocally,
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// GET /v1/sessions
func (r *Router) handleListSessions(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	list, err := r.svc.Sessions(req.Context(), owner)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// POST /v1/sessions
// Stores an externally produced session (import); the id is server-assigned.
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	var sess domain.Session
	if err := json.NewDecoder(req.Body).Decode(&sess); err != nil {
		return &domain.ConfigurationError{Reason: "invalid request body: " + err.Error()}
	}
	if sess.DocumentName == "" {
		return &domain.ConfigurationError{Reason: "document_name is required"}
	}

	owner := middleware.GetOwnerFromContext(req.Context())
	stored, err := r.svc.CreateSession(req.Context(), owner, &sess)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(stored)
}

// DELETE /v1/sessions/{id}
func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := r.svc.Delete(req.Context(), owner, domain.SessionID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/sessions?confirm_all=true
func (r *Router) handleClearSessions(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	confirm := req.URL.Query().Get("confirm_all") == "true"
	if err := r.svc.ClearAll(req.Context(), owner, confirm); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/relay
func (r *Router) handleRelay(w http.ResponseWriter, req *http.Request) error {
	var body relayRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &domain.ConfigurationError{Reason: "invalid request body: " + err.Error()}
	}
	status, payload, err := r.relay.Forward(req.Context(), body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
	return nil
}
