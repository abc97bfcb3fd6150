package httpx

import (
	"log/slog"
	"net/http"

	"github.com/johnrichard23/connectedin/internal/observability/metrics"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Churches ChurchService
	Logger   *slog.Logger
	// RateLimiter is optional; when nil requests are not limited.
	RateLimiter *RateLimiter
	// Metrics is optional; a nil recorder drops request metrics.
	Metrics *metrics.Recorder
	// HealthChecks back /readyz, keyed by dependency name. Empty means always ready.
	HealthChecks map[string]HealthCheck
}

// NewRouter creates the API handler with CORS, logging and panic recovery applied.
func NewRouter(services RouterServices) http.Handler {
	if services.Churches == nil {
		panic("NewRouter: Churches service is required") //nolint:forbidigo // Fail fast during server setup.
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	churches := &ChurchHandlers{Svc: services.Churches, Logger: logger.With("component", "church_handlers")}
	registerCRUD(mux, crudRoutes{
		Base:    "/churches",
		Create:  churches.Create,
		List:    churches.List,
		GetByID: churches.GetByID,
		Update:  churches.Update,
	})
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	ready := newReadinessHandler(services.HealthChecks, defaultReadyTimeout)
	mux.Handle("GET /readyz", ready)
	mux.Handle("HEAD /readyz", ready)

	var measure func(http.Handler) http.Handler
	if services.Metrics != nil {
		measure = Metrics(services.Metrics)
	}

	var limit func(http.Handler) http.Handler
	if services.RateLimiter != nil {
		limit = services.RateLimiter.Middleware()
	}

	// Recover sits inside Logging so a recovered panic is still logged as a 500.
	return chain(mux,
		CORS(),
		measure,
		Logging(logger),
		Recover(logger),
		limit,
	)
}

// crudRoutes lists the handlers registered for a resource base path.
type crudRoutes struct {
	Base    string
	Create  http.HandlerFunc
	List    http.HandlerFunc
	GetByID http.HandlerFunc
	Update  http.HandlerFunc
}

// registerCRUD registers the create, list, read and update routes for a resource.
func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	mux.Handle("POST "+cfg.Base, cfg.Create)
	mux.Handle("GET "+cfg.Base, cfg.List)
	mux.Handle("GET "+cfg.Base+"/{id}", cfg.GetByID)
	mux.Handle("PUT "+cfg.Base+"/{id}", cfg.Update)
}
