package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenantctx/pkg/httputil"
	"github.com/platinummonkey/tenantctx/pkg/observability"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

// Server represents our API server
type Server struct {
	manager *tenant.Manager
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer creates a new API server around the context manager.
func NewServer(manager *tenant.Manager, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		manager: manager,
		router:  mux.NewRouter(),
		logger:  logger.WithField("component", "api"),
	}
	s.setupRoutes()

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
	)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/v1/context/establish", s.establishContext).Methods("POST")
	s.router.HandleFunc("/v1/context/resume", s.resumeContext).Methods("POST")
	s.router.HandleFunc("/v1/context", s.getContext).Methods("GET")
	s.router.HandleFunc("/v1/context/branch", s.switchBranch).Methods("POST")
	s.router.HandleFunc("/v1/context/company", s.switchCompany).Methods("POST")
	s.router.HandleFunc("/v1/context/clear", s.clearContext).Methods("POST")

	s.router.HandleFunc("/v1/menu", s.getMenu).Methods("GET")
	s.router.HandleFunc("/v1/permissions/check", s.checkPermission).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
