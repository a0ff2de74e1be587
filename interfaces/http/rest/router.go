package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/commands/bus"
	querybus "github.com/onokeee/mindmap/application/queries/bus"
	"github.com/onokeee/mindmap/interfaces/http/rest/handlers"
	"github.com/onokeee/mindmap/interfaces/http/rest/middleware"
	"github.com/onokeee/mindmap/pkg/auth"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
	"github.com/onokeee/mindmap/pkg/observability"
)

// RouterConfig switches optional parts of the HTTP surface
type RouterConfig struct {
	EnableCORS     bool
	EnableMetrics  bool
	AllowedOrigins []string
	SecureCookie   bool
	Debug          bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	users      *auth.UserDirectory
	tokens     *auth.JWTService
	collector  *observability.Collector
	config     RouterConfig
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	users *auth.UserDirectory,
	tokens *auth.JWTService,
	collector *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5000"}
	}
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		users:      users,
		tokens:     tokens,
		collector:  collector,
		config:     config,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.config.Debug)
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestIDHeader)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.config.EnableMetrics && rt.collector != nil {
		router.Handle("/metrics", rt.collector.Handler())
	}

	authHandler := handlers.NewAuthHandler(rt.users, rt.tokens, rt.config.SecureCookie, errorHandler, rt.logger)
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.tokens, errorHandler, rt.logger))

		r.Route("/mindmaps", func(r chi.Router) {
			mapHandler := handlers.NewMindMapHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
			r.Get("/", mapHandler.ListMindMaps)
			r.Post("/", mapHandler.SaveMindMap)
			r.Get("/{mapID}", mapHandler.GetMindMap)
			r.Delete("/{mapID}", mapHandler.DeleteMindMap)
		})

		r.Route("/sessions", func(r chi.Router) {
			sessionHandler := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
			r.Post("/", sessionHandler.OpenSession)
			r.Get("/{sessionID}", sessionHandler.GetSession)
			r.Delete("/{sessionID}", sessionHandler.CloseSession)
			r.Put("/{sessionID}/document", sessionHandler.RecordEdit)
			r.Post("/{sessionID}/undo", sessionHandler.Undo)
			r.Post("/{sessionID}/redo", sessionHandler.Redo)
			r.Post("/{sessionID}/save", sessionHandler.SaveSession)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
