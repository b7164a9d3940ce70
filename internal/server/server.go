package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sidukcapil/apiserver/config"
	"github.com/sidukcapil/apiserver/internal/db"
	"github.com/sidukcapil/apiserver/internal/handlers"
	"github.com/sidukcapil/apiserver/internal/mq"
	"github.com/sidukcapil/apiserver/internal/revocation"
	"github.com/sidukcapil/apiserver/internal/services"
	"github.com/sidukcapil/apiserver/internal/storage"
	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

// Server wraps the HTTP server and its long-lived connections.
type Server struct {
	httpServer  *http.Server
	router      *chi.Mux
	db          *sql.DB
	mq          *mq.MQ
	revocations *revocation.RedisStore
}

// New constructs a Server with all repositories, services, and routes wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobStore, err := newStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	broker, err := newMQ(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	revocations := revocation.NewRedisStore(cfg.Redis)

	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		_ = dbConn.Close()
		_ = broker.Close()
		return nil, errors.New("JWT_SECRET is required")
	}
	tokenTTL := time.Duration(cfg.JWT.TTLHours) * time.Hour

	userRepo := store.NewUserRepository(dbConn)
	populationRepo := store.NewPopulationRepository(dbConn)
	documentRepo := store.NewDocumentRepository(dbConn)
	applicationRepo := store.NewApplicationRepository(dbConn)
	auditRepo := store.NewAuditLogRepository(dbConn)
	dashboardRepo := store.NewDashboardRepository(dbConn)

	auditService := services.NewAuditService(auditRepo)
	notifier := services.NewNotifier(broker)
	userService := services.NewUserService(userRepo, auditService)
	populationService := services.NewPopulationService(populationRepo, documentRepo, applicationRepo, auditService)
	documentService := services.NewDocumentService(documentRepo, blobStore, populationRepo, auditService)
	applicationService := services.NewApplicationService(applicationRepo, populationRepo, auditService, notifier)
	dashboardService := services.NewDashboardService(dashboardRepo)

	authHandler := handlers.NewAuthHandler(userService, revocations, jwtSecret, tokenTTL)
	populationHandler := handlers.NewPopulationHandler(populationService)
	documentHandler := handlers.NewDocumentHandler(documentService, userService)
	applicationHandler := handlers.NewApplicationHandler(applicationService, userService)
	auditHandler := handlers.NewAuditHandler(auditService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	staffOnly := authHandler.RequireRole(types.RoleSuperAdmin, types.RoleAdmin, types.RolePetugas)
	adminOnly := authHandler.RequireRole(types.RoleSuperAdmin, types.RoleAdmin)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		requestMeta,
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/population", func(r chi.Router) {
		r.Use(authHandler.RequireAuth, staffOnly)
		handlers.PopulationRouter(r, populationHandler)
	})
	router.Route("/documents", func(r chi.Router) {
		r.Use(authHandler.RequireAuth, staffOnly)
		handlers.DocumentRouter(r, documentHandler)
	})
	router.Route("/applications", func(r chi.Router) {
		r.Use(authHandler.RequireAuth)
		handlers.ApplicationRouter(r, applicationHandler, staffOnly)
	})
	router.Route("/audit", func(r chi.Router) {
		r.Use(authHandler.RequireAuth, adminOnly)
		handlers.AuditRouter(r, auditHandler)
	})
	router.Route("/dashboard", func(r chi.Router) {
		r.Use(authHandler.RequireAuth, staffOnly)
		handlers.DashboardRouter(r, dashboardHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		db:          dbConn,
		mq:          broker,
		revocations: revocations,
	}, nil
}

// requestMeta attaches the client address and user agent to the request
// context so audit entries can carry them.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestMeta(r.Context(), r.RemoteAddr, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.StorageBackend {
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs: %w", err)
		}
		return storage.NewStorage(client), nil
	case "minio", "":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio: %w", err)
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newMQ(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQBackend {
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		return mq.New(client), nil
	case "rabbitmq", "":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQBackend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.revocations != nil {
		_ = s.revocations.Close()
	}
	return s.httpServer.Close()
}
