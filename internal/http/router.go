package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kurufix/api/internal/asset"
	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/config"
	httpmiddleware "github.com/kurufix/api/internal/http/middleware"
	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/report"
	"github.com/kurufix/api/internal/service"
	"github.com/kurufix/api/internal/storage"
)

// directory é a fatia do repositório compartilhado que os handlers
// consultam diretamente (listagens administrativas e enriquecimento do
// solicitante em chamados).
type directory interface {
	ListUsers(ctx context.Context) ([]repo.UserWithRole, error)
	ListRoles(ctx context.Context) ([]repo.Role, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
}

// Handler agrega as dependências compartilhadas pelas rotas.
type Handler struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	redis    *redis.Client
	repo     directory
	sessions *service.SessionService
	accounts *service.AccountService
	rbac     *service.RBACService
	assets   *asset.Service
	reports  *report.Service
	google   *auth.GoogleProvider

	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter monta os serviços e devolve o roteador configurado.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, error) {
	queries := repo.New(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	sessions := service.NewSessionService(queries, redisClient, jwtManager,
		cfg.AllowedDomain, cfg.RoleRefreshWindow, cfg.JWTRefreshTTL,
		service.RefreshPolicyFromString(cfg.RoleRefreshPolicy))
	accounts := service.NewAccountService(queries)
	rbac := service.NewRBACService(queries)

	assetRepo := asset.NewRepository(pool)
	assets := asset.NewService(assetRepo, rbac)

	var uploader storage.Uploader = storage.NoopUploader{}
	switch cfg.Storage.Provider {
	case "", "noop":
		// anexos desabilitados
	case "s3", "r2", "minio":
		s3, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			PublicDomain: cfg.Storage.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		uploader = s3
	default:
		return nil, fmt.Errorf("storage: provedor %s não suportado", cfg.Storage.Provider)
	}

	reportRepo := report.NewRepository(pool)
	reports := report.NewService(reportRepo, uploader)

	var google *auth.GoogleProvider
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" && cfg.Google.RedirectURL != "" {
		google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		repo:          queries,
		sessions:      sessions,
		accounts:      accounts,
		rbac:          rbac,
		assets:        assets,
		reports:       reports,
		google:        google,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	authMiddleware := httpmiddleware.Auth(jwtManager, sessions, cfg.JWTAccessTTL)
	optionalAuth := httpmiddleware.OptionalAuth(jwtManager, sessions, cfg.JWTAccessTTL)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Register)
			ar.Post("/login", h.Login)
			ar.Get("/google", h.GoogleLogin)
			ar.Get("/google/callback", h.GoogleCallback)
			ar.Post("/refresh", h.Refresh)
			ar.Post("/logout", h.Logout)
		})

		// Aberto de propósito: qualquer pessoa pode reportar um
		// equipamento quebrado. Sessão válida, quando presente, vincula
		// o relato à conta sem jamais barrar quem não tem uma.
		public.With(optionalAuth).Post("/reports", h.CreateReport)
		public.Get("/assets/meta", h.AssetMeta)
	})

	r.Group(func(private chi.Router) {
		private.Use(authMiddleware)
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Patch("/me", h.UpdateMe)
		private.Get("/assets", h.ListAssets)
		private.Get("/assets/{id}", h.GetAsset)

		private.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.RequireStaff)

			staff.Get("/reports", h.ListReports)
			staff.Get("/reports/{id}", h.GetReport)
			staff.Get("/reports/{id}/activity", h.ListReportActivity)
			staff.Post("/reports/{id}/status", h.UpdateReportStatus)
			staff.Post("/reports/{id}/image", h.UploadReportImage)
		})

		private.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireAdmin)

			admin.Post("/assets", h.CreateAsset)
			admin.Patch("/assets/{id}", h.UpdateAsset)
			admin.Delete("/assets/{id}", h.DeleteAsset)

			admin.Route("/types", func(t chi.Router) {
				t.Get("/", h.ListAssetTypes)
				t.Post("/", h.CreateAssetType)
				t.Patch("/{id}", h.UpdateAssetType)
				t.Delete("/{id}", h.DeleteAssetType)
			})
			admin.Route("/locations", func(l chi.Router) {
				l.Get("/", h.ListLocations)
				l.Post("/", h.CreateLocation)
				l.Patch("/{id}", h.UpdateLocation)
				l.Delete("/{id}", h.DeleteLocation)
			})

			admin.Get("/users", h.ListUsers)
			admin.Get("/roles", h.ListRoles)
			admin.Post("/roles/assign", h.AssignRole)
			admin.Delete("/roles/assign", h.RemoveRole)
		})
	})

	return r, nil
}

// Health responde liveness simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready verifica as dependências externas (Postgres e Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "banco indisponível", nil)
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "redis indisponível", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
