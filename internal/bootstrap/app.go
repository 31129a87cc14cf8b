package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/analyses"
	googleauth "verisight-backend/internal/auth"
	"verisight-backend/internal/chat"
	"verisight-backend/internal/llm"
	"verisight-backend/internal/llm/gemini"
	"verisight-backend/internal/llm/openai"
	"verisight-backend/internal/services/health"
	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/config"
	"verisight-backend/internal/shared/server"
	"verisight-backend/internal/shared/server/middleware"
	"verisight-backend/internal/shared/storage/db"
	"verisight-backend/internal/shared/storage/object"
	localstore "verisight-backend/internal/shared/storage/object/local"
	miniostore "verisight-backend/internal/shared/storage/object/minio"
	s3store "verisight-backend/internal/shared/storage/object/s3"
	"verisight-backend/internal/shared/telemetry"
	"verisight-backend/internal/users"
)

const uploadBurst = 3

// App holds shared dependencies and the router built from them.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	// Store is nil in inline mode.
	Store  object.Store
	LLM    llm.Client
	Signer *auth.Signer

	AnalysesRepo    analyses.Repo
	UsersRepo       users.Repo
	AnalysesService *analyses.Service
	UsersService    *users.Service
	ChatService     *chat.Service

	AnalysisHandler *analyses.Handler
	UsersHandler    *users.Handler
	ChatHandler     *chat.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service

	closers []func() error
}

// Options lets callers replace external dependencies, mainly in tests.
type Options struct {
	// LLM overrides the provider selected by configuration.
	LLM llm.Client
	// SkipMigrations disables running migrations after connecting.
	SkipMigrations bool
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	app.Signer = signer

	sqlDB, err := buildDB(ctx, cfg, opts.SkipMigrations)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	client := opts.LLM
	if client == nil {
		client, err = app.buildLLM(ctx)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.LLM = client

	app.buildServices()
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Signer:          app.Signer,
		Sessions:        app.UsersService,
		AnalysisHandler: app.AnalysisHandler,
		UserHandler:     app.UsersHandler,
		ChatHandler:     app.ChatHandler,
		GoogleAuth:      app.GoogleAuth,
		Health:          app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":           cfg.Env,
		"database":      app.DB != nil,
		"content_store": cfg.ContentStore,
		"llm_provider":  cfg.LLMProvider,
		"llm_model":     cfg.LLMModel,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, skipMigrations bool) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, db.ErrNoDatabaseURL
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil && !skipMigrations {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
		}
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ContentStore {
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("CONTENT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, nil
	}
}

func (a *App) buildLLM(ctx context.Context) (llm.Client, error) {
	cfg := a.Config
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "gemini":
		var gc *gemini.Client
		gc, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		if err == nil {
			a.closers = append(a.closers, gc.Close)
			client = gc
		}
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, "", cfg.LLMTimeout)
	default:
		return llm.PlaceholderClient{}, nil
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider, "error": err.Error()})
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return client, nil
}

func (a *App) buildServices() {
	if a.DB != nil {
		a.AnalysesRepo = &analyses.PGRepo{DB: a.DB}
		a.UsersRepo = &users.PGRepo{DB: a.DB}
		a.Health = health.NewService(a.DB)
	} else {
		a.AnalysesRepo = analyses.NewMemoryRepo()
		a.UsersRepo = users.NewMemoryRepo()
		a.Health = health.NewService(nil)
	}

	a.AnalysesService = &analyses.Service{
		Repo:       a.AnalysesRepo,
		LLM:        a.LLM,
		Store:      a.Store,
		MaxRetries: a.Config.LLMMaxRetries,
	}
	a.UsersService = users.NewService(a.UsersRepo, a.Signer, a.Config.AdminUserIDs)
	a.ChatService = &chat.Service{History: a.AnalysesService}

	a.AnalysisHandler = analyses.NewHandler(a.AnalysesService)
	if a.Config.MaxUploadBytes > 0 {
		a.AnalysisHandler.MaxUploadBytes = a.Config.MaxUploadBytes
	}
	a.AnalysisHandler.StrictForbidden = a.Config.StrictForbidden
	if n := a.Config.RateLimitUploadPerMin; n > 0 {
		limiter := middleware.NewRateLimiter(time.Now)
		a.AnalysisHandler.UploadLimit = middleware.RateLimit("upload", middleware.PerMinute(n, uploadBurst), limiter)
	}

	a.UsersHandler = users.NewHandler(a.UsersService)
	a.UsersHandler.SecureCookie = !config.IsDevLike(a.Config.Env)
	a.ChatHandler = chat.NewHandler(a.ChatService)
	a.GoogleAuth = googleauth.NewGoogleService(
		a.Config.GoogleClientID,
		a.Config.GoogleClientSecret,
		a.Config.GoogleRedirectURL,
		a.Config.UIRedirectURL,
		a.UsersService,
	)
}
