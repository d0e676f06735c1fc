package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/audit"
	auditPostgres "github.com/frahmantamala/credential-vault/internal/audit/postgres"
	"github.com/frahmantamala/credential-vault/internal/auth"
	authPostgres "github.com/frahmantamala/credential-vault/internal/auth/postgres"
	"github.com/frahmantamala/credential-vault/internal/catalog"
	catalogPostgres "github.com/frahmantamala/credential-vault/internal/catalog/postgres"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/credential"
	credentialPostgres "github.com/frahmantamala/credential-vault/internal/credential/postgres"
	"github.com/frahmantamala/credential-vault/internal/request"
	requestPostgres "github.com/frahmantamala/credential-vault/internal/request/postgres"
	"github.com/frahmantamala/credential-vault/internal/share"
	sharePostgres "github.com/frahmantamala/credential-vault/internal/share/postgres"
	"github.com/frahmantamala/credential-vault/internal/transport/rest"
	"github.com/frahmantamala/credential-vault/internal/user"
	userPostgres "github.com/frahmantamala/credential-vault/internal/user/postgres"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/frahmantamala/credential-vault/pkg/secretcrypt"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger

	AuthHandler       *auth.Handler
	UserHandler       *user.Handler
	CatalogHandler    *catalog.Handler
	ShareHandler      *share.Handler
	RequestHandler    *request.Handler
	CredentialHandler *credential.Handler
	AuditHandler      *audit.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.AuthHandler,
		deps.UserHandler,
		deps.CatalogHandler,
		deps.ShareHandler,
		deps.RequestHandler,
		deps.CredentialHandler,
		deps.AuditHandler,
		deps.Config.Server.AllowedOrigins,
		deps.Logger,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Logging.Level, config.Logging.Format)
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	box, err := secretcrypt.New(config.Vault.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret box: %w", err)
	}

	eventBus := events.NewEventBus(appLogger)

	// repositories
	authRepo := authPostgres.NewAuthRepository(gdb)
	userRepo := userPostgres.NewUserRepository(gdb)
	catalogRepo := catalogPostgres.NewCatalogRepository(gdb)
	shareRepo := sharePostgres.NewShareRepository(gdb)
	requestRepo := requestPostgres.NewRequestRepository(gdb)
	credentialRepo := credentialPostgres.NewCredentialRepository(gdb)
	auditRepo := auditPostgres.NewAuditRepository(gdb)

	// services
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, eventBus, appLogger)
	shareService := share.NewService(shareRepo, userRepo, eventBus, appLogger)
	userService := user.NewService(userRepo, shareService, eventBus, config.Security.BCryptCost, appLogger)
	catalogService := catalog.NewService(catalogRepo, userRepo, shareService, eventBus, appLogger)
	requestService := request.NewService(requestRepo, userRepo, catalogService, eventBus, appLogger)
	credentialService := credential.NewService(
		credentialRepo, box, userRepo, catalogService, shareService, requestService,
		eventBus, config.Vault.RevealDuration, appLogger,
	)
	auditService := audit.NewService(auditRepo, appLogger)
	auditService.RegisterSubscriber(eventBus)

	return &Dependencies{
		Config: config,
		DB:     db,
		Router: chi.NewRouter(),
		Logger: appLogger,

		AuthHandler:       auth.NewHandler(authService),
		UserHandler:       user.NewHandler(userService),
		CatalogHandler:    catalog.NewHandler(catalogService),
		ShareHandler:      share.NewHandler(shareService),
		RequestHandler:    request.NewHandler(requestService),
		CredentialHandler: credential.NewHandler(credentialService),
		AuditHandler:      audit.NewHandler(auditService),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already-open pgx connection so both
// repositories and the health check share one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
}
