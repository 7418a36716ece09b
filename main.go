package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "marketplace-backend/cmd/api"
	authdomain "marketplace-backend/internal/auth/domain"
	authrepo "marketplace-backend/internal/auth/repository"
	authusecase "marketplace-backend/internal/auth/usecase"
	cachedomain "marketplace-backend/internal/cache/domain"
	cacherepo "marketplace-backend/internal/cache/repository"
	"marketplace-backend/internal/cache/scheduler"
	cacheusecase "marketplace-backend/internal/cache/usecase"
	searchdomain "marketplace-backend/internal/search/domain"
	searchrepo "marketplace-backend/internal/search/repository"
	searchusecase "marketplace-backend/internal/search/usecase"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/database"
	"marketplace-backend/pkg/firestore"
	"marketplace-backend/pkg/logger"
	"marketplace-backend/pkg/productsearch"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var models = []interface{}{
	&authdomain.User{},
	&searchdomain.SearchHistory{},
	&cachedomain.CachedSearch{},
}

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "Unified Marketplace search backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)
		return database.Migrate(db, models...)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Remove expired cache entries once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		stores := openSecondaryStores(cmd.Context(), cfg)
		defer stores.close()

		cache := cacheusecase.NewCacheUsecase(cacherepo.NewGormBackend(db), stores.cacheBackend, cfg.CacheTTL)
		removed, err := cache.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired cache entries\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, purgeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, initializes logging and opens the database
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, errors.Wrap(err, "init logger")
	}

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// secondaryStores holds whatever CACHE_SECONDARY selected. Every field may be nil.
type secondaryStores struct {
	cacheBackend  cacherepo.Backend
	userMirror    authrepo.UserMirror
	historyMirror searchrepo.HistoryMirror
	closers       []func() error
}

func (s *secondaryStores) close() {
	for _, c := range s.closers {
		_ = c()
	}
}

func openSecondaryStores(ctx context.Context, cfg *config.Config) *secondaryStores {
	log := logger.GetLogger("main")
	stores := &secondaryStores{}

	switch cfg.CacheSecondary {
	case config.SecondaryFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
		if err != nil {
			log.Warnw("Failed to initialize Firestore, secondary store disabled", "error", err)
			return stores
		}
		stores.cacheBackend = cacherepo.NewFirestoreBackend(client)
		stores.userMirror = authrepo.NewFirestoreUserMirror(client)
		stores.historyMirror = searchrepo.NewFirestoreHistoryMirror(client)
		stores.closers = append(stores.closers, client.Close)
		log.Info("Firestore secondary store initialized")

	case config.SecondaryRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warnw("Failed to initialize Redis, secondary cache disabled", "error", err)
			return stores
		}
		stores.cacheBackend = cacherepo.NewRedisBackend(client, cacherepo.DefaultRedisPrefix)
		stores.closers = append(stores.closers, client.Close)
		log.Info("Redis secondary cache initialized")

	case config.SecondaryNone:
		log.Info("No secondary store configured")

	default:
		log.Warnw("Unknown CACHE_SECONDARY value, secondary store disabled", "value", cfg.CacheSecondary)
	}

	return stores
}

func runServe(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)
	log := logger.GetLogger("main")

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	// A failed migration leaves the server running with limited functionality
	if err := database.Migrate(db, models...); err != nil {
		log.Warn("Application will continue, but database functionality may be limited")
	}

	stores := openSecondaryStores(ctx, cfg)
	defer stores.close()

	if cfg.RapidAPIKey == "" {
		log.Warn("RAPIDAPI_KEY not set, product searches will return no results")
	}

	// Initialize repositories (dependency injection)
	userRepo := authrepo.NewUserRepository(db)
	historyRepo := searchrepo.NewHistoryRepository(db)

	searcher := productsearch.NewClient(productsearch.Config{
		BaseURL:    cfg.SearchAPIURL,
		APIKey:     cfg.RapidAPIKey,
		Host:       cfg.RapidAPIHost,
		Timeout:    cfg.SearchTimeout,
		MaxRetries: cfg.SearchMaxRetries,
	})

	// Initialize use cases (dependency injection)
	cache := cacheusecase.NewCacheUsecase(cacherepo.NewGormBackend(db), stores.cacheBackend, cfg.CacheTTL)
	authUc := authusecase.NewAuthUsecase(userRepo, stores.userMirror, cfg)
	searchUc := searchusecase.NewSearchUsecase(searcher, cache, historyRepo, stores.historyMirror, cfg.HistoryLimit)

	if cfg.IsProduction() {
		reaper := scheduler.NewReaper(cache, cfg.ReaperInterval)
		reaper.Start(ctx)
		defer reaper.Stop()
	} else {
		log.Info("Development mode, background cache cleaning disabled")
	}

	handler := api.NewHandler(authUc, searchUc, cfg)
	return handler.Start(ctx, ":"+cfg.Port)
}
