package api

import (
	"context"
	"net/http"
	"time"

	authusecase "marketplace-backend/internal/auth/usecase"
	searchusecase "marketplace-backend/internal/search/usecase"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/logger"
	"marketplace-backend/pkg/metrics"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds graceful shutdown of in-flight requests
const ShutdownTimeout = 10 * time.Second

type Handler struct {
	authUsecase   authusecase.AuthUsecase
	searchUsecase searchusecase.SearchUsecase
	config        *config.Config
}

func NewHandler(authUc authusecase.AuthUsecase, searchUc searchusecase.SearchUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:   authUc,
		searchUsecase: searchUc,
		config:        cfg,
	}
}

// Engine builds the gin engine with middleware and routes
func (h *Handler) Engine() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())
	r.Use(metrics.Middleware())

	r.Use(corsMiddleware(h.config.AllowedOrigins))

	SetupRoutes(r, h.authUsecase, h.searchUsecase, h.config)
	return r
}

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout.
func (h *Handler) Start(ctx context.Context, addr string) error {
	log := logger.GetLogger("http")

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	log.Info("Server stopped")
	return nil
}
