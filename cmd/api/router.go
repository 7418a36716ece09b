package api

import (
	"net/http"

	authdelivery "marketplace-backend/internal/auth/delivery"
	authusecase "marketplace-backend/internal/auth/usecase"
	searchdelivery "marketplace-backend/internal/search/delivery"
	searchusecase "marketplace-backend/internal/search/usecase"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authusecase.AuthUsecase, searchUsecase searchusecase.SearchUsecase, cfg *config.Config) {
	authHandler := authdelivery.NewAuthHandler(authUsecase, cfg.IsProduction())
	searchHandler := searchdelivery.NewSearchHandler(searchUsecase)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	r.Use(authdelivery.SessionMiddleware(authUsecase))

	// Search
	r.GET("/", searchHandler.Search)
	r.POST("/", searchHandler.Search)

	// Auth
	r.GET("/register", authHandler.RegisterForm)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.LoginForm)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Static pages
	for _, name := range []string{"about", "contact", "privacy", "terms", "faq"} {
		r.GET("/"+name, staticPage(name))
	}

	// Protected routes
	protected := r.Group("/")
	protected.Use(authdelivery.AuthMiddleware())
	{
		protected.GET("/account", searchHandler.Account)
		protected.GET("/admin/clear-cache", searchHandler.ClearCache)
	}
}
