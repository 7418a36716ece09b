package delivery

import (
	"net/http"
	"strings"
	"time"

	authdomain "marketplace-backend/internal/auth/domain"
	authdto "marketplace-backend/internal/auth/dto"
	"marketplace-backend/internal/auth/usecase"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUsecase   usecase.AuthUsecase
	secureCookies bool
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authUsecase:   authUsecase,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) RegisterForm(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":  "Register",
		"fields": []string{"username", "email", "password", "confirm_password"},
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	var req authdto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists. Please choose another one."})
		case errors.Is(err, authdomain.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered. Please use another one."})
		case errors.Is(err, authdomain.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "An account with that username or email already exists."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "There was an error creating your account. Please try again."})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Your account has been created! You can now log in.",
		"user":     user,
		"redirect": "/login",
	})
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":  "Login",
		"fields": []string{"email", "password", "remember"},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	var req authdto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authUsecase.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Login failed. Please check your email and password."})
		case errors.Is(err, authdomain.ErrLoginUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error logging in. Please try again later."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging in. Please try again later."})
		}
		return
	}

	h.setSessionCookie(c, resp.AccessToken, time.Until(resp.ExpiresAt))

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful!",
		"access_token": resp.AccessToken,
		"expires_at":   resp.ExpiresAt,
		"user":         resp.User,
		"redirect":     safeNext(c.Query("next")),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"message":  "You have been logged out.",
		"redirect": "/",
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, maxAge, "/", "", h.secureCookies, true)
}

// safeNext only allows local redirect targets
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
