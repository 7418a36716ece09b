package delivery

import (
	"net/http"
	"strings"

	authdomain "marketplace-backend/internal/auth/domain"
	"marketplace-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the signed session token
const SessionCookie = "session"

const userKey = "user"

// SessionMiddleware resolves the caller from the session cookie or a Bearer
// header. Anonymous requests pass through untouched.
func SessionMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := authUsecase.ValidateToken(c.Request.Context(), token)
		if err == nil && user != nil {
			SetCurrentUser(c, user)
		}
		c.Next()
	}
}

// AuthMiddleware rejects requests without an authenticated user. It must run
// after SessionMiddleware.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":    "Please log in to access this page.",
				"redirect": "/login?next=" + c.Request.URL.Path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetCurrentUser marks user as the caller of this request
func SetCurrentUser(c *gin.Context, user *authdomain.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the authenticated user or nil
func CurrentUser(c *gin.Context) *authdomain.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*authdomain.User)
	return user
}

func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
