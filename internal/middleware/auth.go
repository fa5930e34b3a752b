package middleware

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/services"
)

type AuthMiddleware struct {
  log         *logger.Logger
  authService services.AuthService
  adminEmails map[string]bool
}

// NewAuthMiddleware takes the comma separated ADMIN_EMAILS allow-list; the
// comparison is case-insensitive.
func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, adminEmails string) *AuthMiddleware {
  middlewareLogger := log.With("Middleware", "AuthMiddleware")
  allowed := make(map[string]bool)
  for _, email := range strings.Split(adminEmails, ",") {
    email = strings.ToLower(strings.TrimSpace(email))
    if email != "" {
      allowed[email] = true
    }
  }
  return &AuthMiddleware{log: middlewareLogger, authService: authService, adminEmails: allowed}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
      return
    }
    c.Request = c.Request.WithContext(ctx)
    rd := requestdata.GetRequestData(ctx)
    if rd == nil || rd.UserID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden - invalid user id"})
      return
    }
    c.Next()
  }
}

// RequireAdmin assumes RequireAuth already ran earlier in the chain and only
// checks the verified identity against the allow-list. It must never invoke
// another middleware itself; a nested Next() would run the protected handler
// before this check.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
  return func(c *gin.Context) {
    rd := requestdata.GetRequestData(c.Request.Context())
    if rd == nil || !am.adminEmails[strings.ToLower(rd.Email)] {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
      return
    }
    c.Next()
  }
}

func extractToken(c *gin.Context) string {
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  return ""
}
