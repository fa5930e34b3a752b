package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/amitai-labs/amitai-backend/internal/services"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

type AuthHandler struct {
  authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
  return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user := types.User{
    Name:     req.Name,
    Email:    req.Email,
    Password: req.Password,
  }
  if err := ah.authService.RegisterUser(c.Request.Context(), &user); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ah *AuthHandler) Login(c *gin.Context) {
  var req struct {
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  accessToken, refreshToken, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    status, msg := statusForAuthError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  accessTTL := ah.authService.GetAccessTTL()
  expiresIn := int(accessTTL.Seconds())

  c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken, "expires_in": expiresIn})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
  accessToken, refreshToken, err := ah.authService.Refresh(c.Request.Context())
  if err != nil {
    status, msg := statusForAuthError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  accessTTL := ah.authService.GetAccessTTL()
  expiresIn := int(accessTTL.Seconds())

  c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken, "expires_in": expiresIn})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
  if err := ah.authService.Logout(c.Request.Context()); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// ForgotPassword answers the same way whether or not the email has an
// account.
func (ah *AuthHandler) ForgotPassword(c *gin.Context) {
  var req struct {
    Email string `json:"email"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := ah.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "If that email has an account, a reset link is on its way"})
}

func (ah *AuthHandler) ResetPassword(c *gin.Context) {
  var req struct {
    Token    string `json:"token"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := ah.authService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}
