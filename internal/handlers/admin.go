package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/services"
)

type AdminHandler struct {
  adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService) *AdminHandler {
  return &AdminHandler{adminService: adminService}
}

func (ah *AdminHandler) ListUsers(c *gin.Context) {
  users, err := ah.adminService.ListUsers(c.Request.Context())
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"users": users})
}

func (ah *AdminHandler) DeleteUser(c *gin.Context) {
  userID, pErr := uuid.Parse(c.Param("id"))
  if pErr != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
    return
  }
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd != nil && rd.UserID == userID {
    c.JSON(http.StatusBadRequest, gin.H{"error": "admins cannot delete their own account here"})
    return
  }
  if err := ah.adminService.DeleteUser(c.Request.Context(), userID); err != nil {
    status, msg := statusForError(err)
    if status == http.StatusNotFound {
      msg = "user not found"
    }
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (ah *AdminHandler) ListAnalyses(c *gin.Context) {
  limit, _ := strconv.Atoi(c.Query("limit"))
  analyses, err := ah.adminService.ListAnalyses(c.Request.Context(), limit)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

func (ah *AdminHandler) GetStats(c *gin.Context) {
  stats, err := ah.adminService.GetStats(c.Request.Context())
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"stats": stats})
}
