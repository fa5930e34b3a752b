package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/amitai-labs/amitai-backend/internal/services"
)

type MeHandler struct {
  meService services.MeService
}

func NewMeHandler(meService services.MeService) *MeHandler {
  return &MeHandler{meService: meService}
}

func (mh *MeHandler) GetMe(c *gin.Context) {
  me, err := mh.meService.GetMe(c.Request.Context(), nil)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"me": me})
}

func (mh *MeHandler) UpdateMyName(c *gin.Context) {
  var req struct {
    Name string `json:"name"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  me, err := mh.meService.UpdateMyName(c.Request.Context(), req.Name)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"me": me})
}

func (mh *MeHandler) ChangeMyPassword(c *gin.Context) {
  var req struct {
    CurrentPassword string `json:"current_password"`
    NewPassword     string `json:"new_password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := mh.meService.ChangeMyPassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

func (mh *MeHandler) DeleteMyAccount(c *gin.Context) {
  var req struct {
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := mh.meService.DeleteMyAccount(c.Request.Context(), req.Password); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
