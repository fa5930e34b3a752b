package handlers

import (
  "io"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/services"
)

type ResumeHandler struct {
  resumeService services.ResumeService
}

func NewResumeHandler(resumeService services.ResumeService) *ResumeHandler {
  return &ResumeHandler{resumeService: resumeService}
}

// Analyze accepts a multipart form with the resume under the "resume" field
// and an optional "jobRole" field.
func (rh *ResumeHandler) Analyze(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  fileHeader, fErr := c.FormFile("resume")
  if fErr != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a resume file"})
    return
  }
  if fileHeader.Size > services.MaxResumeFileSize {
    c.JSON(http.StatusBadRequest, gin.H{"error": "Resume file is larger than the 5MB limit"})
    return
  }
  file, oErr := fileHeader.Open()
  if oErr != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read the uploaded file"})
    return
  }
  defer file.Close()
  content, rErr := io.ReadAll(io.LimitReader(file, services.MaxResumeFileSize+1))
  if rErr != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read the uploaded file"})
    return
  }
  jobRole := c.PostForm("jobRole")

  result, err := rh.resumeService.AnalyzeResume(c.Request.Context(), rd.UserID, fileHeader.Filename, content, jobRole)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "success":     true,
    "feedback":    result.Feedback,
    "fileName":    result.Analysis.Filename,
    "analyzedFor": result.Analysis.JobRole,
  })
}

func (rh *ResumeHandler) ListMine(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  limit, _ := strconv.Atoi(c.Query("limit"))
  analyses, err := rh.resumeService.ListAnalyses(c.Request.Context(), rd.UserID, limit)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}
