package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "path/filepath"
  "strings"
  "time"

  "github.com/google/uuid"
  "github.com/ledongthuc/pdf"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/completion"
  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/normalization"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

const (
  // MaxResumeFileSize caps resume uploads at 5MB.
  MaxResumeFileSize = 5 * 1024 * 1024

  defaultJobRole = "Software Developer"

  resumeSystemPrompt = "You are an expert HR consultant providing detailed resume feedback."
)

var allowedResumeExts = map[string]bool{
  ".pdf":  true,
  ".txt":  true,
  ".doc":  true,
  ".docx": true,
}

type ResumeAnalysisResult struct {
  Analysis *types.ResumeAnalysis
  Feedback string
}

type ResumeService interface {
  AnalyzeResume(ctx context.Context, userID uuid.UUID, filename string, content []byte, jobRole string) (*ResumeAnalysisResult, error)
  ListAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ResumeAnalysis, error)
}

type resumeService struct {
  db            *gorm.DB
  log           *logger.Logger
  analysisRepo  repos.ResumeAnalysisRepo
  registry      *completion.Registry
  bucketService BucketService
}

func NewResumeService(
  db *gorm.DB,
  log *logger.Logger,
  analysisRepo repos.ResumeAnalysisRepo,
  registry *completion.Registry,
  bucketService BucketService,
) ResumeService {
  serviceLog := log.With("service", "ResumeService")
  return &resumeService{
    db:            db,
    log:           serviceLog,
    analysisRepo:  analysisRepo,
    registry:      registry,
    bucketService: bucketService,
  }
}

// AnalyzeResume extracts the resume text, asks the default chat model for a
// structured review, persists the analysis, and archives the original upload
// in the bucket.
func (rs *resumeService) AnalyzeResume(ctx context.Context, userID uuid.UUID, filename string, content []byte, jobRole string) (*ResumeAnalysisResult, error) {
  //1) Validate the upload
  if len(content) == 0 {
    return nil, apperrors.Invalidf("Please upload a resume file")
  }
  if len(content) > MaxResumeFileSize {
    return nil, apperrors.Invalidf("Resume file is larger than the 5MB limit")
  }
  ext := strings.ToLower(filepath.Ext(filename))
  if !allowedResumeExts[ext] {
    return nil, apperrors.Invalidf("Only PDF, TXT, DOC, and DOCX files are allowed")
  }
  jobRole = normalization.ParseInputString(jobRole)
  if jobRole == "" {
    jobRole = defaultJobRole
  }

  //2) Extract text
  resumeContent := rs.extractText(filename, content, ext)

  //3) Ask the model for feedback
  modelID := rs.registry.DefaultModel()
  _, provider, rErr := rs.registry.Resolve(modelID)
  if rErr != nil {
    rs.log.Warn("Failed to resolve model for resume analysis, Cannot proceed. Returning error.", "error", rErr)
    return nil, rErr
  }
  feedback, pErr := provider.Complete(ctx, completion.Request{
    Model:        modelID,
    SystemPrompt: resumeSystemPrompt,
    UserMessage:  buildResumePrompt(jobRole, resumeContent),
  })
  if pErr != nil {
    rs.log.Warn("Resume analysis provider call failed, Cannot proceed. Returning error.", "error", pErr)
    return nil, pErr
  }

  //4) Archive the original upload
  bucketKey := fmt.Sprintf("resume_uploads/%s/%d-%s", userID.String(), time.Now().UnixMilli(), filepath.Base(filename))
  if upErr := rs.bucketService.UploadFile(ctx, nil, bucketKey, bytes.NewReader(content)); upErr != nil {
    rs.log.Warn("Failed to archive resume upload, keeping analysis anyway", "error", upErr)
    bucketKey = ""
  }

  //5) Persist the analysis
  meta, _ := json.Marshal(map[string]interface{}{
    "model":     modelID,
    "extension": ext,
    "size":      len(content),
  })
  analysis := &types.ResumeAnalysis{
    UserID:    userID,
    Filename:  filepath.Base(filename),
    JobRole:   jobRole,
    Feedback:  feedback,
    BucketKey: bucketKey,
    Meta:      datatypes.JSON(meta),
  }
  created, cErr := rs.analysisRepo.Create(ctx, nil, []*types.ResumeAnalysis{analysis})
  if cErr != nil {
    rs.log.Warn("Failed to persist resume analysis, Cannot proceed. Returning error.", "error", cErr)
    return nil, fmt.Errorf("Failed to persist resume analysis: %w", cErr)
  }
  return &ResumeAnalysisResult{Analysis: created[0], Feedback: feedback}, nil
}

func (rs *resumeService) ListAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ResumeAnalysis, error) {
  if limit <= 0 || limit > 100 {
    limit = 50
  }
  analyses, lErr := rs.analysisRepo.ListByUser(ctx, nil, userID, limit)
  if lErr != nil {
    rs.log.Warn("Failed to list resume analyses, Cannot proceed. Returning error.", "error", lErr)
    return nil, fmt.Errorf("Failed to list resume analyses: %w", lErr)
  }
  return analyses, nil
}

// extractText never fails the analysis; formats we cannot read get a stand-in
// string so the model can still explain the limitation to the user.
func (rs *resumeService) extractText(filename string, content []byte, ext string) string {
  switch ext {
  case ".txt":
    return string(content)
  case ".pdf":
    text, err := extractPDFText(content)
    if err != nil {
      rs.log.Warn("PDF parsing failed, using stand-in content", "error", err, "filename", filename)
      return "Unable to parse PDF content. Please try uploading a TXT file."
    }
    return text
  default:
    return "File type not fully supported. Please upload a PDF or TXT file for best results."
  }
}

func extractPDFText(content []byte) (text string, err error) {
  // The pdf package panics on some malformed files; a corrupt upload must
  // land on the stand-in path, not take down the request.
  defer func() {
    if r := recover(); r != nil {
      text = ""
      err = fmt.Errorf("pdf parser panicked: %v", r)
    }
  }()
  reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
  if err != nil {
    return "", fmt.Errorf("failed to open PDF: %w", err)
  }
  var sb strings.Builder
  for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
    page := reader.Page(pageNum)
    if page.V.IsNull() {
      continue
    }
    text, tErr := page.GetPlainText(nil)
    if tErr != nil {
      continue
    }
    sb.WriteString(text)
    sb.WriteString("\n")
  }
  if strings.TrimSpace(sb.String()) == "" {
    return "", fmt.Errorf("no extractable text in PDF")
  }
  return sb.String(), nil
}

func buildResumePrompt(jobRole, resumeContent string) string {
  return fmt.Sprintf(`You are an expert HR consultant and career advisor. Analyze the following resume for a %s position.

Resume Content:
%s

Please provide a comprehensive review including:

1. **Overall Score**: Rate the resume out of 10

2. **Strengths**: List 3-5 strong points of this resume

3. **Areas for Improvement**: List 3-5 things that could be better

4. **Missing Elements**: What's missing that should be added?

5. **ATS Compatibility**: How well would this resume pass Applicant Tracking Systems?

6. **Specific Suggestions**: Provide actionable tips to improve this resume for a %s role

7. **Keywords to Add**: Suggest relevant keywords for this role

Be specific, constructive, and helpful in your feedback.`, jobRole, resumeContent, jobRole)
}
