package services

import (
  "context"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "github.com/redis/go-redis/v9"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

const (
  adminStatsCacheKey = "amitai:admin:stats"
  adminStatsCacheTTL = 60 * time.Second

  adminListDefaultLimit = 50
  adminListMaxLimit     = 100
)

// AdminStats is the aggregate snapshot served on the admin dashboard.
type AdminStats struct {
  TotalUsers          int64     `json:"totalUsers"`
  TotalConversations  int64     `json:"totalConversations"`
  TotalMessages       int64     `json:"totalMessages"`
  TotalResumeAnalyses int64     `json:"totalResumeAnalyses"`
  GeneratedAt         time.Time `json:"generatedAt"`
}

type AdminService interface {
  ListUsers(ctx context.Context) ([]*types.User, error)
  DeleteUser(ctx context.Context, userID uuid.UUID) error
  ListAnalyses(ctx context.Context, limit int) ([]*types.ResumeAnalysis, error)
  GetStats(ctx context.Context) (*AdminStats, error)
}

type adminService struct {
  db              *gorm.DB
  log             *logger.Logger
  userRepo        repos.UserRepo
  userTokenRepo   repos.UserTokenRepo
  oneTimeCodeRepo repos.OneTimeCodeRepo
  convRepo        repos.ConversationRepo
  chatMessageRepo repos.ChatMessageRepo
  analysisRepo    repos.ResumeAnalysisRepo
  redisClient     *redis.Client
}

// NewAdminService takes an optional redis client; with a nil client the
// stats snapshot is recomputed on every request.
func NewAdminService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  oneTimeCodeRepo repos.OneTimeCodeRepo,
  convRepo repos.ConversationRepo,
  chatMessageRepo repos.ChatMessageRepo,
  analysisRepo repos.ResumeAnalysisRepo,
  redisClient *redis.Client,
) AdminService {
  serviceLog := log.With("service", "AdminService")
  return &adminService{
    db:              db,
    log:             serviceLog,
    userRepo:        userRepo,
    userTokenRepo:   userTokenRepo,
    oneTimeCodeRepo: oneTimeCodeRepo,
    convRepo:        convRepo,
    chatMessageRepo: chatMessageRepo,
    analysisRepo:    analysisRepo,
    redisClient:     redisClient,
  }
}

func (ads *adminService) ListUsers(ctx context.Context) ([]*types.User, error) {
  users, uErr := ads.userRepo.GetAll(ctx, nil)
  if uErr != nil {
    ads.log.Warn("Failed to list users, Cannot proceed. Returning error.", "error", uErr)
    return nil, fmt.Errorf("Failed to list users: %w", uErr)
  }
  return users, nil
}

// DeleteUser mirrors the self-serve account deletion, minus the password
// check: dependent rows go first, each table explicitly, in one transaction.
func (ads *adminService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
  return ads.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, fErr := ads.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
    if fErr != nil {
      ads.log.Warn("Failed to fetch user for deletion, Cannot proceed. Returning error.", "error", fErr)
      return fmt.Errorf("Failed to fetch user for deletion: %w", fErr)
    }
    if len(found) == 0 {
      return apperrors.ErrNotFound
    }
    userIDs := []uuid.UUID{userID}
    if mErr := ads.chatMessageRepo.FullDeleteByUserIDs(ctx, tx, userIDs); mErr != nil {
      ads.log.Warn("Failed to delete user chat messages, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to delete user chat messages: %w", mErr)
    }
    if cErr := ads.convRepo.FullDeleteByUserIDs(ctx, tx, userIDs); cErr != nil {
      ads.log.Warn("Failed to delete user conversations, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("Failed to delete user conversations: %w", cErr)
    }
    if aErr := ads.analysisRepo.FullDeleteByUserIDs(ctx, tx, userIDs); aErr != nil {
      ads.log.Warn("Failed to delete user resume analyses, Cannot proceed. Returning error.", "error", aErr)
      return fmt.Errorf("Failed to delete user resume analyses: %w", aErr)
    }
    if oErr := ads.oneTimeCodeRepo.FullDeleteByUserIDs(ctx, tx, userIDs); oErr != nil {
      ads.log.Warn("Failed to delete user reset codes, Cannot proceed. Returning error.", "error", oErr)
      return fmt.Errorf("Failed to delete user reset codes: %w", oErr)
    }
    if tErr := ads.userTokenRepo.FullDeleteByUserIDs(ctx, tx, userIDs); tErr != nil {
      ads.log.Warn("Failed to delete user sessions, Cannot proceed. Returning error.", "error", tErr)
      return fmt.Errorf("Failed to delete user sessions: %w", tErr)
    }
    if uErr := ads.userRepo.FullDeleteByIDs(ctx, tx, userIDs); uErr != nil {
      ads.log.Warn("Failed to delete user, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to delete user: %w", uErr)
    }
    return nil
  })
}

func (ads *adminService) ListAnalyses(ctx context.Context, limit int) ([]*types.ResumeAnalysis, error) {
  if limit <= 0 {
    limit = adminListDefaultLimit
  }
  if limit > adminListMaxLimit {
    limit = adminListMaxLimit
  }
  analyses, aErr := ads.analysisRepo.ListAll(ctx, nil, limit)
  if aErr != nil {
    ads.log.Warn("Failed to list resume analyses, Cannot proceed. Returning error.", "error", aErr)
    return nil, fmt.Errorf("Failed to list resume analyses: %w", aErr)
  }
  return analyses, nil
}

func (ads *adminService) GetStats(ctx context.Context) (*AdminStats, error) {
  if ads.redisClient != nil {
    cached, cErr := ads.redisClient.Get(ctx, adminStatsCacheKey).Result()
    if cErr == nil {
      var stats AdminStats
      if uErr := json.Unmarshal([]byte(cached), &stats); uErr == nil {
        return &stats, nil
      }
      ads.log.Warn("Cached admin stats failed to decode, recomputing", "error", cErr)
    } else if cErr != redis.Nil {
      ads.log.Warn("Redis read for admin stats failed, recomputing", "error", cErr)
    }
  }

  stats := &AdminStats{GeneratedAt: time.Now()}
  var err error
  if stats.TotalUsers, err = ads.userRepo.CountAll(ctx, nil); err != nil {
    ads.log.Warn("Failed to count users, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("Failed to count users: %w", err)
  }
  if stats.TotalConversations, err = ads.convRepo.CountAll(ctx, nil); err != nil {
    ads.log.Warn("Failed to count conversations, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("Failed to count conversations: %w", err)
  }
  if stats.TotalMessages, err = ads.chatMessageRepo.CountAll(ctx, nil); err != nil {
    ads.log.Warn("Failed to count chat messages, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("Failed to count chat messages: %w", err)
  }
  if stats.TotalResumeAnalyses, err = ads.analysisRepo.CountAll(ctx, nil); err != nil {
    ads.log.Warn("Failed to count resume analyses, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("Failed to count resume analyses: %w", err)
  }

  if ads.redisClient != nil {
    payload, mErr := json.Marshal(stats)
    if mErr == nil {
      if sErr := ads.redisClient.Set(ctx, adminStatsCacheKey, payload, adminStatsCacheTTL).Err(); sErr != nil {
        ads.log.Warn("Redis write for admin stats failed", "error", sErr)
      }
    }
  }
  return stats, nil
}
