package repos

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type ResumeAnalysisRepo interface {
    Create(ctx context.Context, tx *gorm.DB, analyses []*types.ResumeAnalysis) ([]*types.ResumeAnalysis, error)
    ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ResumeAnalysis, error)
    ListAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ResumeAnalysis, error)
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
    CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type resumeAnalysisRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewResumeAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) ResumeAnalysisRepo {
    repoLog := baseLog.With("repo", "ResumeAnalysisRepo")
    return &resumeAnalysisRepo{db: db, log: repoLog}
}

func (rar *resumeAnalysisRepo) Create(ctx context.Context, tx *gorm.DB, analyses []*types.ResumeAnalysis) ([]*types.ResumeAnalysis, error) {
    transaction := tx
    if transaction == nil {
        transaction = rar.db
    }
    if len(analyses) == 0 {
        return analyses, nil
    }
    if err := transaction.WithContext(ctx).Create(&analyses).Error; err != nil {
        rar.log.Warn("Failed to create resume analyses", "error", err)
        return nil, fmt.Errorf("Failed to create resume analyses: %w", err)
    }
    return analyses, nil
}

func (rar *resumeAnalysisRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ResumeAnalysis, error) {
    transaction := tx
    if transaction == nil {
        transaction = rar.db
    }
    var results []*types.ResumeAnalysis
    if err := transaction.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at DESC").
        Limit(limit).
        Find(&results).Error; err != nil {
        rar.log.Warn("Failed to list resume analyses by user", "error", err)
        return nil, fmt.Errorf("Failed to list resume analyses by user: %w", err)
    }
    return results, nil
}

func (rar *resumeAnalysisRepo) ListAll(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ResumeAnalysis, error) {
    transaction := tx
    if transaction == nil {
        transaction = rar.db
    }
    var results []*types.ResumeAnalysis
    if err := transaction.WithContext(ctx).
        Order("created_at DESC").
        Limit(limit).
        Find(&results).Error; err != nil {
        rar.log.Warn("Failed to list all resume analyses", "error", err)
        return nil, fmt.Errorf("Failed to list all resume analyses: %w", err)
    }
    return results, nil
}

func (rar *resumeAnalysisRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = rar.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Delete(&types.ResumeAnalysis{}).Error; err != nil {
        rar.log.Warn("Failed to delete resume analyses by user ids", "error", err)
        return fmt.Errorf("Failed to delete resume analyses by user ids: %w", err)
    }
    return nil
}

func (rar *resumeAnalysisRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = rar.db
    }
    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.ResumeAnalysis{}).
        Count(&count).Error; err != nil {
        rar.log.Warn("Failed to count resume analyses", "error", err)
        return 0, fmt.Errorf("Failed to count resume analyses: %w", err)
    }
    return count, nil
}
