package repos

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type OneTimeCodeRepo interface {
    Create(ctx context.Context, tx *gorm.DB, codes []*types.OneTimeCode) ([]*types.OneTimeCode, error)
    GetActiveByCode(ctx context.Context, tx *gorm.DB, code string) (*types.OneTimeCode, error)
    MarkUsed(ctx context.Context, tx *gorm.DB, codes []*types.OneTimeCode) error
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type oneTimeCodeRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewOneTimeCodeRepo(db *gorm.DB, baseLog *logger.Logger) OneTimeCodeRepo {
    repoLog := baseLog.With("repo", "OneTimeCodeRepo")
    return &oneTimeCodeRepo{db: db, log: repoLog}
}

func (ocr *oneTimeCodeRepo) Create(ctx context.Context, tx *gorm.DB, codes []*types.OneTimeCode) ([]*types.OneTimeCode, error) {
    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    if len(codes) == 0 {
        return []*types.OneTimeCode{}, nil
    }
    for _, c := range codes {
        if c.ID == uuid.Nil {
            c.ID = uuid.New()
        }
    }
    if err := transaction.WithContext(ctx).Create(&codes).Error; err != nil {
        ocr.log.Warn("Failed to create one time codes", "error", err)
        return nil, fmt.Errorf("Failed to create one time codes: %w", err)
    }
    return codes, nil
}

// GetActiveByCode returns nil (no error) when no unexpired, unused code
// matches.
func (ocr *oneTimeCodeRepo) GetActiveByCode(ctx context.Context, tx *gorm.DB, code string) (*types.OneTimeCode, error) {
    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    var found types.OneTimeCode
    err := transaction.WithContext(ctx).
        Where("code = ? AND used = ? AND expires_at > ?", code, false, time.Now()).
        First(&found).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, nil
        }
        ocr.log.Warn("Failed to fetch one time code", "error", err)
        return nil, fmt.Errorf("Failed to fetch one time code: %w", err)
    }
    return &found, nil
}

func (ocr *oneTimeCodeRepo) MarkUsed(ctx context.Context, tx *gorm.DB, codes []*types.OneTimeCode) error {
    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    if len(codes) == 0 {
        return nil
    }
    ids := make([]uuid.UUID, 0, len(codes))
    for _, c := range codes {
        ids = append(ids, c.ID)
    }
    if err := transaction.WithContext(ctx).
        Model(&types.OneTimeCode{}).
        Where("id IN ?", ids).
        Update("used", true).Error; err != nil {
        ocr.log.Warn("Failed to mark one time codes used", "error", err)
        return fmt.Errorf("Failed to mark one time codes used: %w", err)
    }
    return nil
}

func (ocr *oneTimeCodeRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Delete(&types.OneTimeCode{}).Error; err != nil {
        ocr.log.Warn("Failed to delete one time codes by user ids", "error", err)
        return fmt.Errorf("Failed to delete one time codes by user ids: %w", err)
    }
    return nil
}
