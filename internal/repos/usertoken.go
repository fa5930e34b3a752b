package repos

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type UserTokenRepo interface {
    Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error)
    GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error)
    GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error)
    GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error)
    FullDeleteByTokens(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) error
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type userTokenRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
    repoLog := baseLog.With("repo", "UserTokenRepo")
    return &userTokenRepo{db: db, log: repoLog}
}

func (utr *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    if len(tokens) == 0 {
        return []*types.UserToken{}, nil
    }
    for _, t := range tokens {
        if t.ID == uuid.Nil {
            t.ID = uuid.New()
        }
    }
    if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
        utr.log.Warn("Failed to create user tokens", "error", err)
        return nil, fmt.Errorf("Failed to create user tokens: %w", err)
    }
    return tokens, nil
}

func (utr *userTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    var results []*types.UserToken
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Find(&results).Error; err != nil {
        utr.log.Warn("Failed to fetch user tokens by user ids", "error", err)
        return nil, fmt.Errorf("Failed to fetch user tokens by user ids: %w", err)
    }
    return results, nil
}

func (utr *userTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    var results []*types.UserToken
    if err := transaction.WithContext(ctx).
        Where("access_token IN ?", accessTokens).
        Find(&results).Error; err != nil {
        utr.log.Warn("Failed to fetch user tokens by access tokens", "error", err)
        return nil, fmt.Errorf("Failed to fetch user tokens by access tokens: %w", err)
    }
    return results, nil
}

func (utr *userTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    var results []*types.UserToken
    if err := transaction.WithContext(ctx).
        Where("refresh_token IN ?", refreshTokens).
        Find(&results).Error; err != nil {
        utr.log.Warn("Failed to fetch user tokens by refresh tokens", "error", err)
        return nil, fmt.Errorf("Failed to fetch user tokens by refresh tokens: %w", err)
    }
    return results, nil
}

func (utr *userTokenRepo) FullDeleteByTokens(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) error {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    if len(tokens) == 0 {
        return nil
    }
    ids := make([]uuid.UUID, 0, len(tokens))
    for _, t := range tokens {
        ids = append(ids, t.ID)
    }
    if err := transaction.WithContext(ctx).
        Where("id IN ?", ids).
        Delete(&types.UserToken{}).Error; err != nil {
        utr.log.Warn("Failed to delete user tokens", "error", err)
        return fmt.Errorf("Failed to delete user tokens: %w", err)
    }
    return nil
}

func (utr *userTokenRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Delete(&types.UserToken{}).Error; err != nil {
        utr.log.Warn("Failed to delete user tokens by user ids", "error", err)
        return fmt.Errorf("Failed to delete user tokens by user ids: %w", err)
    }
    return nil
}
