package repos

import (
    "context"
    "fmt"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type ConversationRepo interface {
    Create(ctx context.Context, tx *gorm.DB, convs []*types.Conversation) ([]*types.Conversation, error)

    // GetByIDForUser resolves a conversation only when it is owned by the
    // given user; a miss for either reason surfaces as
    // gorm.ErrRecordNotFound.
    GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, convID uuid.UUID) (*types.Conversation, error)

    // ListByUser returns up to limit conversations for the user in
    // updated_at DESC order. When createdBefore is non-nil only
    // conversations created strictly before it are considered.
    ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, createdBefore *time.Time, limit int) ([]*types.Conversation, error)

    Save(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error)

    FullDeleteByIDs(ctx context.Context, tx *gorm.DB, convIDs []uuid.UUID) error
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
    GetIDsByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]uuid.UUID, error)
    CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type conversationRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
    repoLog := baseLog.With("repo", "ConversationRepo")
    return &conversationRepo{db: db, log: repoLog}
}

func (cr *conversationRepo) Create(ctx context.Context, tx *gorm.DB, convs []*types.Conversation) ([]*types.Conversation, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    if len(convs) == 0 {
        return []*types.Conversation{}, nil
    }
    for _, c := range convs {
        if c.ID == uuid.Nil {
            c.ID = uuid.New()
        }
    }
    if err := transaction.WithContext(ctx).Create(&convs).Error; err != nil {
        cr.log.Warn("Failed to create conversations", "error", err)
        return nil, fmt.Errorf("Failed to create conversations: %w", err)
    }
    return convs, nil
}

func (cr *conversationRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, convID uuid.UUID) (*types.Conversation, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    var conv types.Conversation
    if err := transaction.WithContext(ctx).
        Where("id = ? AND user_id = ?", convID, userID).
        First(&conv).Error; err != nil {
        return nil, err
    }
    return &conv, nil
}

func (cr *conversationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, createdBefore *time.Time, limit int) ([]*types.Conversation, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    q := transaction.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("updated_at DESC").
        Limit(limit)
    if createdBefore != nil {
        q = q.Where("created_at < ?", *createdBefore)
    }
    var results []*types.Conversation
    if err := q.Find(&results).Error; err != nil {
        cr.log.Warn("Failed to list conversations for user", "error", err)
        return nil, fmt.Errorf("Failed to list conversations for user: %w", err)
    }
    return results, nil
}

func (cr *conversationRepo) Save(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    if err := transaction.WithContext(ctx).Save(conv).Error; err != nil {
        cr.log.Warn("Failed to save conversation", "conversationID", conv.ID, "error", err)
        return nil, fmt.Errorf("Failed to save conversation: %w", err)
    }
    return conv, nil
}

func (cr *conversationRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, convIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    if len(convIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("id IN ?", convIDs).
        Delete(&types.Conversation{}).Error; err != nil {
        cr.log.Warn("Failed to delete conversations by ids", "error", err)
        return fmt.Errorf("Failed to delete conversations by ids: %w", err)
    }
    return nil
}

func (cr *conversationRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Delete(&types.Conversation{}).Error; err != nil {
        cr.log.Warn("Failed to delete conversations by user ids", "error", err)
        return fmt.Errorf("Failed to delete conversations by user ids: %w", err)
    }
    return nil
}

func (cr *conversationRepo) GetIDsByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]uuid.UUID, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    var ids []uuid.UUID
    if err := transaction.WithContext(ctx).
        Model(&types.Conversation{}).
        Where("user_id IN ?", userIDs).
        Pluck("id", &ids).Error; err != nil {
        cr.log.Warn("Failed to fetch conversation ids by user ids", "error", err)
        return nil, fmt.Errorf("Failed to fetch conversation ids by user ids: %w", err)
    }
    return ids, nil
}

func (cr *conversationRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = cr.db
    }
    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.Conversation{}).
        Count(&count).Error; err != nil {
        cr.log.Warn("Failed to count conversations", "error", err)
        return 0, fmt.Errorf("Failed to count conversations: %w", err)
    }
    return count, nil
}
