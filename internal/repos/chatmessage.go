package repos

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type ChatMessageRepo interface {
    // CreateMessages inserts the given messages in slice order; the
    // autoincrement IDs they come back with encode that order.
    CreateMessages(ctx context.Context, tx *gorm.DB, msgs []*types.ChatMessage) ([]*types.ChatMessage, error)

    // GetByConversationID returns the full message list in display order
    // (created_at ASC, id ASC).
    GetByConversationID(ctx context.Context, tx *gorm.DB, convID uuid.UUID) ([]*types.ChatMessage, error)

    // GetRecentByConversationID returns the newest messages first, at most
    // limit of them.
    GetRecentByConversationID(ctx context.Context, tx *gorm.DB, convID uuid.UUID, limit int) ([]*types.ChatMessage, error)

    // ListByUser is the flat cross-conversation history listing, oldest
    // first, capped at limit.
    ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ChatMessage, error)

    FullDeleteByConversationIDs(ctx context.Context, tx *gorm.DB, convIDs []uuid.UUID) error
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
    CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type chatMessageRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
    repoLog := baseLog.With("repo", "ChatMessageRepo")
    return &chatMessageRepo{db: db, log: repoLog}
}

func (cmr *chatMessageRepo) CreateMessages(ctx context.Context, tx *gorm.DB, msgs []*types.ChatMessage) ([]*types.ChatMessage, error) {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    if len(msgs) == 0 {
        return msgs, nil
    }
    for _, m := range msgs {
        if !types.ValidRole(m.Role) {
            cmr.log.Warn("Refusing to store message with unknown role", "role", m.Role)
            return nil, fmt.Errorf("Unknown chat message role: '%s'", m.Role)
        }
    }
    if err := transaction.WithContext(ctx).Create(&msgs).Error; err != nil {
        cmr.log.Warn("Failed to create chat messages", "error", err)
        return nil, fmt.Errorf("Failed to create chat messages: %w", err)
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) GetByConversationID(ctx context.Context, tx *gorm.DB, convID uuid.UUID) ([]*types.ChatMessage, error) {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := transaction.WithContext(ctx).
        Where("conversation_id = ?", convID).
        Order("created_at ASC, id ASC").
        Find(&msgs).Error; err != nil {
        cmr.log.Warn("Failed to get chat messages by conversation id", "error", err)
        return nil, fmt.Errorf("Failed to get chat messages by conversation id: %w", err)
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) GetRecentByConversationID(ctx context.Context, tx *gorm.DB, convID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := transaction.WithContext(ctx).
        Where("conversation_id = ?", convID).
        Order("created_at DESC, id DESC").
        Limit(limit).
        Find(&msgs).Error; err != nil {
        cmr.log.Warn("Failed to get recent chat messages by conversation id", "error", err)
        return nil, fmt.Errorf("Failed to get recent chat messages by conversation id: %w", err)
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := transaction.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at ASC, id ASC").
        Limit(limit).
        Find(&msgs).Error; err != nil {
        cmr.log.Warn("Failed to list chat messages by user id", "error", err)
        return nil, fmt.Errorf("Failed to list chat messages by user id: %w", err)
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) FullDeleteByConversationIDs(ctx context.Context, tx *gorm.DB, convIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    if len(convIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("conversation_id IN ?", convIDs).
        Delete(&types.ChatMessage{}).Error; err != nil {
        cmr.log.Warn("Failed to delete chat messages by conversation ids", "error", err)
        return fmt.Errorf("Failed to delete chat messages by conversation ids: %w", err)
    }
    return nil
}

func (cmr *chatMessageRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id IN ?", userIDs).
        Delete(&types.ChatMessage{}).Error; err != nil {
        cmr.log.Warn("Failed to delete chat messages by user ids", "error", err)
        return fmt.Errorf("Failed to delete chat messages by user ids: %w", err)
    }
    return nil
}

func (cmr *chatMessageRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = cmr.db
    }
    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.ChatMessage{}).
        Count(&count).Error; err != nil {
        cmr.log.Warn("Failed to count chat messages", "error", err)
        return 0, fmt.Errorf("Failed to count chat messages: %w", err)
    }
    return count, nil
}
