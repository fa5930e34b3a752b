package repos

import (
    "context"
    "errors"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/amitai-labs/amitai-backend/internal/logger"
    "github.com/amitai-labs/amitai-backend/internal/types"
)

type UserRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

    // READ
    GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
    GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error)
    EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error)
    GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error)
    CountAll(ctx context.Context, tx *gorm.DB) (int64, error)

    // UPDATE
    Update(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

    // FULL (HARD) DELETE
    FullDeleteByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type userRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
    repoLog := baseLog.With("repo", "UserRepo")
    return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    if len(users) == 0 {
        return []*types.User{}, nil
    }
    for _, u := range users {
        if u.ID == uuid.Nil {
            u.ID = uuid.New()
        }
    }
    if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
        ur.log.Warn("Failed to create users", "error", err)
        return nil, fmt.Errorf("Failed to create users: %w", err)
    }
    return users, nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var results []*types.User
    if err := transaction.WithContext(ctx).
        Where("id IN ?", userIDs).
        Find(&results).Error; err != nil {
        ur.log.Warn("Failed to fetch users by ids", "error", err)
        return nil, fmt.Errorf("Failed to fetch users by ids: %w", err)
    }
    return results, nil
}

func (ur *userRepo) GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var results []*types.User
    if err := transaction.WithContext(ctx).
        Where("email IN ?", userEmails).
        Find(&results).Error; err != nil {
        ur.log.Warn("Failed to fetch users by emails", "error", err)
        return nil, fmt.Errorf("Failed to fetch users by emails: %w", err)
    }
    return results, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var found types.User
    err := transaction.WithContext(ctx).
        Where("email = ?", userEmail).
        First(&found).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return false, nil
        }
        ur.log.Warn("Failed to check email existence", "error", err)
        return false, fmt.Errorf("Failed to check email existence: %w", err)
    }
    return true, nil
}

func (ur *userRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var results []*types.User
    if err := transaction.WithContext(ctx).
        Order("created_at DESC").
        Find(&results).Error; err != nil {
        ur.log.Warn("Failed to fetch all users", "error", err)
        return nil, fmt.Errorf("Failed to fetch all users: %w", err)
    }
    return results, nil
}

func (ur *userRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.User{}).
        Count(&count).Error; err != nil {
        ur.log.Warn("Failed to count users", "error", err)
        return 0, fmt.Errorf("Failed to count users: %w", err)
    }
    return count, nil
}

func (ur *userRepo) Update(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    for _, u := range users {
        if err := transaction.WithContext(ctx).Save(u).Error; err != nil {
            ur.log.Warn("Failed to update user", "userID", u.ID, "error", err)
            return nil, fmt.Errorf("Failed to update user: %w", err)
        }
    }
    return users, nil
}

func (ur *userRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Where("id IN ?", userIDs).
        Delete(&types.User{}).Error; err != nil {
        ur.log.Warn("Failed to delete users by ids", "error", err)
        return fmt.Errorf("Failed to delete users by ids: %w", err)
    }
    return nil
}
