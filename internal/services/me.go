package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/normalization"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

type MeService interface {
  GetMe(ctx context.Context, tx *gorm.DB) (types.User, error)
  UpdateMyName(ctx context.Context, name string) (types.User, error)
  ChangeMyPassword(ctx context.Context, currentPassword, newPassword string) error
  DeleteMyAccount(ctx context.Context, password string) error
}

type meService struct {
  db              *gorm.DB
  log             *logger.Logger
  userRepo        repos.UserRepo
  userTokenRepo   repos.UserTokenRepo
  oneTimeCodeRepo repos.OneTimeCodeRepo
  convRepo        repos.ConversationRepo
  chatMessageRepo repos.ChatMessageRepo
  analysisRepo    repos.ResumeAnalysisRepo
  emailService    EmailService
}

func NewMeService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  oneTimeCodeRepo repos.OneTimeCodeRepo,
  convRepo repos.ConversationRepo,
  chatMessageRepo repos.ChatMessageRepo,
  analysisRepo repos.ResumeAnalysisRepo,
  emailService EmailService,
) MeService {
  serviceLog := log.With("service", "MeService")
  return &meService{
    db:              db,
    log:             serviceLog,
    userRepo:        userRepo,
    userTokenRepo:   userTokenRepo,
    oneTimeCodeRepo: oneTimeCodeRepo,
    convRepo:        convRepo,
    chatMessageRepo: chatMessageRepo,
    analysisRepo:    analysisRepo,
    emailService:    emailService,
  }
}

func (ms *meService) GetMe(ctx context.Context, tx *gorm.DB) (types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    ms.log.Warn("Request Data is not set in context.")
    return types.User{}, fmt.Errorf("Request Data is not set in context.")
  }
  if rd.UserID == uuid.Nil {
    ms.log.Warn("User ID not set in Request Data.")
    return types.User{}, fmt.Errorf("User ID not set in Request Data.")
  }
  foundUsers, fErr := ms.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
  if fErr != nil {
    ms.log.Warn("Error fetching user:", "error", fErr)
    return types.User{}, fmt.Errorf("error fetching user: %w", fErr)
  }
  if len(foundUsers) == 0 {
    return types.User{}, apperrors.Invalidf("user does not exist")
  }
  return *foundUsers[0], nil
}

func (ms *meService) UpdateMyName(ctx context.Context, name string) (types.User, error) {
  cleanName := normalization.ParseInputString(name)
  if cleanName == "" {
    return types.User{}, apperrors.Invalidf("a name is required")
  }
  user, gErr := ms.GetMe(ctx, nil)
  if gErr != nil {
    return types.User{}, gErr
  }
  user.Name = cleanName
  updated, uErr := ms.userRepo.Update(ctx, nil, []*types.User{&user})
  if uErr != nil {
    ms.log.Warn("Failed to update user name, Cannot proceed. Returning error.", "error", uErr)
    return types.User{}, fmt.Errorf("Failed to update user name: %w", uErr)
  }
  return *updated[0], nil
}

func (ms *meService) ChangeMyPassword(ctx context.Context, currentPassword, newPassword string) error {
  newPassword = normalization.ParseInputString(newPassword)
  if len(newPassword) < 8 {
    return apperrors.Invalidf("password must be at least 8 characters long.")
  }
  user, gErr := ms.GetMe(ctx, nil)
  if gErr != nil {
    return gErr
  }
  if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); hErr != nil {
    ms.log.Warn("Current password does not match, Cannot proceed. Returning error.")
    return apperrors.Invalidf("current password is incorrect")
  }
  hashedPassword, hErr := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
  if hErr != nil {
    ms.log.Warn("Failed to hash new password, Cannot proceed. Returning error.", "error", hErr)
    return fmt.Errorf("Failed to hash new password: %w", hErr)
  }
  if err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user.Password = string(hashedPassword)
    if _, uErr := ms.userRepo.Update(ctx, tx, []*types.User{&user}); uErr != nil {
      ms.log.Warn("Failed to save new password, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to save new password: %w", uErr)
    }
    // All other sessions die with the old password; the current one stays.
    rd := requestdata.GetRequestData(ctx)
    tokens, fErr := ms.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
    if fErr != nil {
      ms.log.Warn("Failed to load user tokens, Cannot proceed. Returning error.", "error", fErr)
      return fmt.Errorf("Failed to load user tokens: %w", fErr)
    }
    var stale []*types.UserToken
    for _, t := range tokens {
      if t == nil {
        continue
      }
      if rd != nil && t.AccessToken == rd.TokenString {
        continue
      }
      stale = append(stale, t)
    }
    if len(stale) > 0 {
      if dErr := ms.userTokenRepo.FullDeleteByTokens(ctx, tx, stale); dErr != nil {
        ms.log.Warn("Failed to revoke stale sessions, Cannot proceed. Returning error.", "error", dErr)
        return fmt.Errorf("Failed to revoke stale sessions: %w", dErr)
      }
    }
    return nil
  }); err != nil {
    return err
  }
  if mErr := ms.emailService.SendPasswordChangedEmail(ctx, user.Email, user.Name); mErr != nil {
    ms.log.Warn("Failed to send password changed email", "error", mErr)
  }
  return nil
}

// DeleteMyAccount removes the user and everything hanging off of them: chat
// messages, conversations, resume analyses, reset codes, and sessions. Each
// dependent table is cleared explicitly inside one transaction.
func (ms *meService) DeleteMyAccount(ctx context.Context, password string) error {
  user, gErr := ms.GetMe(ctx, nil)
  if gErr != nil {
    return gErr
  }
  if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
    ms.log.Warn("Password does not match for account deletion, Cannot proceed. Returning error.")
    return apperrors.Invalidf("password is incorrect")
  }
  return ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    userIDs := []uuid.UUID{user.ID}
    if mErr := ms.chatMessageRepo.FullDeleteByUserIDs(ctx, tx, userIDs); mErr != nil {
      ms.log.Warn("Failed to delete user chat messages, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to delete user chat messages: %w", mErr)
    }
    if cErr := ms.convRepo.FullDeleteByUserIDs(ctx, tx, userIDs); cErr != nil {
      ms.log.Warn("Failed to delete user conversations, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("Failed to delete user conversations: %w", cErr)
    }
    if aErr := ms.analysisRepo.FullDeleteByUserIDs(ctx, tx, userIDs); aErr != nil {
      ms.log.Warn("Failed to delete user resume analyses, Cannot proceed. Returning error.", "error", aErr)
      return fmt.Errorf("Failed to delete user resume analyses: %w", aErr)
    }
    if oErr := ms.oneTimeCodeRepo.FullDeleteByUserIDs(ctx, tx, userIDs); oErr != nil {
      ms.log.Warn("Failed to delete user reset codes, Cannot proceed. Returning error.", "error", oErr)
      return fmt.Errorf("Failed to delete user reset codes: %w", oErr)
    }
    if tErr := ms.userTokenRepo.FullDeleteByUserIDs(ctx, tx, userIDs); tErr != nil {
      ms.log.Warn("Failed to delete user sessions, Cannot proceed. Returning error.", "error", tErr)
      return fmt.Errorf("Failed to delete user sessions: %w", tErr)
    }
    if uErr := ms.userRepo.FullDeleteByIDs(ctx, tx, userIDs); uErr != nil {
      ms.log.Warn("Failed to delete user, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to delete user: %w", uErr)
    }
    return nil
  })
}
