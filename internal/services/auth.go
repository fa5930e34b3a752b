package services

import (
  "context"
  "crypto/rand"
  "crypto/sha256"
  "encoding/hex"
  "fmt"
  "time"

  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/normalization"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/types"
  "github.com/amitai-labs/amitai-backend/internal/utils"
)

const resetTokenTTL = time.Hour

type JWTClaims struct {
  jwt.RegisteredClaims
  Email string `json:"email,omitempty"`
}

type AuthService interface {
  RegisterUser(ctx context.Context, user *types.User) error
  Login(ctx context.Context, email, password string) (string, string, error)
  Refresh(ctx context.Context) (string, string, error)
  Logout(ctx context.Context) error

  ForgotPassword(ctx context.Context, email string) error
  ResetPassword(ctx context.Context, token, newPassword string) error

  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)

  GetAccessTTL() time.Duration
}

type authService struct {
  db              *gorm.DB
  log             *logger.Logger
  userRepo        repos.UserRepo
  userTokenRepo   repos.UserTokenRepo
  oneTimeCodeRepo repos.OneTimeCodeRepo
  avatarService   AvatarService
  emailService    EmailService
  jwtSecretKey    string
  accessTTL       time.Duration
  refreshTTL      time.Duration
}

func NewAuthService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  oneTimeCodeRepo repos.OneTimeCodeRepo,
  avatarService AvatarService,
  emailService EmailService,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
) AuthService {
  serviceLog := log.With("service", "AuthService")
  return &authService{
    db:              db,
    log:             serviceLog,
    userRepo:        userRepo,
    userTokenRepo:   userTokenRepo,
    oneTimeCodeRepo: oneTimeCodeRepo,
    avatarService:   avatarService,
    emailService:    emailService,
    jwtSecretKey:    jwtSecretKey,
    accessTTL:       accessTTL,
    refreshTTL:      refreshTTL,
  }
}

//----------------------------------------------------------------------------------------------------------------------
// RegisterUser
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
  as.log.Info("Starting Register User now...")

  //1) Normalize User Fields
  utils.NormalizeUserFields(ctx, user)

  //2) Checks on user fields
  if vErr := utils.InputValidation(ctx, "registration", as.userRepo, as.log, user, "", ""); vErr != nil {
    return vErr
  }

  //3) Hash Password
  if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
    return hErr
  }

  //4) Transaction Body
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user.ID = uuid.New()
    if avatarErr := as.avatarService.CreateAndUploadUserAvatar(ctx, tx, user); avatarErr != nil {
      as.log.Warn("Failure to create and upload user avatar, Cannot proceed further. Returning error", "error", avatarErr)
      return fmt.Errorf("Failure to create and upload user avatar: %w", avatarErr)
    }
    createdUsers, cUErr := as.userRepo.Create(ctx, tx, []*types.User{user})
    if cUErr != nil {
      as.log.Warn("Failed to create new user, Cannot proceed further. Returning error.", "error", cUErr)
      return fmt.Errorf("Failure to create user: %w", cUErr)
    }
    if len(createdUsers) == 0 {
      as.log.Warn("Failure to actually create user in DB")
      return fmt.Errorf("Failure to create user in DB")
    }
    return nil
  }); err != nil {
    return err
  }

  //5) Welcome email is best effort, a send failure never unwinds the registration
  if wErr := as.emailService.SendWelcomeEmail(ctx, user.Email, user.Name); wErr != nil {
    as.log.Warn("Failed to send welcome email", "error", wErr)
  }
  return nil
}

func (as *authService) Login(ctx context.Context, userEmail, userPassword string) (string, string, error) {
  //1) Normalize Input
  email := normalization.ParseEmail(userEmail)
  password := normalization.ParseInputString(userPassword)

  //2) Input Validations
  if vErr := utils.InputValidation(ctx, "login", as.userRepo, as.log, &types.User{}, email, password); vErr != nil {
    return "", "", vErr
  }

  //3) Find User By Email
  users, uSErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
  if uSErr != nil {
    as.log.Warn("Failure to retrieve user by email, Cannot proceed. Returning error.", "error", uSErr)
    return "", "", fmt.Errorf("error retrieving user by email: %w", uSErr)
  }
  if len(users) == 0 {
    as.log.Warn("Invalid email, no users returned", "len(users)", len(users))
    return "", "", apperrors.Invalidf("invalid email or password")
  }
  user := users[0]
  if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
    as.log.Warn("Invalid password, user password and hash dont match, Cannot proceed. Returning error.", "error", hErr)
    return "", "", apperrors.Invalidf("invalid email or password")
  }

  //4) Issue tokens
  var accessToken string
  var refreshToken string
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
    if fTErr != nil {
      as.log.Warn("Failed to check whether user already has user tokens, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Failed to check whether user already has user tokens: %w", fTErr)
    }
    for _, existing := range foundTokens {
      if existing != nil && existing.ExpiresAt.Before(time.Now()) {
        if dTErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existing}); dTErr != nil {
          as.log.Warn("Failed to delete expired user token, Cannot proceed. Returning error.", "error", dTErr)
          return fmt.Errorf("Failed to delete expired user token: %w", dTErr)
        }
      }
    }
    tok, genErr := as.generateAccessToken(ctx, tx, user)
    if genErr != nil {
      as.log.Warn("Generate Access Token Error, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("Generate Access Token Error: %w", genErr)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    expiresAt := time.Now().Add(as.refreshTTL)
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: refreshToken,
      ExpiresAt:    expiresAt,
    }
    _, cTErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken})
    if cTErr != nil {
      as.log.Warn("Create User Token Error, Cannot proceed. Returning error.", "error", cTErr)
      return fmt.Errorf("Create User Token Error: %w", cTErr)
    }
    return nil
  }); err != nil {
    return "", "", err
  }
  return accessToken, refreshToken, nil
}

func (as *authService) Refresh(ctx context.Context) (string, string, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed", "requestdata", rd)
    return "", "", fmt.Errorf("No Request Data found in context.")
  }
  if rd.RefreshToken == "" {
    as.log.Warn("RefreshToken in Request Data in context is an empty string, Cannot proceed")
    return "", "", fmt.Errorf("RefreshToken in Request Data in context is an empty string.")
  }

  var accessToken string
  var newRefreshTokenStr string
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
    if fTErr != nil {
      as.log.Warn("Error fetching refresh token, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Error fetching refresh token: %w", fTErr)
    }
    if len(foundTokens) == 0 || foundTokens[0] == nil {
      as.log.Warn("No user token found for the given refresh token, Cannot proceed.")
      return apperrors.Invalidf("No user token found for the given refresh token.")
    }
    existingToken := foundTokens[0]

    if existingToken.ExpiresAt.Before(time.Now()) {
      if dTErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existingToken}); dTErr != nil {
        as.log.Warn("Refresh token expired, error deleting expired refresh token, Cannot proceed. Returning error.", "error", dTErr)
        return fmt.Errorf("Refresh token expired, error deleting: %w", dTErr)
      }
      as.log.Warn("Refresh Token Expired, Cannot proceed.")
      return apperrors.Invalidf("Refresh Token Expired.")
    }
    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existingToken.UserID})
    if uErr != nil {
      as.log.Warn("Failed to load user for refresh, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to load user for refresh: %w", uErr)
    }
    if len(users) == 0 {
      as.log.Warn("No user found for the given refresh token, Cannot proceed.", "len(users)", len(users))
      return apperrors.Invalidf("No user found for the given refresh token.")
    }
    user := users[0]
    tok, genErr := as.generateAccessToken(ctx, tx, user)
    if genErr != nil {
      as.log.Warn("Failed to generate new access token, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("Failed to generate new access token: %w", genErr)
    }
    accessToken = tok
    newRefreshTokenStr = uuid.New().String()
    newExpiresAt := time.Now().Add(as.refreshTTL)
    newUserToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  tok,
      RefreshToken: newRefreshTokenStr,
      ExpiresAt:    newExpiresAt,
    }
    _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&newUserToken})
    if cErr != nil {
      as.log.Warn("Failed to create new user token, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("Failed to create new user token: %w", cErr)
    }
    if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existingToken}); dErr != nil {
      as.log.Warn("Failed to remove old refresh token, Cannot proceed. Returning error.", "error", dErr)
      return fmt.Errorf("Failed to remove old refresh token: %w", dErr)
    }
    return nil
  })
  if err != nil {
    as.log.Warn("Failed transaction, Cannot proceed. Returning error.", "error", err)
    return "", "", err
  }
  return accessToken, newRefreshTokenStr, nil
}

func (as *authService) Logout(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed.", "requestdata", rd)
    return fmt.Errorf("No Request Data found in context.")
  }
  if rd.TokenString == "" {
    as.log.Warn("TokenString in Request Data is an empty string, Cannot proceed.")
    return fmt.Errorf("TokenString in RequestData is an empty string.")
  }
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
    if fTErr != nil {
      as.log.Warn("Error finding user token from token string, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("Error finding user token from token string: %w", fTErr)
    }
    if len(foundTokens) == 0 || foundTokens[0] == nil {
      return nil
    }
    if tDErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{foundTokens[0]}); tDErr != nil {
      as.log.Warn("Error deleting user token, Cannot proceed. Returning error.", "error", tDErr)
      return fmt.Errorf("Error deleting user token: %w", tDErr)
    }
    return nil
  })
}

//----------------------------------------------------------------------------------------------------------------------
// ForgotPassword, ResetPassword
//----------------------------------------------------------------------------------------------------------------------

// ForgotPassword always reports success to the caller so an attacker cannot
// probe which emails have accounts. Only the sha256 of the mailed token is
// stored.
func (as *authService) ForgotPassword(ctx context.Context, userEmail string) error {
  email := normalization.ParseEmail(userEmail)
  if email == "" {
    return apperrors.Invalidf("an email is required")
  }
  users, uErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
  if uErr != nil {
    as.log.Warn("Failure to retrieve user by email for password reset", "error", uErr)
    return fmt.Errorf("error retrieving user by email: %w", uErr)
  }
  if len(users) == 0 {
    as.log.Info("Password reset requested for unknown email, responding as if sent")
    return nil
  }
  user := users[0]

  rawToken, tErr := generateResetToken()
  if tErr != nil {
    as.log.Warn("Failed to generate reset token, Cannot proceed. Returning error.", "error", tErr)
    return fmt.Errorf("Failed to generate reset token: %w", tErr)
  }
  code := &types.OneTimeCode{
    ID:        uuid.New(),
    UserID:    user.ID,
    Code:      hashResetToken(rawToken),
    ExpiresAt: time.Now().Add(resetTokenTTL),
  }
  if _, cErr := as.oneTimeCodeRepo.Create(ctx, nil, []*types.OneTimeCode{code}); cErr != nil {
    as.log.Warn("Failed to persist reset code, Cannot proceed. Returning error.", "error", cErr)
    return fmt.Errorf("Failed to persist reset code: %w", cErr)
  }
  if mErr := as.emailService.SendPasswordResetEmail(ctx, user.Email, user.Name, rawToken); mErr != nil {
    as.log.Warn("Failed to send password reset email", "error", mErr)
    return fmt.Errorf("Failed to send password reset email: %w", mErr)
  }
  return nil
}

func (as *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
  token = normalization.ParseInputString(token)
  newPassword = normalization.ParseInputString(newPassword)
  if token == "" {
    return apperrors.Invalidf("a reset token is required")
  }
  if len(newPassword) < 8 {
    return apperrors.Invalidf("password must be at least 8 characters long.")
  }

  var user *types.User
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    code, cErr := as.oneTimeCodeRepo.GetActiveByCode(ctx, tx, hashResetToken(token))
    if cErr != nil {
      as.log.Warn("Failed to look up reset code, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("Failed to look up reset code: %w", cErr)
    }
    if code == nil {
      as.log.Warn("Reset token is invalid, expired, or already used, Cannot proceed.")
      return apperrors.Invalidf("Reset token is invalid or expired.")
    }
    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{code.UserID})
    if uErr != nil || len(users) == 0 {
      as.log.Warn("Failed to load user for reset code, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("Failed to load user for reset code: %w", uErr)
    }
    user = users[0]

    hashedPassword, hErr := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
    if hErr != nil {
      as.log.Warn("Failed to hash new password, Cannot proceed. Returning error.", "error", hErr)
      return fmt.Errorf("Failed to hash new password: %w", hErr)
    }
    user.Password = string(hashedPassword)
    if _, sErr := as.userRepo.Update(ctx, tx, []*types.User{user}); sErr != nil {
      as.log.Warn("Failed to save new password, Cannot proceed. Returning error.", "error", sErr)
      return fmt.Errorf("Failed to save new password: %w", sErr)
    }
    if mErr := as.oneTimeCodeRepo.MarkUsed(ctx, tx, []*types.OneTimeCode{code}); mErr != nil {
      as.log.Warn("Failed to mark reset code as used, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to mark reset code as used: %w", mErr)
    }
    // Every live session dies with the old password.
    if dErr := as.userTokenRepo.FullDeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); dErr != nil {
      as.log.Warn("Failed to revoke user sessions, Cannot proceed. Returning error.", "error", dErr)
      return fmt.Errorf("Failed to revoke user sessions: %w", dErr)
    }
    return nil
  }); err != nil {
    return err
  }

  if mErr := as.emailService.SendPasswordChangedEmail(ctx, user.Email, user.Name); mErr != nil {
    as.log.Warn("Failed to send password changed email", "error", mErr)
  }
  return nil
}

//----------------------------------------------------------------------------------------------------------------------
// Tokens
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) generateAccessToken(ctx context.Context, tx *gorm.DB, user *types.User) (string, error) {
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      // The jti keeps two tokens minted for the same user within the same
      // second from colliding on the access_token unique index.
      ID:        uuid.New().String(),
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(time.Now()),
    },
    Email: user.Email,
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, nil
  }
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil {
    return ctx, fmt.Errorf("failed to parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return ctx, fmt.Errorf("invalid or expired JWT token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return ctx, fmt.Errorf("invalid user ID in token: %w", err)
  }
  foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
  if fTErr != nil {
    as.log.Warn("Error fetching user token by access token, Cannot proceed. Returning error.", "error", fTErr)
    return ctx, fmt.Errorf("Failed to fetch user token by access token: %w", fTErr)
  }
  if len(foundTokens) == 0 || foundTokens[0] == nil {
    return ctx, fmt.Errorf("access token has been revoked")
  }
  rd := &requestdata.RequestData{
    TokenString:  tokenString,
    RefreshToken: foundTokens[0].RefreshToken,
    UserID:       userID,
    Email:        claims.Email,
  }
  ctx = requestdata.WithRequestData(ctx, rd)
  return ctx, nil
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}

func generateResetToken() (string, error) {
  buf := make([]byte, 32)
  if _, err := rand.Read(buf); err != nil {
    return "", err
  }
  return hex.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
  sum := sha256.Sum256([]byte(token))
  return hex.EncodeToString(sum[:])
}
