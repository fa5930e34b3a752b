package services

import (
  "bytes"
  "context"
  "strings"
  "testing"
  "time"

  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

type fakeEmailService struct {
  welcomeTo    []string
  resetTokens  []string
  changedTo    []string
}

func (f *fakeEmailService) SendEmail(ctx context.Context, toEmail, subject, plainText, htmlContent, emailType string) error {
  return nil
}

func (f *fakeEmailService) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
  f.welcomeTo = append(f.welcomeTo, toEmail)
  return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, name, resetToken string) error {
  f.resetTokens = append(f.resetTokens, resetToken)
  return nil
}

func (f *fakeEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, name string) error {
  f.changedTo = append(f.changedTo, toEmail)
  return nil
}

type fakeAvatarService struct{}

func (fakeAvatarService) CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error {
  user.AvatarBucketKey = "user_avatars/" + user.ID.String() + ".png"
  user.AvatarURL = "https://cdn.example.com/" + user.AvatarBucketKey
  return nil
}

func (fakeAvatarService) GenerateUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) (bytes.Buffer, error) {
  return bytes.Buffer{}, nil
}

func newTestAuthService(t *testing.T) (AuthService, *fakeEmailService, *gorm.DB) {
  t.Helper()
  db := openTestDB(t)
  log := testLogger(t)
  emails := &fakeEmailService{}
  svc := NewAuthService(
    db,
    log,
    repos.NewUserRepo(db, log),
    repos.NewUserTokenRepo(db, log),
    repos.NewOneTimeCodeRepo(db, log),
    fakeAvatarService{},
    emails,
    "test-secret",
    time.Hour,
    24*time.Hour,
  )
  return svc, emails, db
}

func uniqueEmail() string {
  return uuid.New().String() + "@example.com"
}

func TestRegisterAndLogin(t *testing.T) {
  svc, emails, db := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "Ada Lovelace", Email: "  " + strings.ToUpper(email) + "  ", Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }
  if user.Password == "supersecret" {
    t.Fatalf("password must be stored hashed")
  }
  if user.AvatarBucketKey == "" {
    t.Fatalf("expected an avatar to be assigned at registration")
  }
  if len(emails.welcomeTo) != 1 || emails.welcomeTo[0] != email {
    t.Fatalf("expected one welcome email to %q, got %v", email, emails.welcomeTo)
  }

  var stored types.User
  if err := db.Where("email = ?", email).First(&stored).Error; err != nil {
    t.Fatalf("stored user not found under normalized email: %v", err)
  }

  access, refresh, err := svc.Login(context.Background(), email, "supersecret")
  if err != nil {
    t.Fatalf("login: %v", err)
  }
  if access == "" || refresh == "" {
    t.Fatalf("expected both tokens on login")
  }
}

func TestRegisterRejectsBadInput(t *testing.T) {
  svc, _, _ := newTestAuthService(t)

  cases := []struct {
    name string
    user types.User
  }{
    {"missing email", types.User{Name: "A", Password: "supersecret"}},
    {"malformed email", types.User{Name: "A", Email: "not-an-email", Password: "supersecret"}},
    {"short password", types.User{Name: "A", Email: uniqueEmail(), Password: "short"}},
    {"missing name", types.User{Email: uniqueEmail(), Password: "supersecret"}},
  }
  for _, tc := range cases {
    u := tc.user
    if err := svc.RegisterUser(context.Background(), &u); err == nil {
      t.Fatalf("%s: expected registration to fail", tc.name)
    }
  }
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
  svc, _, _ := newTestAuthService(t)
  email := uniqueEmail()

  first := &types.User{Name: "First", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), first); err != nil {
    t.Fatalf("first register: %v", err)
  }
  second := &types.User{Name: "Second", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), second); err == nil {
    t.Fatalf("expected duplicate email to be rejected")
  }
}

func TestLoginWrongPasswordIndistinguishableFromUnknownEmail(t *testing.T) {
  svc, _, _ := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "A", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }

  _, _, wrongPass := svc.Login(context.Background(), email, "wrongpassword")
  _, _, unknown := svc.Login(context.Background(), uniqueEmail(), "supersecret")
  if wrongPass == nil || unknown == nil {
    t.Fatalf("both failures must error")
  }
  if wrongPass.Error() != unknown.Error() {
    t.Fatalf("login failures must not reveal which part was wrong: %q vs %q", wrongPass, unknown)
  }
}

func TestSetContextFromTokenAndLogout(t *testing.T) {
  svc, _, _ := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "A", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }
  access, refresh, err := svc.Login(context.Background(), email, "supersecret")
  if err != nil {
    t.Fatalf("login: %v", err)
  }

  ctx, err := svc.SetContextFromToken(context.Background(), access)
  if err != nil {
    t.Fatalf("set context: %v", err)
  }
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    t.Fatalf("expected request data in context")
  }
  if rd.UserID != user.ID || rd.Email != email || rd.RefreshToken != refresh {
    t.Fatalf("unexpected request data: %+v", rd)
  }

  if err := svc.Logout(ctx); err != nil {
    t.Fatalf("logout: %v", err)
  }
  if _, err := svc.SetContextFromToken(context.Background(), access); err == nil {
    t.Fatalf("a logged-out access token must be rejected")
  }
  // Logging out an already-dead session is a no-op.
  if err := svc.Logout(ctx); err != nil {
    t.Fatalf("repeat logout: %v", err)
  }
}

func TestRefreshRotatesTokens(t *testing.T) {
  svc, _, _ := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "A", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }
  access, refresh, err := svc.Login(context.Background(), email, "supersecret")
  if err != nil {
    t.Fatalf("login: %v", err)
  }

  ctx, err := svc.SetContextFromToken(context.Background(), access)
  if err != nil {
    t.Fatalf("set context: %v", err)
  }
  newAccess, newRefresh, err := svc.Refresh(ctx)
  if err != nil {
    t.Fatalf("refresh: %v", err)
  }
  if newAccess == access || newRefresh == refresh {
    t.Fatalf("refresh must rotate both tokens")
  }

  // The old pair is dead after rotation.
  if _, err := svc.SetContextFromToken(context.Background(), access); err == nil {
    t.Fatalf("old access token must be revoked after refresh")
  }
  if _, err := svc.SetContextFromToken(context.Background(), newAccess); err != nil {
    t.Fatalf("new access token should work: %v", err)
  }
}

func TestForgotAndResetPassword(t *testing.T) {
  svc, emails, db := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "A", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }
  access, _, err := svc.Login(context.Background(), email, "supersecret")
  if err != nil {
    t.Fatalf("login: %v", err)
  }

  if err := svc.ForgotPassword(context.Background(), email); err != nil {
    t.Fatalf("forgot password: %v", err)
  }
  if len(emails.resetTokens) != 1 {
    t.Fatalf("expected one reset email, got %d", len(emails.resetTokens))
  }
  rawToken := emails.resetTokens[0]

  // Only a digest of the token may hit the database.
  var codeCount int64
  db.Model(&types.OneTimeCode{}).Where("user_id = ? AND code = ?", user.ID, rawToken).Count(&codeCount)
  if codeCount != 0 {
    t.Fatalf("the raw reset token must never be stored")
  }

  if err := svc.ResetPassword(context.Background(), rawToken, "brandnewpassword"); err != nil {
    t.Fatalf("reset password: %v", err)
  }
  if len(emails.changedTo) != 1 || emails.changedTo[0] != email {
    t.Fatalf("expected a password changed email to %q, got %v", email, emails.changedTo)
  }

  if _, _, err := svc.Login(context.Background(), email, "supersecret"); err == nil {
    t.Fatalf("old password must no longer work")
  }
  if _, _, err := svc.Login(context.Background(), email, "brandnewpassword"); err != nil {
    t.Fatalf("new password should work: %v", err)
  }
  if _, err := svc.SetContextFromToken(context.Background(), access); err == nil {
    t.Fatalf("all sessions must be revoked on password reset")
  }
  if err := svc.ResetPassword(context.Background(), rawToken, "anothernewpassword"); err == nil {
    t.Fatalf("a reset token must be single use")
  }
}

func TestForgotPasswordUnknownEmailStaysSilent(t *testing.T) {
  svc, emails, _ := newTestAuthService(t)

  if err := svc.ForgotPassword(context.Background(), uniqueEmail()); err != nil {
    t.Fatalf("forgot password for unknown email must not error: %v", err)
  }
  if len(emails.resetTokens) != 0 {
    t.Fatalf("no reset email should be sent for an unknown address")
  }
}

func TestResetPasswordRejectsWeakOrBogusInput(t *testing.T) {
  svc, _, _ := newTestAuthService(t)

  if err := svc.ResetPassword(context.Background(), "", "brandnewpassword"); err == nil {
    t.Fatalf("expected an error for a missing token")
  }
  if err := svc.ResetPassword(context.Background(), "deadbeef", "short"); err == nil {
    t.Fatalf("expected an error for a short password")
  }
  if err := svc.ResetPassword(context.Background(), "deadbeef", "brandnewpassword"); err == nil {
    t.Fatalf("expected an error for an unknown token")
  }
}

func TestRegisteredPasswordSurvivesBcryptCheck(t *testing.T) {
  svc, _, db := newTestAuthService(t)
  email := uniqueEmail()

  user := &types.User{Name: "A", Email: email, Password: "supersecret"}
  if err := svc.RegisterUser(context.Background(), user); err != nil {
    t.Fatalf("register: %v", err)
  }
  var stored types.User
  if err := db.Where("email = ?", email).First(&stored).Error; err != nil {
    t.Fatalf("load user: %v", err)
  }
  if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersecret")); err != nil {
    t.Fatalf("stored hash does not match the password: %v", err)
  }
}
