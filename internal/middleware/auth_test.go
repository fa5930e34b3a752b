package middleware

import (
  "context"
  "fmt"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

// fakeAuthService maps access tokens straight onto verified identities.
type fakeAuthService struct {
  identities map[string]*requestdata.RequestData
}

func (f *fakeAuthService) RegisterUser(ctx context.Context, user *types.User) error { return nil }

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
  return "", "", nil
}

func (f *fakeAuthService) Refresh(ctx context.Context) (string, string, error) { return "", "", nil }

func (f *fakeAuthService) Logout(ctx context.Context) error { return nil }

func (f *fakeAuthService) ForgotPassword(ctx context.Context, email string) error { return nil }

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
  return nil
}

func (f *fakeAuthService) GetAccessTTL() time.Duration { return time.Hour }

func (f *fakeAuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  rd, ok := f.identities[tokenString]
  if !ok {
    return ctx, fmt.Errorf("invalid or expired JWT token")
  }
  return requestdata.WithRequestData(ctx, rd), nil
}

// newAdminTestRouter mirrors the real route layout: RequireAuth on the
// protected group, RequireAdmin on top of it for the admin group.
func newAdminTestRouter(t *testing.T, svc *fakeAuthService) (*gin.Engine, *int) {
  t.Helper()
  gin.SetMode(gin.TestMode)
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("init logger: %v", err)
  }
  am := NewAuthMiddleware(log, svc, "Root@Example.com, ops@example.com")

  handlerRuns := 0
  router := gin.New()
  admin := router.Group("/admin")
  admin.Use(am.RequireAuth(), am.RequireAdmin())
  admin.GET("/users", func(c *gin.Context) {
    handlerRuns++
    c.JSON(http.StatusOK, gin.H{"users": []string{"everyone"}})
  })
  return router, &handlerRuns
}

func adminGet(router *gin.Engine, token string) *httptest.ResponseRecorder {
  req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
  if token != "" {
    req.Header.Set("Authorization", "Bearer "+token)
  }
  w := httptest.NewRecorder()
  router.ServeHTTP(w, req)
  return w
}

func TestRequireAdminBlocksNonAdmins(t *testing.T) {
  svc := &fakeAuthService{identities: map[string]*requestdata.RequestData{
    "member-token": {TokenString: "member-token", UserID: uuid.New(), Email: "member@example.com"},
  }}
  router, handlerRuns := newAdminTestRouter(t, svc)

  w := adminGet(router, "member-token")
  if w.Code != http.StatusForbidden {
    t.Fatalf("expected 403 for a non-admin, got %d", w.Code)
  }
  if *handlerRuns != 0 {
    t.Fatalf("admin handler ran for a non-admin user")
  }
  body := w.Body.String()
  if !strings.Contains(body, "admin access required") {
    t.Fatalf("expected the admin error in the body, got %q", body)
  }
  if strings.Contains(body, "users") {
    t.Fatalf("admin payload leaked into a forbidden response: %q", body)
  }
}

func TestRequireAdminAllowsAllowListedEmail(t *testing.T) {
  // ADMIN_EMAILS is matched case-insensitively on both sides.
  svc := &fakeAuthService{identities: map[string]*requestdata.RequestData{
    "root-token": {TokenString: "root-token", UserID: uuid.New(), Email: "ROOT@example.com"},
  }}
  router, handlerRuns := newAdminTestRouter(t, svc)

  w := adminGet(router, "root-token")
  if w.Code != http.StatusOK {
    t.Fatalf("expected 200 for an allow-listed admin, got %d body %q", w.Code, w.Body.String())
  }
  if *handlerRuns != 1 {
    t.Fatalf("expected the admin handler to run once, ran %d times", *handlerRuns)
  }
}

func TestRequireAuthRejectsMissingOrBadTokens(t *testing.T) {
  svc := &fakeAuthService{identities: map[string]*requestdata.RequestData{}}
  router, handlerRuns := newAdminTestRouter(t, svc)

  if w := adminGet(router, ""); w.Code != http.StatusUnauthorized {
    t.Fatalf("expected 401 without a token, got %d", w.Code)
  }
  if w := adminGet(router, "bogus"); w.Code != http.StatusUnauthorized {
    t.Fatalf("expected 401 for an unknown token, got %d", w.Code)
  }
  if *handlerRuns != 0 {
    t.Fatalf("admin handler ran without a verified identity")
  }
}
