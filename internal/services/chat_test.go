package services

import (
  "context"
  "errors"
  "strings"
  "testing"
  "time"

  gormsqlite "github.com/glebarez/sqlite"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/completion"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/normalization"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

const testModelID = "llama-3.3-70b-versatile"

type fakeProvider struct {
  reply string
  err   error
  last  completion.Request
  calls int
}

func (p *fakeProvider) Name() string { return "groq" }

func (p *fakeProvider) Complete(ctx context.Context, req completion.Request) (string, error) {
  _ = ctx
  p.calls++
  p.last = req
  if p.err != nil {
    return "", p.err
  }
  if p.reply == "" {
    return "ok", nil
  }
  return p.reply, nil
}

func openTestDB(t *testing.T) *gorm.DB {
  t.Helper()
  db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  if err := db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.OneTimeCode{},
    &types.Conversation{},
    &types.ChatMessage{},
    &types.ResumeAnalysis{},
  ); err != nil {
    t.Fatalf("automigrate: %v", err)
  }
  return db
}

func testLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("production")
  if err != nil {
    t.Fatalf("init logger: %v", err)
  }
  return log
}

func newTestChatService(t *testing.T, prov *fakeProvider) (ChatService, *gorm.DB) {
  t.Helper()
  db := openTestDB(t)
  log := testLogger(t)
  reg := completion.NewRegistry(log, testModelID)
  reg.Register(prov)
  convRepo := repos.NewConversationRepo(db, log)
  msgRepo := repos.NewChatMessageRepo(db, log)
  return NewChatService(db, log, convRepo, msgRepo, reg), db
}

func createTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
  t.Helper()
  user := &types.User{
    ID:       uuid.New(),
    Name:     "Test User",
    Email:    uuid.New().String() + "@example.com",
    Password: "hashed",
  }
  if err := db.Create(user).Error; err != nil {
    t.Fatalf("create user: %v", err)
  }
  return user.ID
}

func TestSendMessageCreatesConversationAndPersistsTurn(t *testing.T) {
  prov := &fakeProvider{reply: "hello there"}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  result, err := svc.SendMessage(context.Background(), userID, nil, "How do goroutines work?", "")
  if err != nil {
    t.Fatalf("send message: %v", err)
  }
  if result.Conversation == nil || result.Conversation.ID == uuid.Nil {
    t.Fatalf("expected a conversation to be created")
  }
  if result.Conversation.Title != "How do goroutines work?" {
    t.Fatalf("expected title seeded from first message, got %q", result.Conversation.Title)
  }
  if result.AssistantMessage.Content != "hello there" {
    t.Fatalf("unexpected assistant content: %q", result.AssistantMessage.Content)
  }
  if result.ModelLabel != "Llama 3.3 70B" {
    t.Fatalf("unexpected model label: %q", result.ModelLabel)
  }

  var msgs []types.ChatMessage
  if err := db.Where("conversation_id = ?", result.Conversation.ID).
    Order("created_at ASC, id ASC").
    Find(&msgs).Error; err != nil {
    t.Fatalf("query messages: %v", err)
  }
  if len(msgs) != 2 {
    t.Fatalf("expected 2 messages, got %d", len(msgs))
  }
  if msgs[0].Role != types.RoleUser || msgs[0].Content != "How do goroutines work?" {
    t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
  }
  if msgs[1].Role != types.RoleAssistant || msgs[1].Content != "hello there" {
    t.Fatalf("unexpected assistant msg: role=%q content=%q", msgs[1].Role, msgs[1].Content)
  }
  if msgs[1].UserID != userID {
    t.Fatalf("assistant message should be attributed to the requesting user")
  }
}

func TestSendMessageProviderFailureLeavesNoTrace(t *testing.T) {
  prov := &fakeProvider{err: apperrors.NewProviderError(apperrors.ProviderRateLimited, "groq", errors.New("429"))}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  _, err := svc.SendMessage(context.Background(), userID, nil, "hi", "")
  if err == nil {
    t.Fatalf("expected provider error")
  }
  pErr, ok := apperrors.AsProviderError(err)
  if !ok || pErr.Kind != apperrors.ProviderRateLimited {
    t.Fatalf("expected rate limited provider error, got %v", err)
  }

  var convCount, msgCount int64
  db.Model(&types.Conversation{}).Where("user_id = ?", userID).Count(&convCount)
  db.Model(&types.ChatMessage{}).Where("user_id = ?", userID).Count(&msgCount)
  if convCount != 0 || msgCount != 0 {
    t.Fatalf("expected no writes on provider failure, got %d convs %d msgs", convCount, msgCount)
  }
}

func TestSendMessageUnknownConversationNotFound(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  missing := uuid.New()
  _, err := svc.SendMessage(context.Background(), userID, &missing, "hi", "")
  if !errors.Is(err, apperrors.ErrNotFound) {
    t.Fatalf("expected ErrNotFound, got %v", err)
  }
  if prov.calls != 0 {
    t.Fatalf("provider should not be called for a missing conversation")
  }
}

func TestSendMessageForeignConversationLooksMissing(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  owner := createTestUser(t, db)
  intruder := createTestUser(t, db)

  conv, err := svc.CreateConversation(context.Background(), owner, "private notes")
  if err != nil {
    t.Fatalf("create conversation: %v", err)
  }

  _, err = svc.SendMessage(context.Background(), intruder, &conv.ID, "let me in", "")
  if !errors.Is(err, apperrors.ErrNotFound) {
    t.Fatalf("expected ErrNotFound for foreign conversation, got %v", err)
  }
  var msgCount int64
  db.Model(&types.ChatMessage{}).Where("conversation_id = ?", conv.ID).Count(&msgCount)
  if msgCount != 0 {
    t.Fatalf("foreign send must not write messages, got %d", msgCount)
  }
}

func TestSendMessagePassesHistoryInOrder(t *testing.T) {
  prov := &fakeProvider{reply: "first reply"}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  result, err := svc.SendMessage(context.Background(), userID, nil, "first question", "")
  if err != nil {
    t.Fatalf("first send: %v", err)
  }

  prov.reply = "second reply"
  if _, err := svc.SendMessage(context.Background(), userID, &result.Conversation.ID, "second question", ""); err != nil {
    t.Fatalf("second send: %v", err)
  }

  req := prov.last
  if req.SystemPrompt == "" {
    t.Fatalf("expected a system prompt")
  }
  if req.UserMessage != "second question" {
    t.Fatalf("unexpected user message: %q", req.UserMessage)
  }
  if len(req.History) != 2 {
    t.Fatalf("expected 2 history messages, got %d", len(req.History))
  }
  if req.History[0].Role != "user" || req.History[0].Content != "first question" {
    t.Fatalf("unexpected history[0]: %+v", req.History[0])
  }
  if req.History[1].Role != "assistant" || req.History[1].Content != "first reply" {
    t.Fatalf("unexpected history[1]: %+v", req.History[1])
  }
}

func TestSendMessageKeepsEstablishedTitle(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  conv, err := svc.CreateConversation(context.Background(), userID, "")
  if err != nil {
    t.Fatalf("create conversation: %v", err)
  }
  if conv.Title != normalization.DefaultConversationTitle {
    t.Fatalf("expected default title, got %q", conv.Title)
  }

  first, err := svc.SendMessage(context.Background(), userID, &conv.ID, "seed title here", "")
  if err != nil {
    t.Fatalf("first send: %v", err)
  }
  if first.Conversation.Title != "seed title here" {
    t.Fatalf("expected title seeded by first message, got %q", first.Conversation.Title)
  }

  second, err := svc.SendMessage(context.Background(), userID, &conv.ID, "a totally different topic", "")
  if err != nil {
    t.Fatalf("second send: %v", err)
  }
  if second.Conversation.Title != "seed title here" {
    t.Fatalf("title must not change after it is established, got %q", second.Conversation.Title)
  }
}

func TestCreateConversationTruncatesLongTitles(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  long := strings.Repeat("日本語タイトル", 100)
  conv, err := svc.CreateConversation(context.Background(), userID, long)
  if err != nil {
    t.Fatalf("create: %v", err)
  }
  runes := []rune(conv.Title)
  if len(runes) != normalization.TitleMaxLen {
    t.Fatalf("expected the title cut to %d runes, got %d", normalization.TitleMaxLen, len(runes))
  }
  if !strings.HasPrefix(long, conv.Title) {
    t.Fatalf("truncation corrupted a multi-byte boundary")
  }
}

func TestSendMessageRejectsUnknownModel(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  if _, err := svc.SendMessage(context.Background(), userID, nil, "hi", "not-a-model"); err == nil {
    t.Fatalf("expected an error for an unknown model")
  }
  if prov.calls != 0 {
    t.Fatalf("provider should not be called for an unknown model")
  }
}

func seedConversations(t *testing.T, db *gorm.DB, userID uuid.UUID, n int) []uuid.UUID {
  t.Helper()
  base := time.Now().Add(-time.Duration(n+1) * time.Hour)
  ids := make([]uuid.UUID, 0, n)
  for i := 0; i < n; i++ {
    ts := base.Add(time.Duration(i) * time.Minute)
    conv := &types.Conversation{
      ID:        uuid.New(),
      UserID:    userID,
      Title:     "conversation",
      CreatedAt: ts,
      UpdatedAt: ts,
    }
    if err := db.Create(conv).Error; err != nil {
      t.Fatalf("seed conversation %d: %v", i, err)
    }
    ids = append(ids, conv.ID)
  }
  return ids
}

func TestListConversationsPaginatesWithCursor(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)
  seeded := seedConversations(t, db, userID, 5)

  seen := make(map[uuid.UUID]bool)
  var cursor *uuid.UUID
  pages := 0
  for {
    page, err := svc.ListConversations(context.Background(), userID, cursor, 2)
    if err != nil {
      t.Fatalf("list page %d: %v", pages, err)
    }
    pages++
    for _, conv := range page.Conversations {
      if seen[conv.ID] {
        t.Fatalf("conversation %s appeared twice", conv.ID)
      }
      seen[conv.ID] = true
    }
    if !page.HasMore {
      if page.NextCursor != nil {
        t.Fatalf("NextCursor must be nil on the last page")
      }
      break
    }
    if page.NextCursor == nil {
      t.Fatalf("HasMore without NextCursor")
    }
    cursor = page.NextCursor
  }
  if pages != 3 {
    t.Fatalf("expected 3 pages, got %d", pages)
  }
  if len(seen) != len(seeded) {
    t.Fatalf("expected %d distinct conversations, got %d", len(seeded), len(seen))
  }
}

func TestListConversationsNewestFirst(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)
  seedConversations(t, db, userID, 3)

  page, err := svc.ListConversations(context.Background(), userID, nil, 0)
  if err != nil {
    t.Fatalf("list: %v", err)
  }
  if len(page.Conversations) != 3 {
    t.Fatalf("expected 3 conversations, got %d", len(page.Conversations))
  }
  for i := 1; i < len(page.Conversations); i++ {
    if page.Conversations[i].UpdatedAt.After(page.Conversations[i-1].UpdatedAt) {
      t.Fatalf("conversations are not in updated_at DESC order")
    }
  }
  if page.HasMore {
    t.Fatalf("expected no further pages")
  }
}

func TestListConversationsIgnoresUnresolvableCursor(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)
  seedConversations(t, db, userID, 3)

  bogus := uuid.New()
  page, err := svc.ListConversations(context.Background(), userID, &bogus, 10)
  if err != nil {
    t.Fatalf("list with bogus cursor: %v", err)
  }
  if len(page.Conversations) != 3 {
    t.Fatalf("expected the first page, got %d conversations", len(page.Conversations))
  }
}

func TestListConversationsCursorOfAnotherUserIsIgnored(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userA := createTestUser(t, db)
  userB := createTestUser(t, db)
  seedConversations(t, db, userA, 3)
  foreign := seedConversations(t, db, userB, 1)

  page, err := svc.ListConversations(context.Background(), userA, &foreign[0], 10)
  if err != nil {
    t.Fatalf("list with foreign cursor: %v", err)
  }
  if len(page.Conversations) != 3 {
    t.Fatalf("expected the first page, got %d conversations", len(page.Conversations))
  }
  for _, conv := range page.Conversations {
    if conv.UserID != userA {
      t.Fatalf("conversation of another user leaked into the listing")
    }
  }
}

func TestRenameConversation(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  conv, err := svc.CreateConversation(context.Background(), userID, "old name")
  if err != nil {
    t.Fatalf("create: %v", err)
  }
  renamed, err := svc.RenameConversation(context.Background(), userID, conv.ID, "  new   name  ")
  if err != nil {
    t.Fatalf("rename: %v", err)
  }
  if renamed.Title != "new name" {
    t.Fatalf("unexpected title: %q", renamed.Title)
  }
  if _, err := svc.RenameConversation(context.Background(), userID, conv.ID, "   "); err == nil {
    t.Fatalf("expected an error for a blank title")
  }
}

func TestClearHistoryKeepsConversation(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  result, err := svc.SendMessage(context.Background(), userID, nil, "to be cleared", "")
  if err != nil {
    t.Fatalf("send: %v", err)
  }
  if err := svc.ClearHistory(context.Background(), userID, result.Conversation.ID); err != nil {
    t.Fatalf("clear history: %v", err)
  }

  conv, msgs, err := svc.GetConversation(context.Background(), userID, result.Conversation.ID)
  if err != nil {
    t.Fatalf("get after clear: %v", err)
  }
  if len(msgs) != 0 {
    t.Fatalf("expected no messages after clear, got %d", len(msgs))
  }
  if conv.Title != "to be cleared" {
    t.Fatalf("clear history must keep the title, got %q", conv.Title)
  }
}

func TestClearAllHistoryEmptiesEveryConversation(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)
  other := createTestUser(t, db)

  first, err := svc.SendMessage(context.Background(), userID, nil, "first conversation", "")
  if err != nil {
    t.Fatalf("first send: %v", err)
  }
  if _, err := svc.SendMessage(context.Background(), userID, nil, "second conversation", ""); err != nil {
    t.Fatalf("second send: %v", err)
  }
  if _, err := svc.SendMessage(context.Background(), other, nil, "untouched", ""); err != nil {
    t.Fatalf("send for other user: %v", err)
  }

  if err := svc.ClearAllHistory(context.Background(), userID); err != nil {
    t.Fatalf("clear all: %v", err)
  }

  var msgCount, convCount, otherMsgCount int64
  db.Model(&types.ChatMessage{}).Where("user_id = ?", userID).Count(&msgCount)
  db.Model(&types.Conversation{}).Where("user_id = ?", userID).Count(&convCount)
  db.Model(&types.ChatMessage{}).Where("user_id = ?", other).Count(&otherMsgCount)
  if msgCount != 0 {
    t.Fatalf("expected all messages gone, got %d", msgCount)
  }
  if convCount != 2 {
    t.Fatalf("conversations must be retained, got %d", convCount)
  }
  if otherMsgCount != 2 {
    t.Fatalf("another user's messages must be untouched, got %d", otherMsgCount)
  }
  conv, _, err := svc.GetConversation(context.Background(), userID, first.Conversation.ID)
  if err != nil {
    t.Fatalf("get after clear all: %v", err)
  }
  if conv.Title != "first conversation" {
    t.Fatalf("titles must survive a history wipe, got %q", conv.Title)
  }
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  result, err := svc.SendMessage(context.Background(), userID, nil, "short lived", "")
  if err != nil {
    t.Fatalf("send: %v", err)
  }
  if err := svc.DeleteConversation(context.Background(), userID, result.Conversation.ID); err != nil {
    t.Fatalf("delete: %v", err)
  }

  if _, _, err := svc.GetConversation(context.Background(), userID, result.Conversation.ID); !errors.Is(err, apperrors.ErrNotFound) {
    t.Fatalf("expected ErrNotFound after delete, got %v", err)
  }
  var msgCount int64
  db.Model(&types.ChatMessage{}).Where("conversation_id = ?", result.Conversation.ID).Count(&msgCount)
  if msgCount != 0 {
    t.Fatalf("expected messages to be deleted with the conversation, got %d", msgCount)
  }
}

func TestGetConversationReturnsMessagesInOrder(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  first, err := svc.SendMessage(context.Background(), userID, nil, "turn one", "")
  if err != nil {
    t.Fatalf("first send: %v", err)
  }
  if _, err := svc.SendMessage(context.Background(), userID, &first.Conversation.ID, "turn two", ""); err != nil {
    t.Fatalf("second send: %v", err)
  }

  _, msgs, err := svc.GetConversation(context.Background(), userID, first.Conversation.ID)
  if err != nil {
    t.Fatalf("get: %v", err)
  }
  if len(msgs) != 4 {
    t.Fatalf("expected 4 messages, got %d", len(msgs))
  }
  wantRoles := []types.MessageRole{types.RoleUser, types.RoleAssistant, types.RoleUser, types.RoleAssistant}
  for i, want := range wantRoles {
    if msgs[i].Role != want {
      t.Fatalf("message %d: expected role %q, got %q", i, want, msgs[i].Role)
    }
  }
  if msgs[0].Content != "turn one" || msgs[2].Content != "turn two" {
    t.Fatalf("messages are not in send order")
  }
}

func TestListHistoryIsOldestFirst(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userID := createTestUser(t, db)

  if _, err := svc.SendMessage(context.Background(), userID, nil, "first", ""); err != nil {
    t.Fatalf("send: %v", err)
  }
  if _, err := svc.SendMessage(context.Background(), userID, nil, "second", ""); err != nil {
    t.Fatalf("send: %v", err)
  }

  msgs, err := svc.ListHistory(context.Background(), userID, 0)
  if err != nil {
    t.Fatalf("list history: %v", err)
  }
  if len(msgs) != 4 {
    t.Fatalf("expected 4 messages, got %d", len(msgs))
  }
  if msgs[0].Content != "first" || msgs[2].Content != "second" {
    t.Fatalf("history is not oldest first: %q then %q", msgs[0].Content, msgs[2].Content)
  }
  for i := 1; i < len(msgs); i++ {
    if msgs[i].ID < msgs[i-1].ID {
      t.Fatalf("history ids are not ascending")
    }
  }
}

func TestListHistoryIsScopedToUser(t *testing.T) {
  prov := &fakeProvider{}
  svc, db := newTestChatService(t, prov)
  userA := createTestUser(t, db)
  userB := createTestUser(t, db)

  if _, err := svc.SendMessage(context.Background(), userA, nil, "mine", ""); err != nil {
    t.Fatalf("send for A: %v", err)
  }
  if _, err := svc.SendMessage(context.Background(), userB, nil, "theirs", ""); err != nil {
    t.Fatalf("send for B: %v", err)
  }

  msgs, err := svc.ListHistory(context.Background(), userA, 0)
  if err != nil {
    t.Fatalf("list history: %v", err)
  }
  if len(msgs) != 2 {
    t.Fatalf("expected 2 messages for A, got %d", len(msgs))
  }
  for _, m := range msgs {
    if m.UserID != userA {
      t.Fatalf("history leaked another user's message")
    }
  }
}
