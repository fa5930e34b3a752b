package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
  "github.com/amitai-labs/amitai-backend/internal/completion"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/normalization"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

const chatSystemPrompt = `You are AmitAI, a helpful and intelligent AI assistant created by Amit.
You provide accurate, well-structured, and helpful responses. Be concise but thorough.`

const (
  listDefaultLimit = 20
  listMaxLimit     = 50

  historyDefaultLimit = 100
  historyMaxLimit     = 200

  contextWindowSize = 20
)

// ConversationPage is one page of a user's conversation list. NextCursor is
// the ID of the last conversation on the page and is only set when more
// conversations remain.
type ConversationPage struct {
  Conversations []*types.Conversation
  HasMore       bool
  NextCursor    *uuid.UUID
}

type SendMessageResult struct {
  Conversation     *types.Conversation
  UserMessage      *types.ChatMessage
  AssistantMessage *types.ChatMessage
  ModelLabel       string
}

type ChatService interface {
  ListConversations(ctx context.Context, userID uuid.UUID, cursor *uuid.UUID, limit int) (*ConversationPage, error)
  CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*types.Conversation, error)
  GetConversation(ctx context.Context, userID, convID uuid.UUID) (*types.Conversation, []*types.ChatMessage, error)
  RenameConversation(ctx context.Context, userID, convID uuid.UUID, title string) (*types.Conversation, error)
  DeleteConversation(ctx context.Context, userID, convID uuid.UUID) error

  SendMessage(ctx context.Context, userID uuid.UUID, convID *uuid.UUID, message, modelID string) (*SendMessageResult, error)
  ClearHistory(ctx context.Context, userID, convID uuid.UUID) error
  ClearAllHistory(ctx context.Context, userID uuid.UUID) error
  ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatMessage, error)

  Models() []completion.ModelInfo
}

type chatService struct {
  db              *gorm.DB
  log             *logger.Logger
  convRepo        repos.ConversationRepo
  chatMessageRepo repos.ChatMessageRepo
  registry        *completion.Registry
}

func NewChatService(
  db *gorm.DB,
  log *logger.Logger,
  convRepo repos.ConversationRepo,
  chatMessageRepo repos.ChatMessageRepo,
  registry *completion.Registry,
) ChatService {
  serviceLog := log.With("service", "ChatService")
  return &chatService{
    db:              db,
    log:             serviceLog,
    convRepo:        convRepo,
    chatMessageRepo: chatMessageRepo,
    registry:        registry,
  }
}

//----------------------------------------------------------------------------------------------------------------------
// Conversation listing & CRUD
//----------------------------------------------------------------------------------------------------------------------

// ListConversations pages through a user's conversations in updated_at DESC
// order. The cursor is the ID of the last conversation of the previous page;
// the boundary it resolves to is that conversation's created_at, so a
// conversation bumped by new activity can resurface on a later page. A cursor
// that no longer resolves is ignored and the first page is served.
func (cs *chatService) ListConversations(ctx context.Context, userID uuid.UUID, cursor *uuid.UUID, limit int) (*ConversationPage, error) {
  if limit <= 0 {
    limit = listDefaultLimit
  }
  if limit > listMaxLimit {
    limit = listMaxLimit
  }

  var createdBefore *time.Time
  if cursor != nil {
    anchor, aErr := cs.convRepo.GetByIDForUser(ctx, nil, userID, *cursor)
    if aErr != nil {
      if !errors.Is(aErr, gorm.ErrRecordNotFound) {
        cs.log.Warn("Failed to resolve list cursor, Cannot proceed. Returning error.", "error", aErr)
        return nil, fmt.Errorf("Failed to resolve list cursor: %w", aErr)
      }
      cs.log.Info("List cursor did not resolve, serving first page", "cursor", cursor.String())
    } else {
      createdBefore = &anchor.CreatedAt
    }
  }

  convs, lErr := cs.convRepo.ListByUser(ctx, nil, userID, createdBefore, limit+1)
  if lErr != nil {
    cs.log.Warn("Failed to list conversations, Cannot proceed. Returning error.", "error", lErr)
    return nil, fmt.Errorf("Failed to list conversations: %w", lErr)
  }

  page := &ConversationPage{Conversations: convs}
  if len(convs) > limit {
    page.Conversations = convs[:limit]
    page.HasMore = true
    last := page.Conversations[len(page.Conversations)-1].ID
    page.NextCursor = &last
  }
  return page, nil
}

func (cs *chatService) CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*types.Conversation, error) {
  cleanTitle := normalization.TruncateTitle(normalization.ParseInputString(title), normalization.TitleMaxLen)
  if cleanTitle == "" {
    cleanTitle = normalization.DefaultConversationTitle
  }
  conv := &types.Conversation{
    ID:     uuid.New(),
    UserID: userID,
    Title:  cleanTitle,
  }
  created, cErr := cs.convRepo.Create(ctx, nil, []*types.Conversation{conv})
  if cErr != nil {
    cs.log.Warn("Failed to create conversation, Cannot proceed. Returning error.", "error", cErr)
    return nil, fmt.Errorf("Failed to create conversation: %w", cErr)
  }
  return created[0], nil
}

func (cs *chatService) GetConversation(ctx context.Context, userID, convID uuid.UUID) (*types.Conversation, []*types.ChatMessage, error) {
  conv, cErr := cs.getOwnedConversation(ctx, nil, userID, convID)
  if cErr != nil {
    return nil, nil, cErr
  }
  msgs, mErr := cs.chatMessageRepo.GetByConversationID(ctx, nil, convID)
  if mErr != nil {
    cs.log.Warn("Failed to load conversation messages, Cannot proceed. Returning error.", "error", mErr)
    return nil, nil, fmt.Errorf("Failed to load conversation messages: %w", mErr)
  }
  return conv, msgs, nil
}

func (cs *chatService) RenameConversation(ctx context.Context, userID, convID uuid.UUID, title string) (*types.Conversation, error) {
  cleanTitle := normalization.TruncateTitle(normalization.ParseInputString(title), normalization.TitleMaxLen)
  if cleanTitle == "" {
    return nil, apperrors.Invalidf("a title is required to rename a conversation")
  }
  conv, cErr := cs.getOwnedConversation(ctx, nil, userID, convID)
  if cErr != nil {
    return nil, cErr
  }
  conv.Title = cleanTitle
  saved, sErr := cs.convRepo.Save(ctx, nil, conv)
  if sErr != nil {
    cs.log.Warn("Failed to rename conversation, Cannot proceed. Returning error.", "error", sErr)
    return nil, fmt.Errorf("Failed to rename conversation: %w", sErr)
  }
  return saved, nil
}

// DeleteConversation removes the conversation and everything in it. The
// message delete is issued explicitly inside the transaction rather than
// leaning on the engine's cascade.
func (cs *chatService) DeleteConversation(ctx context.Context, userID, convID uuid.UUID) error {
  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    conv, cErr := cs.getOwnedConversation(ctx, tx, userID, convID)
    if cErr != nil {
      return cErr
    }
    if mErr := cs.chatMessageRepo.FullDeleteByConversationIDs(ctx, tx, []uuid.UUID{conv.ID}); mErr != nil {
      cs.log.Warn("Failed to delete conversation messages, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to delete conversation messages: %w", mErr)
    }
    if dErr := cs.convRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{conv.ID}); dErr != nil {
      cs.log.Warn("Failed to delete conversation, Cannot proceed. Returning error.", "error", dErr)
      return fmt.Errorf("Failed to delete conversation: %w", dErr)
    }
    return nil
  })
}

//----------------------------------------------------------------------------------------------------------------------
// Messages
//----------------------------------------------------------------------------------------------------------------------

// SendMessage runs one full chat turn. The provider is called before anything
// is written, so a failed or abandoned turn leaves no partial state; the user
// message, assistant reply, title derivation, and activity bump then land in
// a single transaction.
func (cs *chatService) SendMessage(ctx context.Context, userID uuid.UUID, convID *uuid.UUID, message, modelID string) (*SendMessageResult, error) {
  cleanMessage := normalization.ParseInputString(message)
  if cleanMessage == "" {
    return nil, apperrors.Invalidf("a message is required")
  }
  if modelID == "" {
    modelID = cs.registry.DefaultModel()
  }
  modelInfo, provider, rErr := cs.registry.Resolve(modelID)
  if rErr != nil {
    cs.log.Warn("Failed to resolve chat model, Cannot proceed. Returning error.", "error", rErr)
    return nil, apperrors.Invalidf("model '%s' is not available", modelID)
  }

  //1) Resolve the conversation and its provider window before any write
  var conv *types.Conversation
  var history []completion.Message
  if convID != nil {
    found, fErr := cs.getOwnedConversation(ctx, nil, userID, *convID)
    if fErr != nil {
      return nil, fErr
    }
    conv = found
    recentDesc, hErr := cs.chatMessageRepo.GetRecentByConversationID(ctx, nil, conv.ID, contextWindowSize)
    if hErr != nil {
      cs.log.Warn("Failed to load recent messages for provider window, Cannot proceed. Returning error.", "error", hErr)
      return nil, fmt.Errorf("Failed to load recent messages: %w", hErr)
    }
    history = make([]completion.Message, 0, len(recentDesc))
    for i := len(recentDesc) - 1; i >= 0; i-- {
      m := recentDesc[i]
      history = append(history, completion.Message{Role: string(m.Role), Content: m.Content})
    }
  }

  //2) Provider call
  reply, pErr := provider.Complete(ctx, completion.Request{
    Model:        modelInfo.ID,
    SystemPrompt: chatSystemPrompt,
    History:      history,
    UserMessage:  cleanMessage,
  })
  if pErr != nil {
    cs.log.Warn("Completion provider call failed, Cannot proceed. Returning error.", "error", pErr, "model", modelInfo.ID)
    return nil, pErr
  }

  //3) Persist the whole turn at once
  result := &SendMessageResult{ModelLabel: modelInfo.Label}
  if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if conv == nil {
      newConv := &types.Conversation{
        ID:     uuid.New(),
        UserID: userID,
        Title:  normalization.DeriveTitle("", cleanMessage),
      }
      created, cErr := cs.convRepo.Create(ctx, tx, []*types.Conversation{newConv})
      if cErr != nil {
        cs.log.Warn("Failed to create conversation for new turn, Cannot proceed. Returning error.", "error", cErr)
        return fmt.Errorf("Failed to create conversation: %w", cErr)
      }
      conv = created[0]
    }

    modelLabel := modelInfo.Label
    userMsg := &types.ChatMessage{
      ConversationID: conv.ID,
      UserID:         userID,
      Role:           types.RoleUser,
      Content:        cleanMessage,
      Model:          &modelLabel,
    }
    assistantMsg := &types.ChatMessage{
      ConversationID: conv.ID,
      UserID:         userID,
      Role:           types.RoleAssistant,
      Content:        reply,
      Model:          &modelLabel,
    }
    created, mErr := cs.chatMessageRepo.CreateMessages(ctx, tx, []*types.ChatMessage{userMsg, assistantMsg})
    if mErr != nil {
      cs.log.Warn("Failed to persist chat turn, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to persist chat turn: %w", mErr)
    }
    result.UserMessage = created[0]
    result.AssistantMessage = created[1]

    conv.Title = normalization.DeriveTitle(conv.Title, cleanMessage)
    conv.UpdatedAt = time.Now()
    saved, sErr := cs.convRepo.Save(ctx, tx, conv)
    if sErr != nil {
      cs.log.Warn("Failed to save conversation after turn, Cannot proceed. Returning error.", "error", sErr)
      return fmt.Errorf("Failed to save conversation after turn: %w", sErr)
    }
    result.Conversation = saved
    return nil
  }); err != nil {
    return nil, err
  }
  return result, nil
}

// ClearHistory deletes the conversation's messages but keeps the
// conversation itself, its title included.
func (cs *chatService) ClearHistory(ctx context.Context, userID, convID uuid.UUID) error {
  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    conv, cErr := cs.getOwnedConversation(ctx, tx, userID, convID)
    if cErr != nil {
      return cErr
    }
    if mErr := cs.chatMessageRepo.FullDeleteByConversationIDs(ctx, tx, []uuid.UUID{conv.ID}); mErr != nil {
      cs.log.Warn("Failed to clear conversation history, Cannot proceed. Returning error.", "error", mErr)
      return fmt.Errorf("Failed to clear conversation history: %w", mErr)
    }
    return nil
  })
}

// ClearAllHistory wipes every message the user owns across all of their
// conversations. The conversations themselves are retained, now empty.
func (cs *chatService) ClearAllHistory(ctx context.Context, userID uuid.UUID) error {
  if mErr := cs.chatMessageRepo.FullDeleteByUserIDs(ctx, nil, []uuid.UUID{userID}); mErr != nil {
    cs.log.Warn("Failed to clear all user history, Cannot proceed. Returning error.", "error", mErr)
    return fmt.Errorf("Failed to clear all user history: %w", mErr)
  }
  return nil
}

// ListHistory is the flat cross-conversation listing, oldest first.
func (cs *chatService) ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
  if limit <= 0 {
    limit = historyDefaultLimit
  }
  if limit > historyMaxLimit {
    limit = historyMaxLimit
  }
  msgs, mErr := cs.chatMessageRepo.ListByUser(ctx, nil, userID, limit)
  if mErr != nil {
    cs.log.Warn("Failed to list flat history, Cannot proceed. Returning error.", "error", mErr)
    return nil, fmt.Errorf("Failed to list flat history: %w", mErr)
  }
  return msgs, nil
}

func (cs *chatService) Models() []completion.ModelInfo {
  return cs.registry.Models()
}

// getOwnedConversation folds "does not exist" and "not yours" into the same
// not-found answer.
func (cs *chatService) getOwnedConversation(ctx context.Context, tx *gorm.DB, userID, convID uuid.UUID) (*types.Conversation, error) {
  conv, err := cs.convRepo.GetByIDForUser(ctx, tx, userID, convID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperrors.ErrNotFound
    }
    cs.log.Warn("Failed to fetch conversation, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("Failed to fetch conversation: %w", err)
  }
  return conv, nil
}
