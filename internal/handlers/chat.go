package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/amitai-labs/amitai-backend/internal/requestdata"
  "github.com/amitai-labs/amitai-backend/internal/services"
)

type ChatHandler struct {
  chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
  return &ChatHandler{chatService: chatService}
}

func (ch *ChatHandler) ListModels(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{"models": ch.chatService.Models()})
}

func (ch *ChatHandler) ListConversations(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  limit, _ := strconv.Atoi(c.Query("limit"))
  var cursor *uuid.UUID
  if raw := c.Query("cursor"); raw != "" {
    if parsed, err := uuid.Parse(raw); err == nil {
      cursor = &parsed
    }
  }
  page, err := ch.chatService.ListConversations(c.Request.Context(), rd.UserID, cursor, limit)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  resp := gin.H{
    "conversations": page.Conversations,
    "hasMore":       page.HasMore,
  }
  if page.NextCursor != nil {
    resp["nextCursor"] = page.NextCursor.String()
  }
  c.JSON(http.StatusOK, resp)
}

func (ch *ChatHandler) CreateConversation(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    Title string `json:"title"`
  }
  if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  conv, err := ch.chatService.CreateConversation(c.Request.Context(), rd.UserID, req.Title)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (ch *ChatHandler) GetConversation(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  convID, ok := parseConversationToken(c)
  if !ok {
    return
  }
  conv, msgs, err := ch.chatService.GetConversation(c.Request.Context(), rd.UserID, convID)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": msgs})
}

func (ch *ChatHandler) RenameConversation(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  convID, ok := parseConversationToken(c)
  if !ok {
    return
  }
  var req struct {
    Title string `json:"title"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  conv, err := ch.chatService.RenameConversation(c.Request.Context(), rd.UserID, convID, req.Title)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (ch *ChatHandler) DeleteConversation(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  convID, ok := parseConversationToken(c)
  if !ok {
    return
  }
  if err := ch.chatService.DeleteConversation(c.Request.Context(), rd.UserID, convID); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "conversation deleted"})
}

func (ch *ChatHandler) SendMessage(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  var req struct {
    Message           string `json:"message"`
    ConversationToken string `json:"conversationToken,omitempty"`
    Model             string `json:"model,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  var convID *uuid.UUID
  if req.ConversationToken != "" {
    parsed, pErr := uuid.Parse(req.ConversationToken)
    if pErr != nil {
      c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
      return
    }
    convID = &parsed
  }
  result, err := ch.chatService.SendMessage(c.Request.Context(), rd.UserID, convID, req.Message, req.Model)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "response":          result.AssistantMessage.Content,
    "model":             result.ModelLabel,
    "conversationToken": result.Conversation.ID.String(),
    "title":             result.Conversation.Title,
  })
}

func (ch *ChatHandler) ClearHistory(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  convID, ok := parseConversationToken(c)
  if !ok {
    return
  }
  if err := ch.chatService.ClearHistory(c.Request.Context(), rd.UserID, convID); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
}

func (ch *ChatHandler) ClearAllHistory(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  if err := ch.chatService.ClearAllHistory(c.Request.Context(), rd.UserID); err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
}

func (ch *ChatHandler) ListHistory(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing request data"})
    return
  }
  limit, _ := strconv.Atoi(c.Query("limit"))
  msgs, err := ch.chatService.ListHistory(c.Request.Context(), rd.UserID, limit)
  if err != nil {
    status, msg := statusForError(err)
    c.JSON(status, gin.H{"error": msg})
    return
  }
  c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// parseConversationToken reads the :token path param; a malformed token is
// reported the same way as a missing conversation.
func parseConversationToken(c *gin.Context) (uuid.UUID, bool) {
  convID, err := uuid.Parse(c.Param("token"))
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
    return uuid.Nil, false
  }
  return convID, true
}
