package completion

import (
  "context"
  "errors"
  "fmt"
  "strings"

  openaiapi "github.com/sashabaranov/go-openai"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
)

const (
  groqBaseURL = "https://api.groq.com/openai/v1"

  defaultTemperature = 0.7
  defaultMaxTokens   = 2000
)

// ChatProvider calls any OpenAI-compatible chat completion endpoint.
// Groq exposes the same wire protocol, so both providers share it and
// differ only in base URL and key.
type ChatProvider struct {
  name string
  api  *openaiapi.Client
}

func NewOpenAIProvider(apiKey string) *ChatProvider {
  return &ChatProvider{
    name: "openai",
    api:  openaiapi.NewClient(apiKey),
  }
}

func NewGroqProvider(apiKey string) *ChatProvider {
  cfg := openaiapi.DefaultConfig(apiKey)
  cfg.BaseURL = groqBaseURL
  return &ChatProvider{
    name: "groq",
    api:  openaiapi.NewClientWithConfig(cfg),
  }
}

func (p *ChatProvider) Name() string {
  return p.name
}

func (p *ChatProvider) Complete(ctx context.Context, req Request) (string, error) {
  messages := make([]openaiapi.ChatCompletionMessage, 0, len(req.History)+2)
  if strings.TrimSpace(req.SystemPrompt) != "" {
    messages = append(messages, openaiapi.ChatCompletionMessage{
      Role:    openaiapi.ChatMessageRoleSystem,
      Content: req.SystemPrompt,
    })
  }
  for _, m := range req.History {
    messages = append(messages, openaiapi.ChatCompletionMessage{
      Role:    m.Role,
      Content: m.Content,
    })
  }
  messages = append(messages, openaiapi.ChatCompletionMessage{
    Role:    openaiapi.ChatMessageRoleUser,
    Content: req.UserMessage,
  })

  resp, err := p.api.CreateChatCompletion(ctx, openaiapi.ChatCompletionRequest{
    Model:       req.Model,
    Messages:    messages,
    Temperature: defaultTemperature,
    MaxTokens:   defaultMaxTokens,
  })
  if err != nil {
    return "", p.classify(err)
  }
  if len(resp.Choices) == 0 {
    return "", apperrors.NewProviderError(apperrors.ProviderUnavailable, p.name,
      errors.New("empty completion response"))
  }
  return resp.Choices[0].Message.Content, nil
}

// classify maps transport and API failures onto the small set of kinds the
// HTTP layer knows how to report.
func (p *ChatProvider) classify(err error) error {
  var apiErr *openaiapi.APIError
  if errors.As(err, &apiErr) {
    switch apiErr.HTTPStatusCode {
    case 429:
      return apperrors.NewProviderError(apperrors.ProviderRateLimited, p.name, err)
    case 401, 403:
      return apperrors.NewProviderError(apperrors.ProviderUnauthenticated, p.name, err)
    }
    return apperrors.NewProviderError(apperrors.ProviderUnavailable, p.name, err)
  }
  var reqErr *openaiapi.RequestError
  if errors.As(err, &reqErr) {
    return apperrors.NewProviderError(apperrors.ProviderUnavailable, p.name, err)
  }
  return apperrors.NewProviderError(apperrors.ProviderUnavailable, p.name,
    fmt.Errorf("completion request failed: %w", err))
}
