package completion

import (
  "context"
)

// Message is a single prior turn handed to a provider.
type Message struct {
  Role    string
  Content string
}

// Request carries everything a provider needs to produce one assistant reply.
type Request struct {
  Model        string
  SystemPrompt string
  History      []Message
  UserMessage  string
}

// Provider produces a single non-streamed assistant reply.
type Provider interface {
  Name() string
  Complete(ctx context.Context, req Request) (string, error)
}
