package completion

import (
  "fmt"
  "strings"
  "sync"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/utils"
)

// ModelInfo describes one selectable chat model.
type ModelInfo struct {
  ID       string `json:"id"`
  Label    string `json:"label"`
  Provider string `json:"provider"`
}

var catalog = []ModelInfo{
  {ID: "llama-3.3-70b-versatile", Label: "Llama 3.3 70B", Provider: "groq"},
  {ID: "llama-3.1-8b-instant", Label: "Llama 3.1 8B", Provider: "groq"},
  {ID: "mixtral-8x7b-32768", Label: "Mixtral 8x7B", Provider: "groq"},
  {ID: "gemma2-9b-it", Label: "Gemma 2 9B", Provider: "groq"},
  {ID: "gpt-4", Label: "GPT-4", Provider: "openai"},
  {ID: "gpt-4-turbo-preview", Label: "GPT-4 Turbo", Provider: "openai"},
  {ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Provider: "openai"},
}

const fallbackDefaultModel = "llama-3.3-70b-versatile"

// Registry holds the providers the process was configured with and resolves
// model IDs to them. Models whose provider has no API key are not offered.
type Registry struct {
  mu        sync.RWMutex
  providers map[string]Provider
  models    []ModelInfo
  defaultID string
  log       *logger.Logger
}

// NewRegistry builds an empty registry; callers register providers
// themselves. An empty defaultModel falls back to the catalog default.
func NewRegistry(log *logger.Logger, defaultModel string) *Registry {
  if strings.TrimSpace(defaultModel) == "" {
    defaultModel = fallbackDefaultModel
  }
  return &Registry{
    providers: make(map[string]Provider),
    defaultID: defaultModel,
    log:       log.With("service", "CompletionRegistry"),
  }
}

// NewRegistryFromEnv wires providers from GROQ_API_KEY and OPENAI_API_KEY.
// At least one key must be present.
func NewRegistryFromEnv(log *logger.Logger) (*Registry, error) {
  r := NewRegistry(log, utils.GetEnv("DEFAULT_CHAT_MODEL", fallbackDefaultModel, log))
  if key := utils.GetEnv("GROQ_API_KEY", "", log); key != "" {
    r.Register(NewGroqProvider(key))
  }
  if key := utils.GetEnv("OPENAI_API_KEY", "", log); key != "" {
    r.Register(NewOpenAIProvider(key))
  }
  if len(r.providers) == 0 {
    return nil, fmt.Errorf("No completion provider configured; set GROQ_API_KEY or OPENAI_API_KEY")
  }
  if _, _, err := r.Resolve(r.defaultID); err != nil {
    return nil, fmt.Errorf("Default chat model %q is not available: %w", r.defaultID, err)
  }
  r.log.Info("Completion registry ready :)", "models", len(r.Models()), "default", r.defaultID)
  return r, nil
}

func (r *Registry) Register(p Provider) {
  r.mu.Lock()
  defer r.mu.Unlock()
  r.providers[p.Name()] = p
  r.models = nil
}

// Models lists the catalog entries whose provider is configured.
func (r *Registry) Models() []ModelInfo {
  r.mu.Lock()
  defer r.mu.Unlock()
  if r.models == nil {
    for _, m := range catalog {
      if _, ok := r.providers[m.Provider]; ok {
        r.models = append(r.models, m)
      }
    }
  }
  out := make([]ModelInfo, len(r.models))
  copy(out, r.models)
  return out
}

func (r *Registry) DefaultModel() string {
  return r.defaultID
}

// Resolve maps a model ID to its catalog entry and configured provider.
func (r *Registry) Resolve(modelID string) (ModelInfo, Provider, error) {
  modelID = strings.TrimSpace(modelID)
  for _, m := range catalog {
    if m.ID != modelID {
      continue
    }
    r.mu.RLock()
    p, ok := r.providers[m.Provider]
    r.mu.RUnlock()
    if !ok {
      return ModelInfo{}, nil, fmt.Errorf("model %q requires the %s provider, which is not configured", modelID, m.Provider)
    }
    return m, p, nil
  }
  return ModelInfo{}, nil, fmt.Errorf("unknown chat model: %q", modelID)
}
