package db

import (
  "fmt"

  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/types"
  "github.com/amitai-labs/amitai-backend/internal/utils"
)

// Service is the storage collaborator. Both implementations are explicit and
// picked exactly once at process start; there is no silent fallback from one
// to the other while the process runs.
type Service interface {
  DB() *gorm.DB
  AutoMigrateAll() error
}

// NewService selects the storage driver from STORAGE_DRIVER: "postgres"
// (default) or "memory" (in-process sqlite, data lost on restart).
func NewService(log *logger.Logger) (Service, error) {
  driver := utils.GetEnv("STORAGE_DRIVER", "postgres", log)
  switch driver {
  case "postgres":
    return NewPostgresService(log)
  case "memory":
    return NewMemoryService(log)
  default:
    return nil, fmt.Errorf("unknown STORAGE_DRIVER: '%s' (want 'postgres' or 'memory')", driver)
  }
}

func allModels() []interface{} {
  return []interface{}{
    &types.User{},
    &types.UserToken{},
    &types.OneTimeCode{},
    &types.Conversation{},
    &types.ChatMessage{},
    &types.ResumeAnalysis{},
  }
}
