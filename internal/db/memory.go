package db

import (
  "fmt"

  "github.com/glebarez/sqlite"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/logger"
)

// MemoryService keeps everything in an in-process sqlite database. It exists
// for local development and tests; selecting it is an explicit operator
// choice at startup, never a fallback the process switches to on its own.
type MemoryService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMemoryService(log *logger.Logger) (*MemoryService, error) {
  serviceLog := log.With("service", "MemoryService")

  serviceLog.Warn("Using in-memory storage; data will not survive a restart")
  db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
  if err != nil {
    serviceLog.Error("Failed to open in-memory sqlite DB", "error", err)
    return nil, fmt.Errorf("Failed to open in-memory sqlite DB: %w", err)
  }
  return &MemoryService{db: db, log: serviceLog}, nil
}

func (s *MemoryService) AutoMigrateAll() error {
  if err := s.db.AutoMigrate(allModels()...); err != nil {
    s.log.Error("AutoMigrateAll failed for in-memory sqlite", "error", err)
    return err
  }
  return nil
}

func (s *MemoryService) DB() *gorm.DB {
  return s.db
}
