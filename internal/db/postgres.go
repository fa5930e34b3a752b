package db

import (
  "fmt"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  //1) Get and Set Environment Variables
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "amitai", log)

  //2) Construct DSN From Environment Variables
  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  //3) Attempt DB Connection
  serviceLog.Info("Attempting to connect to Postgres DB now...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to connect to Postgres DB", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres DB: %w", err)
  }
  serviceLog.Info("Successfully Connected to Postgres DB :)")

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Starting AutoMigrateAll for all GORM models now...")

  if err := s.db.AutoMigrate(allModels()...); err != nil {
    s.log.Error("AutoMigrateAll failed for Base Tables :(", "error", err)
    return err
  }
  s.log.Info("AutoMigrateAll completed successfully for Base Tables :)")

  // The repos delete child rows in explicit transactions; these constraints
  // only back that up at the engine level.
  s.log.Info("Configuring Foreign Key Relationships for Base Tables now...")
  // -- UserToken.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "user_token"
      ADD CONSTRAINT "fk_user_token_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_user_token_user_id: %w", err)
  }
  // -- OneTimeCode.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "one_time_code"
      ADD CONSTRAINT "fk_one_time_code_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_one_time_code_user_id: %w", err)
  }
  // -- Conversation.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "conversation"
      ADD CONSTRAINT "fk_conversation_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_conversation_user_id: %w", err)
  }
  // -- ChatMessage.conversation_id => conversation.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "chat_message"
      ADD CONSTRAINT "fk_chat_message_conversation_id"
      FOREIGN KEY ("conversation_id")
      REFERENCES "conversation"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_chat_message_conversation_id: %w", err)
  }
  // -- ChatMessage.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "chat_message"
      ADD CONSTRAINT "fk_chat_message_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_chat_message_user_id: %w", err)
  }
  // -- ResumeAnalysis.user_id => user.id (ON DELETE CASCADE)
  if err := s.db.Exec(`
      ALTER TABLE "resume_analysis"
      ADD CONSTRAINT "fk_resume_analysis_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
  `).Error; err != nil {
      return fmt.Errorf("failed to add fk_resume_analysis_user_id: %w", err)
  }
  s.log.Info("Successfully Added Foreign Key Relationships to Base Tables :)")

  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
