package main

import (
  "context"
  "fmt"
  "os"
  "strings"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/amitai-labs/amitai-backend/internal/completion"
  "github.com/amitai-labs/amitai-backend/internal/db"
  "github.com/amitai-labs/amitai-backend/internal/handlers"
  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/middleware"
  "github.com/amitai-labs/amitai-backend/internal/repos"
  "github.com/amitai-labs/amitai-backend/internal/server"
  "github.com/amitai-labs/amitai-backend/internal/services"
  "github.com/amitai-labs/amitai-backend/internal/utils"
)

func main() {
  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Environment Variables
  log.Info("Attempting to load environment variables for Main now...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "localhost:6379", log)
  redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
  adminEmails := utils.GetEnv("ADMIN_EMAILS", "", log)
  corsOrigins := utils.GetEnv("CORS_ORIGINS", "", log)

  // Storage Setup
  log.Info("Setting Up Storage from Main now...")
  dbService, err := db.NewService(log)
  if err != nil {
    log.Error("Storage init failed :(", "error", err)
    os.Exit(1)
  }
  if err = dbService.AutoMigrateAll(); err != nil {
    log.Warn("Auto migration failed", "error", err)
  }
  theDB := dbService.DB()
  log.Info("Storage Setup From Main Successful :)")

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  userRepo := repos.NewUserRepo(theDB, log)
  userTokenRepo := repos.NewUserTokenRepo(theDB, log)
  oneTimeCodeRepo := repos.NewOneTimeCodeRepo(theDB, log)
  convRepo := repos.NewConversationRepo(theDB, log)
  chatMessageRepo := repos.NewChatMessageRepo(theDB, log)
  analysisRepo := repos.NewResumeAnalysisRepo(theDB, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Redis Setup (admin stats cache)
  log.Info("Setting Up Redis From Main Now :)")
  var redisClient *redis.Client
  rdb := redis.NewClient(&redis.Options{Addr: redisAddress, Password: redisPassword, DB: 0})
  pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
  if err := rdb.Ping(pingCtx).Err(); err != nil {
    log.Warn("Redis ping failed, admin stats will not be cached", "error", err)
  } else {
    redisClient = rdb
    log.Info("Redis is active!")
  }
  cancel()

  // Completion Registry Setup
  log.Info("Setting Up Completion Registry From Main Now :)")
  registry, err := completion.NewRegistryFromEnv(log)
  if err != nil {
    log.Error("Fatal error: Cannot init completion registry", "error", err)
    os.Exit(1)
  }

  // Services Setup
  log.Info("Setting up Services from Main now...")
  emailService, err := services.NewEmailService(log)
  if err != nil {
    log.Error("Fatal error: Cannot init EmailService", "error", err)
    os.Exit(1)
  }
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Error("Fatal error: Cannot init BucketService", "error", err)
    os.Exit(1)
  }
  avatarService, err := services.NewAvatarService(theDB, log, bucketService)
  if err != nil {
    log.Error("Fatal error: Cannot init AvatarService", "error", err)
    os.Exit(1)
  }
  authService := services.NewAuthService(theDB, log, userRepo, userTokenRepo, oneTimeCodeRepo, avatarService, emailService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  meService := services.NewMeService(theDB, log, userRepo, userTokenRepo, oneTimeCodeRepo, convRepo, chatMessageRepo, analysisRepo, emailService)
  chatService := services.NewChatService(theDB, log, convRepo, chatMessageRepo, registry)
  resumeService := services.NewResumeService(theDB, log, analysisRepo, registry, bucketService)
  adminService := services.NewAdminService(theDB, log, userRepo, userTokenRepo, oneTimeCodeRepo, convRepo, chatMessageRepo, analysisRepo, redisClient)
  log.Info("Services Set Up From Main Successful :)")

  // Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  authHandler := handlers.NewAuthHandler(authService)
  meHandler := handlers.NewMeHandler(meService)
  chatHandler := handlers.NewChatHandler(chatService)
  resumeHandler := handlers.NewResumeHandler(resumeService)
  adminHandler := handlers.NewAdminHandler(adminService)
  log.Info("Handlers Set Up From Main Successful :)")

  // MiddleWare Setup
  log.Info("Setting Up Middleware from Main now...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService, adminEmails)
  log.Info("Middleware Set Up From Main Successful :)")

  // Router Setup
  log.Info("Setting Up Router from Main now...")
  var allowOrigins []string
  if corsOrigins != "" {
    for _, origin := range strings.Split(corsOrigins, ",") {
      if origin = strings.TrimSpace(origin); origin != "" {
        allowOrigins = append(allowOrigins, origin)
      }
    }
  }
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    MeHandler:      meHandler,
    ChatHandler:    chatHandler,
    ResumeHandler:  resumeHandler,
    AdminHandler:   adminHandler,
    AllowOrigins:   allowOrigins,
  })
  log.Info("Router Set Up From Main Successful :)")

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
