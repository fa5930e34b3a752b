package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/amitai-labs/amitai-backend/internal/handlers"
  "github.com/amitai-labs/amitai-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler    *handlers.AuthHandler
  AuthMiddleware *middleware.AuthMiddleware
  MeHandler      *handlers.MeHandler
  ChatHandler    *handlers.ChatHandler
  ResumeHandler  *handlers.ResumeHandler
  AdminHandler   *handlers.AdminHandler
  AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  allowOrigins := cfg.AllowOrigins
  if len(allowOrigins) == 0 {
    allowOrigins = []string{
      "http://localhost:3000",
      "https://amitai.app",
      "https://www.amitai.app",
    }
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/healthz", handlers.Healthz)

  //-----------------------------------------
  // Public Routes
  //-----------------------------------------
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
    api.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
    api.POST("/reset-password", cfg.AuthHandler.ResetPassword)
  }

  //------------------------------------------
  // Protected Routes
  //------------------------------------------
  protected := api.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)

  //ME
  protected.GET("/me", cfg.MeHandler.GetMe)
  protected.PATCH("/me", cfg.MeHandler.UpdateMyName)
  protected.POST("/me/change-password", cfg.MeHandler.ChangeMyPassword)
  protected.POST("/me/delete-account", cfg.MeHandler.DeleteMyAccount)

  //Chat
  chat := protected.Group("/chat")
  chat.GET("/models", cfg.ChatHandler.ListModels)
  chat.GET("/conversations", cfg.ChatHandler.ListConversations)
  chat.POST("/conversations", cfg.ChatHandler.CreateConversation)
  chat.GET("/conversations/:token", cfg.ChatHandler.GetConversation)
  chat.PATCH("/conversations/:token", cfg.ChatHandler.RenameConversation)
  chat.DELETE("/conversations/:token", cfg.ChatHandler.DeleteConversation)
  chat.DELETE("/conversations/:token/messages", cfg.ChatHandler.ClearHistory)
  chat.POST("/message", cfg.ChatHandler.SendMessage)
  chat.GET("/history", cfg.ChatHandler.ListHistory)
  chat.DELETE("/history", cfg.ChatHandler.ClearAllHistory)

  //Resume
  resume := protected.Group("/resume")
  resume.POST("/analyze", cfg.ResumeHandler.Analyze)
  resume.GET("/analyses", cfg.ResumeHandler.ListMine)

  //Admin
  admin := protected.Group("/admin")
  admin.Use(cfg.AuthMiddleware.RequireAdmin())
  admin.GET("/users", cfg.AdminHandler.ListUsers)
  admin.DELETE("/users/:id", cfg.AdminHandler.DeleteUser)
  admin.GET("/analyses", cfg.AdminHandler.ListAnalyses)
  admin.GET("/stats", cfg.AdminHandler.GetStats)

  return router
}
