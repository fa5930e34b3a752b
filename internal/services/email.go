package services

import (
  "context"
  "fmt"
  "os"

  "github.com/sendgrid/sendgrid-go"
  "github.com/sendgrid/sendgrid-go/helpers/mail"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/templates"
)

type EmailService interface {
  SendEmail(ctx context.Context, toEmail string, subject string, plainText string, htmlContent string, emailType string) error

  SendWelcomeEmail(ctx context.Context, toEmail, name string) error
  SendPasswordResetEmail(ctx context.Context, toEmail, name, resetToken string) error
  SendPasswordChangedEmail(ctx context.Context, toEmail, name string) error
}

type emailService struct {
  log              *logger.Logger
  client           *sendgrid.Client
  fromSupportEmail string
  fromAuthEmail    string
  appBaseURL       string
}

func NewEmailService(log *logger.Logger) (EmailService, error) {
  serviceLog := log.With("service", "EmailService")
  apiKey := os.Getenv("SENDGRID_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("Missing SENDGRID_API_KEY environment variable")
  }
  fromSupport := os.Getenv("SENDGRID_SUPPORT_EMAIL")
  if fromSupport == "" {
    serviceLog.Warn("SENDGRID_SUPPORT_EMAIL not set; using fallback no-reply@amitai.app")
    fromSupport = "no-reply@amitai.app"
  }
  fromAuth := os.Getenv("SENDGRID_AUTHORIZATION_EMAIL")
  if fromAuth == "" {
    serviceLog.Warn("SENDGRID_AUTHORIZATION_EMAIL not set; using fallback authorization@amitai.app")
    fromAuth = "authorization@amitai.app"
  }
  appBaseURL := os.Getenv("APP_BASE_URL")
  if appBaseURL == "" {
    serviceLog.Warn("APP_BASE_URL not set; reset links will use fallback http://localhost:3000")
    appBaseURL = "http://localhost:3000"
  }
  client := sendgrid.NewSendClient(apiKey)

  return &emailService{
    log:              serviceLog,
    client:           client,
    fromSupportEmail: fromSupport,
    fromAuthEmail:    fromAuth,
    appBaseURL:       appBaseURL,
  }, nil
}

func (es *emailService) SendEmail(ctx context.Context, toEmail string, subject string, plainText string, htmlContent string, emailType string) error {
  var fromName = "AmitAI"
  var fromEmail = es.fromSupportEmail
  switch emailType {
  case "authorization":
    fromName = "AmitAI Security"
    fromEmail = es.fromAuthEmail
  case "support":
    fromName = "AmitAI Support"
    fromEmail = es.fromSupportEmail
  default:

  }
  from := mail.NewEmail(fromName, fromEmail)
  to := mail.NewEmail("", toEmail)
  message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
  response, err := es.client.SendWithContext(ctx, message)
  if err != nil {
    es.log.Warn("Sendgrid email send failed", "error", err)
    return err
  }
  es.log.Info("Email sent", "to", toEmail, "statusCode", response.StatusCode)
  return nil
}

func (es *emailService) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
  html := templates.WelcomeEmailHTML(name)
  plain := fmt.Sprintf("Hi %s, welcome to AmitAI! Your account is ready.", name)
  return es.SendEmail(ctx, toEmail, "Welcome to AmitAI", plain, html, "support")
}

func (es *emailService) SendPasswordResetEmail(ctx context.Context, toEmail, name, resetToken string) error {
  resetURL := es.resetURL(resetToken)
  html := templates.PasswordResetEmailHTML(name, resetURL)
  plain := fmt.Sprintf("Hi %s, reset your AmitAI password here: %s (link expires in 1 hour)", name, resetURL)
  return es.SendEmail(ctx, toEmail, "Reset your AmitAI password", plain, html, "authorization")
}

func (es *emailService) SendPasswordChangedEmail(ctx context.Context, toEmail, name string) error {
  html := templates.PasswordChangedEmailHTML(name)
  plain := fmt.Sprintf("Hi %s, your AmitAI password was just changed. If this wasn't you, contact support right away.", name)
  return es.SendEmail(ctx, toEmail, "Your AmitAI password was changed", plain, html, "authorization")
}

// resetURL builds the front-end reset link carrying the raw one-time token.
func (es *emailService) resetURL(token string) string {
  return fmt.Sprintf("%s/reset-password?token=%s", es.appBaseURL, token)
}
