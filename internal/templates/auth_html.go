package templates

import (
	"bytes"
	"html/template"
)

type AuthEmailData struct {
	RecipientName string
	ResetURL      string
}

const baseStyles = `
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
      background-color: #f5f5f5;
      color: #333;
    }
    .email-container {
      width: 100%;
      max-width: 600px;
      margin: 0 auto;
      background-color: #ffffff;
      border-radius: 6px;
      overflow: hidden;
      box-shadow: 0 2px 5px rgba(0,0,0,0.1);
    }
    .header {
      background-color: #333;
      padding: 20px;
      text-align: center;
      color: #fff;
    }
    .header h1 {
      margin: 10px 0 0;
      font-size: 24px;
    }
    .content {
      padding: 20px;
      text-align: left;
    }
    .button-container {
      text-align: center;
      margin: 20px 0;
    }
    .cta-button {
      display: inline-block;
      padding: 12px 24px;
      background-color: #333;
      color: #ffffff;
      text-decoration: none;
      border-radius: 4px;
      font-weight: bold;
    }
    .footer {
      font-size: 12px;
      color: #999;
      text-align: center;
      padding: 10px 20px;
    }
    .highlight {
      font-weight: bold;
      color: #333;
    }
`

const welcomeHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Welcome to AmitAI</title>
  <style>` + baseStyles + `</style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <div class="header">
          <h1>Welcome to AmitAI!</h1>
        </div>
        <div class="content">
          {{if .RecipientName}}
            <p>Hi <span class="highlight">{{.RecipientName}}</span>,</p>
          {{else}}
            <p>Hello,</p>
          {{end}}
          <p>Your account is ready. Start a conversation, pick a model you like,
             or upload a resume for instant feedback.</p>
        </div>
        <div class="footer">
          <p>&copy; 2025 AmitAI. All rights reserved.</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

const passwordResetHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Reset Your Password</title>
  <style>` + baseStyles + `</style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <div class="header">
          <h1>Reset Your Password</h1>
        </div>
        <div class="content">
          {{if .RecipientName}}
            <p>Hi <span class="highlight">{{.RecipientName}}</span>,</p>
          {{else}}
            <p>Hello,</p>
          {{end}}
          <p>We received a request to reset the password for your AmitAI account.
             Click the button below to choose a new one. This link expires in
             <span class="highlight">1 hour</span>.</p>
          <div class="button-container">
            <a class="cta-button" href="{{.ResetURL}}">Reset Password</a>
          </div>
          <p>If you didn't request this, you can safely ignore this email.</p>
        </div>
        <div class="footer">
          <p>&copy; 2025 AmitAI. All rights reserved.</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

const passwordChangedHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Password Changed</title>
  <style>` + baseStyles + `</style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <div class="header">
          <h1>Your Password Was Changed</h1>
        </div>
        <div class="content">
          {{if .RecipientName}}
            <p>Hi <span class="highlight">{{.RecipientName}}</span>,</p>
          {{else}}
            <p>Hello,</p>
          {{end}}
          <p>This is a confirmation that the password for your AmitAI account was
             just changed. If this was you, no further action is needed.</p>
          <p>If this wasn't you, please contact support right away.</p>
        </div>
        <div class="footer">
          <p>&copy; 2025 AmitAI. All rights reserved.</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

var (
	welcomeTmpl         = template.Must(template.New("welcome").Parse(welcomeHTML))
	passwordResetTmpl   = template.Must(template.New("password_reset").Parse(passwordResetHTML))
	passwordChangedTmpl = template.Must(template.New("password_changed").Parse(passwordChangedHTML))
)

func WelcomeEmailHTML(name string) string {
	return render(welcomeTmpl, AuthEmailData{RecipientName: name})
}

func PasswordResetEmailHTML(name, resetURL string) string {
	return render(passwordResetTmpl, AuthEmailData{RecipientName: name, ResetURL: resetURL})
}

func PasswordChangedEmailHTML(name string) string {
	return render(passwordChangedTmpl, AuthEmailData{RecipientName: name})
}

func render(tmpl *template.Template, data AuthEmailData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
