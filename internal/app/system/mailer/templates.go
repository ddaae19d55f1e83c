// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ResetEmailData holds data for the password reset email.
type ResetEmailData struct {
	SiteName  string
	Username  string
	ResetLink string
	ExpiresIn string // e.g., "30 minutes"
}

// BuildPasswordResetEmail creates a reset email with both HTML and text bodies.
func BuildPasswordResetEmail(to string, data ResetEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildResetText(data),
		HTMLBody: buildResetHTML(data),
	}
}

func buildResetText(data ResetEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Username)
	fmt.Fprintf(&buf, "Someone asked to reset the password for your %s account.\n", data.SiteName)
	buf.WriteString("Open this link to choose a new one:\n")
	buf.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&buf, "The link expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not ask for this, you can ignore this email.\n")
	return buf.String()
}

var resetHTML = template.Must(template.New("reset").Parse(resetHTMLTemplate))

func buildResetHTML(data ResetEmailData) string {
	var buf bytes.Buffer
	_ = resetHTML.Execute(&buf, data)
	return buf.String()
}

const resetHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Password reset</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #0f172a;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #0f172a;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #1e293b; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; text-align: center;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 700; color: #f97316;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 16px 32px 32px; color: #e2e8f0; font-size: 16px; line-height: 1.5;">
              <p style="margin: 0 0 16px;">Hi {{.Username}},</p>
              <p style="margin: 0 0 24px;">Someone asked to reset the password for your account.</p>
              <p style="margin: 0 0 24px; text-align: center;">
                <a href="{{.ResetLink}}" style="display: inline-block; padding: 12px 28px; background-color: #f97316; color: #0f172a; font-weight: 600; text-decoration: none; border-radius: 6px;">Choose a new password</a>
              </p>
              <p style="margin: 0; font-size: 14px; color: #94a3b8;">The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this email.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
