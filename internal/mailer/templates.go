package mailer

import (
	"bytes"                 // Template output buffer
	"fmt"                   // Error wrapping
	htmltpl "html/template" // Escaped HTML body
	texttpl "text/template" // Plaintext body
	"time"                  // Validity window
)

// ResetOTPSubject is the subject line of password reset mail
const ResetOTPSubject = "Password Reset OTP - TaxPal"

var resetText = texttpl.Must(texttpl.New("reset.txt").Parse(`Hello {{.Name}},

You requested a password reset for your TaxPal account.

Your OTP is: {{.OTP}}

This OTP will expire in {{.Minutes}} minutes.

If you didn't request this, please ignore this email.

Best regards,
TaxPal Team
`))

var resetHTML = htmltpl.Must(htmltpl.New("reset.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
    .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
    .otp-box { background-color: white; border: 2px dashed #4F46E5; padding: 20px; text-align: center; margin: 20px 0; border-radius: 5px; }
    .otp { font-size: 32px; font-weight: bold; color: #4F46E5; letter-spacing: 5px; }
    .footer { text-align: center; margin-top: 20px; color: #666; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Password Reset Request</h1></div>
    <div class="content">
      <p>Hello <strong>{{.Name}}</strong>,</p>
      <p>You requested a password reset for your TaxPal account.</p>
      <div class="otp-box">
        <p style="margin: 0; font-size: 14px; color: #666;">Your OTP is:</p>
        <div class="otp">{{.OTP}}</div>
      </div>
      <p><strong>This OTP will expire in {{.Minutes}} minutes.</strong></p>
      <p>If you didn't request this password reset, please ignore this email and your password will remain unchanged.</p>
      <p>Best regards,<br>TaxPal Team</p>
    </div>
    <div class="footer"><p>This is an automated email. Please do not reply.</p></div>
  </div>
</body>
</html>
`))

// ResetOTPMessage renders the password reset email carrying otp
func ResetOTPMessage(to, name, otp string, validFor time.Duration) (Message, error) {
	data := struct {
		Name    string
		OTP     string
		Minutes int
	}{name, otp, int(validFor.Minutes())}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render reset text: %w", err)
	}
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render reset html: %w", err)
	}
	return Message{To: to, Subject: ResetOTPSubject, Text: text.String(), HTML: html.String()}, nil
}
