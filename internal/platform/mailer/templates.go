// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// PasswordResetSubject is the subject line of the reset email.
const PasswordResetSubject = "Reset Your Password"

// PasswordResetData fills the password-reset templates.
type PasswordResetData struct {
	// Name is the optional greeting name.
	Name string

	// Link embeds the raw reset token.
	Link string

	// ExpiresIn is the remaining validity of the link.
	ExpiresIn time.Duration
}

var passwordResetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Password Reset</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f4f4f4; padding: 20px; border-radius: 5px;">
    <h1 style="color: #333; margin-top: 0;">Password Reset Request</h1>
    <p>Hello{{if .Name}} {{.Name}}{{end}},</p>
    <p>We received a request to reset your password. Click the button below to reset it:</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
    </div>
    <p>Or copy and paste this link into your browser:</p>
    <p style="background-color: #f9f9f9; padding: 10px; border-radius: 3px; word-break: break-all;">
      <a href="{{.Link}}" style="color: #007bff;">{{.Link}}</a>
    </p>
    <p style="color: #666; font-size: 14px;">
      <strong>Important:</strong> This link will expire in {{.ExpiresIn}}. If you didn't request this password reset, please ignore this email.
    </p>
    <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
    <p style="color: #999; font-size: 12px; margin: 0;">This is an automated message, please do not reply to this email.</p>
  </div>
</body>
</html>`))

var passwordResetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Password Reset Request

Hello{{if .Name}} {{.Name}}{{end}},

We received a request to reset your password. Use the link below to reset it:

{{.Link}}

Important: This link will expire in {{.ExpiresIn}}. If you didn't request this password reset, please ignore this email.

This is an automated message, please do not reply to this email.`))

/*
PasswordResetMessage renders the reset email for one recipient.

Parameters:
  - to: string (recipient address)
  - data: PasswordResetData

Returns:
  - Message: Subject, HTML and text bodies
  - error: Template execution failures
*/
func PasswordResetMessage(to string, data PasswordResetData) (Message, error) {
	view := struct {
		Name      string
		Link      string
		ExpiresIn string
	}{
		Name:      data.Name,
		Link:      data.Link,
		ExpiresIn: HumanizeDuration(data.ExpiresIn),
	}

	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("mailer: failed to render reset html: %w", err)
	}
	if err := passwordResetText.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("mailer: failed to render reset text: %w", err)
	}

	return Message{
		To:      to,
		Subject: PasswordResetSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// HumanizeDuration renders whole hours or minutes ("1 hour", "30 minutes").
func HumanizeDuration(duration time.Duration) string {
	plural := func(count int64, unit string) string {
		if count == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", count, unit)
	}

	switch {
	case duration >= time.Hour && duration%time.Hour == 0:
		return plural(int64(duration/time.Hour), "hour")
	case duration >= time.Minute:
		return plural(int64(duration/time.Minute), "minute")
	default:
		return strings.TrimSpace(duration.String())
	}
}
