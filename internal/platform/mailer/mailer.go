// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email.

Architecture:

  - Sender: one delivery attempt for one [Message] (SMTP in production).
  - Notifier: wraps a Sender with bounded exponential-backoff retries.
  - Templates: renders the password-reset message in HTML and plain text.

Callers own the overall deadline through the context they pass in.
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// ErrInvalidMessage reports a message that can never be delivered as built
// (bad sender or recipient address). Retrying it is pointless.
var ErrInvalidMessage = errors.New("mailer: invalid message")

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// # SMTP Delivery

// SMTPConfig is the immutable relay configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// RequireTLS refuses to send over a connection that did not upgrade with STARTTLS.
	RequireTLS bool
}

// SMTPSender delivers messages through an SMTP relay with go-mail.
type SMTPSender struct {
	client *mail.Client
	from   string
}

/*
NewSMTPSender builds a sender for the given relay. No connection is opened
until the first [SMTPSender.Send].

Parameters:
  - config: SMTPConfig

Returns:
  - *SMTPSender: Ready sender
  - error: Invalid relay options
*/
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	options := []mail.Option{mail.WithPort(config.Port)}

	if config.RequireTLS {
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		options = append(options, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("mailer: failed to configure smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: config.From}, nil
}

// Send implements [Sender].
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	envelope := mail.NewMsg()

	if err := envelope.From(sender.from); err != nil {
		return fmt.Errorf("%w: from: %w", ErrInvalidMessage, err)
	}
	if err := envelope.To(message.To); err != nil {
		return fmt.Errorf("%w: to: %w", ErrInvalidMessage, err)
	}

	envelope.Subject(message.Subject)
	envelope.SetBodyString(mail.TypeTextPlain, message.Text)
	if message.HTML != "" {
		envelope.AddAlternativeString(mail.TypeTextHTML, message.HTML)
	}

	if err := sender.client.DialAndSendWithContext(ctx, envelope); err != nil {
		return fmt.Errorf("mailer: smtp delivery failed: %w", err)
	}

	return nil
}

// # Development Delivery

// LogSender records that a message was dropped instead of delivering it.
// It is used outside production when no SMTP relay is configured. Bodies
// carry live reset links and are never logged.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements [Sender].
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	sender.logger.InfoContext(ctx, "mail_delivery_skipped",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
	)
	return nil
}
