// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the retries of a [Notifier].
type RetryConfig struct {
	// MaxAttempts includes the first attempt. Values below 1 mean 1.
	MaxAttempts int

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Notifier sends messages through a [Sender], retrying transient failures
// with exponential backoff until MaxAttempts or the context deadline.
type Notifier struct {
	sender Sender
	config RetryConfig
	logger *slog.Logger
}

// NewNotifier wraps sender with retries.
func NewNotifier(sender Sender, config RetryConfig, logger *slog.Logger) *Notifier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = 200 * time.Millisecond
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 2 * time.Second
	}
	return &Notifier{sender: sender, config: config, logger: logger}
}

/*
Send delivers message, retrying transient failures.

Description: A deadline hit during an attempt counts as transient; the loop
stops when the caller's context is done. [ErrInvalidMessage] stops it at once.

Parameters:
  - ctx: context.Context (its deadline bounds all attempts together)
  - message: Message

Returns:
  - error: The last delivery failure, or the context error
*/
func (notifier *Notifier) Send(ctx context.Context, message Message) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = notifier.config.InitialInterval
	policy.MaxInterval = notifier.config.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := notifier.sender.Send(ctx, message)
		if errors.Is(err, ErrInvalidMessage) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(notifier.config.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			notifier.logger.WarnContext(ctx, "mail_delivery_retry",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("mailer: delivery failed after %d attempt(s): %w", attempt, err)
	}

	return nil
}
