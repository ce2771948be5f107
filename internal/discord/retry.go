package discord

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Default retry policy for transient Discord API failures.
const (
	DefaultRetryAttempts = 5
	DefaultRetryDelay    = 5 * time.Second
)

// RetryingPort decorates a Port with a fixed retry policy. Exhausting the
// attempts logs the final error and yields a nil result: UI-only callers
// must tolerate nil message references, and nothing that gates a state
// transition may depend on a message result.
type RetryingPort struct {
	inner    Port
	logger   *zap.Logger
	attempts int
	delay    time.Duration
}

// NewRetryingPort wraps inner with the default retry policy.
//
// Precondition: inner and logger must be non-nil.
func NewRetryingPort(inner Port, logger *zap.Logger) *RetryingPort {
	return &RetryingPort{inner: inner, logger: logger, attempts: DefaultRetryAttempts, delay: DefaultRetryDelay}
}

// NewRetryingPortWithPolicy wraps inner with an explicit policy.
//
// Precondition: attempts >= 1; delay >= 0.
func NewRetryingPortWithPolicy(inner Port, logger *zap.Logger, attempts int, delay time.Duration) *RetryingPort {
	return &RetryingPort{inner: inner, logger: logger, attempts: attempts, delay: delay}
}

func retry[T any](p *RetryingPort, ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < p.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(p.delay):
			}
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		p.logger.Warn("discord call failed",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
	}
	p.logger.Error("discord call exhausted retries",
		zap.String("op", op),
		zap.Int("attempts", p.attempts),
		zap.Error(lastErr),
	)
	return zero, nil
}

// SendMessage sends with retries; returns (nil, nil) on exhaustion.
func (p *RetryingPort) SendMessage(ctx context.Context, channelID int64, content string, embeds []Embed) (*Message, error) {
	return retry(p, ctx, "send_message", func() (*Message, error) {
		return p.inner.SendMessage(ctx, channelID, content, embeds)
	})
}

// EditMessage edits with retries; returns (nil, nil) on exhaustion.
func (p *RetryingPort) EditMessage(ctx context.Context, msg *Message, content string, embeds []Embed) (*Message, error) {
	return retry(p, ctx, "edit_message", func() (*Message, error) {
		return p.inner.EditMessage(ctx, msg, content, embeds)
	})
}

// DeleteMessage deletes with retries; exhaustion is swallowed.
func (p *RetryingPort) DeleteMessage(ctx context.Context, msg *Message) error {
	_, err := retry(p, ctx, "delete_message", func() (struct{}, error) {
		return struct{}{}, p.inner.DeleteMessage(ctx, msg)
	})
	return err
}

// CreateThread creates with retries; returns (nil, nil) on exhaustion.
// Callers that need the thread to proceed must treat nil as fatal.
func (p *RetryingPort) CreateThread(ctx context.Context, channelID int64, name string) (*Thread, error) {
	return retry(p, ctx, "create_thread", func() (*Thread, error) {
		return p.inner.CreateThread(ctx, channelID, name)
	})
}
