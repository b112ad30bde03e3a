package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/orderbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// WebhookSetter is the part of *tele.Bot used for webhook registration.
type WebhookSetter interface {
	SetWebhook(w *tele.Webhook) error
}

// WebhookRegistration describes the webhook announced to Telegram.
type WebhookRegistration struct {
	PublicURL   string
	SecretToken string
	Attempts    int
	Backoff     time.Duration
}

// RegisterWebhook announces the public URL to Telegram, retrying failed
// attempts after Backoff.
func RegisterWebhook(ctx context.Context, bot WebhookSetter, reg WebhookRegistration) error {
	if reg.PublicURL == "" {
		return fmt.Errorf("telegram: webhook public url is empty")
	}
	attempts := reg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := reg.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	hook := &tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: reg.PublicURL},
		AllowedUpdates: AllowedUpdates,
		DropUpdates:    true,
		MaxConnections: 40,
		SecretToken:    reg.SecretToken,
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = bot.SetWebhook(hook); err == nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "webhook.set",
				slog.String("status", "ok"),
				slog.String("public_url", reg.PublicURL),
				slog.Int("attempts", attempt),
			)
			return nil
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "webhook.set",
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			logger.Err(err),
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("telegram: set webhook after %d attempts: %w", attempts, err)
}

// UpdateFailures collects handler errors by update id so a synchronous
// caller of ProcessUpdate can tell whether the update failed.
type UpdateFailures struct {
	mu   sync.Mutex
	errs map[int]error
}

// NewUpdateFailures returns an empty tracker.
func NewUpdateFailures() *UpdateFailures {
	return &UpdateFailures{errs: make(map[int]error)}
}

// Record stores err for the update. A nil tracker ignores the call.
func (f *UpdateFailures) Record(updateID int, err error) {
	if f == nil || err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.errs[updateID]; !exists {
		f.errs[updateID] = err
	}
}

// Take returns and forgets the first error recorded for the update.
func (f *UpdateFailures) Take(updateID int) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.errs[updateID]
	delete(f.errs, updateID)
	return err
}
