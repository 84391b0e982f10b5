package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/pmbot/internal/logger"
	"github.com/yukikurage/pmbot/internal/metrics"
	"github.com/yukikurage/pmbot/internal/models"
)

// SettingsFinder looks up a guild's settings
type SettingsFinder interface {
	FindByGuildID(guildID string) (*models.GuildSettings, error)
}

// Dispatcher resolves a guild's notification channel and delivers through a Notifier
type Dispatcher struct {
	notifier Notifier
	settings SettingsFinder
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(n Notifier, settings SettingsFinder, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: n,
		settings: settings,
		logger:   logger.OrNop(log),
	}
}

// Send delivers msg to the guild's notification channel. The error wraps
// ErrDeliveryFailed whenever the message did not go out.
func (d *Dispatcher) Send(ctx context.Context, guildID string, msg Message) error {
	err := d.send(ctx, guildID, msg)
	metrics.RecordNotification(string(msg.Kind), err)
	if err != nil {
		d.logger.Warn("notification not delivered",
			zap.String("guild_id", guildID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err),
		)
	}
	return err
}

// SendTo delivers msg to an already resolved channel
func (d *Dispatcher) SendTo(ctx context.Context, channelID string, msg Message) error {
	err := failed(d.notifier.Deliver(ctx, channelID, msg))
	metrics.RecordNotification(string(msg.Kind), err)
	return err
}

func (d *Dispatcher) send(ctx context.Context, guildID string, msg Message) error {
	settings, err := d.settings.FindByGuildID(guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoDestination
		}
		return fmt.Errorf("%w: failed to load guild settings: %w", ErrDeliveryFailed, err)
	}
	if !settings.HasNotificationChannel() {
		return ErrNoDestination
	}

	return failed(d.notifier.Deliver(ctx, *settings.NotificationChannelID, msg))
}
