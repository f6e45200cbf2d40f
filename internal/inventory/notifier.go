package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/redis"
	"github.com/google/uuid"
)

// VariantUpdate is the broadcast payload for a stock change.
type VariantUpdate struct {
	ProductID uuid.UUID `json:"productId"`
	VariantID uuid.UUID `json:"variantId"`
	Stock     int64     `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notifier broadcasts inventory changes. Delivery is best effort: failures are
// logged and never reported to the caller.
type Notifier interface {
	Notify(ctx context.Context, update VariantUpdate)
}

// RedisNotifier publishes updates on a redis pub/sub channel.
type RedisNotifier struct {
	pub     redis.Publisher
	channel string
	logg    *logger.Logger
}

// NewRedisNotifier builds a notifier publishing to channel.
func NewRedisNotifier(pub redis.Publisher, channel string, logg *logger.Logger) (*RedisNotifier, error) {
	if pub == nil {
		return nil, errors.New("redis publisher required")
	}
	if channel == "" {
		return nil, errors.New("inventory channel required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisNotifier{pub: pub, channel: channel, logg: logg}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, update VariantUpdate) {
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"variant_id": update.VariantID.String(),
		"channel":    n.channel,
	})
	payload, err := json.Marshal(update)
	if err != nil {
		n.logg.Error(ctx, "inventory update encode failed", err)
		return
	}
	if err := n.pub.Publish(ctx, n.channel, payload); err != nil {
		n.logg.Warn(ctx, "inventory update publish failed: "+err.Error())
	}
}

// NopNotifier drops every update.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, VariantUpdate) {}
