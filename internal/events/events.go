package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedemptionEvent is the payload pushed to downstream consumers after a
// redemption commits.
type RedemptionEvent struct {
	EventID         string    `json:"event_id"`
	CardNumber      string    `json:"card_number"`
	MemberID        uint64    `json:"member_id"`
	MerchantID      *uint64   `json:"merchant_id,omitempty"`
	OfferedDiscount float64   `json:"offered_discount"`
	AppliedDiscount float64   `json:"applied_discount"`
	OriginalAmount  float64   `json:"original_amount"`
	DiscountAmount  float64   `json:"discount_amount"`
	FinalAmount     float64   `json:"final_amount"`
	WindowOffset    int       `json:"window_offset"`
	RedeemedAt      time.Time `json:"redeemed_at"`
}

// Publisher pushes redemption events over redis pub/sub. Publishing is
// best-effort: a redemption that already committed is never failed because
// an event could not be delivered.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a Publisher, or nil when no redis address is
// configured. A nil Publisher is safe to call.
func NewPublisher(addr, channel string) *Publisher {
	if addr == "" {
		return nil
	}
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// PublishRedemption publishes one event, logging and swallowing any failure.
func (p *Publisher) PublishRedemption(ctx context.Context, event RedemptionEvent) {
	if p == nil || p.client == nil {
		return
	}
	payload, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("marshal redemption event failed")
		return
	}
	if errPublish := p.client.Publish(ctx, p.channel, payload).Err(); errPublish != nil {
		log.WithError(errPublish).WithField("event_id", event.EventID).Warn("publish redemption event failed")
	}
}

// Close releases the redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
