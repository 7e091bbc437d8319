package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// BridgeConfig holds NATS settings for the external-broadcast bridge.
type BridgeConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultBridgeConfig returns default bridge configuration
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "campaign.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// externalEvent is the relay envelope REST handlers publish when they need
// to push an event into a room (map frozen over HTTP, for example).
type externalEvent struct {
	CampaignID string          `json:"campaignId"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
}

// Bridge consumes externally-triggered room events from NATS and fans them
// out to the room's connections.
type Bridge struct {
	manager *Manager
	nc      *nats.Conn
	sub     *nats.Subscription
	config  BridgeConfig
}

// NewBridge connects to NATS. The manager is attached by the Service.
func NewBridge(config BridgeConfig) (*Bridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Bridge{nc: nc, config: config}, nil
}

// Start subscribes to the campaign event subjects.
func (b *Bridge) Start(ctx context.Context) error {
	subject := b.config.SubjectPrefix + ".>"
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		b.processMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.sub = sub

	log.Info().Str("subject", subject).Msg("external broadcast bridge started")
	return nil
}

func (b *Bridge) processMessage(msg *nats.Msg) {
	var ev externalEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("malformed external event")
		return
	}

	campaignID, err := uuid.Parse(ev.CampaignID)
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("external event has invalid campaign id")
		return
	}

	b.manager.Broadcast(campaignID, ev.Event, ev.Payload, nil)

	log.Debug().
		Str("campaign_id", ev.CampaignID).
		Str("event", ev.Event).
		Msg("external event relayed to room")
}

// Stop drains the subscription and closes the connection.
func (b *Bridge) Stop() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}

// Publisher implements Broadcaster over NATS for callers outside the
// synchronizer's process.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewPublisher creates a Broadcaster publishing to the bridge's subjects.
func NewPublisher(nc *nats.Conn, subjectPrefix string) *Publisher {
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}
}

// BroadcastToCampaign publishes one room event for the bridge to relay.
func (p *Publisher) BroadcastToCampaign(_ context.Context, campaignID uuid.UUID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	envelope, err := json.Marshal(externalEvent{
		CampaignID: campaignID.String(),
		Event:      event,
		Payload:    data,
	})
	if err != nil {
		return fmt.Errorf("marshal external event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, campaignID)
	if err := p.nc.Publish(subject, envelope); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

var _ Broadcaster = (*Publisher)(nil)
var _ Broadcaster = (*Service)(nil)
