package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Broadcaster pushes an event into a campaign room without requiring that
// the trigger came from a connection. The Service implements it in-process;
// Publisher implements it over NATS for out-of-process callers.
type Broadcaster interface {
	BroadcastToCampaign(ctx context.Context, campaignID uuid.UUID, event string, payload interface{}) error
}

// Service is the session synchronizer: it authenticates connections, tracks
// room membership, applies mutations and fans results out to peers.
type Service struct {
	auth       *Authenticator
	manager    *Manager
	membership *Membership
	pipeline   *Pipeline
	bridge     *Bridge
}

// Config holds configuration for the session service
type Config struct {
	Connection  ConnectionConfig
	ChatBacklog int32
}

// DefaultConfig returns default session service configuration
func DefaultConfig() Config {
	return Config{
		Connection:  DefaultConnectionConfig(),
		ChatBacklog: 50,
	}
}

// NewService wires the synchronizer. bridge may be nil when no NATS relay
// is configured.
func NewService(cfg Config, lookup UserLookup, directory CampaignDirectory, store StateStore, bridge *Bridge) *Service {
	manager := NewManager(cfg.Connection)
	membership := NewMembership(manager, directory, store, cfg.ChatBacklog)
	pipeline := NewPipeline(store, directory, manager)

	s := &Service{
		auth:       NewAuthenticator(lookup),
		manager:    manager,
		membership: membership,
		pipeline:   pipeline,
		bridge:     bridge,
	}
	manager.SetHandlers(s, membership)
	if bridge != nil {
		bridge.manager = manager
	}
	return s
}

// Start runs the fanout loop and the external-broadcast bridge until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.manager.Start(ctx)
	if s.bridge != nil {
		if err := s.bridge.Start(ctx); err != nil {
			return fmt.Errorf("start bridge: %w", err)
		}
	}
	<-ctx.Done()
	if s.bridge != nil {
		s.bridge.Stop()
	}
	log.Info().Msg("session service stopped")
	return nil
}

// HandleEvent implements EventHandler: it routes one decoded client message
// through membership or the mutation pipeline and converts failures into an
// error event for the acting connection only.
func (s *Service) HandleEvent(ctx context.Context, conn *Connection, env Envelope) {
	var sessErr *Error

	switch env.Event {
	case EventCampaignJoin:
		var payload JoinPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.membership.Join(ctx, conn, payload.CampaignID)
		}
	case EventCampaignLeave:
		var payload JoinPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.membership.Leave(conn, payload.CampaignID)
		}
	case EventChatSend:
		var payload ChatSendPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleChatSend(ctx, conn, payload)
		}
	case EventTokenMove, EventGameMoveToken:
		var payload TokenMovePayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleTokenMove(ctx, conn, payload)
		}
	case EventToggleVisibility:
		var payload TokenTargetPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleToggleVisibility(ctx, conn, payload)
		}
	case EventToggleLock:
		var payload TokenTargetPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleToggleLock(ctx, conn, payload)
		}
	case EventChangeOwnership:
		var payload ChangeOwnershipPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleChangeOwnership(ctx, conn, payload)
		}
	case EventUpdateProperties:
		var payload UpdatePropertiesPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleUpdateProperties(ctx, conn, payload)
		}
	case EventMapActivate:
		var payload MapActivatePayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleMapActivate(ctx, conn, payload)
		}
	case EventMapFreeze:
		var payload MapFreezePayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleMapFreeze(ctx, conn, payload)
		}
	case EventAvatarSync:
		var payload AvatarSyncPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleAvatarSync(ctx, conn, payload)
		}
	case EventTokenLinked, EventTokenUnlinked:
		var payload TokenLinkPayload
		if sessErr = decode(env.Data, &payload); sessErr == nil {
			sessErr = s.pipeline.HandleTokenLink(ctx, conn, env.Event, payload)
		}
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("event", env.Event).
			Msg("ignoring unknown event")
		return
	}

	if sessErr != nil {
		s.manager.SendTo(conn, EventError, ErrorPayload{Code: sessErr.Code, Message: sessErr.Message})
	}
}

// BroadcastToCampaign implements Broadcaster for in-process callers such as
// REST handlers living in the same binary.
func (s *Service) BroadcastToCampaign(_ context.Context, campaignID uuid.UUID, event string, payload interface{}) error {
	s.manager.Broadcast(campaignID, event, payload, nil)
	return nil
}

// decode rejects malformed payloads without touching any state. Protocol
// garbage is not part of the error taxonomy; the actor just gets told.
func decode(data json.RawMessage, v interface{}) *Error {
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Code: CodeNotFound, Message: "malformed event payload"}
	}
	return nil
}
