package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tableforge/tableforge/go/internal/campaigns"
	"github.com/tableforge/tableforge/go/internal/models"
)

// CampaignDirectory is what room membership needs from the campaign store.
type CampaignDirectory interface {
	GetCampaignWithMembers(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error)
}

// Membership tracks which connections belong to which campaign room and
// enforces that only members and the owner may join.
type Membership struct {
	manager     *Manager
	directory   CampaignDirectory
	store       StateStore
	chatBacklog int32
}

// NewMembership creates a new room membership manager
func NewMembership(manager *Manager, directory CampaignDirectory, store StateStore, chatBacklog int32) *Membership {
	return &Membership{
		manager:     manager,
		directory:   directory,
		store:       store,
		chatBacklog: chatBacklog,
	}
}

// Join associates the connection with the campaign room.
//
// Ordering: the roster snapshot is captured before the joiner is counted and
// queued ahead of the player:join broadcast on the same FIFO channel, so no
// peer observes the join before the joiner has its snapshot in flight.
func (ms *Membership) Join(ctx context.Context, conn *Connection, campaignID uuid.UUID) *Error {
	campaign, err := ms.directory.GetCampaignWithMembers(ctx, campaignID)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			return errNotFound("campaign %s does not exist", campaignID)
		}
		log.Error().Err(err).Str("campaign_id", campaignID.String()).Msg("campaign lookup failed")
		return errPersistence("campaign lookup")
	}
	if !campaign.HasMember(conn.UserID) {
		return errAccessDenied("user is not a member of this campaign")
	}

	// A connection holds at most one room; joining another supersedes
	// the old association with a proper leave.
	if prev := conn.Campaign(); prev != nil && *prev != campaignID {
		ms.Leave(conn, *prev)
	}

	roster := ms.manager.Roster(campaignID)
	ms.manager.Register(conn, campaignID, campaign.IsOwner(conn.UserID))

	ms.manager.SendTo(conn, EventPlayersList, PlayersListPayload{Players: roster})

	if ms.chatBacklog > 0 {
		if history, err := ms.store.RecentChatMessages(ctx, campaignID, ms.chatBacklog); err != nil {
			log.Warn().Err(err).Str("campaign_id", campaignID.String()).Msg("chat backlog unavailable")
		} else if len(history) > 0 {
			payload := ChatHistoryPayload{Messages: make([]ChatMessagePayload, 0, len(history))}
			for _, m := range history {
				payload.Messages = append(payload.Messages, chatMessagePayload(m))
			}
			ms.manager.SendTo(conn, EventChatHistory, payload)
		}
	}

	ms.manager.Broadcast(campaignID, EventPlayerJoin, PlayerInfo{UserID: conn.UserID, UserName: conn.UserName}, conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("campaign_id", campaignID.String()).
		Bool("gm", campaign.IsOwner(conn.UserID)).
		Msg("player joined campaign")
	return nil
}

// Leave removes the room association and notifies the remaining members.
func (ms *Membership) Leave(conn *Connection, campaignID uuid.UUID) *Error {
	if !ms.manager.Unregister(conn, campaignID) {
		return errNotInCampaign()
	}
	ms.manager.Broadcast(campaignID, EventPlayerLeave, PlayerInfo{UserID: conn.UserID, UserName: conn.UserName}, conn)
	log.Info().
		Str("connection_id", conn.ID).
		Str("campaign_id", campaignID.String()).
		Msg("player left campaign")
	return nil
}

// HandleDisconnect implements DisconnectHandler. The manager has already
// removed the connection from its room; only the leave broadcast remains.
func (ms *Membership) HandleDisconnect(conn *Connection, campaignID *uuid.UUID) {
	if campaignID == nil {
		return
	}
	ms.manager.Broadcast(*campaignID, EventPlayerLeave, PlayerInfo{UserID: conn.UserID, UserName: conn.UserName}, conn)
}
