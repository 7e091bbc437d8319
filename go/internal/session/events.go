package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/models"
)

// Client-originated event names.
const (
	EventCampaignJoin     = "campaign:join"
	EventCampaignLeave    = "campaign:leave"
	EventChatSend         = "chat:send"
	EventTokenMove        = "token_move" // legacy alias of game:move-token
	EventGameMoveToken    = "game:move-token"
	EventToggleVisibility = "token:toggle-visibility"
	EventToggleLock       = "token:toggle-lock"
	EventChangeOwnership  = "token:change-ownership"
	EventUpdateProperties = "token:update-properties"
	EventMapActivate      = "game:map-activate"
	EventMapFreeze        = "game:map-freeze"
	EventAvatarSync       = "avatar:sync"
	EventTokenLinked      = "token:linked"
	EventTokenUnlinked    = "token:unlinked"
)

// Server-originated event names.
const (
	EventPlayerJoin       = "player:join"
	EventPlayerLeave      = "player:leave"
	EventPlayersList      = "players:list"
	EventChatMessage      = "chat:message"
	EventChatHistory      = "chat:history"
	EventGameTokenMove    = "game:token-move"
	EventVisibilityToggle = "token:visibility:toggle"
	EventLockToggle       = "token:lock:toggle"
	EventOwnershipChange  = "token:ownership:change"
	EventPropertiesUpdate = "token:properties:update"
	EventMapActivated     = "map:activated"
	EventMapFrozen        = "map:freeze"
	EventAvatarSynced     = "avatar:synced"
	EventError            = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client payloads.

type JoinPayload struct {
	CampaignID uuid.UUID `json:"campaignId"`
}

type ChatSendPayload struct {
	CampaignID uuid.UUID       `json:"campaignId"`
	Message    string          `json:"message"`
	Type       string          `json:"type,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

type TokenMovePayload struct {
	CampaignID uuid.UUID            `json:"campaignId"`
	TokenID    uuid.UUID            `json:"tokenId"`
	Position   models.TokenPosition `json:"position"`
}

type TokenTargetPayload struct {
	CampaignID uuid.UUID `json:"campaignId"`
	TokenID    uuid.UUID `json:"tokenId"`
}

type ChangeOwnershipPayload struct {
	CampaignID uuid.UUID  `json:"campaignId"`
	TokenID    uuid.UUID  `json:"tokenId"`
	NewOwnerID *uuid.UUID `json:"newOwnerId"`
}

type UpdatePropertiesPayload struct {
	CampaignID uuid.UUID                  `json:"campaignId"`
	TokenID    uuid.UUID                  `json:"tokenId"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type MapActivatePayload struct {
	CampaignID uuid.UUID `json:"campaignId"`
	MapID      uuid.UUID `json:"mapId"`
}

type MapFreezePayload struct {
	CampaignID uuid.UUID `json:"campaignId"`
	Frozen     bool      `json:"frozen"`
}

type AvatarSyncPayload struct {
	CampaignID   uuid.UUID `json:"campaignId"`
	CharacterID  uuid.UUID `json:"characterId"`
	NewAvatarURL string    `json:"newAvatarUrl"`
}

type TokenLinkPayload struct {
	CampaignID  uuid.UUID  `json:"campaignId"`
	TokenID     uuid.UUID  `json:"tokenId"`
	CharacterID *uuid.UUID `json:"characterId,omitempty"`
	OwnerID     uuid.UUID  `json:"ownerId"`
}

// Server payloads.

type PlayerInfo struct {
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`
}

type PlayersListPayload struct {
	Players []PlayerInfo `json:"players"`
}

type ChatMessagePayload struct {
	ID         uuid.UUID       `json:"id"`
	CampaignID uuid.UUID       `json:"campaignId"`
	AuthorID   uuid.UUID       `json:"authorId"`
	AuthorName string          `json:"authorName"`
	Body       string          `json:"message"`
	Type       string          `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type ChatHistoryPayload struct {
	Messages []ChatMessagePayload `json:"messages"`
}

type TokenMovedPayload struct {
	TokenID  uuid.UUID            `json:"tokenId"`
	Position models.TokenPosition `json:"position"`
	MovedBy  uuid.UUID            `json:"movedBy"`
}

type VisibilityToggledPayload struct {
	TokenID uuid.UUID `json:"tokenId"`
	Hidden  bool      `json:"hidden"`
}

type LockToggledPayload struct {
	TokenID       uuid.UUID `json:"tokenId"`
	CanPlayerMove bool      `json:"canPlayerMove"`
}

type OwnershipChangedPayload struct {
	TokenID uuid.UUID  `json:"tokenId"`
	OwnerID *uuid.UUID `json:"ownerId"`
}

type PropertiesUpdatedPayload struct {
	TokenID    uuid.UUID       `json:"tokenId"`
	Properties json.RawMessage `json:"properties"`
}

type MapActivatedPayload struct {
	CampaignID uuid.UUID `json:"campaignId"`
	MapID      uuid.UUID `json:"mapId"`
}

type MapFrozenPayload struct {
	CampaignID uuid.UUID  `json:"campaignId"`
	Frozen     bool       `json:"frozen"`
	FrozenBy   *uuid.UUID `json:"frozenBy,omitempty"`
}

type AvatarSyncedPayload struct {
	CharacterID  uuid.UUID `json:"characterId"`
	NewAvatarURL string    `json:"newAvatarUrl"`
	Affected     int       `json:"affected"`
}

type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func chatMessagePayload(m models.ChatMessage) ChatMessagePayload {
	return ChatMessagePayload{
		ID:         m.ID,
		CampaignID: m.CampaignID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Body:       m.Body,
		Type:       string(m.Type),
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	}
}
