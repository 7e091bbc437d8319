package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameState is the durable per-campaign session record. It is created
// lazily on first mutation; LastActivity is bumped on every write and is
// consumed as a liveness heartbeat by external cleanup jobs.
type GameState struct {
	CampaignID   uuid.UUID       `json:"campaign_id"`
	Tokens       []Token         `json:"tokens"`
	ActiveMapID  *uuid.UUID      `json:"active_map_id,omitempty"`
	GameData     json.RawMessage `json:"game_data,omitempty"`
	MapFrozen    bool            `json:"map_frozen"`
	FrozenBy     *uuid.UUID      `json:"frozen_by,omitempty"`
	FrozenAt     *time.Time      `json:"frozen_at,omitempty"`
	LastActivity time.Time       `json:"last_activity"`
}

// TokenPosition is the canonical wire position. Legacy blob entries carry
// pixel {top,left}; those are converted on read (top maps to Y, left to X).
type TokenPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Token represents a movable piece on the map
type Token struct {
	ID            uuid.UUID       `json:"id"`
	CampaignID    uuid.UUID       `json:"campaign_id"`
	Position      TokenPosition   `json:"position"`
	Hidden        bool            `json:"hidden"`
	CanPlayerMove bool            `json:"can_player_move"`
	OwnerID       *uuid.UUID      `json:"owner_id,omitempty"`
	CharacterID   *uuid.UUID      `json:"character_id,omitempty"`
	SyncAvatar    bool            `json:"sync_avatar"`
	ImageURL      string          `json:"image_url"`
	Properties    json.RawMessage `json:"properties,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// FindToken returns the token with the given id from the state's merged
// token list, or nil. Linear scan: campaign token counts stay in the tens.
func (gs *GameState) FindToken(id uuid.UUID) *Token {
	for i := range gs.Tokens {
		if gs.Tokens[i].ID == id {
			return &gs.Tokens[i]
		}
	}
	return nil
}
