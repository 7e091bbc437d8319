package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChatMessageType represents the type of chat message
type ChatMessageType string

const (
	ChatMessageTypeChat     ChatMessageType = "CHAT"
	ChatMessageTypeDiceRoll ChatMessageType = "DICE_ROLL"
	ChatMessageTypeSystem   ChatMessageType = "SYSTEM"
	ChatMessageTypeOOC      ChatMessageType = "OOC"
)

// ChatMessage is immutable once created; the synchronizer appends and
// reads, never updates or deletes.
type ChatMessage struct {
	ID         uuid.UUID       `json:"id"`
	CampaignID uuid.UUID       `json:"campaign_id"`
	AuthorID   uuid.UUID       `json:"author_id"`
	AuthorName string          `json:"author_name"`
	Body       string          `json:"body"`
	Type       ChatMessageType `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
