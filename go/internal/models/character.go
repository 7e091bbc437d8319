package models

import (
	"time"

	"github.com/google/uuid"
)

// CharacterKind represents the type of character
type CharacterKind string

const (
	CharacterKindPC       CharacterKind = "PC"
	CharacterKindNPC      CharacterKind = "NPC"
	CharacterKindCreature CharacterKind = "CREATURE"
)

// Character is read-only from the synchronizer's perspective except for
// avatar propagation. Sheet rules and CRUD live outside this service.
type Character struct {
	ID         uuid.UUID     `json:"id"`
	CampaignID uuid.UUID     `json:"campaign_id"`
	OwnerID    uuid.UUID     `json:"owner_id"`
	Name       string        `json:"name"`
	Kind       CharacterKind `json:"kind"`
	AvatarURL  string        `json:"avatar_url"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
