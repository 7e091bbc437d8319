package models

import (
	"time"

	"github.com/google/uuid"
)

// GameMap represents a battle map belonging to a campaign. At most one map
// per campaign is active at a time; activation is transactional.
type GameMap struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
