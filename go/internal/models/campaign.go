package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignRole represents a member's role within a campaign
type CampaignRole string

const (
	CampaignRoleGM     CampaignRole = "GM"
	CampaignRolePlayer CampaignRole = "PLAYER"
)

// Campaign represents a tabletop campaign. The owner is the GM and is
// implicitly a member with GM authority.
type Campaign struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	Members   []CampaignMember `json:"members"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CampaignMember links a user to a campaign with a role
type CampaignMember struct {
	ID         uuid.UUID    `json:"id"`
	CampaignID uuid.UUID    `json:"campaign_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Role       CampaignRole `json:"role"`
	JoinedAt   time.Time    `json:"joined_at"`
}

// IsOwner reports whether userID is the campaign owner (the GM).
func (c *Campaign) IsOwner(userID uuid.UUID) bool {
	return c.OwnerID == userID
}

// HasMember reports whether userID is the owner or an explicit member.
func (c *Campaign) HasMember(userID uuid.UUID) bool {
	if c.IsOwner(userID) {
		return true
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
