package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/models"
	"github.com/tableforge/tableforge/go/internal/postgres/db"
)

// ErrNotFound is returned when the campaign does not exist.
var ErrNotFound = errors.New("campaign not found")

// ErrCharacterNotFound is returned when a character lookup misses.
var ErrCharacterNotFound = errors.New("character not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (db.Campaign, error)
	ListCampaignMembers(ctx context.Context, campaignID uuid.UUID) ([]db.CampaignMember, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (db.Character, error)
}

// Repository implements campaign data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new campaigns repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// GetCampaignWithMembers retrieves a campaign together with its member list.
// The owner is not duplicated into Members; callers use HasMember/IsOwner.
func (r *Repository) GetCampaignWithMembers(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	campaign, err := r.queries.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	memberRows, err := r.queries.ListCampaignMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign members: %w", err)
	}

	members := make([]models.CampaignMember, 0, len(memberRows))
	for _, m := range memberRows {
		members = append(members, models.CampaignMember{
			ID:         m.ID,
			CampaignID: m.CampaignID,
			UserID:     m.UserID,
			Role:       models.CampaignRole(m.Role),
			JoinedAt:   m.JoinedAt,
		})
	}

	return &models.Campaign{
		ID:        campaign.ID,
		Name:      campaign.Name,
		OwnerID:   campaign.OwnerID,
		Members:   members,
		CreatedAt: campaign.CreatedAt,
		UpdatedAt: campaign.UpdatedAt,
	}, nil
}

// GetCharacter retrieves a character for avatar-sync permission checks.
func (r *Repository) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	c, err := r.queries.GetCharacter(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return &models.Character{
		ID:         c.ID,
		CampaignID: c.CampaignID,
		OwnerID:    c.OwnerID,
		Name:       c.Name,
		Kind:       models.CharacterKind(c.Kind),
		AvatarURL:  c.AvatarURL,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}, nil
}
