package db

import (
	"context"

	"github.com/google/uuid"
)

const getCampaign = `
SELECT id, name, owner_id, created_at, updated_at
FROM campaigns
WHERE id = $1
`

func (q *Queries) GetCampaign(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := q.db.QueryRowContext(ctx, getCampaign, id)
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCampaignMembers = `
SELECT id, campaign_id, user_id, role, joined_at
FROM campaign_members
WHERE campaign_id = $1
ORDER BY joined_at
`

func (q *Queries) ListCampaignMembers(ctx context.Context, campaignID uuid.UUID) ([]CampaignMember, error) {
	rows, err := q.db.QueryContext(ctx, listCampaignMembers, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CampaignMember
	for rows.Next() {
		var m CampaignMember
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
