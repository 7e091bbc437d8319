package db

import (
	"context"

	"github.com/google/uuid"
)

const getCharacter = `
SELECT id, campaign_id, owner_id, name, kind, avatar_url, created_at, updated_at
FROM characters
WHERE id = $1
`

func (q *Queries) GetCharacter(ctx context.Context, id uuid.UUID) (Character, error) {
	row := q.db.QueryRowContext(ctx, getCharacter, id)
	var c Character
	err := row.Scan(&c.ID, &c.CampaignID, &c.OwnerID, &c.Name, &c.Kind, &c.AvatarURL, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
