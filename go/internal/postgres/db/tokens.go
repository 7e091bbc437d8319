package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const listTokensByCampaign = `
SELECT id, campaign_id, pos_x, pos_y, hidden, can_player_move, owner_id, character_id, sync_avatar, image_url, properties, updated_at
FROM tokens
WHERE campaign_id = $1
ORDER BY updated_at, id
`

func (q *Queries) ListTokensByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Token, error) {
	rows, err := q.db.QueryContext(ctx, listTokensByCampaign, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(
			&t.ID,
			&t.CampaignID,
			&t.PosX,
			&t.PosY,
			&t.Hidden,
			&t.CanPlayerMove,
			&t.OwnerID,
			&t.CharacterID,
			&t.SyncAvatar,
			&t.ImageURL,
			&t.Properties,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getToken = `
SELECT id, campaign_id, pos_x, pos_y, hidden, can_player_move, owner_id, character_id, sync_avatar, image_url, properties, updated_at
FROM tokens
WHERE id = $1 AND campaign_id = $2
`

type GetTokenParams struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
}

func (q *Queries) GetToken(ctx context.Context, arg GetTokenParams) (Token, error) {
	row := q.db.QueryRowContext(ctx, getToken, arg.ID, arg.CampaignID)
	var t Token
	err := row.Scan(
		&t.ID,
		&t.CampaignID,
		&t.PosX,
		&t.PosY,
		&t.Hidden,
		&t.CanPlayerMove,
		&t.OwnerID,
		&t.CharacterID,
		&t.SyncAvatar,
		&t.ImageURL,
		&t.Properties,
		&t.UpdatedAt,
	)
	return t, err
}

const upsertToken = `
INSERT INTO tokens (id, campaign_id, pos_x, pos_y, hidden, can_player_move, owner_id, character_id, sync_avatar, image_url, properties, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    pos_x = EXCLUDED.pos_x,
    pos_y = EXCLUDED.pos_y,
    hidden = EXCLUDED.hidden,
    can_player_move = EXCLUDED.can_player_move,
    owner_id = EXCLUDED.owner_id,
    character_id = EXCLUDED.character_id,
    sync_avatar = EXCLUDED.sync_avatar,
    image_url = EXCLUDED.image_url,
    properties = EXCLUDED.properties,
    updated_at = EXCLUDED.updated_at
`

type UpsertTokenParams struct {
	ID            uuid.UUID
	CampaignID    uuid.UUID
	PosX          float64
	PosY          float64
	Hidden        bool
	CanPlayerMove bool
	OwnerID       uuid.NullUUID
	CharacterID   uuid.NullUUID
	SyncAvatar    bool
	ImageURL      string
	Properties    pqtype.NullRawMessage
	UpdatedAt     time.Time
}

func (q *Queries) UpsertToken(ctx context.Context, arg UpsertTokenParams) error {
	_, err := q.db.ExecContext(ctx, upsertToken,
		arg.ID,
		arg.CampaignID,
		arg.PosX,
		arg.PosY,
		arg.Hidden,
		arg.CanPlayerMove,
		arg.OwnerID,
		arg.CharacterID,
		arg.SyncAvatar,
		arg.ImageURL,
		arg.Properties,
		arg.UpdatedAt,
	)
	return err
}

const syncTokenAvatars = `
UPDATE tokens
SET image_url = $3,
    updated_at = $4
WHERE campaign_id = $1 AND character_id = $2 AND sync_avatar = TRUE
`

type SyncTokenAvatarsParams struct {
	CampaignID  uuid.UUID
	CharacterID uuid.NullUUID
	ImageURL    string
	UpdatedAt   time.Time
}

// SyncTokenAvatars updates every sync_avatar token linked to the character
// and returns the number of rows touched.
func (q *Queries) SyncTokenAvatars(ctx context.Context, arg SyncTokenAvatarsParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, syncTokenAvatars, arg.CampaignID, arg.CharacterID, arg.ImageURL, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
