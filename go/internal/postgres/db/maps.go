package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const getGameMap = `
SELECT id, campaign_id, name, image_url, is_active, created_at, updated_at
FROM game_maps
WHERE id = $1 AND campaign_id = $2
`

type GetGameMapParams struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
}

func (q *Queries) GetGameMap(ctx context.Context, arg GetGameMapParams) (GameMap, error) {
	row := q.db.QueryRowContext(ctx, getGameMap, arg.ID, arg.CampaignID)
	var m GameMap
	err := row.Scan(&m.ID, &m.CampaignID, &m.Name, &m.ImageURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const deactivateCampaignMaps = `
UPDATE game_maps
SET is_active = FALSE,
    updated_at = $2
WHERE campaign_id = $1 AND is_active = TRUE
`

type DeactivateCampaignMapsParams struct {
	CampaignID uuid.UUID
	UpdatedAt  time.Time
}

func (q *Queries) DeactivateCampaignMaps(ctx context.Context, arg DeactivateCampaignMapsParams) error {
	_, err := q.db.ExecContext(ctx, deactivateCampaignMaps, arg.CampaignID, arg.UpdatedAt)
	return err
}

const activateGameMap = `
UPDATE game_maps
SET is_active = TRUE,
    updated_at = $3
WHERE id = $1 AND campaign_id = $2
`

type ActivateGameMapParams struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	UpdatedAt  time.Time
}

func (q *Queries) ActivateGameMap(ctx context.Context, arg ActivateGameMapParams) error {
	_, err := q.db.ExecContext(ctx, activateGameMap, arg.ID, arg.CampaignID, arg.UpdatedAt)
	return err
}

const setGameStateActiveMap = `
UPDATE game_states
SET active_map_id = $2,
    last_activity = $3
WHERE campaign_id = $1
`

type SetGameStateActiveMapParams struct {
	CampaignID   uuid.UUID
	ActiveMapID  uuid.NullUUID
	LastActivity time.Time
}

func (q *Queries) SetGameStateActiveMap(ctx context.Context, arg SetGameStateActiveMapParams) error {
	_, err := q.db.ExecContext(ctx, setGameStateActiveMap, arg.CampaignID, arg.ActiveMapID, arg.LastActivity)
	return err
}
