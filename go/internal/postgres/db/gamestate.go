package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const getGameState = `
SELECT campaign_id, token_blob, active_map_id, game_data, map_frozen, frozen_by, frozen_at, last_activity
FROM game_states
WHERE campaign_id = $1
`

func (q *Queries) GetGameState(ctx context.Context, campaignID uuid.UUID) (GameState, error) {
	row := q.db.QueryRowContext(ctx, getGameState, campaignID)
	var gs GameState
	err := row.Scan(
		&gs.CampaignID,
		&gs.TokenBlob,
		&gs.ActiveMapID,
		&gs.GameData,
		&gs.MapFrozen,
		&gs.FrozenBy,
		&gs.FrozenAt,
		&gs.LastActivity,
	)
	return gs, err
}

const upsertGameState = `
INSERT INTO game_states (campaign_id, last_activity)
VALUES ($1, $2)
ON CONFLICT (campaign_id) DO UPDATE SET last_activity = EXCLUDED.last_activity
RETURNING campaign_id, token_blob, active_map_id, game_data, map_frozen, frozen_by, frozen_at, last_activity
`

type UpsertGameStateParams struct {
	CampaignID   uuid.UUID
	LastActivity time.Time
}

func (q *Queries) UpsertGameState(ctx context.Context, arg UpsertGameStateParams) (GameState, error) {
	row := q.db.QueryRowContext(ctx, upsertGameState, arg.CampaignID, arg.LastActivity)
	var gs GameState
	err := row.Scan(
		&gs.CampaignID,
		&gs.TokenBlob,
		&gs.ActiveMapID,
		&gs.GameData,
		&gs.MapFrozen,
		&gs.FrozenBy,
		&gs.FrozenAt,
		&gs.LastActivity,
	)
	return gs, err
}

const updateGameStateMisc = `
UPDATE game_states
SET active_map_id = $2,
    game_data = $3,
    map_frozen = $4,
    frozen_by = $5,
    frozen_at = $6,
    last_activity = $7
WHERE campaign_id = $1
`

type UpdateGameStateMiscParams struct {
	CampaignID   uuid.UUID
	ActiveMapID  uuid.NullUUID
	GameData     pqtype.NullRawMessage
	MapFrozen    bool
	FrozenBy     uuid.NullUUID
	FrozenAt     sql.NullTime
	LastActivity time.Time
}

func (q *Queries) UpdateGameStateMisc(ctx context.Context, arg UpdateGameStateMiscParams) error {
	_, err := q.db.ExecContext(ctx, updateGameStateMisc,
		arg.CampaignID,
		arg.ActiveMapID,
		arg.GameData,
		arg.MapFrozen,
		arg.FrozenBy,
		arg.FrozenAt,
		arg.LastActivity,
	)
	return err
}

const updateGameStateTokenBlob = `
UPDATE game_states
SET token_blob = $2,
    last_activity = $3
WHERE campaign_id = $1
`

type UpdateGameStateTokenBlobParams struct {
	CampaignID   uuid.UUID
	TokenBlob    pqtype.NullRawMessage
	LastActivity time.Time
}

func (q *Queries) UpdateGameStateTokenBlob(ctx context.Context, arg UpdateGameStateTokenBlobParams) error {
	_, err := q.db.ExecContext(ctx, updateGameStateTokenBlob, arg.CampaignID, arg.TokenBlob, arg.LastActivity)
	return err
}

const touchGameState = `
UPDATE game_states
SET last_activity = $2
WHERE campaign_id = $1
`

type TouchGameStateParams struct {
	CampaignID   uuid.UUID
	LastActivity time.Time
}

func (q *Queries) TouchGameState(ctx context.Context, arg TouchGameStateParams) error {
	_, err := q.db.ExecContext(ctx, touchGameState, arg.CampaignID, arg.LastActivity)
	return err
}
