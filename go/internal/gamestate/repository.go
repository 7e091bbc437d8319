package gamestate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sqlc-dev/pqtype"

	"github.com/tableforge/tableforge/go/internal/models"
	"github.com/tableforge/tableforge/go/internal/postgres/db"
	"github.com/tableforge/tableforge/go/internal/sqlutil"
)

// ErrMapNotFound is returned when an activation targets a map that does not
// exist in the campaign.
var ErrMapNotFound = errors.New("map not found")

// Repository is the durable store for per-campaign game state. It presents
// a single logical token list over two physical representations: the
// normalized tokens table (canonical) and the legacy JSON array embedded on
// the game_states row (read-through fallback). Every successful write bumps
// last_activity.
type Repository struct {
	database *sql.DB
	queries  *db.Queries
	clock    clockwork.Clock
}

// NewRepository creates a new game state repository
func NewRepository(database *sql.DB, clock clockwork.Clock) *Repository {
	return &Repository{
		database: database,
		queries:  db.New(database),
		clock:    clock,
	}
}

// LoadGameState returns the campaign's game state, creating an empty one if
// absent. The returned token list is the merged view of both
// representations.
func (r *Repository) LoadGameState(ctx context.Context, campaignID uuid.UUID) (*models.GameState, error) {
	row, err := r.queries.GetGameState(ctx, campaignID)
	if errors.Is(err, sql.ErrNoRows) {
		row, err = r.queries.UpsertGameState(ctx, db.UpsertGameStateParams{
			CampaignID:   campaignID,
			LastActivity: r.clock.Now().UTC(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}

	tableRows, err := r.queries.ListTokensByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	tableTokens := make([]models.Token, 0, len(tableRows))
	for _, t := range tableRows {
		tableTokens = append(tableTokens, dbTokenToModel(t))
	}

	var blobTokens []models.Token
	if row.TokenBlob.Valid {
		blobTokens, err = decodeTokenBlob(row.TokenBlob.RawMessage, campaignID)
		if err != nil {
			return nil, err
		}
	}

	gs := &models.GameState{
		CampaignID:   row.CampaignID,
		Tokens:       mergeTokens(tableTokens, blobTokens),
		ActiveMapID:  sqlutil.FromNullUUID(row.ActiveMapID),
		MapFrozen:    row.MapFrozen,
		FrozenBy:     sqlutil.FromNullUUID(row.FrozenBy),
		FrozenAt:     sqlutil.FromSqlTime(row.FrozenAt),
		LastActivity: row.LastActivity,
	}
	if row.GameData.Valid {
		gs.GameData = json.RawMessage(row.GameData.RawMessage)
	}
	return gs, nil
}

// SaveToken upserts one token into the canonical table. If the token only
// existed in the legacy blob this materializes it; the blob copy is pruned
// in the same transaction so the two representations cannot drift.
func (r *Repository) SaveToken(ctx context.Context, campaignID uuid.UUID, token models.Token) error {
	now := r.clock.Now().UTC()
	err := sqlutil.Run(ctx, r.database, db.New(r.database).WithTx, func(q *db.Queries) error {
		if err := q.UpsertToken(ctx, modelTokenToUpsertParams(campaignID, token, now)); err != nil {
			return err
		}
		if err := r.pruneBlobEntry(ctx, q, campaignID, token.ID); err != nil {
			return err
		}
		return q.TouchGameState(ctx, db.TouchGameStateParams{CampaignID: campaignID, LastActivity: now})
	})
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// SaveTokens upserts a whole token list in one transaction.
func (r *Repository) SaveTokens(ctx context.Context, campaignID uuid.UUID, tokens []models.Token) error {
	now := r.clock.Now().UTC()
	err := sqlutil.Run(ctx, r.database, db.New(r.database).WithTx, func(q *db.Queries) error {
		for _, token := range tokens {
			if err := q.UpsertToken(ctx, modelTokenToUpsertParams(campaignID, token, now)); err != nil {
				return err
			}
			if err := r.pruneBlobEntry(ctx, q, campaignID, token.ID); err != nil {
				return err
			}
		}
		return q.TouchGameState(ctx, db.TouchGameStateParams{CampaignID: campaignID, LastActivity: now})
	})
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// SetMapFrozen persists the map-freeze fields.
func (r *Repository) SetMapFrozen(ctx context.Context, campaignID uuid.UUID, frozen bool, frozenBy *uuid.UUID) error {
	gs, err := r.LoadGameState(ctx, campaignID)
	if err != nil {
		return err
	}
	now := r.clock.Now().UTC()

	arg := db.UpdateGameStateMiscParams{
		CampaignID:   campaignID,
		ActiveMapID:  sqlutil.ToNullUUID(gs.ActiveMapID),
		MapFrozen:    frozen,
		LastActivity: now,
	}
	if len(gs.GameData) > 0 {
		arg.GameData = pqtype.NullRawMessage{RawMessage: gs.GameData, Valid: true}
	}
	if frozen {
		arg.FrozenBy = sqlutil.ToNullUUID(frozenBy)
		arg.FrozenAt = sqlutil.ToSqlTime(&now)
	}
	if err := r.queries.UpdateGameStateMisc(ctx, arg); err != nil {
		return fmt.Errorf("failed to update map freeze: %w", err)
	}
	return nil
}

// ActivateMap deactivates every map in the campaign and activates the
// selected one atomically, then records it on the game state.
func (r *Repository) ActivateMap(ctx context.Context, campaignID, mapID uuid.UUID) error {
	now := r.clock.Now().UTC()
	// Row must exist before the transactional update below.
	if _, err := r.LoadGameState(ctx, campaignID); err != nil {
		return err
	}
	err := sqlutil.Run(ctx, r.database, db.New(r.database).WithTx, func(q *db.Queries) error {
		if _, err := q.GetGameMap(ctx, db.GetGameMapParams{ID: mapID, CampaignID: campaignID}); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMapNotFound
			}
			return err
		}
		if err := q.DeactivateCampaignMaps(ctx, db.DeactivateCampaignMapsParams{CampaignID: campaignID, UpdatedAt: now}); err != nil {
			return err
		}
		if err := q.ActivateGameMap(ctx, db.ActivateGameMapParams{ID: mapID, CampaignID: campaignID, UpdatedAt: now}); err != nil {
			return err
		}
		return q.SetGameStateActiveMap(ctx, db.SetGameStateActiveMapParams{
			CampaignID:   campaignID,
			ActiveMapID:  uuid.NullUUID{UUID: mapID, Valid: true},
			LastActivity: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrMapNotFound) {
			return err
		}
		return fmt.Errorf("failed to activate map: %w", err)
	}
	return nil
}

// SyncAvatars sets the avatar image on every token linked to the character
// with sync_avatar set, materializing blob-only tokens on the way. Returns
// the number of tokens updated.
func (r *Repository) SyncAvatars(ctx context.Context, campaignID, characterID uuid.UUID, avatarURL string) (int, error) {
	gs, err := r.LoadGameState(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	var affected []models.Token
	for _, t := range gs.Tokens {
		if t.SyncAvatar && t.CharacterID != nil && *t.CharacterID == characterID {
			t.ImageURL = avatarURL
			affected = append(affected, t)
		}
	}
	if len(affected) == 0 {
		return 0, nil
	}
	if err := r.SaveTokens(ctx, campaignID, affected); err != nil {
		return 0, err
	}
	return len(affected), nil
}

// AppendChatMessage persists a chat message; messages are append-only.
func (r *Repository) AppendChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	now := r.clock.Now().UTC()
	arg := db.InsertChatMessageParams{
		ID:         msg.ID,
		CampaignID: msg.CampaignID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Body:       msg.Body,
		Type:       string(msg.Type),
		CreatedAt:  now,
	}
	if len(msg.Metadata) > 0 {
		arg.Metadata = pqtype.NullRawMessage{RawMessage: msg.Metadata, Valid: true}
	}

	var row db.ChatMessage
	err := sqlutil.Run(ctx, r.database, db.New(r.database).WithTx, func(q *db.Queries) error {
		var err error
		row, err = q.InsertChatMessage(ctx, arg)
		if err != nil {
			return err
		}
		// Ensure the state row exists so the heartbeat lands somewhere.
		if _, err := q.UpsertGameState(ctx, db.UpsertGameStateParams{CampaignID: msg.CampaignID, LastActivity: now}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append chat message: %w", err)
	}

	out := dbChatToModel(row)
	return &out, nil
}

// RecentChatMessages returns the newest messages, oldest first.
func (r *Repository) RecentChatMessages(ctx context.Context, campaignID uuid.UUID, limit int32) ([]models.ChatMessage, error) {
	rows, err := r.queries.ListRecentChatMessages(ctx, db.ListRecentChatMessagesParams{CampaignID: campaignID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	msgs := make([]models.ChatMessage, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		msgs = append(msgs, dbChatToModel(rows[i]))
	}
	return msgs, nil
}

// pruneBlobEntry rewrites the legacy blob without the given token id once
// the token has been materialized into the table.
func (r *Repository) pruneBlobEntry(ctx context.Context, q *db.Queries, campaignID, tokenID uuid.UUID) error {
	row, err := q.GetGameState(ctx, campaignID)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.UpsertGameState(ctx, db.UpsertGameStateParams{CampaignID: campaignID, LastActivity: r.clock.Now().UTC()})
		return err
	}
	if err != nil {
		return err
	}
	if !row.TokenBlob.Valid {
		return nil
	}
	blobTokens, err := decodeTokenBlob(row.TokenBlob.RawMessage, campaignID)
	if err != nil {
		return err
	}
	kept := blobTokens[:0]
	for _, t := range blobTokens {
		if t.ID != tokenID {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(blobTokens) {
		return nil
	}
	encoded, err := encodeTokenBlob(kept)
	if err != nil {
		return err
	}
	return q.UpdateGameStateTokenBlob(ctx, db.UpdateGameStateTokenBlobParams{
		CampaignID:   campaignID,
		TokenBlob:    pqtype.NullRawMessage{RawMessage: encoded, Valid: true},
		LastActivity: r.clock.Now().UTC(),
	})
}

func dbTokenToModel(t db.Token) models.Token {
	out := models.Token{
		ID:            t.ID,
		CampaignID:    t.CampaignID,
		Position:      models.TokenPosition{X: t.PosX, Y: t.PosY},
		Hidden:        t.Hidden,
		CanPlayerMove: t.CanPlayerMove,
		OwnerID:       sqlutil.FromNullUUID(t.OwnerID),
		CharacterID:   sqlutil.FromNullUUID(t.CharacterID),
		SyncAvatar:    t.SyncAvatar,
		ImageURL:      t.ImageURL,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.Properties.Valid {
		out.Properties = json.RawMessage(t.Properties.RawMessage)
	}
	return out
}

func modelTokenToUpsertParams(campaignID uuid.UUID, t models.Token, now time.Time) db.UpsertTokenParams {
	arg := db.UpsertTokenParams{
		ID:            t.ID,
		CampaignID:    campaignID,
		PosX:          t.Position.X,
		PosY:          t.Position.Y,
		Hidden:        t.Hidden,
		CanPlayerMove: t.CanPlayerMove,
		OwnerID:       sqlutil.ToNullUUID(t.OwnerID),
		CharacterID:   sqlutil.ToNullUUID(t.CharacterID),
		SyncAvatar:    t.SyncAvatar,
		ImageURL:      t.ImageURL,
		UpdatedAt:     now,
	}
	if len(t.Properties) > 0 {
		arg.Properties = pqtype.NullRawMessage{RawMessage: t.Properties, Valid: true}
	}
	return arg
}

func dbChatToModel(m db.ChatMessage) models.ChatMessage {
	out := models.ChatMessage{
		ID:         m.ID,
		CampaignID: m.CampaignID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Body:       m.Body,
		Type:       models.ChatMessageType(m.Type),
		CreatedAt:  m.CreatedAt,
	}
	if m.Metadata.Valid {
		out.Metadata = json.RawMessage(m.Metadata.RawMessage)
	}
	return out
}
