package gamestate

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/models"
)

// legacyToken mirrors one entry of the token array that older clients
// embedded as JSON on the game state row. Position is pixel {top,left};
// newer entries may already carry {x,y}.
type legacyToken struct {
	ID            string          `json:"id"`
	Top           *float64        `json:"top,omitempty"`
	Left          *float64        `json:"left,omitempty"`
	X             *float64        `json:"x,omitempty"`
	Y             *float64        `json:"y,omitempty"`
	Hidden        bool            `json:"hidden"`
	CanPlayerMove bool            `json:"canPlayerMove"`
	OwnerID       string          `json:"ownerId,omitempty"`
	CharacterID   string          `json:"characterId,omitempty"`
	SyncAvatar    bool            `json:"syncAvatar"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Properties    json.RawMessage `json:"properties,omitempty"`
}

// decodeTokenBlob parses the legacy embedded array. Entries with ids that
// are not UUIDs are skipped rather than failing the whole load.
func decodeTokenBlob(blob []byte, campaignID uuid.UUID) ([]models.Token, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var entries []legacyToken
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("decode token blob: %w", err)
	}

	tokens := make([]models.Token, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			continue
		}
		t := models.Token{
			ID:            id,
			CampaignID:    campaignID,
			Hidden:        e.Hidden,
			CanPlayerMove: e.CanPlayerMove,
			SyncAvatar:    e.SyncAvatar,
			ImageURL:      e.ImageURL,
			Properties:    e.Properties,
		}
		// Prefer {x,y} when present, otherwise map legacy pixel
		// coordinates: left is X, top is Y.
		switch {
		case e.X != nil && e.Y != nil:
			t.Position = models.TokenPosition{X: *e.X, Y: *e.Y}
		case e.Top != nil && e.Left != nil:
			t.Position = models.TokenPosition{X: *e.Left, Y: *e.Top}
		}
		if owner, err := uuid.Parse(e.OwnerID); err == nil {
			t.OwnerID = &owner
		}
		if character, err := uuid.Parse(e.CharacterID); err == nil {
			t.CharacterID = &character
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// encodeTokenBlob re-serializes blob entries, keeping the legacy field
// names so older readers stay compatible.
func encodeTokenBlob(tokens []models.Token) ([]byte, error) {
	entries := make([]legacyToken, 0, len(tokens))
	for _, t := range tokens {
		x, y := t.Position.X, t.Position.Y
		e := legacyToken{
			ID:            t.ID.String(),
			X:             &x,
			Y:             &y,
			Hidden:        t.Hidden,
			CanPlayerMove: t.CanPlayerMove,
			SyncAvatar:    t.SyncAvatar,
			ImageURL:      t.ImageURL,
			Properties:    t.Properties,
		}
		if t.OwnerID != nil {
			e.OwnerID = t.OwnerID.String()
		}
		if t.CharacterID != nil {
			e.CharacterID = t.CharacterID.String()
		}
		entries = append(entries, e)
	}
	return json.Marshal(entries)
}

// mergeTokens reconciles the two representations: the normalized table is
// canonical and wins per token id, blob-only tokens are appended so no data
// is dropped before it has been materialized.
func mergeTokens(tableTokens, blobTokens []models.Token) []models.Token {
	seen := make(map[uuid.UUID]struct{}, len(tableTokens))
	merged := make([]models.Token, 0, len(tableTokens)+len(blobTokens))
	for _, t := range tableTokens {
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range blobTokens {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		merged = append(merged, t)
	}
	return merged
}
