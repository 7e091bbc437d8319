package gamestate

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/models"
)

func TestDecodeTokenBlobLegacyCoordinates(t *testing.T) {
	campaignID := uuid.New()
	id := uuid.New()
	owner := uuid.New()

	blob := []byte(`[{"id":"` + id.String() + `","top":120,"left":80,"hidden":true,"canPlayerMove":true,"ownerId":"` + owner.String() + `"}]`)
	tokens, err := decodeTokenBlob(blob, campaignID)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token, got %d", len(tokens))
	}

	got := tokens[0]
	if got.ID != id || got.CampaignID != campaignID {
		t.Fatalf("identity not carried: %+v", got)
	}
	// Legacy pixel coordinates: left becomes X, top becomes Y.
	if got.Position.X != 80 || got.Position.Y != 120 {
		t.Fatalf("expected position {80 120}, got %+v", got.Position)
	}
	if !got.Hidden || !got.CanPlayerMove {
		t.Fatalf("flags not carried: %+v", got)
	}
	if got.OwnerID == nil || *got.OwnerID != owner {
		t.Fatalf("owner not carried: %v", got.OwnerID)
	}
}

func TestDecodeTokenBlobPrefersModernCoordinates(t *testing.T) {
	id := uuid.New()
	blob := []byte(`[{"id":"` + id.String() + `","top":999,"left":999,"x":10,"y":20}]`)
	tokens, err := decodeTokenBlob(blob, uuid.New())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tokens[0].Position.X != 10 || tokens[0].Position.Y != 20 {
		t.Fatalf("expected {10 20} from x/y, got %+v", tokens[0].Position)
	}
}

func TestDecodeTokenBlobSkipsBadEntries(t *testing.T) {
	good := uuid.New()
	blob := []byte(`[{"id":"not-a-uuid","x":1,"y":1},{"id":"` + good.String() + `","x":2,"y":3}]`)
	tokens, err := decodeTokenBlob(blob, uuid.New())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tokens) != 1 || tokens[0].ID != good {
		t.Fatalf("expected only the valid entry, got %+v", tokens)
	}
}

func TestDecodeTokenBlobEmpty(t *testing.T) {
	tokens, err := decodeTokenBlob(nil, uuid.New())
	if err != nil || tokens != nil {
		t.Fatalf("expected nil, nil for empty blob, got %v, %v", tokens, err)
	}
	if _, err := decodeTokenBlob([]byte(`{"not":"an array"}`), uuid.New()); err == nil {
		t.Fatal("expected error for non-array blob")
	}
}

func TestEncodeTokenBlobModernForm(t *testing.T) {
	owner := uuid.New()
	token := models.Token{
		ID:            uuid.New(),
		Position:      models.TokenPosition{X: 5, Y: 6},
		CanPlayerMove: true,
		OwnerID:       &owner,
	}
	blob, err := encodeTokenBlob([]models.Token{token})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if string(entries[0]["x"]) != "5" || string(entries[0]["y"]) != "6" {
		t.Fatalf("expected x/y coordinates, got %+v", entries[0])
	}
	if _, ok := entries[0]["top"]; ok {
		t.Fatal("rewritten entries must not carry legacy pixel fields")
	}

	// The encoded form must survive a read back.
	decoded, err := decodeTokenBlob(blob, token.CampaignID)
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if decoded[0].ID != token.ID || decoded[0].Position != token.Position {
		t.Fatalf("round trip altered the token: %+v", decoded[0])
	}
}

func TestMergeTokensTableWins(t *testing.T) {
	shared := uuid.New()
	blobOnly := uuid.New()

	table := []models.Token{{ID: shared, Position: models.TokenPosition{X: 1, Y: 1}}}
	blob := []models.Token{
		{ID: shared, Position: models.TokenPosition{X: 99, Y: 99}},
		{ID: blobOnly, Position: models.TokenPosition{X: 2, Y: 2}},
	}

	merged := mergeTokens(table, blob)
	if len(merged) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(merged))
	}
	byID := make(map[uuid.UUID]models.Token, len(merged))
	for _, tok := range merged {
		byID[tok.ID] = tok
	}
	if byID[shared].Position.X != 1 {
		t.Fatalf("normalized row must win for %s, got %+v", shared, byID[shared].Position)
	}
	if _, ok := byID[blobOnly]; !ok {
		t.Fatal("blob-only token must survive the merge")
	}
}
