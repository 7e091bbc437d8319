package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tableforge/tableforge/go/internal/campaigns"
	"github.com/tableforge/tableforge/go/internal/gamestate"
	"github.com/tableforge/tableforge/go/internal/models"
)

// StateStore is what the pipeline needs from the durable game state store.
// gamestate.Repository is the production implementation.
type StateStore interface {
	LoadGameState(ctx context.Context, campaignID uuid.UUID) (*models.GameState, error)
	SaveToken(ctx context.Context, campaignID uuid.UUID, token models.Token) error
	ActivateMap(ctx context.Context, campaignID, mapID uuid.UUID) error
	SetMapFrozen(ctx context.Context, campaignID uuid.UUID, frozen bool, frozenBy *uuid.UUID) error
	SyncAvatars(ctx context.Context, campaignID, characterID uuid.UUID, avatarURL string) (int, error)
	AppendChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error)
	RecentChatMessages(ctx context.Context, campaignID uuid.UUID, limit int32) ([]models.ChatMessage, error)
}

// Pipeline applies client-requested mutations. Every handler follows the
// same shape: verify room association, load state, check permission, apply,
// persist, and only then hand off to fanout. A failed mutation emits an
// error to the actor and nothing to peers.
//
// Writes to the same campaign are serialized through a per-campaign mutex;
// campaigns never contend with each other.
type Pipeline struct {
	store     StateStore
	directory CampaignDirectory
	manager   *Manager

	mu        sync.Mutex
	roomLocks map[uuid.UUID]*sync.Mutex
}

// NewPipeline creates a new mutation pipeline
func NewPipeline(store StateStore, directory CampaignDirectory, manager *Manager) *Pipeline {
	return &Pipeline{
		store:     store,
		directory: directory,
		manager:   manager,
		roomLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockCampaign returns the unlock func for the campaign's single-writer lock.
func (p *Pipeline) lockCampaign(campaignID uuid.UUID) func() {
	p.mu.Lock()
	lock, ok := p.roomLocks[campaignID]
	if !ok {
		lock = &sync.Mutex{}
		p.roomLocks[campaignID] = lock
	}
	p.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// requireRoom fails closed when the event's campaign does not match the
// connection's joined room.
func requireRoom(conn *Connection, campaignID uuid.UUID) *Error {
	joined := conn.Campaign()
	if joined == nil || *joined != campaignID {
		return errNotInCampaign()
	}
	return nil
}

// HandleChatSend persists a chat message, then broadcasts it to peers.
func (p *Pipeline) HandleChatSend(ctx context.Context, conn *Connection, payload ChatSendPayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}

	msgType := models.ChatMessageType(payload.Type)
	if msgType == "" {
		msgType = models.ChatMessageTypeChat
	}
	msg := models.ChatMessage{
		ID:         uuid.New(),
		CampaignID: payload.CampaignID,
		AuthorID:   conn.UserID,
		AuthorName: conn.UserName,
		Body:       payload.Message,
		Type:       msgType,
		Metadata:   payload.Metadata,
	}

	saved, err := p.store.AppendChatMessage(ctx, msg)
	if err != nil {
		log.Error().Err(err).Str("campaign_id", payload.CampaignID.String()).Msg("chat persist failed")
		return errPersistence("chat message")
	}

	p.manager.Broadcast(payload.CampaignID, EventChatMessage, chatMessagePayload(*saved), conn)
	return nil
}

// HandleTokenMove moves a token. Allowed for the GM, the token's owner, or
// anyone else while the token is unlocked.
func (p *Pipeline) HandleTokenMove(ctx context.Context, conn *Connection, payload TokenMovePayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}
	unlock := p.lockCampaign(payload.CampaignID)
	defer unlock()

	token, sessErr := p.loadToken(ctx, payload.CampaignID, payload.TokenID)
	if sessErr != nil {
		return sessErr
	}

	if !conn.IsGM() && !isTokenOwner(token, conn.UserID) && !token.CanPlayerMove {
		return errAccessDenied("token is locked")
	}

	token.Position = payload.Position
	if err := p.store.SaveToken(ctx, payload.CampaignID, *token); err != nil {
		log.Error().Err(err).Str("token_id", payload.TokenID.String()).Msg("token move persist failed")
		return errPersistence("token move")
	}

	p.manager.Broadcast(payload.CampaignID, EventGameTokenMove, TokenMovedPayload{
		TokenID:  token.ID,
		Position: token.Position,
		MovedBy:  conn.UserID,
	}, conn)
	return nil
}

// HandleToggleVisibility flips a token's hidden flag. GM only.
func (p *Pipeline) HandleToggleVisibility(ctx context.Context, conn *Connection, payload TokenTargetPayload) *Error {
	return p.gmTokenMutation(ctx, conn, payload, func(token *models.Token) (string, interface{}) {
		token.Hidden = !token.Hidden
		return EventVisibilityToggle, VisibilityToggledPayload{TokenID: token.ID, Hidden: token.Hidden}
	})
}

// HandleToggleLock flips a token's player-move lock. GM only.
func (p *Pipeline) HandleToggleLock(ctx context.Context, conn *Connection, payload TokenTargetPayload) *Error {
	return p.gmTokenMutation(ctx, conn, payload, func(token *models.Token) (string, interface{}) {
		token.CanPlayerMove = !token.CanPlayerMove
		return EventLockToggle, LockToggledPayload{TokenID: token.ID, CanPlayerMove: token.CanPlayerMove}
	})
}

// HandleChangeOwnership reassigns a token to another user. GM only.
func (p *Pipeline) HandleChangeOwnership(ctx context.Context, conn *Connection, payload ChangeOwnershipPayload) *Error {
	return p.gmTokenMutation(ctx, conn, TokenTargetPayload{CampaignID: payload.CampaignID, TokenID: payload.TokenID}, func(token *models.Token) (string, interface{}) {
		token.OwnerID = payload.NewOwnerID
		return EventOwnershipChange, OwnershipChangedPayload{TokenID: token.ID, OwnerID: token.OwnerID}
	})
}

// HandleUpdateProperties merges arbitrary property fields into the token,
// last write wins per field. GM only.
func (p *Pipeline) HandleUpdateProperties(ctx context.Context, conn *Connection, payload UpdatePropertiesPayload) *Error {
	return p.gmTokenMutation(ctx, conn, TokenTargetPayload{CampaignID: payload.CampaignID, TokenID: payload.TokenID}, func(token *models.Token) (string, interface{}) {
		merged := mergeProperties(token.Properties, payload.Properties)
		token.Properties = merged
		return EventPropertiesUpdate, PropertiesUpdatedPayload{TokenID: token.ID, Properties: merged}
	})
}

// gmTokenMutation is the shared shape of the GM-gated token handlers.
func (p *Pipeline) gmTokenMutation(ctx context.Context, conn *Connection, payload TokenTargetPayload, mutate func(*models.Token) (string, interface{})) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}
	if !conn.IsGM() {
		return errAccessDenied("only the GM may do that")
	}
	unlock := p.lockCampaign(payload.CampaignID)
	defer unlock()

	token, sessErr := p.loadToken(ctx, payload.CampaignID, payload.TokenID)
	if sessErr != nil {
		return sessErr
	}

	event, broadcast := mutate(token)
	if err := p.store.SaveToken(ctx, payload.CampaignID, *token); err != nil {
		log.Error().Err(err).Str("token_id", payload.TokenID.String()).Msg("token persist failed")
		return errPersistence("token update")
	}

	p.manager.Broadcast(payload.CampaignID, event, broadcast, conn)
	return nil
}

// HandleMapActivate activates a map, deactivating all others atomically.
// GM only; broadcast to all members including the actor.
func (p *Pipeline) HandleMapActivate(ctx context.Context, conn *Connection, payload MapActivatePayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}
	if !conn.IsGM() {
		return errAccessDenied("only the GM may activate maps")
	}
	unlock := p.lockCampaign(payload.CampaignID)
	defer unlock()

	if err := p.store.ActivateMap(ctx, payload.CampaignID, payload.MapID); err != nil {
		if errors.Is(err, gamestate.ErrMapNotFound) {
			return errNotFound("map %s does not exist", payload.MapID)
		}
		log.Error().Err(err).Str("map_id", payload.MapID.String()).Msg("map activation persist failed")
		return errPersistence("map activation")
	}

	p.manager.Broadcast(payload.CampaignID, EventMapActivated, MapActivatedPayload{
		CampaignID: payload.CampaignID,
		MapID:      payload.MapID,
	}, nil)
	return nil
}

// HandleMapFreeze freezes or unfreezes the active map. GM only; broadcast
// to all members including the actor.
func (p *Pipeline) HandleMapFreeze(ctx context.Context, conn *Connection, payload MapFreezePayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}
	if !conn.IsGM() {
		return errAccessDenied("only the GM may freeze the map")
	}
	unlock := p.lockCampaign(payload.CampaignID)
	defer unlock()

	frozenBy := conn.UserID
	var by *uuid.UUID
	if payload.Frozen {
		by = &frozenBy
	}
	if err := p.store.SetMapFrozen(ctx, payload.CampaignID, payload.Frozen, by); err != nil {
		log.Error().Err(err).Str("campaign_id", payload.CampaignID.String()).Msg("map freeze persist failed")
		return errPersistence("map freeze")
	}

	p.manager.Broadcast(payload.CampaignID, EventMapFrozen, MapFrozenPayload{
		CampaignID: payload.CampaignID,
		Frozen:     payload.Frozen,
		FrozenBy:   by,
	}, nil)
	return nil
}

// HandleAvatarSync propagates a character's new avatar to every token
// flagged sync_avatar for it. Character owner or GM; broadcast to all.
func (p *Pipeline) HandleAvatarSync(ctx context.Context, conn *Connection, payload AvatarSyncPayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}

	character, err := p.directory.GetCharacter(ctx, payload.CharacterID)
	if err != nil {
		if errors.Is(err, campaigns.ErrCharacterNotFound) {
			return errNotFound("character %s does not exist", payload.CharacterID)
		}
		log.Error().Err(err).Str("character_id", payload.CharacterID.String()).Msg("character lookup failed")
		return errPersistence("character lookup")
	}
	if character.CampaignID != payload.CampaignID {
		return errNotFound("character %s does not exist", payload.CharacterID)
	}
	if !conn.IsGM() && character.OwnerID != conn.UserID {
		return errAccessDenied("only the character's owner or the GM may sync avatars")
	}

	unlock := p.lockCampaign(payload.CampaignID)
	defer unlock()

	affected, err := p.store.SyncAvatars(ctx, payload.CampaignID, payload.CharacterID, payload.NewAvatarURL)
	if err != nil {
		log.Error().Err(err).Str("character_id", payload.CharacterID.String()).Msg("avatar sync persist failed")
		return errPersistence("avatar sync")
	}

	p.manager.Broadcast(payload.CampaignID, EventAvatarSynced, AvatarSyncedPayload{
		CharacterID:  payload.CharacterID,
		NewAvatarURL: payload.NewAvatarURL,
		Affected:     affected,
	}, nil)
	return nil
}

// HandleTokenLink relays token link/unlink notifications. Persistence for
// these happens in the REST endpoint that performed the link; this handler
// deliberately only validates membership and fans out.
func (p *Pipeline) HandleTokenLink(ctx context.Context, conn *Connection, event string, payload TokenLinkPayload) *Error {
	if err := requireRoom(conn, payload.CampaignID); err != nil {
		return err
	}
	p.manager.Broadcast(payload.CampaignID, event, payload, conn)
	return nil
}

// loadToken loads the merged game state and finds the token, mapping
// failures to the session error taxonomy.
func (p *Pipeline) loadToken(ctx context.Context, campaignID, tokenID uuid.UUID) (*models.Token, *Error) {
	gs, err := p.store.LoadGameState(ctx, campaignID)
	if err != nil {
		log.Error().Err(err).Str("campaign_id", campaignID.String()).Msg("game state load failed")
		return nil, errPersistence("game state load")
	}
	token := gs.FindToken(tokenID)
	if token == nil {
		return nil, errNotFound("token %s does not exist", tokenID)
	}
	return token, nil
}

func isTokenOwner(token *models.Token, userID uuid.UUID) bool {
	return token.OwnerID != nil && *token.OwnerID == userID
}

// mergeProperties applies the update map onto the existing properties
// object, field by field.
func mergeProperties(existing json.RawMessage, updates map[string]json.RawMessage) json.RawMessage {
	merged := make(map[string]json.RawMessage)
	if len(existing) > 0 {
		// A malformed existing blob is replaced rather than kept.
		_ = json.Unmarshal(existing, &merged)
	}
	for k, v := range updates {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return existing
	}
	return out
}
