package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/campaigns"
	"github.com/tableforge/tableforge/go/internal/gamestate"
	"github.com/tableforge/tableforge/go/internal/models"
	"github.com/tableforge/tableforge/go/internal/users"
)

// fakeStore is an in-memory StateStore. Loads return copies so a failed
// mutation cannot leak partial writes back into the store.
type fakeStore struct {
	mu sync.Mutex

	tokens     map[uuid.UUID][]models.Token
	chat       map[uuid.UUID][]models.ChatMessage
	knownMaps  map[uuid.UUID]uuid.UUID // mapID -> campaignID
	activeMap  map[uuid.UUID]uuid.UUID
	frozen     map[uuid.UUID]bool
	frozenBy   map[uuid.UUID]*uuid.UUID
	saveCalls  int
	storeCalls int

	failSave bool
	failChat bool
	failLoad bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tokens:    make(map[uuid.UUID][]models.Token),
		chat:      make(map[uuid.UUID][]models.ChatMessage),
		knownMaps: make(map[uuid.UUID]uuid.UUID),
		activeMap: make(map[uuid.UUID]uuid.UUID),
		frozen:    make(map[uuid.UUID]bool),
		frozenBy:  make(map[uuid.UUID]*uuid.UUID),
	}
}

func (s *fakeStore) seedToken(campaignID uuid.UUID, t models.Token) models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CampaignID = campaignID
	s.tokens[campaignID] = append(s.tokens[campaignID], t)
	return t
}

func (s *fakeStore) tokenByID(campaignID, tokenID uuid.UUID) *models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tokens[campaignID] {
		if s.tokens[campaignID][i].ID == tokenID {
			t := s.tokens[campaignID][i]
			return &t
		}
	}
	return nil
}

func (s *fakeStore) LoadGameState(ctx context.Context, campaignID uuid.UUID) (*models.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	if s.failLoad {
		return nil, errors.New("load failed")
	}
	gs := &models.GameState{
		CampaignID: campaignID,
		Tokens:     append([]models.Token(nil), s.tokens[campaignID]...),
		MapFrozen:  s.frozen[campaignID],
	}
	if id, ok := s.activeMap[campaignID]; ok {
		gs.ActiveMapID = &id
	}
	return gs, nil
}

func (s *fakeStore) SaveToken(ctx context.Context, campaignID uuid.UUID, token models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	if s.failSave {
		return errors.New("save failed")
	}
	s.saveCalls++
	for i := range s.tokens[campaignID] {
		if s.tokens[campaignID][i].ID == token.ID {
			s.tokens[campaignID][i] = token
			return nil
		}
	}
	s.tokens[campaignID] = append(s.tokens[campaignID], token)
	return nil
}

func (s *fakeStore) ActivateMap(ctx context.Context, campaignID, mapID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	if owner, ok := s.knownMaps[mapID]; !ok || owner != campaignID {
		return gamestate.ErrMapNotFound
	}
	s.activeMap[campaignID] = mapID
	return nil
}

func (s *fakeStore) SetMapFrozen(ctx context.Context, campaignID uuid.UUID, frozen bool, frozenBy *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	s.frozen[campaignID] = frozen
	s.frozenBy[campaignID] = frozenBy
	return nil
}

func (s *fakeStore) SyncAvatars(ctx context.Context, campaignID, characterID uuid.UUID, avatarURL string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	affected := 0
	for i := range s.tokens[campaignID] {
		t := &s.tokens[campaignID][i]
		if t.SyncAvatar && t.CharacterID != nil && *t.CharacterID == characterID {
			t.ImageURL = avatarURL
			affected++
		}
	}
	return affected, nil
}

func (s *fakeStore) AppendChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCalls++
	if s.failChat {
		return nil, errors.New("insert failed")
	}
	msg.CreatedAt = time.Now()
	s.chat[msg.CampaignID] = append(s.chat[msg.CampaignID], msg)
	saved := msg
	return &saved, nil
}

func (s *fakeStore) RecentChatMessages(ctx context.Context, campaignID uuid.UUID, limit int32) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.chat[campaignID]
	if int32(len(history)) > limit {
		history = history[int32(len(history))-limit:]
	}
	return append([]models.ChatMessage(nil), history...), nil
}

// fakeDirectory is an in-memory CampaignDirectory.
type fakeDirectory struct {
	campaigns  map[uuid.UUID]*models.Campaign
	characters map[uuid.UUID]*models.Character
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		campaigns:  make(map[uuid.UUID]*models.Campaign),
		characters: make(map[uuid.UUID]*models.Character),
	}
}

func (d *fakeDirectory) addCampaign(ownerID uuid.UUID, memberIDs ...uuid.UUID) *models.Campaign {
	c := &models.Campaign{ID: uuid.New(), Name: "test campaign", OwnerID: ownerID}
	for _, id := range memberIDs {
		c.Members = append(c.Members, models.CampaignMember{
			ID:         uuid.New(),
			CampaignID: c.ID,
			UserID:     id,
			Role:       models.CampaignRolePlayer,
		})
	}
	d.campaigns[c.ID] = c
	return c
}

func (d *fakeDirectory) GetCampaignWithMembers(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := d.campaigns[id]
	if !ok {
		return nil, campaigns.ErrNotFound
	}
	return c, nil
}

func (d *fakeDirectory) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	c, ok := d.characters[id]
	if !ok {
		return nil, campaigns.ErrCharacterNotFound
	}
	return c, nil
}

// fakeLookup resolves identity claims from a static map.
type fakeLookup struct {
	users map[string]*models.User
	err   error
}

func (l *fakeLookup) LookupByClaim(ctx context.Context, claim string) (*models.User, error) {
	if l.err != nil {
		return nil, l.err
	}
	u, ok := l.users[claim]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

// newTestConn builds a connection without a transport. Frames land in Send
// and are read back with receivedEnvelopes.
func newTestConn(m *Manager, name string) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		UserID:   uuid.New(),
		UserName: name,
		Send:     make(chan []byte, 64),
		manager:  m,
	}
}

// drainBroadcasts runs queued fanout work synchronously, standing in for
// the Start loop.
func drainBroadcasts(m *Manager) {
	for {
		select {
		case msg := <-m.broadcastCh:
			m.deliver(msg)
		default:
			return
		}
	}
}

// receivedEnvelopes drains the fanout queue and returns every frame queued
// for the connection, in delivery order.
func receivedEnvelopes(m *Manager, conn *Connection) []Envelope {
	drainBroadcasts(m)
	var out []Envelope
	for {
		select {
		case data := <-conn.Send:
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				panic(err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func mustUnmarshal(data json.RawMessage, v interface{}) {
	if err := json.Unmarshal(data, v); err != nil {
		panic(err)
	}
}
