package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID          uuid.UUID
	Username    string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

type Campaign struct {
	ID        uuid.UUID
	Name      string
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CampaignMember struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	UserID     uuid.UUID
	Role       string
	JoinedAt   time.Time
}

type Character struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	Kind       string
	AvatarURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type GameMap struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	Name       string
	ImageURL   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type GameState struct {
	CampaignID   uuid.UUID
	TokenBlob    pqtype.NullRawMessage
	ActiveMapID  uuid.NullUUID
	GameData     pqtype.NullRawMessage
	MapFrozen    bool
	FrozenBy     uuid.NullUUID
	FrozenAt     sql.NullTime
	LastActivity time.Time
}

type Token struct {
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

type ChatMessage struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Body       string
	Type       string
	Metadata   pqtype.NullRawMessage
	CreatedAt  time.Time
}
