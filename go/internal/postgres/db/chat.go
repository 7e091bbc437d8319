package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertChatMessage = `
INSERT INTO chat_messages (id, campaign_id, author_id, author_name, body, type, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, campaign_id, author_id, author_name, body, type, metadata, created_at
`

type InsertChatMessageParams struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Body       string
	Type       string
	Metadata   pqtype.NullRawMessage
	CreatedAt  time.Time
}

func (q *Queries) InsertChatMessage(ctx context.Context, arg InsertChatMessageParams) (ChatMessage, error) {
	row := q.db.QueryRowContext(ctx, insertChatMessage,
		arg.ID,
		arg.CampaignID,
		arg.AuthorID,
		arg.AuthorName,
		arg.Body,
		arg.Type,
		arg.Metadata,
		arg.CreatedAt,
	)
	var m ChatMessage
	err := row.Scan(&m.ID, &m.CampaignID, &m.AuthorID, &m.AuthorName, &m.Body, &m.Type, &m.Metadata, &m.CreatedAt)
	return m, err
}

const listRecentChatMessages = `
SELECT id, campaign_id, author_id, author_name, body, type, metadata, created_at
FROM chat_messages
WHERE campaign_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

type ListRecentChatMessagesParams struct {
	CampaignID uuid.UUID
	Limit      int32
}

func (q *Queries) ListRecentChatMessages(ctx context.Context, arg ListRecentChatMessagesParams) ([]ChatMessage, error) {
	rows, err := q.db.QueryContext(ctx, listRecentChatMessages, arg.CampaignID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.AuthorID, &m.AuthorName, &m.Body, &m.Type, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
