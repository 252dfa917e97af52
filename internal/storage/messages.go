package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// MessagesByChatID returns all chat messages sorted by send time
// (from earliest to latest)
func (s *Store) MessagesByChatID(ctx context.Context, chatID int64) ([]Message, error) {
	s.logger.Debugf("Retrieving messages for chat (id: %d)", chatID)

	sql := `select id, chat_id, sender_id, content, created_at, is_read
			  from messages
			 where chat_id = $1
			 order by created_at asc, id asc`

	rows, err := s.db.Query(ctx, sql, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		err = rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Timestamp, &m.IsRead)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}

// CreateMessage persists a new message and bumps the chat's updated_at so
// counselor listings sort by recency. Both writes share a transaction.
func (s *Store) CreateMessage(ctx context.Context, chatID, senderID int64, content string) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %d) in chat (id: %d)", senderID, chatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback(context.Background())

	m := Message{ChatID: chatID, SenderID: senderID, Content: content}
	sql := "insert into messages (chat_id, sender_id, content, created_at) values ($1, $2, $3, $4) returning id, created_at"
	err = tx.QueryRow(ctx, sql, chatID, senderID, content, time.Now()).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return Message{}, ErrChatNotFound
		}
		return Message{}, err
	}

	_, err = tx.Exec(ctx, "update chats set updated_at = now() where id = $1", chatID)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Message{}, err
	}

	return m, nil
}

// MarkMessagesRead flips the read flag on counterpart messages and returns
// how many were updated. The reader's own messages are left untouched.
func (s *Store) MarkMessagesRead(ctx context.Context, chatID, readerID int64) (int64, error) {
	sql := "update messages set is_read = true where chat_id = $1 and sender_id <> $2 and not is_read"
	tag, err := s.db.Exec(ctx, sql, chatID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
