package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// chatSelect joins party handles and the latest message preview onto each chat.
const chatSelect = `
	select c.id,
		   c.student_id,
		   su.token,
		   c.psychologist_id,
		   pu.email,
		   c.is_active,
		   c.created_at,
		   c.updated_at,
		   m.content,
		   m.created_at
	  from chats c
	  join users su
		on su.id = c.student_id
	  left join users pu
		on pu.id = c.psychologist_id
	  left join lateral (
			select left(content, 100) as content, created_at
			  from messages
			 where chat_id = c.id
			 order by created_at desc, id desc
			 limit 1
	  ) m on true`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChat(row rowScanner) (Chat, error) {
	var (
		c          Chat
		psychID    pgtype.Int8
		psychEmail pgtype.Text
		msgContent pgtype.Text
		msgAt      pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.StudentID, &c.StudentToken, &psychID, &psychEmail,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt, &msgContent, &msgAt)
	if err != nil {
		return Chat{}, err
	}
	if psychID.Status == pgtype.Present {
		c.PsychologistID = psychID.Int
	}
	if psychEmail.Status == pgtype.Present {
		c.PsychologistEmail = psychEmail.String
	}
	if msgContent.Status == pgtype.Present {
		c.LastMessage = &LastMessage{
			Content:   msgContent.String,
			Timestamp: msgAt.Time,
		}
	}
	return c, nil
}

// pickPsychologistSQL returns the counselor selection query for the
// configured assignment strategy. Both guarantee only "some eligible
// counselor", not fairness.
func (s *Store) pickPsychologistSQL() string {
	if s.assign == AssignFirst {
		return "select id from users where is_psychologist order by id limit 1"
	}
	return `select u.id
			  from users u
			  left join chats c
				on c.psychologist_id = u.id and c.is_active
			 where u.is_psychologist
			 group by u.id
			 order by count(c.id) asc, u.id asc
			 limit 1`
}

// InitiateChat assigns a counselor to the student, creates an active chat
// and its opening message in one transaction. Concurrent initiations by the
// same student race on the chats_one_active_per_student index, so exactly
// one wins and the rest get ErrActiveChatExists.
func (s *Store) InitiateChat(ctx context.Context, studentID int64, content string) (Chat, error) {
	s.logger.Debugf("Initiating chat for student (id: %d)", studentID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Chat{}, err
	}
	// error handling can be omitted for rollback according docs
	// see https://pkg.go.dev/github.com/jackc/pgx/v4?tab=doc#hdr-Transactions or any source comment on Rollback
	defer tx.Rollback(context.Background())

	var psychologistID int64
	err = tx.QueryRow(ctx, s.pickPsychologistSQL()).Scan(&psychologistID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, ErrNoPsychologist
		}
		return Chat{}, err
	}

	var chatID int64
	sql := "insert into chats (student_id, psychologist_id) values ($1, $2) returning id"
	err = tx.QueryRow(ctx, sql, studentID, psychologistID).Scan(&chatID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Chat{}, ErrActiveChatExists
		}
		return Chat{}, err
	}

	sql = "insert into messages (chat_id, sender_id, content, created_at) values ($1, $2, $3, $4)"
	_, err = tx.Exec(ctx, sql, chatID, studentID, content, time.Now())
	if err != nil {
		return Chat{}, err
	}

	chat, err := scanChat(tx.QueryRow(ctx, chatSelect+" where c.id = $1", chatID))
	if err != nil {
		return Chat{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Chat{}, err
	}

	s.logger.Debugf("Created chat %d (student %d, psychologist %d)", chatID, studentID, psychologistID)

	return chat, nil
}

// ChatByID returns a single chat with party handles and last-message preview
func (s *Store) ChatByID(ctx context.Context, id int64) (Chat, error) {
	chat, err := scanChat(s.db.QueryRow(ctx, chatSelect+" where c.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, ErrChatNotFound
		}
		return Chat{}, err
	}
	return chat, nil
}

func (s *Store) queryChats(ctx context.Context, sql string, args ...interface{}) ([]Chat, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}

	return chats, rows.Err()
}

// ChatsByPsychologist returns chats assigned to the counselor,
// most recently updated first
func (s *Store) ChatsByPsychologist(ctx context.Context, psychologistID int64) ([]Chat, error) {
	s.logger.Debugf("Retrieving chats for psychologist (id: %d)", psychologistID)
	return s.queryChats(ctx, chatSelect+" where c.psychologist_id = $1 order by c.updated_at desc", psychologistID)
}

// ActiveChatsByStudent returns the student's active chats, zero or one by
// the uniqueness constraint
func (s *Store) ActiveChatsByStudent(ctx context.Context, studentID int64) ([]Chat, error) {
	s.logger.Debugf("Retrieving active chats for student (id: %d)", studentID)
	return s.queryChats(ctx, chatSelect+" where c.student_id = $1 and c.is_active", studentID)
}
