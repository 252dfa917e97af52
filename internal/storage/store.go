package storage

import (
	"context"
	"errors"

	"school-counseling-backend/internal/storage/zapadapter"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound     = errors.New("user does not exist")
	ErrTokenExists      = errors.New("token already taken")
	ErrEmailExists      = errors.New("email already taken")
	ErrChatNotFound     = errors.New("chat does not exist")
	ErrActiveChatExists = errors.New("student already has an active chat")
	ErrNoPsychologist   = errors.New("no psychologist available")
	ErrPostNotFound     = errors.New("post does not exist")
)

// AssignmentStrategy selects how a counselor is picked for a new chat.
type AssignmentStrategy int

const (
	// AssignLeastLoaded picks the psychologist with the fewest active chats.
	AssignLeastLoaded AssignmentStrategy = iota
	// AssignFirst picks the first psychologist by stable id order.
	AssignFirst
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
	assign AssignmentStrategy
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
		assign: AssignLeastLoaded,
	}, nil
}

// SetAssignmentStrategy swaps the counselor selection policy.
func (s *Store) SetAssignmentStrategy(strategy AssignmentStrategy) {
	s.assign = strategy
}

// Close releases the underlying connection pool
func (s *Store) Close() {
	s.db.Close()
}

// Migrate creates tables and indexes if they do not exist yet.
// The partial unique index on chats is the atomic guarantee behind
// "at most one active chat per student".
func (s *Store) Migrate(ctx context.Context) error {
	sql := `
	create table if not exists users (
		id bigserial primary key,
		token text not null,
		email text,
		password_hash text not null,
		is_psychologist boolean not null default false,
		created_at timestamptz not null default now()
	);
	create unique index if not exists users_token_key on users (lower(token));
	create unique index if not exists users_email_key on users (lower(email)) where email is not null;

	create table if not exists chats (
		id bigserial primary key,
		student_id bigint not null references users (id) on delete cascade,
		psychologist_id bigint references users (id) on delete set null,
		is_active boolean not null default true,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	);
	create unique index if not exists chats_one_active_per_student on chats (student_id) where is_active;
	create index if not exists chats_psychologist_idx on chats (psychologist_id);

	create table if not exists messages (
		id bigserial primary key,
		chat_id bigint not null references chats (id) on delete cascade,
		sender_id bigint not null references users (id) on delete cascade,
		content text not null,
		created_at timestamptz not null default now(),
		is_read boolean not null default false
	);
	create index if not exists messages_chat_idx on messages (chat_id, created_at);

	create table if not exists posts (
		id bigserial primary key,
		title text not null,
		excerpt text not null,
		body text not null,
		read_time_minutes smallint not null default 5,
		created_at timestamptz not null default now()
	);

	create table if not exists tags (
		id bigserial primary key,
		name text not null unique
	);

	create table if not exists post_tags (
		post_id bigint not null references posts (id) on delete cascade,
		tag_id bigint not null references tags (id) on delete cascade,
		primary key (post_id, tag_id)
	);`

	_, err := s.db.Exec(ctx, sql)
	return err
}
