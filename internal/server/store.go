package server

import (
	"context"

	"school-counseling-backend/internal/storage"
)

// Store is the persistence surface handlers depend on. *storage.Store is
// the production implementation; tests use an in-memory fake.
type Store interface {
	CreateStudent(ctx context.Context, token, passwordHash string) (storage.User, error)
	UserByEmail(ctx context.Context, email string) (storage.User, error)
	UserByToken(ctx context.Context, token string) (storage.User, error)
	UserByID(ctx context.Context, id int64) (storage.User, error)

	InitiateChat(ctx context.Context, studentID int64, content string) (storage.Chat, error)
	ChatByID(ctx context.Context, id int64) (storage.Chat, error)
	ChatsByPsychologist(ctx context.Context, psychologistID int64) ([]storage.Chat, error)
	ActiveChatsByStudent(ctx context.Context, studentID int64) ([]storage.Chat, error)
	MessagesByChatID(ctx context.Context, chatID int64) ([]storage.Message, error)
	CreateMessage(ctx context.Context, chatID, senderID int64, content string) (storage.Message, error)
	MarkMessagesRead(ctx context.Context, chatID, readerID int64) (int64, error)

	Posts(ctx context.Context) ([]storage.Post, error)
	PostByID(ctx context.Context, id int64) (storage.Post, error)
	CreatePost(ctx context.Context, in storage.PostInput) (storage.Post, error)
	UpdatePost(ctx context.Context, id int64, in storage.PostInput) (storage.Post, error)
	DeletePost(ctx context.Context, id int64) error
}
