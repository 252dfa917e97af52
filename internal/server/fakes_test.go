package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"school-counseling-backend/internal/storage"
)

// fakeStore is an in-memory Store used by handler tests. It enforces the
// same uniqueness invariants as the real schema under a single mutex, so
// concurrent calls race the way two transactions would.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]storage.User
	chats    map[int64]storage.Chat
	messages map[int64][]storage.Message
	posts    map[int64]storage.Post

	nextUser    int64
	nextChat    int64
	nextMessage int64
	nextPost    int64
	clock       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]storage.User),
		chats:    make(map[int64]storage.Chat),
		messages: make(map[int64][]storage.Message),
		posts:    make(map[int64]storage.Post),
	}
}

// tick returns strictly increasing timestamps so ordering assertions are
// deterministic even within one wall-clock nanosecond.
func (f *fakeStore) tick() time.Time {
	f.clock++
	return time.Unix(0, f.clock*int64(time.Millisecond))
}

func (f *fakeStore) addUser(token, email, passwordHash string, psychologist bool) storage.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUser++
	u := storage.User{
		ID:             f.nextUser,
		Token:          token,
		Email:          email,
		PasswordHash:   passwordHash,
		IsPsychologist: psychologist,
		CreatedAt:      f.tick(),
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) CreateStudent(_ context.Context, token, passwordHash string) (storage.User, error) {
	f.mu.Lock()
	for _, u := range f.users {
		if strings.EqualFold(u.Token, token) {
			f.mu.Unlock()
			return storage.User{}, storage.ErrTokenExists
		}
	}
	f.mu.Unlock()
	return f.addUser(token, "", passwordHash, false), nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotFound
}

func (f *fakeStore) UserByToken(_ context.Context, token string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Token, token) {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotFound
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) activeChatCountLocked(psychologistID int64) int {
	n := 0
	for _, c := range f.chats {
		if c.PsychologistID == psychologistID && c.IsActive {
			n++
		}
	}
	return n
}

func (f *fakeStore) InitiateChat(_ context.Context, studentID int64, content string) (storage.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.chats {
		if c.StudentID == studentID && c.IsActive {
			return storage.Chat{}, storage.ErrActiveChatExists
		}
	}

	var ids []int64
	for id, u := range f.users {
		if u.IsPsychologist {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return storage.Chat{}, storage.ErrNoPsychologist
	}
	sort.Slice(ids, func(i, j int) bool {
		li, lj := f.activeChatCountLocked(ids[i]), f.activeChatCountLocked(ids[j])
		if li != lj {
			return li < lj
		}
		return ids[i] < ids[j]
	})
	psychologist := f.users[ids[0]]

	f.nextChat++
	now := f.tick()
	chat := storage.Chat{
		ID:                f.nextChat,
		StudentID:         studentID,
		StudentToken:      f.users[studentID].Token,
		PsychologistID:    psychologist.ID,
		PsychologistEmail: psychologist.Email,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.chats[chat.ID] = chat

	f.nextMessage++
	f.messages[chat.ID] = append(f.messages[chat.ID], storage.Message{
		ID:        f.nextMessage,
		ChatID:    chat.ID,
		SenderID:  studentID,
		Content:   content,
		Timestamp: f.tick(),
	})

	return chat, nil
}

func (f *fakeStore) ChatByID(_ context.Context, id int64) (storage.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return storage.Chat{}, storage.ErrChatNotFound
	}
	return c, nil
}

func (f *fakeStore) ChatsByPsychologist(_ context.Context, psychologistID int64) ([]storage.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chats []storage.Chat
	for _, c := range f.chats {
		if c.PsychologistID == psychologistID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

func (f *fakeStore) ActiveChatsByStudent(_ context.Context, studentID int64) ([]storage.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chats []storage.Chat
	for _, c := range f.chats {
		if c.StudentID == studentID && c.IsActive {
			chats = append(chats, c)
		}
	}
	return chats, nil
}

func (f *fakeStore) MessagesByChatID(_ context.Context, chatID int64) ([]storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]storage.Message, len(f.messages[chatID]))
	copy(msgs, f.messages[chatID])
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, chatID, senderID int64, content string) (storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return storage.Message{}, storage.ErrChatNotFound
	}

	f.nextMessage++
	m := storage.Message{
		ID:        f.nextMessage,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: f.tick(),
	}
	f.messages[chatID] = append(f.messages[chatID], m)

	chat.UpdatedAt = f.tick()
	f.chats[chatID] = chat

	return m, nil
}

func (f *fakeStore) MarkMessagesRead(_ context.Context, chatID, readerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	msgs := f.messages[chatID]
	for i := range msgs {
		if msgs[i].SenderID != readerID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeStore) Posts(_ context.Context) ([]storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var posts []storage.Post
	for _, p := range f.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (f *fakeStore) PostByID(_ context.Context, id int64) (storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return storage.Post{}, storage.ErrPostNotFound
	}
	return p, nil
}

func splitTags(input string) []string {
	var tags []string
	for _, raw := range strings.Split(input, ",") {
		if name := strings.TrimSpace(raw); name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}

func (f *fakeStore) CreatePost(_ context.Context, in storage.PostInput) (storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPost++
	p := storage.Post{
		ID:              f.nextPost,
		Title:           in.Title,
		Excerpt:         in.Excerpt,
		Body:            in.Body,
		ReadTimeMinutes: in.ReadTimeMinutes,
		Tags:            splitTags(in.TagsInput),
		CreatedAt:       f.tick(),
	}
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, id int64, in storage.PostInput) (storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return storage.Post{}, storage.ErrPostNotFound
	}
	p.Title = in.Title
	p.Excerpt = in.Excerpt
	p.Body = in.Body
	p.ReadTimeMinutes = in.ReadTimeMinutes
	if in.TagsInput != "" {
		p.Tags = splitTags(in.TagsInput)
	}
	f.posts[id] = p
	return p, nil
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return storage.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}
