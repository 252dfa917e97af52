package storage

import "time"

// User is an identity record. Students carry a token handle, staff carry an
// email; either one may be used to log in.
type User struct {
	ID             int64     `json:"id"`
	Token          string    `json:"token"`
	Email          string    `json:"email,omitempty"`
	PasswordHash   string    `json:"-"`
	IsPsychologist bool      `json:"is_psychologist"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chat links exactly one student to at most one psychologist.
// PsychologistID and PsychologistEmail are zero when the counselor has been
// removed from the system.
type Chat struct {
	ID                int64        `json:"id"`
	StudentID         int64        `json:"student_id"`
	StudentToken      string       `json:"student_token"`
	PsychologistID    int64        `json:"psychologist_id,omitempty"`
	PsychologistEmail string       `json:"psychologist_email,omitempty"`
	IsActive          bool         `json:"is_active"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	LastMessage       *LastMessage `json:"last_message"`
}

// LastMessage is the preview attached to chat listings.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"is_read"`
}

// Post is a catalog article. Body is stripped from list responses by the
// server layer, not here.
type Post struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Excerpt         string    `json:"excerpt"`
	Body            string    `json:"text"`
	ReadTimeMinutes int16     `json:"read_time"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
}

// PostInput carries the writable article fields. TagsInput is a
// comma-separated tag list as supplied by the frontend.
type PostInput struct {
	Title           string
	Excerpt         string
	Body            string
	ReadTimeMinutes int16
	TagsInput       string
}
