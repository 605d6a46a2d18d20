package model

import "time"

// Kudos is a like (Text == nil) or a short note from one user to another.
type Kudos struct {
	ID         string
	GiverID    string
	GiverName  string
	ReceiverID string
	Text       *string
	CreatedAt  time.Time
}

// ChatRoom is a chat room attached to a mentee.
type ChatRoom struct {
	ID         string
	MenteeID   *string
	MenteeName string
}

// ChatMessage is a message in a chat room.
type ChatMessage struct {
	ID         string
	RoomID     string
	UserID     string
	AuthorName string
	Markdown   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Mentorship links a mentor (and optionally a coach) to a mentee.
type Mentorship struct {
	ID            string
	MentorID      string
	MenteeID      string
	CoachID       *string
	Transactional bool
	EndsAt        *time.Time
}

// Active reports whether the mentorship has not ended at now.
func (m Mentorship) Active(now time.Time) bool {
	return m.EndsAt == nil || m.EndsAt.After(now)
}

// Task is a todo item assigned to a user. CreatorID is nil for
// auto-generated tasks.
type Task struct {
	ID         string
	AssigneeID string
	CreatorID  *string
	Markdown   string
	Done       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
