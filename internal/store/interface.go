package store

import (
	"context"
	"time"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

// TxRunner runs work inside a database transaction. Storage calls made with
// the context handed to fn join that transaction.
type TxRunner interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStorage reads users and their notification preferences
type UserStorage interface {
	// FindUsersByIDs returns the users that exist among ids, in no particular
	// order. Unknown ids are ignored.
	FindUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	FindUsersByRole(ctx context.Context, role model.Role) ([]model.User, error)
	Ping(ctx context.Context) error
}

// ContentStorage reads the application data scheduled digests are built from
type ContentStorage interface {
	ListKudosSince(ctx context.Context, receiverID string, since time.Time) ([]model.Kudos, error)
	// GetChatRoom returns appErr.ErrNotFound if the room does not exist.
	GetChatRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
	ListChatMessagesSince(ctx context.Context, roomID string, since time.Time) ([]model.ChatMessage, error)
	// ListActiveMentorships returns the non-transactional mentorships of a
	// mentee that have not ended at now.
	ListActiveMentorships(ctx context.Context, menteeID string, now time.Time) ([]model.Mentorship, error)
	// ListPendingTasksSince returns undone tasks of an assignee updated at or
	// after since, excluding tasks the assignee created.
	ListPendingTasksSince(ctx context.Context, assigneeID string, since time.Time) ([]model.Task, error)
}

// ScheduledStorage persists the scheduled-notification queue.
// Allows debouncing notifications for async processing
type ScheduledStorage interface {
	// Insert adds n unless a row with the same type and subject exists.
	// It reports whether a row was inserted.
	Insert(ctx context.Context, n *model.ScheduledNotification) (bool, error)
	// ClaimDue leases up to limit rows created at or before dueBefore that are
	// not leased at now, marking them leased until leaseUntil.
	ClaimDue(ctx context.Context, dueBefore, now, leaseUntil time.Time, limit int) ([]model.ScheduledNotification, error)
	Delete(ctx context.Context, id string) error
	// Release drops the lease so the next sweep retries the row.
	Release(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
