package model

import (
	"fmt"
	"time"
)

// ScheduledType is the closed set of debounced notification kinds.
type ScheduledType string

const (
	// ScheduledKudos: subject is the receiver's user id.
	ScheduledKudos ScheduledType = "kudos"
	// ScheduledChat: subject is the chat room id.
	ScheduledChat ScheduledType = "chat"
	// ScheduledTask: subject is the assignee's user id.
	ScheduledTask ScheduledType = "task"
)

// ScheduledTypes returns every ScheduledType. Handler tables are checked
// against this list.
func ScheduledTypes() []ScheduledType {
	return []ScheduledType{ScheduledKudos, ScheduledChat, ScheduledTask}
}

// ParseScheduledType converts s into a ScheduledType.
func ParseScheduledType(s string) (ScheduledType, error) {
	for _, t := range ScheduledTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown scheduled notification type %q", s)
}

// ScheduledNotification is a pending debounced notification. At most one
// row exists per (Type, SubjectID).
type ScheduledNotification struct {
	ID           string     `db:"id" json:"id"`
	Type         string     `db:"type" json:"type"`
	SubjectID    string     `db:"subject_id" json:"subject_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ClaimedUntil *time.Time `db:"claimed_until" json:"claimed_until,omitempty"`
}

// WindowStart is the earliest change time a sweep includes for this row.
// It sits one second before CreatedAt to tolerate skew between the
// triggering commit and the row's timestamp.
func (n ScheduledNotification) WindowStart() time.Time {
	return n.CreatedAt.Add(-time.Second)
}
