// Package memstore is an in-memory implementation of the storage
// interfaces. Service and handler tests run against it.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/store"
)

type userRow struct {
	user    model.User
	roles   []model.Role
	coachID *string
}

// Store holds every table in memory.
type Store struct {
	mu sync.RWMutex

	users       []userRow
	kudos       []model.Kudos
	rooms       map[string]model.ChatRoom
	messages    []model.ChatMessage
	mentorships []model.Mentorship
	tasks       []model.Task
	scheduled   map[string]model.ScheduledNotification
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rooms:     make(map[string]model.ChatRoom),
		scheduled: make(map[string]model.ScheduledNotification),
	}
}

// AddUser stores u with the given roles.
func (s *Store) AddUser(u model.User, roles ...model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userRow{user: u, roles: roles})
}

// SetCoach records coachID as the coach of mentorID.
func (s *Store) SetCoach(mentorID, coachID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].user.ID == mentorID {
			s.users[i].coachID = &coachID
		}
	}
}

func (s *Store) AddKudos(k model.Kudos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.GiverName == "" {
		k.GiverName = s.nameOf(k.GiverID)
	}
	s.kudos = append(s.kudos, k)
}

func (s *Store) AddChatRoom(r model.ChatRoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.MenteeID != nil && r.MenteeName == "" {
		r.MenteeName = s.nameOf(*r.MenteeID)
	}
	s.rooms[r.ID] = r
}

func (s *Store) AddChatMessage(m model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.AuthorName == "" {
		m.AuthorName = s.nameOf(m.UserID)
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	s.messages = append(s.messages, m)
}

func (s *Store) AddMentorship(m model.Mentorship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentorships = append(s.mentorships, m)
}

func (s *Store) AddTask(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	s.tasks = append(s.tasks, t)
}

// SetTaskDone marks a task done.
func (s *Store) SetTaskDone(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Done = true
		}
	}
}

// Scheduled returns a snapshot of the queue ordered by creation time.
func (s *Store) Scheduled() []model.ScheduledNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ScheduledNotification, 0, len(s.scheduled))
	for _, n := range s.scheduled {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) nameOf(id string) string {
	for _, r := range s.users {
		if r.user.ID == id {
			return r.user.Name
		}
	}
	return ""
}

func (s *Store) coachOf(id string) *string {
	for _, r := range s.users {
		if r.user.ID == id {
			return r.coachID
		}
	}
	return nil
}

// ReadOnly runs fn directly. The store's mutex already serializes access.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) FindUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.User
	for _, r := range s.users {
		if slices.Contains(ids, r.user.ID) {
			out = append(out, r.user)
		}
	}
	return out, nil
}

func (s *Store) FindUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.User
	for _, r := range s.users {
		if slices.Contains(r.roles, role) {
			out = append(out, r.user)
		}
	}
	return out, nil
}

func (s *Store) ListKudosSince(ctx context.Context, receiverID string, since time.Time) ([]model.Kudos, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Kudos
	for _, k := range s.kudos {
		if k.ReceiverID == receiverID && !k.CreatedAt.Before(since) {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetChatRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, appErr.NewNotFound("chat room %s", roomID)
	}
	return &r, nil
}

func (s *Store) ListChatMessagesSince(ctx context.Context, roomID string, since time.Time) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID && !m.UpdatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) ListActiveMentorships(ctx context.Context, menteeID string, now time.Time) ([]model.Mentorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Mentorship
	for _, m := range s.mentorships {
		if m.MenteeID != menteeID || m.Transactional || !m.Active(now) {
			continue
		}
		m.CoachID = s.coachOf(m.MentorID)
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) ListPendingTasksSince(ctx context.Context, assigneeID string, since time.Time) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.AssigneeID != assigneeID || t.Done || t.UpdatedAt.Before(since) {
			continue
		}
		if t.CreatorID != nil && *t.CreatorID == assigneeID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) Insert(ctx context.Context, n *model.ScheduledNotification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.scheduled {
		if existing.Type == n.Type && existing.SubjectID == n.SubjectID {
			return false, nil
		}
	}
	s.scheduled[n.ID] = *n
	return true, nil
}

func (s *Store) ClaimDue(ctx context.Context, dueBefore, now, leaseUntil time.Time, limit int) ([]model.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.ScheduledNotification
	for _, n := range s.scheduled {
		if n.CreatedAt.After(dueBefore) {
			continue
		}
		if n.ClaimedUntil != nil && !n.ClaimedUntil.Before(now) {
			continue
		}
		due = append(due, n)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		lease := leaseUntil
		due[i].ClaimedUntil = &lease
		s.scheduled[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scheduled[id]; !ok {
		return appErr.NewNotFound("scheduled notification %s", id)
	}
	delete(s.scheduled, id)
	return nil
}

func (s *Store) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.scheduled[id]
	if !ok {
		return appErr.NewNotFound("scheduled notification %s", id)
	}
	n.ClaimedUntil = nil
	s.scheduled[id] = n
	return nil
}

var (
	_ store.UserStorage      = (*Store)(nil)
	_ store.ContentStorage   = (*Store)(nil)
	_ store.ScheduledStorage = (*Store)(nil)
	_ store.TxRunner         = (*Store)(nil)
)
