package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
)

type txKey struct{}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppStorage reads the application database. It implements UserStorage,
// ContentStorage and TxRunner.
type AppStorage struct {
	db *pgxpool.Pool
}

func NewAppStorage(pool *pgxpool.Pool) *AppStorage {
	return &AppStorage{db: pool}
}

func (s *AppStorage) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.db
}

// ReadOnly runs fn in a read-only repeatable-read transaction so that every
// read made by fn sees the same snapshot. Nested calls reuse the outer
// transaction.
func (s *AppStorage) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, s.db, opts, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *AppStorage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const selectUser = `
	SELECT id::text, COALESCE(name, ''), phone, email, preference
	FROM users
`

func scanUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.Preference); err != nil {
			return nil, fmt.Errorf("scan user failed: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return users, nil
}

// validUUIDs keeps the ids Postgres can cast to uuid. Anything else cannot
// match a row.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}

// isUUID accepts only the canonical hyphenated form.
func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// FindUsersByIDs silently skips ids that are unknown or not uuids.
func (s *AppStorage) FindUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.q(ctx).Query(ctx, selectUser+`WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("find users by ids failed: %w", err)
	}
	return scanUsers(rows)
}

func (s *AppStorage) FindUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := s.q(ctx).Query(ctx, selectUser+`WHERE $1 = ANY(roles) ORDER BY created_at`, string(role))
	if err != nil {
		return nil, fmt.Errorf("find users by role failed: %w", err)
	}
	return scanUsers(rows)
}

func (s *AppStorage) ListKudosSince(ctx context.Context, receiverID string, since time.Time) ([]model.Kudos, error) {
	if !isUUID(receiverID) {
		return nil, nil
	}
	const query = `
		SELECT k.id::text, k.giver_id::text, COALESCE(g.name, ''), k.receiver_id::text, k.text, k.created_at
		FROM kudos k
		JOIN users g ON g.id = k.giver_id
		WHERE k.receiver_id = $1::uuid AND k.created_at >= $2
		ORDER BY k.created_at
	`
	rows, err := s.q(ctx).Query(ctx, query, receiverID, since)
	if err != nil {
		return nil, fmt.Errorf("list kudos failed: %w", err)
	}
	defer rows.Close()

	var out []model.Kudos
	for rows.Next() {
		var k model.Kudos
		if err := rows.Scan(&k.ID, &k.GiverID, &k.GiverName, &k.ReceiverID, &k.Text, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan kudos failed: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *AppStorage) GetChatRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	if !isUUID(roomID) {
		return nil, appErr.NewNotFound("chat room %s", roomID)
	}
	const query = `
		SELECT r.id::text, r.mentee_id::text, COALESCE(m.name, '')
		FROM chat_rooms r
		LEFT JOIN users m ON m.id = r.mentee_id
		WHERE r.id = $1::uuid
	`
	var room model.ChatRoom
	err := s.q(ctx).QueryRow(ctx, query, roomID).Scan(&room.ID, &room.MenteeID, &room.MenteeName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErr.NewNotFound("chat room %s", roomID)
		}
		return nil, fmt.Errorf("get chat room failed: %w", err)
	}
	return &room, nil
}

func (s *AppStorage) ListChatMessagesSince(ctx context.Context, roomID string, since time.Time) ([]model.ChatMessage, error) {
	if !isUUID(roomID) {
		return nil, nil
	}
	const query = `
		SELECT m.id::text, m.room_id::text, m.user_id::text, COALESCE(u.name, ''), m.markdown, m.created_at, m.updated_at
		FROM chat_messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1::uuid AND m.updated_at >= $2
		ORDER BY m.updated_at
	`
	rows, err := s.q(ctx).Query(ctx, query, roomID, since)
	if err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.AuthorName, &m.Markdown, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message failed: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *AppStorage) ListActiveMentorships(ctx context.Context, menteeID string, now time.Time) ([]model.Mentorship, error) {
	if !isUUID(menteeID) {
		return nil, nil
	}
	const query = `
		SELECT ms.id::text, ms.mentor_id::text, ms.mentee_id::text, mentor.coach_id::text, ms.transactional, ms.end_at
		FROM mentorships ms
		JOIN users mentor ON mentor.id = ms.mentor_id
		WHERE ms.mentee_id = $1::uuid
		  AND NOT ms.transactional
		  AND (ms.end_at IS NULL OR ms.end_at > $2)
		ORDER BY ms.created_at
	`
	rows, err := s.q(ctx).Query(ctx, query, menteeID, now)
	if err != nil {
		return nil, fmt.Errorf("list mentorships failed: %w", err)
	}
	defer rows.Close()

	var out []model.Mentorship
	for rows.Next() {
		var m model.Mentorship
		if err := rows.Scan(&m.ID, &m.MentorID, &m.MenteeID, &m.CoachID, &m.Transactional, &m.EndsAt); err != nil {
			return nil, fmt.Errorf("scan mentorship failed: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *AppStorage) ListPendingTasksSince(ctx context.Context, assigneeID string, since time.Time) ([]model.Task, error) {
	if !isUUID(assigneeID) {
		return nil, nil
	}
	const query = `
		SELECT id::text, assignee_id::text, creator_id::text, markdown, done, created_at, updated_at
		FROM tasks
		WHERE assignee_id = $1::uuid
		  AND NOT done
		  AND (creator_id IS NULL OR creator_id <> assignee_id)
		  AND updated_at >= $2
		ORDER BY updated_at
	`
	rows, err := s.q(ctx).Query(ctx, query, assigneeID, since)
	if err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.AssigneeID, &t.CreatorID, &t.Markdown, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task failed: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var (
	_ UserStorage    = (*AppStorage)(nil)
	_ ContentStorage = (*AppStorage)(nil)
	_ TxRunner       = (*AppStorage)(nil)
)
