package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
)

// chatPreviewLimit is the number of characters of a message quoted in a
// chat digest.
const chatPreviewLimit = 200

func (s *scheduledService) sendKudosDigest(ctx context.Context, receiverID string, since time.Time) error {
	var kudos []model.Kudos
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, receiverID, "kudos receiver"); err != nil {
			return err
		}
		var err error
		kudos, err = s.content.ListKudosSince(ctx, receiverID, since)
		return err
	})
	if err != nil {
		return err
	}

	content := renderKudos(kudos)
	if content == "" {
		s.l.DebugContext(ctx, "No kudos since window start, skipping", slog.String("receiver_id", receiverID))
		return nil
	}

	return s.notifier.Notify(ctx, model.TypeLike, []string{receiverID}, s.cfg.Templates, model.Vars{
		model.VarSubject: "You received new kudos",
		model.VarContent: content,
		model.VarLink:    s.cfg.SiteURL + "/kudos",
	})
}

func (s *scheduledService) sendChatDigest(ctx context.Context, roomID string, since time.Time) error {
	var (
		room       *model.ChatRoom
		messages   []model.ChatMessage
		recipients []string
	)
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if room, err = s.content.GetChatRoom(ctx, roomID); err != nil {
			return err
		}
		if messages, err = s.content.ListChatMessagesSince(ctx, roomID, since); err != nil {
			return err
		}
		recipients, err = s.chatRecipients(ctx, room)
		return err
	})
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		s.l.DebugContext(ctx, "No chat messages since window start, skipping", slog.String("room_id", roomID))
		return nil
	}

	subject := "New messages in a mentee chat"
	if room.MenteeName != "" {
		subject = fmt.Sprintf("New messages in %s's chat", room.MenteeName)
	}
	link := s.cfg.SiteURL + "/chats/" + roomID
	if room.MenteeID != nil {
		link = s.cfg.SiteURL + "/mentees/" + *room.MenteeID
	}

	var errs []error
	for _, recipient := range recipients {
		content := renderChat(messages, recipient, since)
		if content == "" {
			continue
		}
		err := s.notifier.Notify(ctx, model.TypeChat, []string{recipient}, s.cfg.Templates, model.Vars{
			model.VarSubject: subject,
			model.VarContent: content,
			model.VarLink:    link,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipient, err))
		}
	}
	return errors.Join(errs...)
}

// chatRecipients returns the mentorship managers followed by the mentors of
// the room's mentee and, if enabled, the mentors' coaches. Ids are unique.
func (s *scheduledService) chatRecipients(ctx context.Context, room *model.ChatRoom) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	managers, err := s.users.FindUsersByRole(ctx, model.RoleMentorshipManager)
	if err != nil {
		return nil, fmt.Errorf("failed to find mentorship managers: %w", err)
	}
	for _, u := range managers {
		add(u.ID)
	}

	if room.MenteeID == nil {
		return ids, nil
	}
	mentorships, err := s.content.ListActiveMentorships(ctx, *room.MenteeID, s.cfg.Now())
	if err != nil {
		return nil, err
	}
	for _, m := range mentorships {
		add(m.MentorID)
		if s.cfg.NotifyCoaches && m.CoachID != nil {
			add(*m.CoachID)
		}
	}
	return ids, nil
}

func (s *scheduledService) sendTaskDigest(ctx context.Context, assigneeID string, since time.Time) error {
	var tasks []model.Task
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, assigneeID, "task assignee"); err != nil {
			return err
		}
		var err error
		tasks, err = s.content.ListPendingTasksSince(ctx, assigneeID, since)
		return err
	})
	if err != nil {
		return err
	}

	// Tasks completed before the sweep ran leave nothing to say.
	if len(tasks) == 0 {
		s.l.DebugContext(ctx, "No pending tasks since window start, skipping", slog.String("assignee_id", assigneeID))
		return nil
	}

	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, "- "+t.Markdown)
	}
	return s.notifier.Notify(ctx, model.TypeTodo, []string{assigneeID}, s.cfg.Templates, model.Vars{
		model.VarSubject: "You have new tasks",
		model.VarContent: strings.Join(lines, "\n"),
		model.VarLink:    s.cfg.SiteURL + "/tasks",
	})
}

func (s *scheduledService) requireUser(ctx context.Context, id, what string) error {
	users, err := s.users.FindUsersByIDs(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return appErr.NewNotFound("%s %s", what, id)
	}
	return nil
}

// renderKudos writes one line per giver with likes and one per text kudos,
// givers in order of their first kudos.
func renderKudos(kudos []model.Kudos) string {
	type giver struct {
		name  string
		likes int
		texts []string
	}
	var order []string
	byGiver := make(map[string]*giver)
	for _, k := range kudos {
		g, ok := byGiver[k.GiverID]
		if !ok {
			g = &giver{name: k.GiverName}
			byGiver[k.GiverID] = g
			order = append(order, k.GiverID)
		}
		if k.Text == nil || *k.Text == "" {
			g.likes++
		} else {
			g.texts = append(g.texts, *k.Text)
		}
	}

	var lines []string
	for _, id := range order {
		g := byGiver[id]
		switch g.likes {
		case 0:
		case 1:
			lines = append(lines, g.name+" gave 1 like")
		default:
			lines = append(lines, fmt.Sprintf("%s gave %d likes", g.name, g.likes))
		}
		for _, text := range g.texts {
			lines = append(lines, fmt.Sprintf("%s said: \"%s\"", g.name, text))
		}
	}
	return strings.Join(lines, "\n")
}

// renderChat lists the messages not written by recipient. A message created
// inside the window is "added", an older one edited inside it "updated".
func renderChat(messages []model.ChatMessage, recipient string, since time.Time) string {
	var lines []string
	for _, m := range messages {
		if m.UserID == recipient {
			continue
		}
		verb := "added"
		if m.CreatedAt.Before(since) {
			verb = "updated"
		}
		lines = append(lines, fmt.Sprintf("%s %s a message: %s", m.AuthorName, verb, truncate(m.Markdown, chatPreviewLimit)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
