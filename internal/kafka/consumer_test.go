package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/service"
	"github.com/yuanjian-org/app-sub000/pkg/tracing"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(values ...string) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for i, v := range values {
		ch <- &sarama.ConsumerMessage{Topic: "notification-triggers", Offset: int64(i), Value: []byte(v)}
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

func TestConsumer_ConsumeClaim(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		setup      func(m *service.MockScheduledService)
		wantMarked []int64
		wantErr    bool
	}{
		{
			name:   "valid events are scheduled and committed",
			values: []string{`{"type":"chat","subject_id":"room-1"}`, `{"type":"task","subject_id":"u1"}`},
			setup: func(m *service.MockScheduledService) {
				m.On("Schedule", mock.Anything, model.ScheduledChat, "room-1").Return(nil).Once()
				m.On("Schedule", mock.Anything, model.ScheduledTask, "u1").Return(nil).Once()
			},
			wantMarked: []int64{0, 1},
		},
		{
			name:       "malformed events are skipped",
			values:     []string{`not json`, `{"type":"newsletter","subject_id":"x"}`, `{"type":"kudos"}`},
			setup:      func(m *service.MockScheduledService) {},
			wantMarked: []int64{0, 1, 2},
		},
		{
			name:   "rejected events are skipped",
			values: []string{`{"type":"kudos","subject_id":"u1"}`},
			setup: func(m *service.MockScheduledService) {
				m.On("Schedule", mock.Anything, model.ScheduledKudos, "u1").
					Return(appErr.NewInvalidInput("nope")).Once()
			},
			wantMarked: []int64{0},
		},
		{
			name:   "scheduling failure stops without committing",
			values: []string{`{"type":"kudos","subject_id":"u1"}`, `{"type":"kudos","subject_id":"u2"}`},
			setup: func(m *service.MockScheduledService) {
				m.On("Schedule", mock.Anything, model.ScheduledKudos, "u1").
					Return(errors.New("queue db down")).Once()
			},
			wantMarked: nil,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := service.NewMockScheduledService(t)
			tt.setup(scheduler)

			c := NewKafkaConsumer("notification-triggers", nil, scheduler,
				tracing.NewTracer(tracing.GetTracer("test")), slog.Default())
			session := &fakeSession{ctx: context.Background()}

			err := c.ConsumeClaim(session, newClaim(tt.values...))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantMarked, session.marked)
		})
	}
}

func TestConsumer_ConsumeClaim_StopsOnCancelledSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewKafkaConsumer("notification-triggers", nil, service.NewMockScheduledService(t),
		tracing.NewTracer(tracing.GetTracer("test")), slog.Default())
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	assert.NoError(t, c.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}
