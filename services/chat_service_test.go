package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/ai"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/realtime"
	"mindwellAPI/internal/validation"
)

type fakeAssistant struct {
	reply   string
	err     error
	calls   int
	history []ai.Message
}

func (a *fakeAssistant) Complete(ctx context.Context, history []ai.Message) (*ai.Reply, error) {
	a.calls++
	a.history = history
	if a.err != nil {
		return nil, a.err
	}
	return &ai.Reply{Content: a.reply, Model: "test-model"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Envelope
}

func (p *recordingPublisher) Publish(ctx context.Context, env realtime.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) decoded(t *testing.T) []ChatEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChatEvent, 0, len(p.events))
	for _, env := range p.events {
		var ev ChatEvent
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		out = append(out, ev)
	}
	return out
}

func newChatService(f *fixture, assistant ai.Completer, pub realtime.Publisher) *ChatService {
	return NewChatService(ChatServiceConfig{Store: f.store, Queue: f.queue, Assistant: assistant, Publisher: pub, Clock: f.clock})
}

func TestSendMessageAutoTitlesAndEnqueues(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	s := newChatService(f, &fakeAssistant{reply: "hi"}, pub)
	ctx := context.Background()
	u := f.newUser(t, "alice")

	sess, err := s.CreateSession(ctx, u.ID, &chat.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultTitle, sess.Title)

	long := strings.Repeat("a", 60)
	msg, err := s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: "  " + long + "  "})
	require.NoError(t, err)
	assert.Equal(t, long, msg.Content)
	assert.Equal(t, chat.SenderUser, msg.Sender)

	detail, err := s.GetSession(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50)+"...", detail.Title)

	tasks := f.drain(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, queue.TypeGenerateAIResponse, tasks[0].Type)
	var p queue.GenerateAIResponsePayload
	require.NoError(t, tasks[0].Decode(&p))
	assert.Equal(t, msg.ID, p.MessageID)

	events := pub.decoded(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessage, events[0].Type)

	// A titled session keeps its title.
	_, err = s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: "second"})
	require.NoError(t, err)
	detail, err = s.GetSession(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50)+"...", detail.Title)
}

func TestSendMessageValidatesContent(t *testing.T) {
	f := newFixture(t)
	s := newChatService(f, nil, nil)
	ctx := context.Background()
	u := f.newUser(t, "alice")
	sess, err := s.CreateSession(ctx, u.ID, &chat.CreateSessionRequest{Title: "Mine"})
	require.NoError(t, err)

	for _, content := range []string{"   ", strings.Repeat("ж", 4001)} {
		_, err := s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: content})
		verr, ok := validation.As(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "content")
	}

	_, err = s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: strings.Repeat("ж", 4000)})
	assert.NoError(t, err)

	other := f.newUser(t, "bob")
	_, err = s.SendMessage(ctx, other.ID, sess.ID, &chat.SendMessageRequest{Content: "hello"})
	assert.Error(t, err)
}

func TestGenerateResponseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	assistant := &fakeAssistant{reply: "Take a slow breath."}
	pub := &recordingPublisher{}
	s := newChatService(f, assistant, pub)
	ctx := context.Background()
	u := f.newUser(t, "alice")
	sess, err := s.CreateSession(ctx, u.ID, &chat.CreateSessionRequest{})
	require.NoError(t, err)

	first, err := s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: "I feel anxious"})
	require.NoError(t, err)
	require.NoError(t, s.GenerateResponse(ctx, sess.ID, first.ID))
	require.NoError(t, s.GenerateResponse(ctx, sess.ID, first.ID))
	assert.Equal(t, 1, assistant.calls)

	f.now = f.now.Add(time.Minute)
	second, err := s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: "What else?"})
	require.NoError(t, err)
	require.NoError(t, s.GenerateResponse(ctx, sess.ID, second.ID))
	assert.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "I feel anxious"},
		{Role: ai.RoleAssistant, Content: "Take a slow breath."},
		{Role: ai.RoleUser, Content: "What else?"},
	}, assistant.history)

	msgs, err := s.Messages(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	reply := msgs[1]
	assert.Equal(t, chat.SenderAssistant, reply.Sender)
	assert.Equal(t, first.ID, reply.Meta().ReplyTo)
	assert.Equal(t, "test-model", reply.Meta().Model)
	assert.False(t, reply.IsRead)

	summaries, err := s.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	n, err := s.MarkRead(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	events := pub.decoded(t)
	assert.Equal(t, EventRead, events[len(events)-1].Type)
}

func TestGenerateResponseFallsBack(t *testing.T) {
	f := newFixture(t)
	s := newChatService(f, &fakeAssistant{err: errors.New("provider down")}, nil)
	ctx := context.Background()
	u := f.newUser(t, "alice")
	sess, err := s.CreateSession(ctx, u.ID, &chat.CreateSessionRequest{})
	require.NoError(t, err)
	msg, err := s.SendMessage(ctx, u.ID, sess.ID, &chat.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, s.GenerateResponse(ctx, sess.ID, msg.ID))

	msgs, err := s.Messages(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.FallbackReply, msgs[1].Content)
	assert.True(t, msgs[1].Meta().Error)
}

func TestTypingPublishesToRoom(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	s := newChatService(f, nil, pub)

	s.Typing(context.Background(), "u1", "s1", true)
	require.Len(t, pub.events, 1)
	assert.Equal(t, realtime.ChatRoom("s1"), pub.events[0].Room)
	ev := pub.decoded(t)[0]
	assert.Equal(t, EventTyping, ev.Type)
	require.NotNil(t, ev.IsTyping)
	assert.True(t, *ev.IsTyping)
}
