// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cortex/internal/backend"
	"github.com/jeranaias/cortex/internal/model"
)

// stubBackend is an in-memory Backend whose stream yields scripted chunks.
// Chunks go through a real StreamDecoder so marker semantics match the wire.
type stubBackend struct {
	mu            sync.Mutex
	chats         []*model.Chat
	messages      map[string][]*model.Message
	streamChunks  []string
	streamDelay   time.Duration
	createErr     error
	streamStarted chan string // receives chat id when a stream begins, if set
	streamGate    chan struct{}
	// When set, the stream pauses after every emitted token: it signals
	// tokenEmitted and waits on tokenResume, letting tests observe store
	// state between tokens deterministically.
	tokenEmitted chan struct{}
	tokenResume  chan struct{}
	sends        []*backend.SendRequest
}

func newStubBackend(chunks ...string) *stubBackend {
	return &stubBackend{
		messages:     make(map[string][]*model.Message),
		streamChunks: chunks,
	}
}

func (s *stubBackend) ListChats(ctx context.Context) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Chat{}, s.chats...), nil
}

func (s *stubBackend) CreateChat(ctx context.Context, title, personalityID string) (*model.Chat, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	chat := model.NewChat(title, personalityID)
	s.mu.Lock()
	s.chats = append([]*model.Chat{chat}, s.chats...)
	s.mu.Unlock()
	return chat, nil
}

func (s *stubBackend) GetMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Message{}, s.messages[chatID]...), nil
}

func (s *stubBackend) UpdateChatTitle(ctx context.Context, chatID, title string) error { return nil }

func (s *stubBackend) UpdateChatPersonality(ctx context.Context, chatID, personalityID string) error {
	return nil
}

func (s *stubBackend) DeleteChat(ctx context.Context, chatID string) error { return nil }

func (s *stubBackend) ListPersonalities(ctx context.Context) ([]*model.Personality, error) {
	return []*model.Personality{{ID: model.DefaultPersonalityID, Name: "Assistant"}}, nil
}

func (s *stubBackend) StreamMessage(ctx context.Context, chatID string, req *backend.SendRequest, onToken backend.TokenFunc) (string, error) {
	s.mu.Lock()
	s.sends = append(s.sends, req)
	started := s.streamStarted
	gate := s.streamGate
	chunks := append([]string{}, s.streamChunks...)
	delay := s.streamDelay
	s.mu.Unlock()

	if started != nil {
		started <- chatID
	}
	if gate != nil {
		<-gate
	}

	decoder := backend.NewStreamDecoder()
	for _, chunk := range chunks {
		if delay > 0 {
			time.Sleep(delay)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		res := decoder.Decode([]byte(chunk))
		if res.Failed {
			return "", &backend.StreamError{Message: res.Message}
		}
		if res.Token != "" {
			onToken(res.Token)
			if s.tokenEmitted != nil {
				s.tokenEmitted <- struct{}{}
				<-s.tokenResume
			}
		}
		if res.Done {
			return decoder.Text(), nil
		}
	}
	res := decoder.Finish()
	if res.Token != "" {
		onToken(res.Token)
	}
	return decoder.Text(), nil
}

func TestSendMessage_EndToEnd(t *testing.T) {
	// Start from empty state; send with no chat id and a stream of
	// ["Hel", "lo", "[END]"].
	stub := newStubBackend("Hel", "lo", "[END]")
	stub.tokenEmitted = make(chan struct{})
	stub.tokenResume = make(chan struct{})
	store := NewStore()
	ctrl := NewController(store, stub)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.SendMessage(context.Background(), "", "Hi there")
	}()

	// Observe the accumulation between tokens: "Hel" -> "Hello" -> cleared.
	<-stub.tokenEmitted
	mid := store.State()
	require.NotEmpty(t, mid.CurrentChatID)
	assert.Equal(t, StreamState{Streaming: true, Response: "Hel"}, mid.Stream(mid.CurrentChatID))
	// The optimistic user message is already visible mid-stream.
	require.Len(t, mid.Messages[mid.CurrentChatID], 1)
	assert.Equal(t, model.RoleUser, mid.Messages[mid.CurrentChatID][0].Role)
	stub.tokenResume <- struct{}{}

	<-stub.tokenEmitted
	mid = store.State()
	assert.Equal(t, "Hello", mid.Stream(mid.CurrentChatID).Response)
	stub.tokenResume <- struct{}{}

	require.NoError(t, <-done)

	state := store.State()

	// One chat was created with the derived title and selected.
	require.Len(t, state.Chats, 1)
	assert.Equal(t, "Hi there", state.Chats[0].Title)
	assert.Equal(t, state.Chats[0].ID, state.CurrentChatID)

	// User message appeared immediately, assistant message on completion.
	msgs := state.Messages[state.CurrentChatID]
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hi there", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)

	// Stream state settled: cleared accumulation, streaming off, no error.
	assert.Equal(t, StreamState{}, state.Stream(state.CurrentChatID))
	assert.NoError(t, state.Err)
}

func TestSendMessage_ErrorScenario(t *testing.T) {
	stub := newStubBackend("Oops[ERROR]boom")
	store := NewStore()
	ctrl := NewController(store, stub)

	err := ctrl.SendMessage(context.Background(), "", "Hi there")

	var streamErr *backend.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "boom", streamErr.Message)

	state := store.State()
	require.Error(t, state.Err)
	assert.ErrorAs(t, state.Err, &streamErr)

	// No assistant message is synthesized on failure; the optimistic user
	// message stays.
	msgs := state.Messages[state.CurrentChatID]
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)

	// Streaming flag and accumulation were reset on the failure path.
	assert.Equal(t, StreamState{}, state.Stream(state.CurrentChatID))
}

func TestSendMessage_EmptyTextIsNoOp(t *testing.T) {
	stub := newStubBackend("[END]")
	store := NewStore()
	ctrl := NewController(store, stub)

	require.NoError(t, ctrl.SendMessage(context.Background(), "", "   \n\t "))

	state := store.State()
	assert.Empty(t, state.Chats)
	assert.Empty(t, state.Messages)
	assert.NoError(t, state.Err)
	assert.Empty(t, stub.sends)
}

func TestSendMessage_CreateChatFailureAborts(t *testing.T) {
	stub := newStubBackend("[END]")
	stub.createErr = errors.New("backend down")
	store := NewStore()
	ctrl := NewController(store, stub)

	err := ctrl.SendMessage(context.Background(), "", "hello")
	require.Error(t, err)

	state := store.State()
	require.Error(t, state.Err)
	assert.Empty(t, state.Messages, "no message may be appended without a chat")
	assert.Empty(t, stub.sends, "the stream must not start when creation fails")
	assert.False(t, state.Loading)
}

func TestSendMessage_RejectsConcurrentSendToSameChat(t *testing.T) {
	stub := newStubBackend("slow", "[END]")
	stub.streamStarted = make(chan string, 1)
	stub.streamGate = make(chan struct{})
	store := NewStore()
	ctrl := NewController(store, stub)

	chat, err := ctrl.CreateChat(context.Background(), "Busy", "")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		first <- ctrl.SendMessage(context.Background(), chat.ID, "one")
	}()
	<-stub.streamStarted

	// Second send while the first is mid-stream is rejected outright.
	err = ctrl.SendMessage(context.Background(), chat.ID, "two")
	assert.ErrorIs(t, err, ErrStreamInFlight)

	close(stub.streamGate)
	require.NoError(t, <-first)

	// Only the first send reached the backend.
	assert.Len(t, stub.sends, 1)
	assert.False(t, store.State().Stream(chat.ID).Streaming)
}

func TestSendMessage_PerChatIsolation(t *testing.T) {
	// Two chats streaming concurrently: neither accumulation may ever
	// contain a fragment of the other's tokens.
	store := NewStore()

	stubA := newStubBackend("alpha-", "alpha", "[END]")
	stubA.streamDelay = time.Millisecond
	stubB := newStubBackend("beta-", "beta", "[END]")
	stubB.streamDelay = time.Millisecond

	ctrlA := NewController(store, stubA)
	ctrlB := NewController(store, stubB)

	chatA, err := ctrlA.CreateChat(context.Background(), "A", "")
	require.NoError(t, err)
	chatB, err := ctrlB.CreateChat(context.Background(), "B", "")
	require.NoError(t, err)

	violations := make(chan string, 16)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-store.Changed():
				state := store.State()
				a := state.Stream(chatA.ID).Response
				b := state.Stream(chatB.ID).Response
				if a != "" && !isPrefixOf(a, "alpha-alpha") {
					violations <- fmt.Sprintf("chat A leaked: %q", a)
				}
				if b != "" && !isPrefixOf(b, "beta-beta") {
					violations <- fmt.Sprintf("chat B leaked: %q", b)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); assert.NoError(t, ctrlA.SendMessage(context.Background(), chatA.ID, "go")) }()
	go func() { defer wg.Done(); assert.NoError(t, ctrlB.SendMessage(context.Background(), chatB.ID, "go")) }()
	wg.Wait()
	close(stop)

	select {
	case v := <-violations:
		t.Fatal(v)
	default:
	}

	state := store.State()
	assert.Equal(t, "alpha-alpha", state.Messages[chatA.ID][1].Content)
	assert.Equal(t, "beta-beta", state.Messages[chatB.ID][1].Content)
}

func isPrefixOf(s, full string) bool {
	return len(s) <= len(full) && full[:len(s)] == s
}

func TestSendMessage_CancelStream(t *testing.T) {
	stub := newStubBackend("tok", "tok", "tok", "[END]")
	stub.streamDelay = 20 * time.Millisecond
	stub.streamStarted = make(chan string, 1)
	store := NewStore()
	ctrl := NewController(store, stub)

	chat, err := ctrl.CreateChat(context.Background(), "C", "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.SendMessage(context.Background(), chat.ID, "hello")
	}()
	<-stub.streamStarted
	ctrl.CancelStream(chat.ID)

	err = <-done
	assert.ErrorIs(t, err, context.Canceled)

	state := store.State()
	// Cancellation is not reported as a failure, and nothing is left stuck.
	assert.NoError(t, state.Err)
	assert.Equal(t, StreamState{}, state.Stream(chat.ID))
	require.Len(t, state.Messages[chat.ID], 1, "no assistant message after cancel")
}

func TestDeleteChat_ClearsStoreState(t *testing.T) {
	stub := newStubBackend("[END]")
	store := NewStore()
	ctrl := NewController(store, stub)

	chat, err := ctrl.CreateChat(context.Background(), "Doomed", "")
	require.NoError(t, err)
	require.NoError(t, ctrl.SendMessage(context.Background(), chat.ID, "hi"))

	require.NoError(t, ctrl.DeleteChat(context.Background(), chat.ID))

	state := store.State()
	assert.NotContains(t, state.Messages, chat.ID)
	assert.NotContains(t, state.Streams, chat.ID)
	for _, c := range state.Chats {
		assert.NotEqual(t, chat.ID, c.ID)
	}
}

func TestSelectChat_ReplacesHistory(t *testing.T) {
	stub := newStubBackend("[END]")
	store := NewStore()
	ctrl := NewController(store, stub)

	chat, err := ctrl.CreateChat(context.Background(), "History", "")
	require.NoError(t, err)

	stub.mu.Lock()
	stub.messages[chat.ID] = []*model.Message{
		model.NewUserMessage(chat.ID, "from backend", "user"),
		model.NewAssistantMessage(chat.ID, "authoritative reply"),
	}
	stub.mu.Unlock()

	// Local state has something stale that select must replace, not merge.
	store.Apply(AppendMessage{Message: model.NewUserMessage(chat.ID, "stale local", "user")})

	require.NoError(t, ctrl.SelectChat(context.Background(), chat.ID))

	state := store.State()
	assert.Equal(t, chat.ID, state.CurrentChatID)
	msgs := state.Messages[chat.ID]
	require.Len(t, msgs, 2)
	assert.Equal(t, "from backend", msgs[0].Content)
	assert.False(t, state.Loading)
}

func TestSendMessage_UsesChatPersonality(t *testing.T) {
	stub := newStubBackend("ok[END]")
	store := NewStore()
	ctrl := NewController(store, stub)
	ctrl.SelectPersonality("researcher")

	chat, err := ctrl.CreateChat(context.Background(), "P", "")
	require.NoError(t, err)
	assert.Equal(t, "researcher", chat.PersonalityID)

	require.NoError(t, ctrl.SendMessage(context.Background(), chat.ID, "check @notes.md"))

	require.Len(t, stub.sends, 1)
	assert.Equal(t, "researcher", stub.sends[0].PersonalityID)
	assert.Equal(t, []string{"notes.md"}, stub.sends[0].Files)
}
