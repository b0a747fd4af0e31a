package convo

import (
	"context"
	"sync"
)

// FakeClient replays a canned reply and records every Chat call.
type FakeClient struct {
	Reply string
	Err   error

	// Block, when non-nil, is closed by the test to release Chat.
	Block chan struct{}

	mu    sync.Mutex
	calls [][]Message
}

func (f *FakeClient) Chat(ctx context.Context, messages []Message, _ Options) (Message, error) {
	f.mu.Lock()
	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
	if f.Err != nil {
		return Message{}, f.Err
	}
	return Message{Role: RoleAssistant, Content: f.Reply}, nil
}

// Calls returns copies of the message slices passed to Chat so far.
func (f *FakeClient) Calls() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]Message, len(f.calls))
	copy(out, f.calls)
	return out
}
