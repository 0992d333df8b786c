// Package bus carries realtime envelopes between processes. Workers publish,
// and every API instance forwards what it receives to its local hub.
package bus

import (
	"context"
	"fmt"
	"sync"

	"mindwellAPI/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, env realtime.Envelope) error
	StartForwarder(ctx context.Context, onMsg func(env realtime.Envelope)) error
	Close() error
}

// localBus hands envelopes straight to the forwarder in the same process.
type localBus struct {
	mu    sync.RWMutex
	onMsg func(env realtime.Envelope)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, env realtime.Envelope) error {
	b.mu.RLock()
	onMsg := b.onMsg
	b.mu.RUnlock()
	if onMsg != nil {
		onMsg(env)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(env realtime.Envelope)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
