package events

import (
	"context"
	"sync"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
)

// MemoryProgressBus is an in-process ProgressBus for single-instance
// deployments and the CLI.
type MemoryProgressBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.GenerationProgress]struct{}
	closed      bool
}

var _ providers.ProgressBus = (*MemoryProgressBus)(nil)

// NewMemoryProgressBus creates an empty in-process bus
func NewMemoryProgressBus() *MemoryProgressBus {
	return &MemoryProgressBus{
		subscribers: make(map[string]map[chan *entities.GenerationProgress]struct{}),
	}
}

// Publish delivers a copy of the snapshot to current subscribers, dropping it
// for subscribers whose buffer is full.
func (b *MemoryProgressBus) Publish(_ context.Context, progress *entities.GenerationProgress) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[progress.RunID] {
		select {
		case subscriber <- progress.Clone():
		default:
		}
	}
	return nil
}

// Subscribe streams snapshots for a run until ctx is done
func (b *MemoryProgressBus) Subscribe(ctx context.Context, runID string) (<-chan *entities.GenerationProgress, error) {
	ch := make(chan *entities.GenerationProgress, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if b.subscribers[runID] == nil {
		b.subscribers[runID] = make(map[chan *entities.GenerationProgress]struct{})
	}
	b.subscribers[runID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[runID][ch]; ok {
			delete(b.subscribers[runID], ch)
			if len(b.subscribers[runID]) == 0 {
				delete(b.subscribers, runID)
			}
			close(ch)
		}
	}()

	return ch, nil
}

// Close ends every subscription
func (b *MemoryProgressBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for runID, subscribers := range b.subscribers {
		for ch := range subscribers {
			close(ch)
		}
		delete(b.subscribers, runID)
	}
	b.closed = true
	return nil
}
