package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	redisclient "github.com/zatekoja/keywordscout/internal/infrastructure/clients/redis"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

const subscriberBuffer = 32

// RedisProgressBus implements the ProgressBus interface using Redis Pub/Sub
type RedisProgressBus struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.GenerationProgress]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

var _ providers.ProgressBus = (*RedisProgressBus)(nil)

// NewRedisProgressBus creates a new Redis-based progress bus
func NewRedisProgressBus(client *redisclient.Client) *RedisProgressBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisProgressBus{
		client:        client.Client(),
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.GenerationProgress]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish sends a snapshot to every subscriber of its run
func (b *RedisProgressBus) Publish(ctx context.Context, progress *entities.GenerationProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	channel := providers.ProgressChannel(progress.RunID)
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("stage", string(progress.Stage)).
		Msg("Published progress")
	return nil
}

// Subscribe streams snapshots for a run until ctx is done. The returned
// channel is closed when the subscription ends.
func (b *RedisProgressBus) Subscribe(ctx context.Context, runID string) (<-chan *entities.GenerationProgress, error) {
	channel := providers.ProgressChannel(runID)

	b.mu.Lock()
	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.GenerationProgress]struct{})
	}

	progressChan := make(chan *entities.GenerationProgress, subscriberBuffer)
	b.subscribers[channel][progressChan] = struct{}{}
	subscriberCount := len(b.subscribers[channel])
	b.mu.Unlock()

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Int("subscribers", subscriberCount).
		Msg("Subscribed to progress")

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, progressChan)
	}()

	return progressChan, nil
}

func (b *RedisProgressBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger()
	defer func() {
		if err := b.cleanupChannel(channel); err != nil {
			logger.Error().Err(err).Str("channel", channel).Msg("Failed to cleanup channel")
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var progress entities.GenerationProgress
			if err := json.Unmarshal([]byte(msg.Payload), &progress); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal progress")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers[channel] {
				select {
				case subscriber <- progress.Clone():
				default:
					logger.Warn().Str("channel", channel).Msg("Subscriber channel full, dropping progress snapshot")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisProgressBus) removeSubscriber(channel string, progressChan chan *entities.GenerationProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return
	}
	if _, ok := subscribers[progressChan]; !ok {
		return
	}

	delete(subscribers, progressChan)
	close(progressChan)

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
		}
	}
}

func (b *RedisProgressBus) cleanupChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, exists := b.subscribers[channel]; exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}

	if pubsub, ok := b.subscriptions[channel]; ok {
		delete(b.subscriptions, channel)
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
	}
	return nil
}

// Close closes the bus and all subscriptions
func (b *RedisProgressBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
