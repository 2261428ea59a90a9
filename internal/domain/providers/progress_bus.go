package providers

import (
	"context"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// ProgressBus fans collection progress snapshots out to stream consumers
type ProgressBus interface {
	// Publish sends a snapshot to every subscriber of its run
	Publish(ctx context.Context, progress *entities.GenerationProgress) error

	// Subscribe streams snapshots for a run until ctx is done
	Subscribe(ctx context.Context, runID string) (<-chan *entities.GenerationProgress, error)

	// Close closes the bus and all subscriptions
	Close() error
}

// ProgressChannelPrefix prefixes the pub/sub channel of each run
const ProgressChannelPrefix = "research:progress:"

// ProgressChannel returns the channel name for a run
func ProgressChannel(runID string) string {
	return ProgressChannelPrefix + runID
}
