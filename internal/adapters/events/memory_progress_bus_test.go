package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

func TestMemoryProgressBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryProgressBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "run-1")
	require.NoError(t, err)

	progress := &entities.GenerationProgress{RunID: "run-1", Stage: entities.StageGeneratingKeywords, Keywords: []string{"a"}}
	require.NoError(t, bus.Publish(ctx, progress))
	require.NoError(t, bus.Publish(ctx, &entities.GenerationProgress{RunID: "run-2"}))

	select {
	case got := <-ch:
		assert.Equal(t, entities.StageGeneratingKeywords, got.Stage)
		assert.Equal(t, []string{"a"}, got.Keywords)
		got.Keywords[0] = "mutated"
		assert.Equal(t, "a", progress.Keywords[0], "subscribers receive copies")
	case <-time.After(time.Second):
		t.Fatal("expected a progress snapshot")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected snapshot for run %s", got.RunID)
	default:
	}
}

func TestMemoryProgressBus_UnsubscribeOnCancel(t *testing.T) {
	bus := NewMemoryProgressBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "run-1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
	require.NoError(t, bus.Close())
}
