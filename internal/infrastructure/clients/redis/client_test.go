package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/keywordscout/pkg/retry"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	calls := 0
	err := retry.Do(context.Background(), retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}, func() error {
		calls++
		return classify(errors.New("WRONGPASS invalid username-password pair"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "credential errors are not retried")

	calls = 0
	_ = retry.Do(context.Background(), retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}, func() error {
		calls++
		return classify(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
	})
	assert.Equal(t, 3, calls)
}
