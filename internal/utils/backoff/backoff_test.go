package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		limit   time.Duration
		want    time.Duration
	}{
		{"first attempt", 10 * time.Millisecond, 0, 0, 10 * time.Millisecond},
		{"third attempt", 10 * time.Millisecond, 2, 0, 40 * time.Millisecond},
		{"capped", 10 * time.Millisecond, 10, time.Second, time.Second},
		{"negative attempt", 10 * time.Millisecond, -3, 0, 10 * time.Millisecond},
		{"zero base", 0, 5, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Exponential(tt.base, tt.attempt, tt.limit))
		})
	}
}

func TestFullJitterStaysInRange(t *testing.T) {
	assert.Equal(t, time.Duration(0), FullJitter(0))
	for i := 0; i < 100; i++ {
		d := ExponentialWithJitter(time.Millisecond, 3, 0)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 8*time.Millisecond)
	}
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, SleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepWithContext(ctx, time.Hour), context.Canceled)
}
