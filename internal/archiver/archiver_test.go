package archiver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsInterval(t *testing.T) {
	a := New(nil, 0)
	assert.Equal(t, 5*time.Minute, a.interval)

	a = New(nil, time.Minute)
	assert.Equal(t, time.Minute, a.interval)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a := New(nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
