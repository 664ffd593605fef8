package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	permission    PermissionStatus
	permissionErr error

	// prompt, when set, makes RequestPermission block until a status is sent.
	prompt chan PermissionStatus

	readings     chan Reading
	unsubscribes chan struct{}
}

func newFakeProvider(permission PermissionStatus) *fakeProvider {
	return &fakeProvider{
		permission:   permission,
		readings:     make(chan Reading, 16),
		unsubscribes: make(chan struct{}, 4),
	}
}

func (f *fakeProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	if f.prompt != nil {
		select {
		case status := <-f.prompt:
			return status, nil
		case <-ctx.Done():
			return PermissionDenied, ctx.Err()
		}
	}
	return f.permission, f.permissionErr
}

func (f *fakeProvider) Subscribe(ctx context.Context, accuracy string) (<-chan Reading, func(), error) {
	return f.readings, func() { f.unsubscribes <- struct{}{} }, nil
}

func testConfig() Config {
	return Config{
		MinTimeInterval: 5 * time.Second,
		MinDistance:     10,
	}
}

func fixAt(lat, lon float64, ts time.Time) Reading {
	return Reading{Fix: Fix{Latitude: lat, Longitude: lon, Timestamp: ts}}
}

func waitFix(t *testing.T, ch <-chan Fix) Fix {
	t.Helper()
	select {
	case fix := <-ch:
		return fix
	case <-time.After(time.Second):
		t.Fatal("expected a fix to be emitted")
		return Fix{}
	}
}

func assertNoFix(t *testing.T, ch <-chan Fix) {
	t.Helper()
	select {
	case fix := <-ch:
		t.Fatalf("unexpected fix emitted: %+v", fix)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartEmitsFirstFix(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())
	defer tr.Stop()

	emitted := make(chan Fix, 16)
	require.NoError(t, tr.Start(context.Background(), func(f Fix) { emitted <- f }))
	assert.Equal(t, stateTracking, tr.State())

	provider.readings <- fixAt(14.5995, 120.9842, time.Now())
	fix := waitFix(t, emitted)
	assert.Equal(t, 14.5995, fix.Latitude)
}

func TestDistanceFilter(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())
	defer tr.Stop()

	emitted := make(chan Fix, 16)
	require.NoError(t, tr.Start(context.Background(), func(f Fix) { emitted <- f }))

	base := time.Now()
	provider.readings <- fixAt(0, 0, base)
	waitFix(t, emitted)

	// ~5m north: below the 10m threshold, even with the time satisfied.
	provider.readings <- fixAt(0.000045, 0, base.Add(10*time.Second))
	assertNoFix(t, emitted)

	// ~15m from the last emitted fix: both thresholds met.
	provider.readings <- fixAt(0.000135, 0, base.Add(20*time.Second))
	fix := waitFix(t, emitted)
	assert.Equal(t, 0.000135, fix.Latitude)
}

func TestTimeFilter(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())
	defer tr.Stop()

	emitted := make(chan Fix, 16)
	require.NoError(t, tr.Start(context.Background(), func(f Fix) { emitted <- f }))

	base := time.Now()
	provider.readings <- fixAt(0, 0, base)
	waitFix(t, emitted)

	// 100m away but only 2s later: time threshold not met.
	provider.readings <- fixAt(0.0009, 0, base.Add(2*time.Second))
	assertNoFix(t, emitted)
}

func TestPermissionDenied(t *testing.T) {
	provider := newFakeProvider(PermissionDenied)
	tr := New(provider, testConfig())

	err := tr.Start(context.Background(), func(Fix) { t.Fatal("no fix expected") })
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, stateIdle, tr.State())
}

func TestServiceDisabled(t *testing.T) {
	provider := newFakeProvider(PermissionUnavailable)
	tr := New(provider, testConfig())

	err := tr.Start(context.Background(), func(Fix) { t.Fatal("no fix expected") })
	assert.ErrorIs(t, err, ErrServiceDisabled)
	assert.Equal(t, stateIdle, tr.State())
}

func TestTransientErrorKeepsTracking(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())
	defer tr.Stop()

	emitted := make(chan Fix, 16)
	require.NoError(t, tr.Start(context.Background(), func(f Fix) { emitted <- f }))

	provider.readings <- Reading{Err: errors.New("gps glitch")}
	assertNoFix(t, emitted)
	assert.Equal(t, stateTracking, tr.State())

	provider.readings <- fixAt(1, 1, time.Now())
	waitFix(t, emitted)
}

func TestStopIsIdempotent(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())

	// Stop before any Start is safe.
	tr.Stop()
	assert.Equal(t, stateIdle, tr.State())

	require.NoError(t, tr.Start(context.Background(), func(Fix) {}))
	tr.Stop()
	assert.Equal(t, stateIdle, tr.State())
	tr.Stop()
	assert.Equal(t, stateIdle, tr.State())

	// The tracker can start a fresh session after stopping.
	provider.readings = make(chan Reading, 16)
	require.NoError(t, tr.Start(context.Background(), func(Fix) {}))
	assert.Equal(t, stateTracking, tr.State())
	tr.Stop()
}

func TestStopDuringPermissionPrompt(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	provider.prompt = make(chan PermissionStatus)
	tr := New(provider, testConfig())

	emitted := make(chan Fix, 16)
	startErr := make(chan error, 1)
	go func() {
		startErr <- tr.Start(context.Background(), func(f Fix) { emitted <- f })
	}()

	require.Eventually(t, func() bool {
		return tr.State() == statePermissionRequested
	}, time.Second, time.Millisecond, "prompt never opened")

	// End the session while the prompt is still open, then let the user
	// grant it anyway.
	tr.Stop()
	assert.Equal(t, stateIdle, tr.State())
	provider.prompt <- PermissionGranted

	select {
	case err := <-startErr:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after the late grant")
	}
	assert.Equal(t, stateIdle, tr.State())

	// The late subscription is torn down, and nothing reaches the callback.
	select {
	case <-provider.unsubscribes:
	case <-time.After(time.Second):
		t.Fatal("subscription was not torn down")
	}
	provider.readings <- fixAt(1, 1, time.Now())
	assertNoFix(t, emitted)
}

func TestStartWhileTracking(t *testing.T) {
	provider := newFakeProvider(PermissionGranted)
	tr := New(provider, testConfig())
	defer tr.Stop()

	require.NoError(t, tr.Start(context.Background(), func(Fix) {}))
	assert.ErrorIs(t, tr.Start(context.Background(), func(Fix) {}), ErrAlreadyTracking)
}
