// Package tracker is the device-side location pipeline: it asks the position
// provider for permission, subscribes to fixes, filters insignificant
// movement, and hands qualifying samples to a callback (normally an
// HTTPReporter pushing to the ingest endpoint).
package tracker

import (
	"context"
	"errors"
	"time"
)

// PermissionStatus is the outcome of a location permission prompt.
type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"

	// PermissionUnavailable means location services are disabled at the OS
	// level; prompting again cannot help.
	PermissionUnavailable PermissionStatus = "unavailable"
)

var (
	// ErrPermissionDenied: the user refused the prompt. Actionable by
	// opening settings; the tracker does not retry on its own.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrServiceDisabled: location services are off at the OS level.
	ErrServiceDisabled = errors.New("location services disabled")

	// ErrAlreadyTracking: Start called while a session is active.
	ErrAlreadyTracking = errors.New("tracker already started")

	// ErrStopped: Stop ended the session while the permission prompt was
	// still open, so Start has nothing to deliver to.
	ErrStopped = errors.New("tracker stopped before start completed")
)

// Fix is a single position report from the provider. Timestamp is the
// provider's capture time, not the time of receipt.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Altitude  float64   `json:"altitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// Reading wraps a fix or a transient provider error. A Reading with Err set
// is logged and skipped; it never changes tracker state.
type Reading struct {
	Fix Fix
	Err error
}

// PositionProvider abstracts the device GPS stack.
type PositionProvider interface {
	// RequestPermission blocks on the user prompt. The wait is unbounded and
	// cancellable only through ctx.
	RequestPermission(ctx context.Context) (PermissionStatus, error)

	// Subscribe starts delivering readings on the returned channel until the
	// stop function is called or ctx is cancelled. accuracy is a provider
	// hint ("high", "balanced"). The channel is closed by the provider once
	// delivery ends.
	Subscribe(ctx context.Context, accuracy string) (<-chan Reading, func(), error)
}
