package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// LocationUpdate is the ingest payload for one qualifying fix.
type LocationUpdate struct {
	UnitID   string `json:"unit_id"`
	DriverID uint   `json:"driver_id"`
	Fix
}

// Reporter delivers qualifying fixes to the server.
type Reporter interface {
	Report(ctx context.Context, update LocationUpdate) error
}

// HTTPReporter posts fixes to the location ingest endpoint. Every call has a
// bounded timeout and a small retry budget; a failed push is returned to the
// caller and never changes tracker state.
type HTTPReporter struct {
	client *resty.Client
}

// NewHTTPReporter builds a reporter against the backend base URL. token is
// the driver's bearer token.
func NewHTTPReporter(baseURL, token string, timeout time.Duration) *HTTPReporter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	return &HTTPReporter{client: client}
}

// Report pushes one location update.
func (r *HTTPReporter) Report(ctx context.Context, update LocationUpdate) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(update).
		Post("/vehicles/location/update")
	if err != nil {
		logrus.WithError(err).WithField("unit_id", update.UnitID).Warn("Location push failed.")
		return err
	}
	if resp.IsError() {
		logrus.WithFields(logrus.Fields{
			"unit_id": update.UnitID,
			"status":  resp.StatusCode(),
			"body":    resp.String(),
		}).Warn("Location push rejected by server.")
		return fmt.Errorf("location update rejected: %s", resp.Status())
	}
	return nil
}
