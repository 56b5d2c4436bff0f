package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushMetrics sends the run metrics to a Prometheus Pushgateway under job.
// Batch runs exit before a scrape would see them, so the final values are
// pushed instead.
func PushMetrics(ctx context.Context, url, job string, m *Metrics) error {
	if err := push.New(url, job).Gatherer(m.Registry()).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
