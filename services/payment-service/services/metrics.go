package services

import (
	"context"
	"sync"
	"time"
)

// MetricsRecorder is the slice of the CloudWatch client the services use.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, n int, dimensions map[string]string) error
}

type noopMetrics struct{}

func (noopMetrics) RecordCount(context.Context, string, int, map[string]string) error { return nil }

func orNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// AsyncMetrics hands each count to a goroutine with its own deadline, so a
// slow PutMetricData never holds up a webhook response.
type AsyncMetrics struct {
	next    MetricsRecorder
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncMetrics(next MetricsRecorder, timeout time.Duration) *AsyncMetrics {
	return &AsyncMetrics{next: orNoop(next), timeout: timeout}
}

// RecordCount always returns nil; send errors are dropped like the HTTP
// metrics middleware drops them.
func (a *AsyncMetrics) RecordCount(_ context.Context, metricName string, n int, dimensions map[string]string) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		_ = a.next.RecordCount(ctx, metricName, n, dimensions)
	}()
	return nil
}

// Wait blocks until in-flight sends finish.
func (a *AsyncMetrics) Wait() {
	a.wg.Wait()
}

// countTally collects one delivery's counters so each metric is sent once.
type countTally map[string]int

func (t countTally) add(metricName string, n int) {
	t[metricName] += n
}

func (t countTally) flush(ctx context.Context, m MetricsRecorder) {
	for name, n := range t {
		if n > 0 {
			_ = m.RecordCount(ctx, name, n, nil)
		}
	}
}
