package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

type blockingCounter struct {
	release  chan struct{}
	received chan string
	deadline chan bool
}

func (b *blockingCounter) RecordCount(ctx context.Context, name string, _ int, _ map[string]string) error {
	<-b.release
	_, ok := ctx.Deadline()
	b.deadline <- ok
	b.received <- name
	return nil
}

func TestAsyncMetrics_ReturnsBeforeSendCompletes(t *testing.T) {
	b := &blockingCounter{release: make(chan struct{}), received: make(chan string, 1), deadline: make(chan bool, 1)}
	m := services.NewAsyncMetrics(b, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.RecordCount(ctx, "OrdersCreated", 2, nil))
	// The request context ending must not cut the send short.
	cancel()

	select {
	case <-b.received:
		t.Fatal("send completed before it was released")
	default:
	}

	close(b.release)
	m.Wait()
	assert.Equal(t, "OrdersCreated", <-b.received)
	assert.True(t, <-b.deadline)
}

func TestAsyncMetrics_DeliversCounts(t *testing.T) {
	counter := &fakeCounter{}
	m := services.NewAsyncMetrics(counter, time.Second)

	for i := 0; i < 5; i++ {
		_ = m.RecordCount(context.Background(), "OrdersDeduplicated", 1, nil)
	}
	m.Wait()
	assert.Equal(t, 5, counter.get("OrdersDeduplicated"))
	assert.Equal(t, 5, counter.sends("OrdersDeduplicated"))
}

func TestAsyncMetrics_NilRecorderIsNoop(t *testing.T) {
	m := services.NewAsyncMetrics(nil, time.Second)
	assert.NoError(t, m.RecordCount(context.Background(), "OrdersCreated", 1, nil))
	m.Wait()
}
