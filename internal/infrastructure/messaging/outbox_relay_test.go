package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/testutil"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/mq"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []mq.Message
	fail     error
}

func (p *fakePublisher) Publish(_ context.Context, msg mq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.messages = append(p.messages, msg)
	return nil
}

func setup(t *testing.T, pub *fakePublisher, cfg circuitbreaker.Config) (*Relay, outbox.Repository) {
	t.Helper()
	repo := mysql.NewOutboxRepository(testutil.NewTestDB(t))
	relay := NewRelay(repo, pub, circuitbreaker.NewCircuitBreaker("test-broker-"+t.Name(), cfg), 10, time.Second, zap.NewNop())
	return relay, repo
}

func appendEvents(t *testing.T, repo outbox.Repository, n int) {
	t.Helper()
	recorder := outbox.NewRecorder(repo)
	for i := 1; i <= n; i++ {
		require.NoError(t, recorder.Record(context.Background(), outbox.TypeBorrowCreated, uint(i), map[string]uint{"borrow_id": uint(i)}))
	}
}

func TestRelay_PublishesInOrder(t *testing.T) {
	pub := &fakePublisher{}
	relay, repo := setup(t, pub, circuitbreaker.DefaultConfig())
	appendEvents(t, repo, 3)

	sent, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	require.Len(t, pub.messages, 3)
	assert.Equal(t, outbox.TypeBorrowCreated, pub.messages[0].RoutingKey)
	assert.JSONEq(t, `{"borrow_id":1}`, string(pub.messages[0].Body))
	assert.NotEmpty(t, pub.messages[0].ID)

	pending, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_FailureKeepsEventPending(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("connection reset")}
	cfg := circuitbreaker.DefaultConfig()
	cfg.ReadyToTrip = func(c circuitbreaker.Counts) bool { return false }
	relay, repo := setup(t, pub, cfg)
	appendEvents(t, repo, 1)

	sent, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	pending, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "connection reset", pending[0].LastError)

	// broker恢复后补发
	pub.fail = nil
	sent, err = relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRelay_OpenBreakerPostponesRound(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("broker down")}
	cfg := circuitbreaker.DefaultConfig()
	cfg.ReadyToTrip = func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 1 }
	cfg.Timeout = time.Hour
	relay, repo := setup(t, pub, cfg)
	appendEvents(t, repo, 3)

	sent, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	pending, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, 1, pending[0].Attempts, "第一条失败后熔断")
	assert.Equal(t, 0, pending[1].Attempts, "熔断期间不消耗重试次数")
	assert.Equal(t, 0, pending[2].Attempts)
}

func TestRelay_StartStopsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	relay, repo := setup(t, pub, circuitbreaker.DefaultConfig())
	relay.interval = 10 * time.Millisecond
	appendEvents(t, repo, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.messages) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
