package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

type chargeRepoStub struct {
	mu      sync.Mutex
	created []*model.FeeCharge
	err     error
}

func (s *chargeRepoStub) Create(ctx context.Context, charge *model.FeeCharge) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	charge.ID = uuid.New()
	charge.Status = model.FeeChargeStatusPending
	s.created = append(s.created, charge)
	return nil
}

func (s *chargeRepoStub) ClaimPending(ctx context.Context, limit int) ([]*model.FeeCharge, error) {
	return nil, nil
}
func (s *chargeRepoStub) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }
func (s *chargeRepoStub) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return nil
}
func (s *chargeRepoStub) ScheduleRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	return nil
}

type brokerStub struct {
	mu        sync.Mutex
	published map[string]int
}

func newBrokerStub() *brokerStub {
	return &brokerStub{published: make(map[string]int)}
}

func (b *brokerStub) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel]++
	return nil
}

func (b *brokerStub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *brokerStub) Close() error { return nil }

func (b *brokerStub) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[channel]
}

func newTestCoordinator(repo *chargeRepoStub, broker *brokerStub) *Coordinator {
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "billing_coordinator")
	return NewCoordinator(repo, broker, m, zerolog.Nop())
}

func TestChargeFeeEnqueuesPendingCharge(t *testing.T) {
	repo := &chargeRepoStub{}
	c := newTestCoordinator(repo, newBrokerStub())
	appointmentID := uuid.New()

	err := c.ChargeFee(context.Background(), appointmentID, model.FeeTypeLateCancel, 25)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, appointmentID, repo.created[0].AppointmentID)
	assert.Equal(t, model.FeeTypeLateCancel, repo.created[0].FeeType)
	assert.Equal(t, 25.0, repo.created[0].Amount)
	assert.Equal(t, model.FeeChargeStatusPending, repo.created[0].Status)
}

func TestChargeFeeAsyncReportsEnqueueFailure(t *testing.T) {
	repo := &chargeRepoStub{err: errors.New("database down")}
	broker := newBrokerStub()
	c := newTestCoordinator(repo, broker)

	c.ChargeFeeAsync(uuid.New(), model.FeeTypeNoShow, 50)

	assert.Eventually(t, func() bool {
		return broker.count("billing.fee_charge.failed") == 1
	}, time.Second, 10*time.Millisecond, "a charge that cannot be enqueued must land on the warning channel")
}

func TestChargeFeeAsyncDoesNotPublishOnSuccess(t *testing.T) {
	repo := &chargeRepoStub{}
	broker := newBrokerStub()
	c := newTestCoordinator(repo, broker)

	c.ChargeFeeAsync(uuid.New(), model.FeeTypeNoShow, 50)

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.created) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, broker.count("billing.fee_charge.failed"))
}
