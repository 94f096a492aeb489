package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chefia-terminal-api/internal/events"
	"chefia-terminal-api/internal/models"
)

// pollerBackend is a scriptable API for poller tests.
type pollerBackend struct {
	mu      sync.Mutex
	status  *models.TerminalStatus
	cashier *models.Cashier
	ops     []models.CashierOperation
	fail    error
}

func (b *pollerBackend) set(status *models.TerminalStatus, cashier *models.Cashier, ops []models.CashierOperation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.cashier, b.ops = status, cashier, ops
}

func (b *pollerBackend) GetTerminalStatus(ctx context.Context, terminalID string) (*models.TerminalStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	return b.status, nil
}

func (b *pollerBackend) GetCashier(ctx context.Context, cashierID string) (*models.Cashier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cashier == nil {
		return nil, errors.New("not found")
	}
	return b.cashier, nil
}

func (b *pollerBackend) GetCashierOperations(ctx context.Context, cashierID string) ([]models.CashierOperation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ops, nil
}

func (b *pollerBackend) OpenCashier(ctx context.Context, create models.CashierCreate) (*models.Cashier, error) {
	return nil, errors.New("not implemented")
}

func (b *pollerBackend) CloseCashier(ctx context.Context, cashierID string, close models.CashierClose) (*models.Cashier, error) {
	return nil, errors.New("not implemented")
}

func (b *pollerBackend) RegisterWithdrawal(ctx context.Context, cashierID string, w models.CashierWithdrawal) (*models.CashierOperation, error) {
	return nil, errors.New("not implemented")
}

func (b *pollerBackend) RegisterDeposit(ctx context.Context, cashierID string, d models.CashierDeposit) (*models.CashierOperation, error) {
	return nil, errors.New("not implemented")
}

func (b *pollerBackend) GetTerminalConfig(ctx context.Context, terminalID string) (*models.TerminalConfig, error) {
	return nil, errors.New("not implemented")
}

func (b *pollerBackend) GetContingencyStatus(ctx context.Context) (*models.ContingencyStatus, error) {
	return nil, errors.New("not implemented")
}

var _ API = (*pollerBackend)(nil)

func collectEvents(bus *events.Bus) *[]events.Event {
	var got []events.Event
	for _, topic := range []events.Topic{
		events.TopicCashierCreate,
		events.TopicCashierUpdate,
		events.TopicCashierOperation,
		events.TopicCashierWithdrawal,
	} {
		bus.Subscribe(topic, func(evt events.Event) {
			got = append(got, evt)
		})
	}
	return &got
}

func statusOpen(cashierID string) *models.TerminalStatus {
	return &models.TerminalStatus{TerminalID: "1", HasOpenCashier: true, CashierID: &cashierID}
}

func statusClosed() *models.TerminalStatus {
	return &models.TerminalStatus{TerminalID: "1", HasOpenCashier: false}
}

func TestPoller_PublishesCreateOnAdoption(t *testing.T) {
	backend := &pollerBackend{}
	bus := events.NewBus(zaptest.NewLogger(t))
	got := collectEvents(bus)
	poller := NewPoller(backend, bus, "1", time.Second, zaptest.NewLogger(t))

	existing := models.CashierOperation{ID: "old-1", CashierID: "c1", OperationType: models.OperationSale}
	backend.set(statusOpen("c1"), &models.Cashier{ID: "c1", TerminalID: "1"}, []models.CashierOperation{existing})

	poller.pollOnce(context.Background())

	// One create; the pre-existing ledger is history, not news.
	require.Len(t, *got, 1)
	created, ok := (*got)[0].(events.CashierCreated)
	require.True(t, ok)
	assert.Equal(t, "c1", created.Cashier.ID)
}

func TestPoller_PublishesNewOperations(t *testing.T) {
	backend := &pollerBackend{}
	bus := events.NewBus(zaptest.NewLogger(t))
	got := collectEvents(bus)
	poller := NewPoller(backend, bus, "1", time.Second, zaptest.NewLogger(t))

	backend.set(statusOpen("c1"), &models.Cashier{ID: "c1", TerminalID: "1"}, nil)
	poller.pollOnce(context.Background())
	require.Len(t, *got, 1) // the create

	backend.set(statusOpen("c1"), &models.Cashier{ID: "c1", TerminalID: "1"}, []models.CashierOperation{
		{ID: "s1", CashierID: "c1", OperationType: models.OperationSale},
		{ID: "w1", CashierID: "c1", OperationType: models.OperationWithdrawal},
	})
	poller.pollOnce(context.Background())

	require.Len(t, *got, 3)
	_, isOp := (*got)[1].(events.OperationRecorded)
	assert.True(t, isOp)
	_, isWithdrawal := (*got)[2].(events.WithdrawalRecorded)
	assert.True(t, isWithdrawal)

	// Already-seen entries are not republished.
	poller.pollOnce(context.Background())
	assert.Len(t, *got, 3)
}

func TestPoller_PublishesCloseUpdate(t *testing.T) {
	backend := &pollerBackend{}
	bus := events.NewBus(zaptest.NewLogger(t))
	got := collectEvents(bus)
	poller := NewPoller(backend, bus, "1", time.Second, zaptest.NewLogger(t))

	backend.set(statusOpen("c1"), &models.Cashier{ID: "c1", TerminalID: "1", Status: models.CashierOpen}, nil)
	poller.pollOnce(context.Background())

	backend.set(statusClosed(), &models.Cashier{ID: "c1", TerminalID: "1", Status: models.CashierClosed}, nil)
	poller.pollOnce(context.Background())

	require.Len(t, *got, 2)
	updated, ok := (*got)[1].(events.CashierUpdated)
	require.True(t, ok)
	assert.Equal(t, models.CashierClosed, updated.Cashier.Status)

	// Nothing tracked anymore: a closed terminal stays silent.
	poller.pollOnce(context.Background())
	assert.Len(t, *got, 2)
}

func TestPoller_StatusFailureIsRetriedNextTick(t *testing.T) {
	backend := &pollerBackend{fail: errors.New("offline")}
	bus := events.NewBus(zaptest.NewLogger(t))
	got := collectEvents(bus)
	poller := NewPoller(backend, bus, "1", time.Second, zaptest.NewLogger(t))

	poller.pollOnce(context.Background())
	assert.Empty(t, *got)

	backend.mu.Lock()
	backend.fail = nil
	backend.mu.Unlock()
	backend.set(statusOpen("c1"), &models.Cashier{ID: "c1"}, nil)

	poller.pollOnce(context.Background())
	assert.Len(t, *got, 1)
}

func TestPoller_StartStop(t *testing.T) {
	backend := &pollerBackend{}
	backend.set(statusClosed(), nil, nil)
	bus := events.NewBus(zaptest.NewLogger(t))
	poller := NewPoller(backend, bus, "1", 10*time.Millisecond, zaptest.NewLogger(t))

	poller.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	poller.Stop()
}
