package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"chefia-terminal-api/internal/cache"
	"chefia-terminal-api/internal/config"
	"chefia-terminal-api/internal/events"
	"chefia-terminal-api/internal/gateway"
	"chefia-terminal-api/internal/models"
)

// Local validation errors: detected before any gateway call, surfaced to
// the caller, never logged remotely.
var ErrNoOpenCashier = errors.New("no open cashier on this terminal")

const contingencyKey = "fiscal-contingency"

func terminalStatusKey(terminalID string) string { return "terminal-status-" + terminalID }
func cashierKey(cashierID string) string         { return "cashier-" + cashierID }
func terminalConfigKey(terminalID string) string { return "terminal-config-" + terminalID }

// CashierService owns the cashier session state for one terminal. It is
// the only writer of that state in-process; peer terminals reach it only
// through the backend and the sync event bus.
//
// Failure model: gateway failures of user-triggered actions set the
// error field and are returned; background reconciliation failures are
// logged and swallowed so a successful foreground flow never reads as
// failed to the operator.
type CashierService struct {
	gw    gateway.API
	cache *cache.Cache
	bus   *events.Bus
	log   *zap.Logger
	cfg   config.Config

	remoteCfg *config.TerminalConfigLoader

	mu         sync.Mutex
	status     *models.TerminalStatus
	current    *models.Cashier
	operations []models.CashierOperation
	loading    int
	lastErr    string

	subs      []*events.Subscription
	closeOnce sync.Once
}

func NewCashierService(gw gateway.API, c *cache.Cache, bus *events.Bus, cfg config.Config, log *zap.Logger) *CashierService {
	if log == nil {
		log = zap.NewNop()
	}

	s := &CashierService{
		gw:    gw,
		cache: c,
		bus:   bus,
		log:   log,
		cfg:   cfg,
	}

	s.remoteCfg = config.NewTerminalConfigLoader(func(ctx context.Context) (*models.TerminalConfig, error) {
		return cache.Execute(ctx, c, terminalConfigKey(cfg.TerminalID), cfg.ConfigTTL, func(ctx context.Context) (*models.TerminalConfig, error) {
			return gw.GetTerminalConfig(ctx, cfg.TerminalID)
		})
	})

	s.subs = append(s.subs,
		bus.Subscribe(events.TopicCashierCreate, s.onSyncEvent),
		bus.Subscribe(events.TopicCashierUpdate, s.onSyncEvent),
		bus.Subscribe(events.TopicCashierOperation, s.onSyncEvent),
		bus.Subscribe(events.TopicCashierWithdrawal, s.onSyncEvent),
	)

	return s
}

// Close removes every bus subscription this service registered. Leaked
// subscriptions from torn-down instances would keep mutating dead state.
func (s *CashierService) Close() {
	s.closeOnce.Do(func() {
		for _, sub := range s.subs {
			s.bus.Unsubscribe(sub)
		}
		s.subs = nil
	})
}

// --- Read surface for UI collaborators ---

func (s *CashierService) CurrentCashier() *models.Cashier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

func (s *CashierService) TerminalStatus() *models.TerminalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	st := *s.status
	return &st
}

func (s *CashierService) Operations() []models.CashierOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CashierOperation, len(s.operations))
	copy(out, s.operations)
	return out
}

func (s *CashierService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

func (s *CashierService) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError clears the error field. Pure, no network effect.
func (s *CashierService) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// --- Operations ---

// CheckTerminalStatus fetches the terminal status through the cache and,
// when a cashier is open, the cashier record itself, always fresh. User
// triggered, so failures surface.
func (s *CashierService) CheckTerminalStatus(ctx context.Context) (*models.TerminalStatus, error) {
	s.beginLoading()
	defer s.endLoading()

	status, err := cache.Execute(ctx, s.cache, terminalStatusKey(s.cfg.TerminalID), s.cfg.StatusTTL, func(ctx context.Context) (*models.TerminalStatus, error) {
		return s.gw.GetTerminalStatus(ctx, s.cfg.TerminalID)
	})
	if err != nil {
		s.setError(err)
		return nil, err
	}

	if status.HasOpenCashier && status.CashierID != nil {
		cashier, err := s.gw.GetCashier(ctx, *status.CashierID)
		if err != nil {
			s.setError(err)
			return nil, err
		}
		s.mu.Lock()
		s.setStatusLocked(status)
		if s.current == nil || s.current.ID != cashier.ID {
			s.operations = nil
		}
		s.current = cashier
		s.mu.Unlock()
		return status, nil
	}

	s.mu.Lock()
	s.setStatusLocked(status)
	s.current = nil
	s.operations = nil
	s.mu.Unlock()
	return status, nil
}

// OpenCashier opens a cashier on this terminal. The backend enforces
// that the terminal has no open cashier already; the UI call path checks
// status first. On failure the prior state is left unchanged.
func (s *CashierService) OpenCashier(ctx context.Context, create models.CashierCreate) (*models.Cashier, error) {
	s.beginLoading()
	defer s.endLoading()

	if create.TerminalID == "" {
		create.TerminalID = s.cfg.TerminalID
	}

	cashier, err := s.gw.OpenCashier(ctx, create)
	if err != nil {
		s.setError(err)
		return nil, err
	}

	s.mu.Lock()
	s.current = cashier
	s.operations = nil
	s.mu.Unlock()

	s.refreshTerminalStatus(ctx)
	return cashier, nil
}

// CloseCashier closes the current cashier with the physically counted
// amount. The backend reconciles any discrepancy against the running
// balance; the returned record carries the authoritative final balance.
func (s *CashierService) CloseCashier(ctx context.Context, physicalCashAmount decimal.Decimal, notes string) (*models.Cashier, error) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil {
		return nil, ErrNoOpenCashier
	}

	s.beginLoading()
	defer s.endLoading()

	closed, err := s.gw.CloseCashier(ctx, cur.ID, models.CashierClose{
		PhysicalCashAmount: physicalCashAmount,
		Notes:              notes,
	})
	if err != nil {
		s.setError(err)
		return nil, err
	}

	s.cache.Invalidate(cashierKey(cur.ID))

	s.mu.Lock()
	s.current = closed
	s.mu.Unlock()

	if closed.TerminalID != "" {
		s.cache.Invalidate(terminalStatusKey(closed.TerminalID))
		s.refreshTerminalStatus(ctx)
	}
	return closed, nil
}

// RegisterWithdrawal records a cash withdrawal. Sequence: mutate,
// invalidate, refresh — the next read after a write must be
// authoritative, never a stale cached balance.
func (s *CashierService) RegisterWithdrawal(ctx context.Context, cashierID string, withdrawal models.CashierWithdrawal) (*models.CashierOperation, error) {
	s.beginLoading()
	defer s.endLoading()

	if withdrawal.RequestID == "" {
		withdrawal.RequestID = uuid.NewString()
	}

	op, err := s.gw.RegisterWithdrawal(ctx, cashierID, withdrawal)
	if err != nil {
		s.setError(err)
		return nil, err
	}

	s.cache.Invalidate(cashierKey(cashierID))
	s.cache.Invalidate(terminalStatusKey(s.cfg.TerminalID))
	s.appendOperation(cashierID, *op)
	s.RefreshCashier(ctx, cashierID)

	return op, nil
}

// RegisterDeposit records a cash deposit, with the same mutate →
// invalidate → refresh sequencing as withdrawals.
func (s *CashierService) RegisterDeposit(ctx context.Context, cashierID string, deposit models.CashierDeposit) (*models.CashierOperation, error) {
	s.beginLoading()
	defer s.endLoading()

	if deposit.RequestID == "" {
		deposit.RequestID = uuid.NewString()
	}

	op, err := s.gw.RegisterDeposit(ctx, cashierID, deposit)
	if err != nil {
		s.setError(err)
		return nil, err
	}

	s.cache.Invalidate(cashierKey(cashierID))
	s.cache.Invalidate(terminalStatusKey(s.cfg.TerminalID))
	s.appendOperation(cashierID, *op)
	s.RefreshCashier(ctx, cashierID)

	return op, nil
}

// RefreshCashier re-fetches the cashier and the terminal status after
// invalidating both cache entries. Background reconciliation: failures
// are logged, the error field stays untouched, nothing propagates.
func (s *CashierService) RefreshCashier(ctx context.Context, cashierID string) {
	s.cache.Invalidate(cashierKey(cashierID))
	s.cache.Invalidate(terminalStatusKey(s.cfg.TerminalID))

	cashier, err := cache.Execute(ctx, s.cache, cashierKey(cashierID), s.cfg.CashierTTL, func(ctx context.Context) (*models.Cashier, error) {
		return s.gw.GetCashier(ctx, cashierID)
	})
	if err != nil {
		s.log.Warn("background cashier refresh failed",
			zap.String("cashier_id", cashierID),
			zap.Error(err),
		)
	} else {
		s.mu.Lock()
		if s.current != nil && s.current.ID == cashier.ID {
			s.current = cashier
		}
		s.mu.Unlock()
	}

	s.refreshTerminalStatus(ctx)
}

// GetSummary reduces the cashier's ledger into totals per operation
// type. Unrecognized operation types are ignored, not an error.
func (s *CashierService) GetSummary(ctx context.Context) (*models.CashierSummary, error) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil {
		return nil, ErrNoOpenCashier
	}

	s.beginLoading()
	defer s.endLoading()

	ops, err := s.gw.GetCashierOperations(ctx, cur.ID)
	if err != nil {
		s.setError(err)
		return nil, err
	}

	s.mu.Lock()
	s.operations = make([]models.CashierOperation, len(ops))
	copy(s.operations, ops)
	s.mu.Unlock()

	summary := &models.CashierSummary{
		Sales:       decimal.Zero,
		Withdrawals: decimal.Zero,
		Deposits:    decimal.Zero,
	}
	for _, op := range ops {
		switch op.OperationType {
		case models.OperationSale:
			summary.Sales = summary.Sales.Add(op.Amount)
		case models.OperationWithdrawal:
			summary.Withdrawals = summary.Withdrawals.Add(op.Amount)
		case models.OperationDeposit:
			summary.Deposits = summary.Deposits.Add(op.Amount)
		}
	}
	return summary, nil
}

// ContingencyStatus reports the fiscal contingency flag, cached briefly
// so repeated UI polls stay off the network.
func (s *CashierService) ContingencyStatus(ctx context.Context) (*models.ContingencyStatus, error) {
	return cache.Execute(ctx, s.cache, contingencyKey, s.cfg.ContingencyTTL, func(ctx context.Context) (*models.ContingencyStatus, error) {
		return s.gw.GetContingencyStatus(ctx)
	})
}

// TerminalConfig returns the lazily-loaded terminal configuration.
func (s *CashierService) TerminalConfig(ctx context.Context) (*models.TerminalConfig, error) {
	return s.remoteCfg.Get(ctx)
}

// --- Sync reconciliation ---

// onSyncEvent is the single dispatch point for peer-originated state
// changes delivered on the bus.
func (s *CashierService) onSyncEvent(evt events.Event) {
	switch e := evt.(type) {
	case events.CashierCreated:
		s.applyCashierCreated(e.Cashier)
	case events.CashierUpdated:
		s.applyCashierUpdated(e.Cashier)
	case events.OperationRecorded:
		s.appendOperation(e.CashierID, e.Operation)
	case events.WithdrawalRecorded:
		s.appendOperation(e.CashierID, e.Operation)
	default:
		s.log.Warn("unhandled sync event", zap.String("topic", string(evt.Topic())))
	}
}

// applyCashierCreated adopts a cashier opened elsewhere. Another
// terminal just mutated shared state, so everything cashier-related in
// the cache is evicted coarsely: correctness over precision.
func (s *CashierService) applyCashierCreated(cashier models.Cashier) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == cashier.ID {
		// Re-announcement of the cashier already tracked, e.g. the
		// sync feed catching up after a local open. Keep the ledger
		// and the caches.
		s.current = &cashier
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.cache.InvalidatePattern("cashier")
	s.cache.InvalidatePattern("terminal-status")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &cashier
	s.operations = nil
	if s.status != nil && s.status.TerminalID == cashier.TerminalID {
		id := cashier.ID
		s.status.HasOpenCashier = true
		s.status.CashierID = &id
	}
}

// applyCashierUpdated handles a close performed by a peer: clear the
// tracked cashier and flip the local terminal status, no gateway call.
func (s *CashierService) applyCashierUpdated(cashier models.Cashier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cashier.Status != models.CashierClosed {
		return
	}
	if s.current == nil || s.current.ID != cashier.ID {
		return
	}

	s.current = nil
	s.operations = nil
	if s.status != nil {
		s.status.HasOpenCashier = false
		s.status.CashierID = nil
	}
}

// appendOperation appends a ledger entry for the tracked cashier. Ledger
// entries are immutable and additive, so push data is trusted directly
// without a re-fetch. Entries already present (e.g. seen both locally
// and via the sync feed) are skipped by id.
func (s *CashierService) appendOperation(cashierID string, op models.CashierOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != cashierID {
		return
	}
	for _, existing := range s.operations {
		if existing.ID == op.ID {
			return
		}
	}
	s.operations = append(s.operations, op)
}

// --- internals ---

// refreshTerminalStatus re-reads the terminal status after an eviction.
// Background path: failures are logged only.
func (s *CashierService) refreshTerminalStatus(ctx context.Context) {
	s.cache.Invalidate(terminalStatusKey(s.cfg.TerminalID))

	status, err := cache.Execute(ctx, s.cache, terminalStatusKey(s.cfg.TerminalID), s.cfg.StatusTTL, func(ctx context.Context) (*models.TerminalStatus, error) {
		return s.gw.GetTerminalStatus(ctx, s.cfg.TerminalID)
	})
	if err != nil {
		s.log.Warn("background terminal status refresh failed",
			zap.String("terminal_id", s.cfg.TerminalID),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	s.setStatusLocked(status)
	s.mu.Unlock()
}

// setStatusLocked stores a copy so later sync transitions never mutate
// the instance held by the cache. Caller holds s.mu.
func (s *CashierService) setStatusLocked(status *models.TerminalStatus) {
	st := *status
	s.status = &st
}

func (s *CashierService) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err.Error()
}

func (s *CashierService) beginLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *CashierService) endLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}
