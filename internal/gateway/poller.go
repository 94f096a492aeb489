package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chefia-terminal-api/internal/events"
	"chefia-terminal-api/internal/models"
)

// Poller feeds the sync event bus by diffing backend state for one
// terminal. It stands in for a push channel: cashier changes made by
// peer terminals surface here as bus events. Poll failures are logged
// and retried on the next tick, never fatal.
type Poller struct {
	api      API
	bus      *events.Bus
	log      *zap.Logger
	terminal string
	interval time.Duration

	// poll-loop state, owned by the polling goroutine
	trackedCashier string
	seenOps        map[string]struct{}

	stopCh chan struct{}
	wg     chan struct{}
}

func NewPoller(api API, bus *events.Bus, terminalID string, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		api:      api,
		bus:      bus,
		log:      log,
		terminal: terminalID,
		interval: interval,
		seenOps:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called.
func (p *Poller) Start(ctx context.Context) {
	done := make(chan struct{})
	p.wg = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.pollOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
	if p.wg != nil {
		<-p.wg
	}
}

// pollOnce runs a single reconciliation pass against the backend.
func (p *Poller) pollOnce(ctx context.Context) {
	status, err := p.api.GetTerminalStatus(ctx, p.terminal)
	if err != nil {
		p.log.Warn("sync poll: terminal status fetch failed",
			zap.String("terminal_id", p.terminal),
			zap.Error(err),
		)
		return
	}

	if !status.HasOpenCashier || status.CashierID == nil {
		p.handleClosed(ctx)
		return
	}

	cashierID := *status.CashierID
	adopted := false
	if cashierID != p.trackedCashier {
		cashier, err := p.api.GetCashier(ctx, cashierID)
		if err != nil {
			p.log.Warn("sync poll: cashier fetch failed",
				zap.String("cashier_id", cashierID),
				zap.Error(err),
			)
			return
		}
		p.trackedCashier = cashierID
		p.seenOps = make(map[string]struct{})
		adopted = true
		p.bus.Publish(events.CashierCreated{Cashier: *cashier})
	}

	ops, err := p.api.GetCashierOperations(ctx, cashierID)
	if err != nil {
		p.log.Warn("sync poll: operations fetch failed",
			zap.String("cashier_id", cashierID),
			zap.Error(err),
		)
		return
	}

	for _, op := range ops {
		if _, ok := p.seenOps[op.ID]; ok {
			continue
		}
		p.seenOps[op.ID] = struct{}{}

		// The ledger present at adoption time is history, not news.
		if adopted {
			continue
		}

		if op.OperationType == models.OperationWithdrawal {
			p.bus.Publish(events.WithdrawalRecorded{CashierID: cashierID, Operation: op})
		} else {
			p.bus.Publish(events.OperationRecorded{CashierID: cashierID, Operation: op})
		}
	}
}

// handleClosed publishes the close of a cashier we were tracking.
func (p *Poller) handleClosed(ctx context.Context) {
	if p.trackedCashier == "" {
		return
	}

	closedID := p.trackedCashier
	p.trackedCashier = ""
	p.seenOps = make(map[string]struct{})

	cashier, err := p.api.GetCashier(ctx, closedID)
	if err != nil {
		p.log.Warn("sync poll: closed cashier fetch failed",
			zap.String("cashier_id", closedID),
			zap.Error(err),
		)
		return
	}

	p.bus.Publish(events.CashierUpdated{Cashier: *cashier})
}
