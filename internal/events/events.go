package events

import "chefia-terminal-api/internal/models"

// Topics carried on the bus. Events originate server-side or on peer
// terminals; the local controller only consumes them.

type Topic string

const (
	TopicCashierCreate     Topic = "cashier:create"
	TopicCashierUpdate     Topic = "cashier:update"
	TopicCashierOperation  Topic = "cashier:operation"
	TopicCashierWithdrawal Topic = "cashier:withdrawal"
)

// Event is the closed set of sync payloads. Consumers type-switch on the
// concrete variants; an unhandled variant is a compile-visible gap, not a
// silent no-op.
type Event interface {
	Topic() Topic
}

// CashierCreated carries a cashier opened by a peer terminal or the
// backend.
type CashierCreated struct {
	Cashier models.Cashier
}

func (CashierCreated) Topic() Topic { return TopicCashierCreate }

// CashierUpdated carries a new authoritative cashier record, including
// closes performed elsewhere.
type CashierUpdated struct {
	Cashier models.Cashier
}

func (CashierUpdated) Topic() Topic { return TopicCashierUpdate }

// OperationRecorded carries a ledger entry appended by a peer.
type OperationRecorded struct {
	CashierID string
	Operation models.CashierOperation
}

func (OperationRecorded) Topic() Topic { return TopicCashierOperation }

// WithdrawalRecorded carries a withdrawal-typed ledger entry appended by
// a peer.
type WithdrawalRecorded struct {
	CashierID string
	Operation models.CashierOperation
}

func (WithdrawalRecorded) Topic() Topic { return TopicCashierWithdrawal }
