package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cashier lifecycle status

type CashierStatus string

const (
	CashierOpen   CashierStatus = "OPEN"
	CashierClosed CashierStatus = "CLOSED"
)

// Ledger operation types

type OperationType string

const (
	OperationSale       OperationType = "SALE"
	OperationWithdrawal OperationType = "WITHDRAWAL"
	OperationDeposit    OperationType = "DEPOSIT"
)

// TerminalStatus is one row per physical terminal.
// CashierID is non-nil iff HasOpenCashier is true.
type TerminalStatus struct {
	TerminalID     string  `json:"terminal_id"`
	HasOpenCashier bool    `json:"has_open_cashier"`
	CashierID      *string `json:"cashier_id"`
	BusinessDayID  string  `json:"business_day_id"`
}

// Consistent reports whether the open-cashier flag and the cashier
// reference agree.
func (s TerminalStatus) Consistent() bool {
	return s.HasOpenCashier == (s.CashierID != nil)
}

// Cashier is one till-opening lifecycle. Immutable history once CLOSED.
type Cashier struct {
	ID             string           `json:"id"`
	TerminalID     string           `json:"terminal_id"`
	BusinessDayID  string           `json:"business_day_id"`
	OperatorID     string           `json:"operator_id"`
	OperatorName   string           `json:"operator_name"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	FinalBalance   *decimal.Decimal `json:"final_balance"`
	Status         CashierStatus    `json:"status"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at"`
}

// CashierOperation is an append-only ledger entry. Never mutated or
// deleted; the sum of SALE+DEPOSIT minus WITHDRAWAL reconciles
// CurrentBalance - InitialBalance over the cashier's lifetime.
type CashierOperation struct {
	ID            string          `json:"id"`
	CashierID     string          `json:"cashier_id"`
	OperationType OperationType   `json:"operation_type"`
	Amount        decimal.Decimal `json:"amount"`
	OperatorID    string          `json:"operator_id"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// --- Request payloads ---

type CashierCreate struct {
	TerminalID     string          `json:"terminal_id"`
	BusinessDayID  string          `json:"business_day_id"`
	OperatorID     string          `json:"operator_id"`
	OperatorName   string          `json:"operator_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type CashierClose struct {
	PhysicalCashAmount decimal.Decimal `json:"physical_cash_amount"`
	Notes              string          `json:"notes"`
}

type CashierWithdrawal struct {
	// RequestID is a client-generated idempotency key.
	RequestID   string          `json:"request_id"`
	Amount      decimal.Decimal `json:"amount"`
	OperatorID  string          `json:"operator_id"`
	Description string          `json:"description"`
}

type CashierDeposit struct {
	RequestID   string          `json:"request_id"`
	Amount      decimal.Decimal `json:"amount"`
	OperatorID  string          `json:"operator_id"`
	Description string          `json:"description"`
}

// CashierSummary is the ledger reduced by operation type.
type CashierSummary struct {
	Sales       decimal.Decimal `json:"sales"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Deposits    decimal.Decimal `json:"deposits"`
}

// TerminalConfig is backend-held terminal configuration, loaded once per
// process and on demand after a failed load.
type TerminalConfig struct {
	TerminalID      string `json:"terminal_id"`
	StoreName       string `json:"store_name"`
	FiscalPrinter   bool   `json:"fiscal_printer"`
	ReceiptFooter   string `json:"receipt_footer"`
	AllowWithdrawal bool   `json:"allow_withdrawal"`
}

// ContingencyStatus reports whether fiscal emission is running in
// contingency mode.
type ContingencyStatus struct {
	Active bool       `json:"active"`
	Reason string     `json:"reason"`
	Since  *time.Time `json:"since"`
}
