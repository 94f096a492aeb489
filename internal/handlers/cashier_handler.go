package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"chefia-terminal-api/internal/middleware"
	"chefia-terminal-api/internal/models"
	"chefia-terminal-api/internal/services"
)

// CashierHandler exposes the cashier session surface to the local POS
// front-end.
type CashierHandler struct {
	cashierService *services.CashierService
}

func NewCashierHandler(cashierService *services.CashierService) *CashierHandler {
	return &CashierHandler{
		cashierService: cashierService,
	}
}

// GetStatus triggers a terminal status check and returns the refreshed
// session state.
func (h *CashierHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.cashierService.CheckTerminalStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"terminal_status": status,
		"current_cashier": h.cashierService.CurrentCashier(),
	})
}

// GetState returns the session state without touching the network.
func (h *CashierHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"terminal_status": h.cashierService.TerminalStatus(),
		"current_cashier": h.cashierService.CurrentCashier(),
		"operations":      h.cashierService.Operations(),
		"loading":         h.cashierService.Loading(),
		"error":           h.cashierService.Err(),
	})
}

func (h *CashierHandler) Open(w http.ResponseWriter, r *http.Request) {
	var body models.CashierCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.OperatorID == "" {
		body.OperatorID = middleware.GetToken(r)
	}

	cashier, err := h.cashierService.OpenCashier(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cashier)
}

func (h *CashierHandler) Close(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhysicalCashAmount decimal.Decimal `json:"physical_cash_amount"`
		Notes              string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cashier, err := h.cashierService.CloseCashier(r.Context(), body.PhysicalCashAmount, body.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashier)
}

func (h *CashierHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CashierID string `json:"cashier_id"`
		models.CashierWithdrawal
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CashierID == "" {
		writeError(w, http.StatusBadRequest, "cashier_id is required")
		return
	}
	if body.OperatorID == "" {
		body.OperatorID = middleware.GetToken(r)
	}

	op, err := h.cashierService.RegisterWithdrawal(r.Context(), body.CashierID, body.CashierWithdrawal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (h *CashierHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CashierID string `json:"cashier_id"`
		models.CashierDeposit
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CashierID == "" {
		writeError(w, http.StatusBadRequest, "cashier_id is required")
		return
	}
	if body.OperatorID == "" {
		body.OperatorID = middleware.GetToken(r)
	}

	op, err := h.cashierService.RegisterDeposit(r.Context(), body.CashierID, body.CashierDeposit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (h *CashierHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cashierService.GetSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *CashierHandler) GetOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cashierService.Operations())
}

func (h *CashierHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.cashierService.ClearError()
	writeJSON(w, http.StatusOK, map[string]any{"error": ""})
}

func (h *CashierHandler) GetContingency(w http.ResponseWriter, r *http.Request) {
	status, err := h.cashierService.ContingencyStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *CashierHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.cashierService.TerminalConfig(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
