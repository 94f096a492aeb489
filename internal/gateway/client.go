package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"chefia-terminal-api/internal/models"
)

// API is the remote cashier contract the controller consumes. Every call
// may fail with a transport error or an *APIError from the backend; the
// caller decides whether the failure is user-visible.
type API interface {
	GetTerminalStatus(ctx context.Context, terminalID string) (*models.TerminalStatus, error)
	GetCashier(ctx context.Context, cashierID string) (*models.Cashier, error)
	OpenCashier(ctx context.Context, create models.CashierCreate) (*models.Cashier, error)
	CloseCashier(ctx context.Context, cashierID string, close models.CashierClose) (*models.Cashier, error)
	RegisterWithdrawal(ctx context.Context, cashierID string, withdrawal models.CashierWithdrawal) (*models.CashierOperation, error)
	RegisterDeposit(ctx context.Context, cashierID string, deposit models.CashierDeposit) (*models.CashierOperation, error)
	GetCashierOperations(ctx context.Context, cashierID string) ([]models.CashierOperation, error)
	GetTerminalConfig(ctx context.Context, terminalID string) (*models.TerminalConfig, error)
	GetContingencyStatus(ctx context.Context) (*models.ContingencyStatus, error)
}

// APIError is a structured error body returned by the backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Client is the HTTP implementation of API.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client, log: log}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) GetTerminalStatus(ctx context.Context, terminalID string) (*models.TerminalStatus, error) {
	var out models.TerminalStatus
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", terminalID).SetResult(&out).Get("/terminals/{id}/status")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCashier(ctx context.Context, cashierID string) (*models.Cashier, error) {
	var out models.Cashier
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", cashierID).SetResult(&out).Get("/cashiers/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenCashier(ctx context.Context, create models.CashierCreate) (*models.Cashier, error) {
	var out models.Cashier
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(create).SetResult(&out).Post("/cashiers")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CloseCashier(ctx context.Context, cashierID string, body models.CashierClose) (*models.Cashier, error) {
	var out models.Cashier
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", cashierID).SetBody(body).SetResult(&out).Post("/cashiers/{id}/close")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterWithdrawal(ctx context.Context, cashierID string, withdrawal models.CashierWithdrawal) (*models.CashierOperation, error) {
	var out models.CashierOperation
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", cashierID).SetBody(withdrawal).SetResult(&out).Post("/cashiers/{id}/withdrawals")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterDeposit(ctx context.Context, cashierID string, deposit models.CashierDeposit) (*models.CashierOperation, error) {
	var out models.CashierOperation
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", cashierID).SetBody(deposit).SetResult(&out).Post("/cashiers/{id}/deposits")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCashierOperations(ctx context.Context, cashierID string) ([]models.CashierOperation, error) {
	var out []models.CashierOperation
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", cashierID).SetResult(&out).Get("/cashiers/{id}/operations")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTerminalConfig(ctx context.Context, terminalID string) (*models.TerminalConfig, error) {
	var out models.TerminalConfig
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", terminalID).SetResult(&out).Get("/terminals/{id}/config")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetContingencyStatus(ctx context.Context) (*models.ContingencyStatus, error) {
	var out models.ContingencyStatus
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/fiscal/contingency")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// do runs one request with the shared error mapping: backend error
// bodies become *APIError, transport failures are wrapped.
func (c *Client) do(ctx context.Context, call func(*resty.Request) (*resty.Response, error)) error {
	apiErr := &APIError{}
	req := c.http.R().SetContext(ctx).SetError(apiErr)

	resp, err := call(req)
	if err != nil {
		return fmt.Errorf("cashier backend request: %w", err)
	}

	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}

	return nil
}

var _ API = (*Client)(nil)
