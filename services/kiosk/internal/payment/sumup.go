package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"golang.org/x/text/currency"
)

// ReaderClient is the card reader network API. Every call degrades to an
// absent result on failure; callers never see transport errors.
type ReaderClient interface {
	CreateCheckout(ctx context.Context, readerID string, amount int64, reference string) (token string, ok bool)
	PairReader(ctx context.Context, pairingCode, name string) (readerID string, ok bool)
	UnpairReader(ctx context.Context, readerID string) bool
}

type SumUpConfig struct {
	BaseURL      string
	APIKey       string
	MerchantCode string
	ReturnURL    string
	Currency     string
}

// SumUpConfigFrom reads the sumup.* keys.
func SumUpConfigFrom(cfg *core.Config) SumUpConfig {
	return SumUpConfig{
		BaseURL:      cfg.GetStringOrDef("sumup.api.url", "https://api.sumup.com"),
		APIKey:       cfg.GetStringOrDef("sumup.api.key", ""),
		MerchantCode: cfg.GetStringOrDef("sumup.merchant.code", ""),
		ReturnURL:    cfg.GetStringOrDef("sumup.return.url", ""),
		Currency:     cfg.GetStringOrDef("sumup.currency", "DKK"),
	}
}

type SumUpClient struct {
	cfg        SumUpConfig
	currency   currency.Unit
	minorUnit  int
	httpClient *http.Client
	logger     core.Logger
}

func NewSumUpClient(cfg SumUpConfig, logger core.Logger) *SumUpClient {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	logger = logger.With("component", "SumUpClient")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(cfg.Currency)))
	if err != nil {
		logger.Warn("unknown currency, falling back to DKK", "currency", cfg.Currency)
		unit = currency.DKK
	}
	scale, _ := currency.Standard.Rounding(unit)

	return &SumUpClient{
		cfg:       cfg,
		currency:  unit,
		minorUnit: scale,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type checkoutAmount struct {
	Value     int64  `json:"value"`
	Currency  string `json:"currency"`
	MinorUnit int    `json:"minor_unit"`
}

type checkoutRequest struct {
	TotalAmount checkoutAmount `json:"total_amount"`
	Description string         `json:"description,omitempty"`
	ReturnURL   string         `json:"return_url,omitempty"`
}

type checkoutResponse struct {
	Data struct {
		ClientTransactionID string `json:"client_transaction_id"`
	} `json:"data"`
}

type pairRequest struct {
	PairingCode string `json:"pairing_code"`
	Name        string `json:"name"`
}

type pairResponse struct {
	ID string `json:"id"`
}

// CreateCheckout pushes amount (minor units) to the reader and returns the
// client transaction id later echoed by callbacks.
func (c *SumUpClient) CreateCheckout(ctx context.Context, readerID string, amount int64, reference string) (string, bool) {
	body := checkoutRequest{
		TotalAmount: checkoutAmount{Value: amount, Currency: c.currency.String(), MinorUnit: c.minorUnit},
		Description: "Order " + reference,
		ReturnURL:   c.cfg.ReturnURL,
	}
	var resp checkoutResponse
	if err := c.do(ctx, http.MethodPost, c.readerPath(readerID)+"/checkout", body, &resp); err != nil {
		c.logger.Error("cannot create reader checkout", "reader_id", readerID, "reference", reference, "error", err)
		return "", false
	}
	if resp.Data.ClientTransactionID == "" {
		c.logger.Error("reader checkout without transaction id", "reader_id", readerID, "reference", reference)
		return "", false
	}
	return resp.Data.ClientTransactionID, true
}

func (c *SumUpClient) PairReader(ctx context.Context, pairingCode, name string) (string, bool) {
	var resp pairResponse
	if err := c.do(ctx, http.MethodPost, c.readersPath(), pairRequest{PairingCode: pairingCode, Name: name}, &resp); err != nil {
		c.logger.Error("cannot pair reader", "name", name, "error", err)
		return "", false
	}
	if resp.ID == "" {
		return "", false
	}
	return resp.ID, true
}

func (c *SumUpClient) UnpairReader(ctx context.Context, readerID string) bool {
	if err := c.do(ctx, http.MethodDelete, c.readerPath(readerID), nil, nil); err != nil {
		c.logger.Error("cannot unpair reader", "reader_id", readerID, "error", err)
		return false
	}
	return true
}

func (c *SumUpClient) readersPath() string {
	return fmt.Sprintf("/v0.1/merchants/%s/readers", url.PathEscape(c.cfg.MerchantCode))
}

func (c *SumUpClient) readerPath(readerID string) string {
	return c.readersPath() + "/" + url.PathEscape(readerID)
}

func (c *SumUpClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request failed: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}
