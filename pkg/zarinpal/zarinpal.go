// Package zarinpal is a small client for the ZarinPal v4 payment gateway.
package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Alijeyrad/counsel_backend/config"
)

var (
	ErrPaymentFailed      = errors.New("zarinpal: payment failed or cancelled by user")
	ErrValidation         = errors.New("zarinpal: validation error")
	ErrAmountMismatch     = errors.New("zarinpal: amount does not match original request")
	ErrInvalidAuthority   = errors.New("zarinpal: invalid authority")
	ErrAuthorityNotFound  = errors.New("zarinpal: authority not found")
	ErrUnexpectedResponse = errors.New("zarinpal: unexpected response from gateway")
)

const (
	productionURL = "https://payment.zarinpal.com/pg"
	sandboxURL    = "https://sandbox.zarinpal.com/pg"
)

type Client struct {
	merchantID  string
	callbackURL string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at another gateway root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client from config. Uses sandbox endpoints when cfg.Sandbox is true.
func New(cfg config.ZarinPalConfig, opts ...Option) *Client {
	c := &Client{
		merchantID:  cfg.MerchantID,
		callbackURL: cfg.CallbackURL,
		baseURL:     productionURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.Sandbox {
		c.baseURL = sandboxURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestBody struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	CallbackURL string `json:"callback_url"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

type envelope[T any] struct {
	Data   T   `json:"data"`
	Errors any `json:"errors"`
}

// Payment is an initiated gateway transaction.
type Payment struct {
	Authority string
	PayURL    string
}

// Verification is the gateway's answer to a verify call.
type Verification struct {
	RefID           int64
	CardPan         string
	AlreadyVerified bool
}

// RequestPayment initiates a payment of amount Rials.
func (c *Client) RequestPayment(ctx context.Context, amount int64, desc string) (*Payment, error) {
	var resp envelope[struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
		Message   string `json:"message"`
	}]

	body := requestBody{
		MerchantID:  c.merchantID,
		Amount:      amount,
		Currency:    "IRR",
		Description: desc,
		CallbackURL: c.callbackURL,
	}
	if err := c.post(ctx, "/v4/payment/request.json", body, &resp); err != nil {
		return nil, fmt.Errorf("zarinpal request: %w", err)
	}

	switch resp.Data.Code {
	case 100:
	case -9:
		return nil, ErrValidation
	default:
		return nil, fmt.Errorf("%w (code=%d, msg=%s)", ErrUnexpectedResponse, resp.Data.Code, resp.Data.Message)
	}
	if resp.Data.Authority == "" {
		return nil, ErrUnexpectedResponse
	}

	return &Payment{
		Authority: resp.Data.Authority,
		PayURL:    c.baseURL + "/StartPay/" + resp.Data.Authority,
	}, nil
}

// VerifyPayment confirms a payment after the user returns from the gateway.
// Code 101 means it was verified before and is reported as success.
func (c *Client) VerifyPayment(ctx context.Context, authority string, amount int64) (*Verification, error) {
	var resp envelope[struct {
		Code    int    `json:"code"`
		RefID   int64  `json:"ref_id"`
		CardPan string `json:"card_pan"`
		Message string `json:"message"`
	}]

	body := verifyBody{MerchantID: c.merchantID, Amount: amount, Authority: authority}
	if err := c.post(ctx, "/v4/payment/verify.json", body, &resp); err != nil {
		return nil, fmt.Errorf("zarinpal verify: %w", err)
	}

	switch resp.Data.Code {
	case 100, 101:
		return &Verification{
			RefID:           resp.Data.RefID,
			CardPan:         resp.Data.CardPan,
			AlreadyVerified: resp.Data.Code == 101,
		}, nil
	case -9:
		return nil, ErrValidation
	case -50:
		return nil, ErrAmountMismatch
	case -51:
		return nil, ErrPaymentFailed
	case -54:
		return nil, ErrInvalidAuthority
	case -55:
		return nil, ErrAuthorityNotFound
	default:
		return nil, fmt.Errorf("%w (code=%d, msg=%s)", ErrUnexpectedResponse, resp.Data.Code, resp.Data.Message)
	}
}

// post sends a JSON POST request to baseURL+path and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
