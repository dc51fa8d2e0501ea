// Package daraja implements the payment.Provider interface against
// Safaricom's Daraja M-PESA API (STK push / Lipa na M-PESA Online).
//
// Authentication uses the OAuth client-credentials flow; tokens are cached
// until shortly before expiry. The STK password is the base64 of
// shortcode+passkey+timestamp, recomputed per request.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brainybay/assistant/pkg/provider/payment"
)

var _ payment.Provider = (*Client)(nil)

const (
	defaultBaseURL = "https://sandbox.safaricom.co.ke"
	defaultTimeout = 30 * time.Second

	// tokenSlack is subtracted from the advertised token lifetime so a token
	// is never used within moments of expiring.
	tokenSlack = 30 * time.Second

	// pendingErrorCode is Daraja's error code for "the payer has not
	// responded yet" on the query endpoint.
	pendingErrorCode = "500.001.1001"
)

// Config holds the Daraja credentials and merchant identity.
type Config struct {
	// ConsumerKey and ConsumerSecret are the app credentials from the Daraja
	// developer portal.
	ConsumerKey    string
	ConsumerSecret string

	// ShortCode is the merchant paybill or till number.
	ShortCode string

	// Passkey is the Lipa na M-PESA Online passkey for the short code.
	Passkey string

	// CallbackURL receives the asynchronous payment result. Daraja requires
	// it even when the caller polls instead.
	CallbackURL string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Primarily used in tests to point
// at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client implements payment.Provider against the Daraja API.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client

	// now is stubbed in tests so passwords and timestamps are deterministic.
	now func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Client with the given credentials.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("daraja: consumer key and secret must not be empty")
	}
	if cfg.ShortCode == "" || cfg.Passkey == "" {
		return nil, fmt.Errorf("daraja: short code and passkey must not be empty")
	}
	c := &Client{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ── Wire types ────────────────────────────────────────────────────────────────

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
}

type apiError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// ── payment.Provider ──────────────────────────────────────────────────────────

// RequestPayment implements payment.Provider by sending an STK push.
func (c *Client) RequestPayment(ctx context.Context, req payment.Request) (*payment.Acknowledgment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("daraja: amount must be positive, got %d", req.Amount)
	}
	msisdn, err := payment.NormalizeMSISDN(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	ts := c.now().Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	var resp stkPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		return nil, fmt.Errorf("daraja: stk push: %w", err)
	}
	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("daraja: stk push rejected: %s (%s)", resp.ResponseDescription, resp.ResponseCode)
	}

	desc := resp.CustomerMessage
	if desc == "" {
		desc = resp.ResponseDescription
	}
	return &payment.Acknowledgment{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Description:       desc,
	}, nil
}

// QueryPayment implements payment.Provider by polling the STK query endpoint.
// Daraja reports "not yet responded" as an HTTP error with a dedicated error
// code; that case maps to StatePending with a nil error.
func (c *Client) QueryPayment(ctx context.Context, checkoutRequestID string) (*payment.Result, error) {
	if checkoutRequestID == "" {
		return nil, fmt.Errorf("daraja: checkoutRequestID must not be empty")
	}

	ts := c.now().Format("20060102150405")
	body := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp stkQueryResponse
	err := c.post(ctx, "/mpesa/stkpushquery/v1/query", body, &resp)
	if err != nil {
		var ae *apiErrorError
		if errors.As(err, &ae) && ae.code == pendingErrorCode {
			return &payment.Result{State: payment.StatePending, Description: ae.message}, nil
		}
		return nil, fmt.Errorf("daraja: stk query: %w", err)
	}

	if resp.ResultCode == "0" {
		return &payment.Result{State: payment.StateSucceeded, Description: resp.ResultDesc}, nil
	}
	return &payment.Result{State: payment.StateFailed, Description: resp.ResultDesc}, nil
}

// password computes the Lipa na M-PESA Online password for a timestamp.
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

// ── HTTP plumbing ─────────────────────────────────────────────────────────────

// apiErrorError carries a structured Daraja error through the error chain.
type apiErrorError struct {
	status  int
	code    string
	message string
}

func (e *apiErrorError) Error() string {
	return fmt.Sprintf("status %d: %s (%s)", e.status, e.message, e.code)
}

// post performs an authenticated POST and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.ErrorCode != "" {
			return &apiErrorError{status: resp.StatusCode, code: ae.ErrorCode, message: ae.ErrorMessage}
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return json.Unmarshal(raw, out)
}

// accessToken returns a cached OAuth token, refreshing it when it is missing
// or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oauth: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("oauth: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("oauth: empty access token")
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenSlack)
	c.mu.Unlock()

	return tr.AccessToken, nil
}
