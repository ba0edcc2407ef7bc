// Package gateway talks to an epay-style payment gateway: signed outbound
// order creation and query, plus signature verification for the inbound
// settlement callbacks.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/types"
)

// Config holds merchant credentials and endpoints.
type Config struct {
	// Endpoint is the gateway base URL, e.g. "https://pay.example.com".
	Endpoint string
	// PID is the merchant id assigned by the gateway.
	PID string
	// Secret is the shared secret for the MD5 scheme.
	Secret string
	// PrivateKeyPEM and GatewayPublicKeyPEM configure the RSA scheme.
	PrivateKeyPEM       string
	GatewayPublicKeyPEM string
	// SignType selects between MD5 and RSA. Defaults to MD5.
	SignType SignType
	// NotifyURL receives the asynchronous settlement callback.
	NotifyURL string
	// ReturnURL is where the payer's browser lands after paying.
	ReturnURL string
	// Device defaults to "pc".
	Device string
	// Timeout bounds each HTTP call. Defaults to 10s.
	Timeout time.Duration
}

// OrderRequest describes one payment order to create.
type OrderRequest struct {
	// BusinessID becomes the gateway's out_trade_no.
	BusinessID string
	// PayType is the gateway payment-method enum (e.g. "alipay", "wxpay").
	PayType string
	// Subject is the human-readable order name.
	Subject string
	// Amount is the price in local currency, rendered at two decimals.
	Amount decimal.Decimal
	// ClientIP is the payer's address.
	ClientIP string
}

// Order is the gateway's response to order creation.
type Order struct {
	TradeNo string `json:"trade_no"`
	PayURL  string `json:"payurl"`
	QRCode  string `json:"qrcode"`
}

// OrderStatus is the gateway's view of an existing order.
type OrderStatus struct {
	TradeNo     string `json:"trade_no"`
	OutTradeNo  string `json:"out_trade_no"`
	TradeStatus string `json:"status"`
	Money       string `json:"money"`
}

// Settled reports whether the gateway considers the order paid.
func (s OrderStatus) Settled() bool { return s.TradeStatus == "1" }

// Client is the HTTP client for the gateway API.
type Client struct {
	cfg    Config
	signer Signer
	http   *http.Client
}

// NewClient builds a gateway client from config, choosing the signer from
// cfg.SignType.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("gateway: endpoint is required")
	}
	if cfg.PID == "" {
		return nil, fmt.Errorf("gateway: merchant pid is required")
	}
	if cfg.Device == "" {
		cfg.Device = "pc"
	}
	if cfg.SignType == "" {
		cfg.SignType = SignMD5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var signer Signer
	switch cfg.SignType {
	case SignMD5:
		if cfg.Secret == "" {
			return nil, fmt.Errorf("gateway: secret is required for MD5 signing")
		}
		signer = NewMD5Signer(cfg.Secret)
	case SignRSA:
		s, err := NewRSASigner(cfg.PrivateKeyPEM, cfg.GatewayPublicKeyPEM)
		if err != nil {
			return nil, err
		}
		signer = s
	default:
		return nil, fmt.Errorf("gateway: unsupported sign type %q", cfg.SignType)
	}

	return &Client{
		cfg:    cfg,
		signer: signer,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Signer exposes the client's signer for inbound verification.
func (c *Client) Signer() Signer { return c.signer }

// PID returns the merchant id, for cross-checking inbound callbacks.
func (c *Client) PID() string { return c.cfg.PID }

// CreateOrder submits a signed order-creation request and returns the
// payment handle the caller should present to the payer.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.BusinessID == "" {
		return nil, fmt.Errorf("gateway: business id is required")
	}
	params := url.Values{}
	params.Set("pid", c.cfg.PID)
	params.Set("device", c.cfg.Device)
	params.Set("type", req.PayType)
	params.Set("out_trade_no", req.BusinessID)
	params.Set("notify_url", c.cfg.NotifyURL)
	params.Set("return_url", c.cfg.ReturnURL)
	params.Set("name", req.Subject)
	params.Set("money", types.FormatAmount(req.Amount))
	params.Set("clientip", req.ClientIP)
	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	sign, err := c.signer.Sign(params)
	if err != nil {
		return nil, err
	}
	params.Set("sign", sign)
	params.Set("sign_type", string(c.signer.Type()))

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Order
	}
	if err := c.post(ctx, "/mapi.php", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("gateway: order creation rejected: %s (code %d)", resp.Msg, resp.Code)
	}
	return &resp.Order, nil
}

// QueryOrder fetches the gateway-side status of an order by businessID.
func (c *Client) QueryOrder(ctx context.Context, businessID string) (*OrderStatus, error) {
	params := url.Values{}
	params.Set("act", "order")
	params.Set("pid", c.cfg.PID)
	params.Set("key", c.cfg.Secret)
	params.Set("out_trade_no", businessID)

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		OrderStatus
	}
	if err := c.get(ctx, "/api.php", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("gateway: order query failed: %s (code %d)", resp.Msg, resp.Code)
	}
	return &resp.OrderStatus, nil
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Endpoint+path, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.Endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: unexpected status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}
