// Package kis implements the Broker capability against a Korea
// Investment-style REST API. Endpoint selection (practice vs live) follows
// the BROKER_PRACTICE configuration flag.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

const (
	// PracticeURL is the paper-trading environment.
	PracticeURL = "https://openapivts.koreainvestment.com:29443"
	// LiveURL is the real-money environment.
	LiveURL = "https://openapi.koreainvestment.com:9443"
)

func init() {
	broker.Register("kis", func(s broker.Settings) (broker.Broker, error) {
		if s.AppKey == "" || s.AppSecret == "" {
			return nil, fmt.Errorf("kis: app key and secret are required")
		}
		return NewClient(s.AppKey, s.AppSecret, s.Practice), nil
	})
}

// Client is a KIS REST API client.
type Client struct {
	baseURL    string
	appKey     string
	appSecret  string
	httpClient *http.Client
}

func NewClient(appKey, appSecret string, practice bool) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return &Client{
		baseURL:   baseURL,
		appKey:    appKey,
		appSecret: appSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiHolding struct {
	AssetID  string          `json:"asset_id"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

type apiBalance struct {
	AccountNo string          `json:"account_no"`
	Currency  string          `json:"currency"`
	Cash      decimal.Decimal `json:"cash"`
	Holdings  []apiHolding    `json:"holdings"`
	Time      time.Time       `json:"time"`
}

type apiQuote struct {
	AssetID string          `json:"asset_id"`
	Price   decimal.Decimal `json:"price"`
	Time    time.Time       `json:"time"`
}

type apiOrderRequest struct {
	AccountNo  string          `json:"account_no"`
	AssetID    string          `json:"asset_id"`
	Side       string          `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price,omitempty"`
}

type apiOrderResponse struct {
	OrderID  string          `json:"order_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     time.Time       `json:"time"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) GetBalance(ctx context.Context, accountNo string) (market.Balance, error) {
	var resp apiBalance
	path := fmt.Sprintf("/api/v1/accounts/%s/balance", accountNo)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return market.Balance{}, fmt.Errorf("get balance %s: %w", accountNo, err)
	}

	b := market.Balance{
		AccountID: resp.AccountNo,
		Currency:  resp.Currency,
		Cash:      resp.Cash,
		Time:      resp.Time,
	}
	for _, h := range resp.Holdings {
		b.Holdings = append(b.Holdings, market.Holding{
			AssetID:  h.AssetID,
			Quantity: h.Quantity,
			AvgPrice: h.AvgPrice,
		})
	}
	return b, nil
}

func (c *Client) GetPrice(ctx context.Context, assetID string) (market.Quote, error) {
	var resp apiQuote
	path := fmt.Sprintf("/api/v1/quotes/%s", assetID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return market.Quote{}, fmt.Errorf("get price %s: %w", assetID, err)
	}
	return market.Quote{AssetID: resp.AssetID, Price: resp.Price, Time: resp.Time}, nil
}

func (c *Client) PlaceOrder(ctx context.Context, intent broker.OrderIntent) (broker.OrderResult, error) {
	req := apiOrderRequest{
		AccountNo:  intent.AccountNo,
		AssetID:    intent.AssetID,
		Side:       intent.Side.String(),
		Quantity:   intent.Quantity,
		LimitPrice: intent.LimitPrice,
	}
	var resp apiOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &resp); err != nil {
		return broker.OrderResult{}, fmt.Errorf("place order %s %s: %w", intent.Side, intent.AssetID, err)
	}
	return broker.OrderResult{
		OrderID:   resp.OrderID,
		AccountID: intent.AccountID,
		AssetID:   intent.AssetID,
		Side:      intent.Side,
		Quantity:  resp.Quantity,
		Price:     resp.Price,
		Time:      resp.Time,
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/api/v1/orders/%s", orderID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// do runs one authenticated request and classifies failures: transport
// errors and 5xx/429 responses are retriable, 4xx order rejections are
// terminal RejectedErrors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appkey", c.appKey)
	req.Header.Set("appsecret", c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return broker.Retriable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return broker.Retriable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return broker.Retriable(fmt.Errorf("venue returned %d: %s", resp.StatusCode, data))
	case resp.StatusCode >= 400:
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return broker.Rejected(apiErr.Message)
		}
		return broker.Rejected(fmt.Sprintf("venue returned %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
