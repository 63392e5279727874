package kis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestClient points a client at a local stub venue.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "test-secret", true)
	c.baseURL = srv.URL
	return c
}

func TestGetBalanceMapsResponse(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/accounts/50012345/balance", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("appkey"))
		assert.Equal(t, "test-secret", r.Header.Get("appsecret"))
		json.NewEncoder(w).Encode(apiBalance{
			AccountNo: "50012345",
			Currency:  "KRW",
			Cash:      d("1000000"),
			Holdings: []apiHolding{
				{AssetID: "005930", Quantity: d("10"), AvgPrice: d("68000")},
			},
		})
	})

	bal, err := c.GetBalance(context.Background(), "50012345")
	require.NoError(t, err)
	assert.Equal(t, "50012345", bal.AccountID)
	assert.Equal(t, "KRW", bal.Currency)
	assert.True(t, bal.Cash.Equal(d("1000000")))
	require.Len(t, bal.Holdings, 1)
	assert.True(t, bal.Quantity("005930").Equal(d("10")))
}

func TestGetPriceMapsResponse(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quotes/005930", r.URL.Path)
		json.NewEncoder(w).Encode(apiQuote{AssetID: "005930", Price: d("70000")})
	})

	q, err := c.GetPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "005930", q.AssetID)
	assert.True(t, q.Price.Equal(d("70000")))
}

func TestPlaceOrderRoundtrip(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/orders", r.URL.Path)

		var req apiOrderRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "50012345", req.AccountNo)
		assert.Equal(t, "BUY", req.Side)
		assert.True(t, req.Quantity.Equal(d("10")))

		json.NewEncoder(w).Encode(apiOrderResponse{
			OrderID:  "ord-1",
			Quantity: req.Quantity,
			Price:    req.LimitPrice,
		})
	})

	res, err := c.PlaceOrder(context.Background(), broker.OrderIntent{
		AccountID:  "acct-1",
		AccountNo:  "50012345",
		AssetID:    "005930",
		Side:       market.Buy,
		Quantity:   d("10"),
		LimitPrice: d("70000"),
		RefPrice:   d("70000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, "acct-1", res.AccountID)
	assert.True(t, res.Price.Equal(d("70000")))
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/orders/ord-1", r.URL.Path)
	})

	assert.NoError(t, c.CancelOrder(context.Background(), "ord-1"))
}

func TestFailureClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		body      string
		retriable bool
		rejected  bool
		contains  string
	}{
		{"server error is retriable", http.StatusInternalServerError, "boom", true, false, "500"},
		{"bad gateway is retriable", http.StatusBadGateway, "", true, false, "502"},
		{"rate limit is retriable", http.StatusTooManyRequests, "", true, false, "429"},
		{"rejection carries the venue message", http.StatusBadRequest,
			`{"code":"APBK0013","message":"insufficient funds"}`, false, true, "insufficient funds"},
		{"opaque client error is still a rejection", http.StatusNotFound, "not json", false, true, "404"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := c.GetPrice(context.Background(), "005930")
			require.Error(t, err)
			assert.Equal(t, tc.retriable, broker.IsRetriable(err), "retriable: %v", err)
			assert.Equal(t, tc.rejected, broker.IsRejected(err), "rejected: %v", err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestTransportFailureIsRetriable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := NewClient("test-key", "test-secret", true)
	c.baseURL = srv.URL
	srv.Close() // connection refused from here on

	_, err := c.GetPrice(context.Background(), "005930")
	require.Error(t, err)
	assert.True(t, broker.IsRetriable(err), "got %v", err)
}

func TestEndpointSelection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PracticeURL, NewClient("k", "s", true).baseURL)
	assert.Equal(t, LiveURL, NewClient("k", "s", false).baseURL)
}

func TestRegistryRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := broker.New("kis", broker.Settings{})
	assert.Error(t, err)

	b, err := broker.New("kis", broker.Settings{AppKey: "k", AppSecret: "s", Practice: true})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, b)
}
