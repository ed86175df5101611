package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-api-key"
	testSecret = "test-api-secret"
)

// fakeExchange records the last request and replies with a canned body.
type fakeExchange struct {
	t       *testing.T
	routes  map[string]func(w http.ResponseWriter, r *http.Request)
	lastReq *http.Request
}

func newFakeExchange(t *testing.T) (*fakeExchange, *Client) {
	t.Helper()
	fx := &fakeExchange{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fx.lastReq = r
		h, ok := fx.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":-5000,"msg":"no route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL, APIKey: testKey, APISecret: testSecret, RecvWindow: 6000, Timeout: 2 * time.Second})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return fx, c
}

func (fx *fakeExchange) handle(route, body string) {
	fx.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

// assertSigned checks the signature covers everything before &signature=.
func assertSigned(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	raw := r.URL.RawQuery
	idx := strings.LastIndex(raw, "&signature=")
	require.Greater(t, idx, 0, "missing signature in %q", raw)
	payload, sig := raw[:idx], raw[idx+len("&signature="):]

	assert.Equal(t, NewSigner(testSecret).Sign(payload), sig)
	assert.Equal(t, testKey, r.Header.Get("X-MBX-APIKEY"))

	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	assert.Equal(t, "6000", q.Get("recvWindow"))
	assert.Equal(t, "1700000000000", q.Get("timestamp"))
	return q
}

func TestCreateOrderLimit(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("POST "+EndpointOrder, `{"orderId":42,"symbol":"BTCUSDT","status":"NEW","clientOrderId":"abc",
		"price":"30000.10","avgPrice":"0.00","origQty":"0.010","executedQty":"0","type":"LIMIT","side":"BUY",
		"timeInForce":"GTC","stopPrice":"0","updateTime":1700000000123}`)

	order, err := c.CreateOrder(context.Background(), OrderParams{
		Symbol:      "btcusdt",
		Side:        SideBuy,
		Type:        TypeLimit,
		TimeInForce: TimeInForceGTC,
		Quantity:    decimal.RequireFromString("0.010"),
		Price:       decimal.RequireFromString("30000.1"),
	})
	require.NoError(t, err)

	q := assertSigned(t, fx.lastReq)
	assert.Equal(t, "BTCUSDT", q.Get("symbol"))
	assert.Equal(t, "BUY", q.Get("side"))
	assert.Equal(t, "LIMIT", q.Get("type"))
	assert.Equal(t, "GTC", q.Get("timeInForce"))
	assert.Equal(t, "0.01", q.Get("quantity"))
	assert.Equal(t, "30000.1", q.Get("price"))
	assert.Empty(t, q.Get("stopPrice"))
	assert.True(t, strings.HasPrefix(q.Get("newClientOrderId"), "fb-"))

	assert.Equal(t, int64(42), order.OrderID)
	assert.Equal(t, "NEW", order.Status)
	assert.True(t, order.OrigQty.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, time.UnixMilli(1700000000123), order.UpdatedAt())
}

func TestCreateOrderStopCarriesStopPrice(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("POST "+EndpointOrder, `{"orderId":7,"symbol":"ETHUSDT","status":"NEW","type":"STOP","side":"SELL"}`)

	_, err := c.CreateOrder(context.Background(), OrderParams{
		Symbol:           "ETHUSDT",
		Side:             SideSell,
		Type:             TypeStop,
		TimeInForce:      TimeInForceGTC,
		Quantity:         decimal.NewFromInt(1),
		Price:            decimal.NewFromInt(1900),
		StopPrice:        decimal.NewFromInt(1950),
		NewClientOrderID: "my-id",
	})
	require.NoError(t, err)

	q := assertSigned(t, fx.lastReq)
	assert.Equal(t, "STOP", q.Get("type"))
	assert.Equal(t, "1900", q.Get("price"))
	assert.Equal(t, "1950", q.Get("stopPrice"))
	assert.Equal(t, "my-id", q.Get("newClientOrderId"))
}

func TestCreateOrderAPIError(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.routes["POST "+EndpointOrder] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	}

	_, err := c.CreateOrder(context.Background(), OrderParams{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Quantity: decimal.NewFromInt(100)})
	require.Error(t, err)

	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, CodeInsufficientMargin, apiErr.Code)
	assert.Equal(t, "Margin is insufficient.", apiErr.Message)
}

func TestCreateOrderRequiresSymbol(t *testing.T) {
	_, c := newFakeExchange(t)
	_, err := c.CreateOrder(context.Background(), OrderParams{Side: SideBuy, Type: TypeMarket})
	assert.Error(t, err)
}

func TestTestOrderSynthesisesResult(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("POST "+EndpointTestOrder, `{}`)

	order, err := c.TestOrder(context.Background(), OrderParams{
		Symbol: "btcusdt", Side: SideSell, Type: TypeMarket, Quantity: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	assertSigned(t, fx.lastReq)

	assert.Equal(t, "TEST", order.Status)
	assert.Equal(t, "BTCUSDT", order.Symbol)
	assert.Equal(t, "SELL", order.Side)
	assert.True(t, order.OrigQty.Equal(decimal.RequireFromString("0.5")))
}

func TestOpenOrders(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("GET "+EndpointOpenOrders, `[{"orderId":1,"symbol":"BTCUSDT"},{"orderId":2,"symbol":"BTCUSDT"}]`)

	orders, err := c.OpenOrders(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	q := assertSigned(t, fx.lastReq)
	assert.Equal(t, "BTCUSDT", q.Get("symbol"))

	_, err = c.OpenOrders(context.Background(), "")
	require.NoError(t, err)
	q = assertSigned(t, fx.lastReq)
	assert.False(t, q.Has("symbol"))
}

func TestQueryAndCancelOrder(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("GET "+EndpointOrder, `{"orderId":9,"symbol":"BTCUSDT","status":"PARTIALLY_FILLED"}`)
	fx.handle("DELETE "+EndpointOrder, `{"orderId":9,"symbol":"BTCUSDT","status":"CANCELED"}`)

	order, err := c.QueryOrder(context.Background(), "btcusdt", 9)
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_FILLED", order.Status)
	q := assertSigned(t, fx.lastReq)
	assert.Equal(t, "9", q.Get("orderId"))

	order, err = c.CancelOrder(context.Background(), "BTCUSDT", 9)
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", order.Status)
	assert.Equal(t, http.MethodDelete, fx.lastReq.Method)
}

func TestAccountAndExchangeInfo(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("GET "+EndpointAccount, `{"totalWalletBalance":"15000.50","canTrade":true,"assets":[{"asset":"USDT","walletBalance":"15000.50"}]}`)
	fx.handle("GET "+EndpointExchangeInfo, `{"symbols":[{"symbol":"BTCUSDT","status":"TRADING"},{"symbol":"ETHUSDT","status":"TRADING"}]}`)

	acct, err := c.Account(context.Background())
	require.NoError(t, err)
	assertSigned(t, fx.lastReq)
	require.True(t, acct.TotalWalletBalance.Valid)
	assert.Equal(t, "15000.5", acct.TotalWalletBalance.Decimal.String())

	info, err := c.ExchangeInfo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fx.lastReq.URL.Query().Get("signature"))
	assert.True(t, info.HasSymbol("btcusdt"))
	assert.False(t, info.HasSymbol("DOGEUSDT"))
}

func TestSyncTimeAppliesOffset(t *testing.T) {
	fx, c := newFakeExchange(t)
	fx.handle("GET "+EndpointTime, `{"serverTime":1700000002500}`)
	fx.handle("GET "+EndpointAccount, `{}`)

	offset, err := c.SyncTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, offset)

	_, err = c.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1700000002500", fx.lastReq.URL.Query().Get("timestamp"))
}

func TestPingNotFoundIsAPIError(t *testing.T) {
	_, c := newFakeExchange(t)
	err := c.Ping(context.Background())
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no route", apiErr.Message)
}

func TestNewClientOrderIDLength(t *testing.T) {
	id := NewClientOrderID()
	assert.LessOrEqual(t, len(id), 36)
	assert.NotEqual(t, id, NewClientOrderID())
}
