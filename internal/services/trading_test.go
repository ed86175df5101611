package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/futurebot/internal/domain"
	"github.com/betbot/futurebot/pkg/sdk/binance"
)

type fakeAPI struct {
	account    *binance.Account
	accountErr error
	infoErr    error
	orderErr   error
	symbols    []string

	created []binance.OrderParams
	tested  []binance.OrderParams
	opened  []string
	queried []int64
	cancels []int64
}

func (f *fakeAPI) Account(ctx context.Context) (*binance.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeAPI) ExchangeInfo(ctx context.Context) (*binance.ExchangeInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := &binance.ExchangeInfo{}
	for _, s := range f.symbols {
		info.Symbols = append(info.Symbols, binance.SymbolInfo{Symbol: s, Status: "TRADING"})
	}
	return info, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, p binance.OrderParams) (*binance.Order, error) {
	f.created = append(f.created, p)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &binance.Order{
		OrderID:    42,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Type:       p.Type,
		Status:     "NEW",
		OrigQty:    p.Quantity,
		Price:      p.Price,
		StopPrice:  p.StopPrice,
		UpdateTime: 1700000000000,
	}, nil
}

func (f *fakeAPI) TestOrder(ctx context.Context, p binance.OrderParams) (*binance.Order, error) {
	f.tested = append(f.tested, p)
	return &binance.Order{Symbol: p.Symbol, Side: p.Side, Type: p.Type, Status: "TEST", OrigQty: p.Quantity}, nil
}

func (f *fakeAPI) OpenOrders(ctx context.Context, symbol string) ([]binance.Order, error) {
	f.opened = append(f.opened, symbol)
	return []binance.Order{{OrderID: 1}, {OrderID: 2}}, nil
}

func (f *fakeAPI) QueryOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error) {
	f.queried = append(f.queried, orderID)
	return &binance.Order{OrderID: orderID, Symbol: symbol, Status: "FILLED"}, nil
}

func (f *fakeAPI) CancelOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error) {
	f.cancels = append(f.cancels, orderID)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &binance.Order{OrderID: orderID, Symbol: symbol, Status: "CANCELED"}, nil
}

func newFake() *fakeAPI {
	return &fakeAPI{
		account: &binance.Account{TotalWalletBalance: decimal.NewNullDecimal(decimal.RequireFromString("15000.5"))},
		symbols: []string{"BTCUSDT", "ETHUSDT"},
	}
}

func newService(t *testing.T, api FuturesAPI, dryRun bool) (*TradingService, *logtest.Hook) {
	t.Helper()
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	s, err := NewTradingService(context.Background(), api, Options{Testnet: true, DryRun: dryRun, Logger: logrus.NewEntry(l)})
	require.NoError(t, err)
	return s, hook
}

func messages(hook *logtest.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestNewTradingService_LogsBalance(t *testing.T) {
	s, hook := newService(t, newFake(), false)

	msgs := messages(hook)
	assert.Contains(t, msgs, "Bot initialized successfully")
	assert.Contains(t, msgs, "Using TESTNET environment")
	assert.Contains(t, msgs, "Connection successful")
	assert.Contains(t, msgs, "Account balance: 15000.5 USDT")
	assert.Equal(t, "TESTNET", s.EnvironmentName())
	assert.False(t, s.DryRun())
}

func TestNewTradingService_MissingBalance(t *testing.T) {
	api := newFake()
	api.account = &binance.Account{}
	_, hook := newService(t, api, false)
	assert.Contains(t, messages(hook), "Account balance: N/A USDT")
}

func TestNewTradingService_ConnectionFailure(t *testing.T) {
	api := newFake()
	api.accountErr = &binance.APIError{StatusCode: 401, Code: -2015, Message: "Invalid API-key"}

	l, hook := logtest.NewNullLogger()
	s, err := NewTradingService(context.Background(), api, Options{Logger: logrus.NewEntry(l)})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrConnection))
	_, ok := binance.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestPlaceMarketOrder(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)

	order, err := s.PlaceMarketOrder(context.Background(), "btcusdt", domain.SideBuy, decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.OrderID)

	require.Len(t, api.created, 1)
	p := api.created[0]
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, "MARKET", p.Type)
	assert.Empty(t, p.TimeInForce)
	assert.True(t, p.Price.IsZero())

	msgs := messages(hook)
	assert.Contains(t, msgs, "Placing MARKET BUY order for 0.01 BTCUSDT")
	assert.Contains(t, msgs, "ORDER EXECUTED SUCCESSFULLY")
	assert.Contains(t, msgs, "Price: MARKET")
	assert.Contains(t, msgs, "Status: NEW")
}

func TestPlaceLimitOrder(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)

	_, err := s.PlaceLimitOrder(context.Background(), "ETHUSDT", domain.SideSell, decimal.RequireFromString("1"), decimal.RequireFromString("2500.5"))
	require.NoError(t, err)

	p := api.created[0]
	assert.Equal(t, "LIMIT", p.Type)
	assert.Equal(t, "GTC", p.TimeInForce)
	assert.Equal(t, "2500.5", p.Price.String())

	msgs := messages(hook)
	assert.Contains(t, msgs, "Placing LIMIT SELL order for 1 ETHUSDT at 2500.5")
	assert.Contains(t, msgs, "Price: 2500.5")
}

func TestPlaceStopLimitOrder(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)

	_, err := s.PlaceStopLimitOrder(context.Background(), "BTCUSDT", domain.SideBuy,
		decimal.RequireFromString("0.5"), decimal.RequireFromString("31000"), decimal.RequireFromString("31100"))
	require.NoError(t, err)

	p := api.created[0]
	assert.Equal(t, "STOP", p.Type)
	assert.Equal(t, "GTC", p.TimeInForce)
	assert.Equal(t, "31100", p.Price.String())
	assert.Equal(t, "31000", p.StopPrice.String())

	msgs := messages(hook)
	assert.Contains(t, msgs, "Stop Price: 31000, Limit Price: 31100")
	assert.Contains(t, msgs, "Stop Price: 31000")
}

func TestPlaceOrder_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  domain.OrderRequest
		msg  string
	}{
		{"unknown symbol", domain.OrderRequest{Symbol: "DOGEUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.NewFromInt(1)}, "Invalid symbol: DOGEUSDT"},
		{"zero quantity", domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket}, "Quantity must be positive"},
		{"bad side", domain.OrderRequest{Symbol: "BTCUSDT", Side: "LONG", Type: domain.OrderTypeMarket, Quantity: decimal.NewFromInt(1)}, "Side must be 'BUY' or 'SELL'"},
		{"limit without price", domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeLimit, Quantity: decimal.NewFromInt(1)}, "Quantity and price must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFake()
			s, hook := newService(t, api, false)

			order, err := s.PlaceOrder(context.Background(), tc.req)
			require.Error(t, err)
			assert.Nil(t, order)
			assert.Equal(t, tc.msg, err.Error())
			var ve *domain.ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Empty(t, api.created)
			assert.True(t, strings.HasPrefix(hook.LastEntry().Message, "Error placing"))
		})
	}
}

func TestPlaceOrder_ExchangeInfoFailure(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)
	api.infoErr = errors.New("dial tcp: timeout")

	_, err := s.PlaceMarketOrder(context.Background(), "BTCUSDT", domain.SideBuy, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Equal(t, "Invalid symbol: BTCUSDT", err.Error())
	assert.Contains(t, messages(hook), "Symbol validation failed: dial tcp: timeout")
}

func TestPlaceOrder_APIError(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)
	api.orderErr = &binance.APIError{StatusCode: 400, Code: binance.CodeInsufficientMargin, Message: "Margin is insufficient."}

	_, err := s.PlaceMarketOrder(context.Background(), "BTCUSDT", domain.SideSell, decimal.NewFromInt(3))
	require.Error(t, err)
	apiErr, ok := binance.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, binance.CodeInsufficientMargin, apiErr.Code)

	last := hook.LastEntry()
	assert.Equal(t, "Binance API Error: 400 - Margin is insufficient.", last.Message)
	assert.Equal(t, binance.CodeInsufficientMargin, last.Data["code"])
}

func TestPlaceOrder_DryRun(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, true)

	order, err := s.PlaceMarketOrder(context.Background(), "BTCUSDT", domain.SideBuy, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "TEST", order.Status)
	assert.Empty(t, api.created)
	assert.Len(t, api.tested, 1)
	assert.Contains(t, messages(hook), "TEST ORDER ACCEPTED (NOT EXECUTED)")
}

func TestOrderQueries(t *testing.T) {
	api := newFake()
	s, hook := newService(t, api, false)
	ctx := context.Background()

	orders, err := s.GetOpenOrders(ctx, " btcusdt")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, []string{"BTCUSDT"}, api.opened)
	assert.Contains(t, messages(hook), "Retrieved 2 open orders")

	order, err := s.GetOrder(ctx, "BTCUSDT", 7)
	require.NoError(t, err)
	assert.Equal(t, "FILLED", order.Status)

	cancelled, err := s.CancelOrder(ctx, "btcusdt", 7)
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", cancelled.Status)
	assert.Equal(t, "Order 7 cancelled successfully", hook.LastEntry().Message)

	_, err = s.CancelOrder(ctx, "BTCUSDT", 0)
	assert.Error(t, err)
	assert.Equal(t, []int64{7}, api.cancels)

	balance, err := s.AccountBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "15000.5", balance)
}

func TestOrderDetailLines(t *testing.T) {
	lines := OrderDetailLines(&binance.Order{OrderID: 9, Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET", Status: "FILLED", OrigQty: decimal.NewFromInt(2)}, false)
	assert.Equal(t, detailRule, lines[0])
	assert.Equal(t, "ORDER EXECUTED SUCCESSFULLY", lines[1])
	assert.Contains(t, lines, "Order ID: 9")
	assert.Contains(t, lines, "Quantity: 2")
	assert.Contains(t, lines, "Price: MARKET")
	assert.Contains(t, lines, "Time: N/A")
	assert.Equal(t, detailRule, lines[len(lines)-1])
}
