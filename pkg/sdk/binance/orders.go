package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/betbot/futurebot/pkg/ratelimit"
)

// clientOrderIDPrefix marks orders placed by this tool.
const clientOrderIDPrefix = "fb-"

// NewClientOrderID returns a unique id within the exchange's 36 char limit.
func NewClientOrderID() string {
	return clientOrderIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:32]
}

// Values encodes the params; zero decimals and empty strings are left out.
func (p OrderParams) Values() url.Values {
	v := url.Values{}
	v.Set("symbol", strings.ToUpper(p.Symbol))
	v.Set("side", strings.ToUpper(p.Side))
	v.Set("type", strings.ToUpper(p.Type))
	if p.TimeInForce != "" {
		v.Set("timeInForce", p.TimeInForce)
	}
	if !p.Quantity.IsZero() {
		v.Set("quantity", p.Quantity.String())
	}
	if !p.Price.IsZero() {
		v.Set("price", p.Price.String())
	}
	if !p.StopPrice.IsZero() {
		v.Set("stopPrice", p.StopPrice.String())
	}
	if p.ReduceOnly {
		v.Set("reduceOnly", "true")
	}
	if p.NewClientOrderID != "" {
		v.Set("newClientOrderId", p.NewClientOrderID)
	}
	return v
}

func (p *OrderParams) check() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return errors.New("order params: symbol is required")
	}
	if p.Side == "" || p.Type == "" {
		return errors.New("order params: side and type are required")
	}
	if p.NewClientOrderID == "" {
		p.NewClientOrderID = NewClientOrderID()
	}
	return nil
}

// CreateOrder places a new order.
func (c *Client) CreateOrder(ctx context.Context, p OrderParams) (*Order, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	var order Order
	if err := c.signed(ctx, http.MethodPost, EndpointOrder, p.Values(), &order, ratelimit.GroupOrder); err != nil {
		return nil, err
	}
	return &order, nil
}

// TestOrder validates an order on the exchange without sending it to the
// matching engine. The exchange returns an empty object, so the result is
// synthesised from the params with status "TEST".
func (c *Client) TestOrder(ctx context.Context, p OrderParams) (*Order, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if err := c.signed(ctx, http.MethodPost, EndpointTestOrder, p.Values(), nil, ratelimit.GroupOrder); err != nil {
		return nil, err
	}
	return &Order{
		Symbol:        strings.ToUpper(p.Symbol),
		Status:        "TEST",
		ClientOrderID: p.NewClientOrderID,
		Price:         p.Price,
		OrigQty:       p.Quantity,
		TimeInForce:   p.TimeInForce,
		Type:          strings.ToUpper(p.Type),
		Side:          strings.ToUpper(p.Side),
		StopPrice:     p.StopPrice,
		ReduceOnly:    p.ReduceOnly,
		UpdateTime:    c.timestamp(),
	}, nil
}

// OpenOrders lists open orders, for one symbol or (empty symbol) all symbols.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	params := url.Values{}
	if s := strings.TrimSpace(symbol); s != "" {
		params.Set("symbol", strings.ToUpper(s))
	}
	var orders []Order
	if err := c.signed(ctx, http.MethodGet, EndpointOpenOrders, params, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// QueryOrder fetches one order by exchange id.
func (c *Client) QueryOrder(ctx context.Context, symbol string, orderID int64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(strings.TrimSpace(symbol)))
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	var order Order
	if err := c.signed(ctx, http.MethodGet, EndpointOrder, params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels one open order and returns its final state.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(strings.TrimSpace(symbol)))
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	var order Order
	if err := c.signed(ctx, http.MethodDelete, EndpointOrder, params, &order, ratelimit.GroupOrder); err != nil {
		return nil, err
	}
	return &order, nil
}
