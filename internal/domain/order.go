package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// WireType is the exchange's name for the type. A stop-limit is sent as STOP
// carrying both price and stopPrice.
func (t OrderType) WireType() string {
	if t == OrderTypeStopLimit {
		return "STOP"
	}
	return string(t)
}

// TimeInForce 有效期
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceGTX TimeInForce = "GTX" // post-only
)

// OrderRequest 下单参数（交易所之外的唯一订单模型）
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal // limit price for LIMIT and STOP_LIMIT
	StopPrice     decimal.Decimal // trigger for STOP_LIMIT
	TimeInForce   TimeInForce     // defaults to GTC for priced orders
	ReduceOnly    bool
	ClientOrderID string
}

// ValidationError is returned for input the exchange would reject anyway.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Normalize upper-cases symbol and side and fills the default time in force.
func (r *OrderRequest) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = Side(strings.ToUpper(strings.TrimSpace(string(r.Side))))
	r.Type = OrderType(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	if r.Type != OrderTypeMarket && r.TimeInForce == "" {
		r.TimeInForce = TimeInForceGTC
	}
	if r.Type == OrderTypeMarket {
		r.TimeInForce = ""
	}
}

// Validate checks the request after Normalize.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return invalid("symbol", "Symbol is required")
	}
	if !r.Side.Valid() {
		return invalid("side", "Side must be 'BUY' or 'SELL'")
	}

	positive := func(d decimal.Decimal) bool { return d.IsPositive() }

	switch r.Type {
	case OrderTypeMarket:
		if !positive(r.Quantity) {
			return invalid("quantity", "Quantity must be positive")
		}
	case OrderTypeLimit:
		if !positive(r.Quantity) || !positive(r.Price) {
			return invalid("price", "Quantity and price must be positive")
		}
	case OrderTypeStopLimit:
		if !positive(r.Quantity) || !positive(r.StopPrice) || !positive(r.Price) {
			return invalid("stop_price", "Quantity, stop price, and limit price must be positive")
		}
	default:
		return invalid("type", fmt.Sprintf("Unsupported order type: %s", r.Type))
	}

	switch r.TimeInForce {
	case "", TimeInForceGTC, TimeInForceIOC, TimeInForceFOK, TimeInForceGTX:
	default:
		return invalid("time_in_force", fmt.Sprintf("Unsupported time in force: %s", r.TimeInForce))
	}
	return nil
}

// Describe renders the one-line intent that is logged before submission.
func (r *OrderRequest) Describe() string {
	switch r.Type {
	case OrderTypeLimit:
		return fmt.Sprintf("Placing LIMIT %s order for %s %s at %s", r.Side, r.Quantity, r.Symbol, r.Price)
	default:
		return fmt.Sprintf("Placing %s %s order for %s %s", r.Type, r.Side, r.Quantity, r.Symbol)
	}
}
