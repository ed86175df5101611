package binance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wire values for order fields.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
	TypeStop   = "STOP" // stop-limit: price + stopPrice

	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
	TimeInForceGTX = "GTX"
)

// OrderParams is the request body of POST /fapi/v1/order.
// Zero decimals are omitted from the request.
type OrderParams struct {
	Symbol           string
	Side             string
	Type             string
	TimeInForce      string
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	StopPrice        decimal.Decimal
	ReduceOnly       bool
	NewClientOrderID string
}

// Order mirrors the exchange's order object.
type Order struct {
	OrderID       int64           `json:"orderId"`
	Symbol        string          `json:"symbol"`
	Status        string          `json:"status"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	CumQuote      decimal.Decimal `json:"cumQuote"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	OrigType      string          `json:"origType"`
	ReduceOnly    bool            `json:"reduceOnly"`
	Side          string          `json:"side"`
	PositionSide  string          `json:"positionSide"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	Time          int64           `json:"time"`
	UpdateTime    int64           `json:"updateTime"`
}

// UpdatedAt converts the millisecond update time; zero when absent.
func (o *Order) UpdatedAt() time.Time {
	if o == nil || o.UpdateTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(o.UpdateTime)
}

// Asset is one entry of the account's asset list.
type Asset struct {
	Asset            string          `json:"asset"`
	WalletBalance    decimal.Decimal `json:"walletBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
}

// Account is the subset of GET /fapi/v2/account the bot reads.
type Account struct {
	TotalWalletBalance    decimal.NullDecimal `json:"totalWalletBalance"`
	TotalUnrealizedProfit decimal.NullDecimal `json:"totalUnrealizedProfit"`
	AvailableBalance      decimal.NullDecimal `json:"availableBalance"`
	CanTrade              bool                `json:"canTrade"`
	Assets                []Asset             `json:"assets"`
}

// SymbolInfo is one tradable contract from exchange info.
type SymbolInfo struct {
	Symbol            string `json:"symbol"`
	Pair              string `json:"pair"`
	ContractType      string `json:"contractType"`
	Status            string `json:"status"`
	BaseAsset         string `json:"baseAsset"`
	QuoteAsset        string `json:"quoteAsset"`
	PricePrecision    int    `json:"pricePrecision"`
	QuantityPrecision int    `json:"quantityPrecision"`
}

type ExchangeInfo struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// HasSymbol reports whether symbol is listed (case-insensitive).
func (e *ExchangeInfo) HasSymbol(symbol string) bool {
	if e == nil {
		return false
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range e.Symbols {
		if s.Symbol == symbol {
			return true
		}
	}
	return false
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}
