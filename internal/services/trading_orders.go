package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/futurebot/internal/domain"
	"github.com/betbot/futurebot/pkg/sdk/binance"
)

const detailRule = "=================================================="

// PlaceMarketOrder 市价单
func (s *TradingService) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity decimal.Decimal) (*binance.Order, error) {
	return s.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     domain.OrderTypeMarket,
		Quantity: quantity,
	})
}

// PlaceLimitOrder 限价单（GTC）
func (s *TradingService) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, quantity, price decimal.Decimal) (*binance.Order, error) {
	return s.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Quantity:    quantity,
		Price:       price,
		TimeInForce: domain.TimeInForceGTC,
	})
}

// PlaceStopLimitOrder 止损限价单：触发价 stopPrice，触发后按 limitPrice 挂单
func (s *TradingService) PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.Side, quantity, stopPrice, limitPrice decimal.Decimal) (*binance.Order, error) {
	return s.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeStopLimit,
		Quantity:    quantity,
		Price:       limitPrice,
		StopPrice:   stopPrice,
		TimeInForce: domain.TimeInForceGTC,
	})
}

// PlaceOrder is the shared path behind the three order kinds.
func (s *TradingService) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*binance.Order, error) {
	req.Normalize()
	op := fmt.Sprintf("placing %s order", strings.ToLower(strings.ReplaceAll(string(req.Type), "_", "-")))

	if !s.symbolExists(ctx, req.Symbol) {
		err := &domain.ValidationError{Field: "symbol", Message: fmt.Sprintf("Invalid symbol: %s", req.Symbol)}
		s.logError(op, err)
		return nil, err
	}
	if err := req.Validate(); err != nil {
		s.logError(op, err)
		return nil, err
	}

	s.log.Info(req.Describe())
	if req.Type == domain.OrderTypeStopLimit {
		s.log.Infof("Stop Price: %s, Limit Price: %s", req.StopPrice, req.Price)
	}

	params := binance.OrderParams{
		Symbol:           req.Symbol,
		Side:             string(req.Side),
		Type:             req.Type.WireType(),
		TimeInForce:      string(req.TimeInForce),
		Quantity:         req.Quantity,
		ReduceOnly:       req.ReduceOnly,
		NewClientOrderID: req.ClientOrderID,
	}
	if req.Type != domain.OrderTypeMarket {
		params.Price = req.Price
	}
	if req.Type == domain.OrderTypeStopLimit {
		params.StopPrice = req.StopPrice
	}

	var (
		order *binance.Order
		err   error
	)
	if s.dryRun {
		order, err = s.api.TestOrder(ctx, params)
	} else {
		order, err = s.api.CreateOrder(ctx, params)
	}
	if err != nil {
		s.logError(op, err)
		return nil, err
	}

	s.logOrderDetails(order)
	return order, nil
}

// GetOpenOrders lists open orders; an empty symbol means all symbols.
func (s *TradingService) GetOpenOrders(ctx context.Context, symbol string) ([]binance.Order, error) {
	orders, err := s.api.OpenOrders(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		s.logError("getting open orders", err)
		return nil, err
	}
	s.log.Infof("Retrieved %d open orders", len(orders))
	return orders, nil
}

// GetOrder queries the current state of one order.
func (s *TradingService) GetOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || orderID <= 0 {
		err := &domain.ValidationError{Field: "order_id", Message: "Symbol and a positive order id are required"}
		s.logError("querying order", err)
		return nil, err
	}
	order, err := s.api.QueryOrder(ctx, symbol, orderID)
	if err != nil {
		s.logError("querying order", err)
		return nil, err
	}
	s.log.Infof("Order %d status: %s", order.OrderID, order.Status)
	return order, nil
}

// CancelOrder cancels one open order.
func (s *TradingService) CancelOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || orderID <= 0 {
		err := &domain.ValidationError{Field: "order_id", Message: "Symbol and a positive order id are required"}
		s.logError("cancelling order", err)
		return nil, err
	}
	order, err := s.api.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		s.logError("cancelling order", err)
		return nil, err
	}
	s.log.Infof("Order %d cancelled successfully", orderID)
	return order, nil
}

func (s *TradingService) logOrderDetails(order *binance.Order) {
	for _, line := range OrderDetailLines(order, s.dryRun) {
		s.log.Info(line)
	}
}

// OrderDetailLines renders the confirmation block logged after a placement.
func OrderDetailLines(order *binance.Order, dryRun bool) []string {
	title := "ORDER EXECUTED SUCCESSFULLY"
	if dryRun {
		title = "TEST ORDER ACCEPTED (NOT EXECUTED)"
	}
	price := "MARKET"
	if !order.Price.IsZero() {
		price = order.Price.String()
	}
	updated := "N/A"
	if t := order.UpdatedAt(); !t.IsZero() {
		updated = t.Format("2006-01-02 15:04:05.000")
	}

	lines := []string{
		detailRule,
		title,
		detailRule,
		fmt.Sprintf("Order ID: %d", order.OrderID),
		fmt.Sprintf("Symbol: %s", order.Symbol),
		fmt.Sprintf("Side: %s", order.Side),
		fmt.Sprintf("Type: %s", order.Type),
		fmt.Sprintf("Quantity: %s", order.OrigQty),
		fmt.Sprintf("Price: %s", price),
	}
	if !order.StopPrice.IsZero() {
		lines = append(lines, fmt.Sprintf("Stop Price: %s", order.StopPrice))
	}
	lines = append(lines,
		fmt.Sprintf("Status: %s", order.Status),
		fmt.Sprintf("Time: %s", updated),
		detailRule,
	)
	return lines
}
