package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseOrderTypeChoice maps the menu choice 1/2/3 to an order type.
func ParseOrderTypeChoice(choice string) (OrderType, error) {
	switch strings.TrimSpace(choice) {
	case "1":
		return OrderTypeMarket, nil
	case "2":
		return OrderTypeLimit, nil
	case "3":
		return OrderTypeStopLimit, nil
	}
	return "", invalid("type", "Invalid order type selected")
}

// ParseSideChoice maps the menu choice: "1" is BUY, anything else SELL.
func ParseSideChoice(choice string) Side {
	if strings.TrimSpace(choice) == "1" {
		return SideBuy
	}
	return SideSell
}

// ParseOrderType accepts flag spellings: market, limit, stop-limit, stop_limit.
func ParseOrderType(s string) (OrderType, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	switch OrderType(v) {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLimit:
		return OrderType(v), nil
	}
	if v == "STOP" {
		return OrderTypeStopLimit, nil
	}
	return "", invalid("type", fmt.Sprintf("Unsupported order type: %s", s))
}

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToUpper(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", invalid("side", "Side must be 'BUY' or 'SELL'")
	}
	return side, nil
}

// ParseAmount parses a quantity or price typed by the user.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid(field, fmt.Sprintf("%s is required", field))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(field, fmt.Sprintf("%s must be a number, got %q", field, s))
	}
	return d, nil
}
