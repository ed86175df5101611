package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/betbot/futurebot/pkg/sdk/binance"
)

var log = logrus.WithField("component", "trading_service")

// FuturesAPI is the exchange session the service drives. *binance.Client
// satisfies it; tests use a fake.
type FuturesAPI interface {
	Account(ctx context.Context) (*binance.Account, error)
	ExchangeInfo(ctx context.Context) (*binance.ExchangeInfo, error)
	CreateOrder(ctx context.Context, p binance.OrderParams) (*binance.Order, error)
	TestOrder(ctx context.Context, p binance.OrderParams) (*binance.Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]binance.Order, error)
	QueryOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error)
}

// Options 交易服务配置
type Options struct {
	Testnet bool
	DryRun  bool // 走 /order/test，不进入撮合
	Logger  *logrus.Entry
}

// TradingService wraps one exchange session. Every method validates its
// input, issues one synchronous call, then logs and returns the result.
type TradingService struct {
	api     FuturesAPI
	testnet bool
	dryRun  bool
	log     *logrus.Entry
}

// ErrConnection marks a failed connection test during start-up.
var ErrConnection = errors.New("connection test failed")

// NewTradingService builds the service and verifies the session by reading
// the account balance.
func NewTradingService(ctx context.Context, api FuturesAPI, opts Options) (*TradingService, error) {
	entry := opts.Logger
	if entry == nil {
		entry = log
	}
	s := &TradingService{
		api:     api,
		testnet: opts.Testnet,
		dryRun:  opts.DryRun,
		log:     entry,
	}

	s.log.Info("Bot initialized successfully")
	s.log.Infof("Using %s environment", s.EnvironmentName())
	if s.dryRun {
		s.log.Warn("Dry-run mode: orders are validated by the exchange but never executed")
	}

	if err := s.testConnection(ctx); err != nil {
		s.log.Errorf("Failed to initialize bot: %v", err)
		return nil, err
	}
	return s, nil
}

func (s *TradingService) EnvironmentName() string {
	if s.testnet {
		return "TESTNET"
	}
	return "LIVE"
}

func (s *TradingService) DryRun() bool { return s.dryRun }

func (s *TradingService) testConnection(ctx context.Context) error {
	acct, err := s.api.Account(ctx)
	if err != nil {
		s.log.Errorf("Connection test failed: %v", err)
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.log.Info("Connection successful")
	s.log.Infof("Account balance: %s USDT", formatBalance(acct))
	return nil
}

// AccountBalance returns the total wallet balance rendered for display,
// "N/A" when the exchange omits it.
func (s *TradingService) AccountBalance(ctx context.Context) (string, error) {
	acct, err := s.api.Account(ctx)
	if err != nil {
		s.logError("fetching account", err)
		return "", err
	}
	return formatBalance(acct), nil
}

func formatBalance(acct *binance.Account) string {
	if acct == nil || !acct.TotalWalletBalance.Valid {
		return "N/A"
	}
	return acct.TotalWalletBalance.Decimal.String()
}

// symbolExists checks the symbol against exchange info. A failed lookup is
// treated as "does not exist".
func (s *TradingService) symbolExists(ctx context.Context, symbol string) bool {
	info, err := s.api.ExchangeInfo(ctx)
	if err != nil {
		s.log.Errorf("Symbol validation failed: %v", err)
		return false
	}
	return info.HasSymbol(symbol)
}

// logError logs err the way operators expect to read it: exchange rejections
// with status and message, everything else with the operation name.
func (s *TradingService) logError(op string, err error) {
	if apiErr, ok := binance.IsAPIError(err); ok {
		s.log.WithField("code", apiErr.Code).
			Errorf("Binance API Error: %d - %s", apiErr.StatusCode, apiErr.Message)
		return
	}
	s.log.Errorf("Error %s: %v", op, err)
}
