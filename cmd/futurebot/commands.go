package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/betbot/futurebot/internal/domain"
	"github.com/betbot/futurebot/internal/services"
	"github.com/betbot/futurebot/pkg/sdk/binance"
)

// stdout is where command results are printed; logs go through logrus.
var stdout io.Writer = os.Stdout

func runCommand(ctx context.Context, ts *services.TradingService, name string, args []string) error {
	switch name {
	case "order":
		return cmdOrder(ctx, ts, args)
	case "open-orders":
		return cmdOpenOrders(ctx, ts, args)
	case "cancel":
		return cmdCancel(ctx, ts, args)
	case "status":
		return cmdStatus(ctx, ts, args)
	case "account":
		return cmdAccount(ctx, ts)
	}
	return fmt.Errorf("unknown command %q (want order, open-orders, cancel, status, account)", name)
}

func cmdOrder(ctx context.Context, ts *services.TradingService, args []string) error {
	req, err := parseOrderArgs(args)
	if err != nil {
		return err
	}
	order, err := ts.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	for _, line := range services.OrderDetailLines(order, ts.DryRun()) {
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// parseOrderArgs turns `order` flags into a request. Range checks are left to
// OrderRequest.Validate so both entry points report the same messages.
func parseOrderArgs(args []string) (domain.OrderRequest, error) {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	var (
		symbol     = fs.String("symbol", "", "合约，例如 BTCUSDT")
		side       = fs.String("side", "", "BUY 或 SELL")
		typ        = fs.String("type", "market", "market, limit, stop-limit")
		quantity   = fs.String("quantity", "", "数量")
		price      = fs.String("price", "", "限价（limit / stop-limit）")
		stopPrice  = fs.String("stop-price", "", "触发价（stop-limit）")
		tif        = fs.String("tif", "", "GTC, IOC, FOK, GTX（默认 GTC）")
		reduceOnly = fs.Bool("reduce-only", false, "只减仓")
		clientID   = fs.String("client-id", "", "自定义 newClientOrderId")
	)
	if err := fs.Parse(args); err != nil {
		return domain.OrderRequest{}, err
	}

	req := domain.OrderRequest{
		Symbol:        *symbol,
		TimeInForce:   domain.TimeInForce(strings.ToUpper(strings.TrimSpace(*tif))),
		ReduceOnly:    *reduceOnly,
		ClientOrderID: strings.TrimSpace(*clientID),
	}
	var err error
	if req.Side, err = domain.ParseSide(*side); err != nil {
		return req, err
	}
	if req.Type, err = domain.ParseOrderType(*typ); err != nil {
		return req, err
	}
	if req.Quantity, err = domain.ParseAmount("quantity", *quantity); err != nil {
		return req, err
	}
	if strings.TrimSpace(*price) != "" {
		if req.Price, err = domain.ParseAmount("price", *price); err != nil {
			return req, err
		}
	}
	if strings.TrimSpace(*stopPrice) != "" {
		if req.StopPrice, err = domain.ParseAmount("stop price", *stopPrice); err != nil {
			return req, err
		}
	}
	return req, nil
}

func cmdOpenOrders(ctx context.Context, ts *services.TradingService, args []string) error {
	fs := flag.NewFlagSet("open-orders", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "合约（为空则全部）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	orders, err := ts.GetOpenOrders(ctx, *symbol)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(stdout, "No open orders")
		return nil
	}
	for i := range orders {
		fmt.Fprintln(stdout, formatOrderRow(&orders[i]))
	}
	return nil
}

func orderIDArgs(name string, args []string) (string, int64, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	symbol := fs.String("symbol", "", "合约，例如 BTCUSDT")
	id := fs.Int64("id", 0, "orderId")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(*symbol) == "" || *id <= 0 {
		return "", 0, errors.Errorf("%s: -symbol and -id are required", name)
	}
	return *symbol, *id, nil
}

func cmdCancel(ctx context.Context, ts *services.TradingService, args []string) error {
	symbol, id, err := orderIDArgs("cancel", args)
	if err != nil {
		return err
	}
	order, err := ts.CancelOrder(ctx, symbol, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, formatOrderRow(order))
	return nil
}

func cmdStatus(ctx context.Context, ts *services.TradingService, args []string) error {
	symbol, id, err := orderIDArgs("status", args)
	if err != nil {
		return err
	}
	order, err := ts.GetOrder(ctx, symbol, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, formatOrderRow(order))
	return nil
}

func cmdAccount(ctx context.Context, ts *services.TradingService) error {
	balance, err := ts.AccountBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Environment: %s\nWallet balance: %s USDT\n", ts.EnvironmentName(), balance)
	return nil
}

func formatOrderRow(o *binance.Order) string {
	price := "MARKET"
	if !o.Price.IsZero() {
		price = o.Price.String()
	}
	row := fmt.Sprintf("%d\t%s\t%s\t%s\tqty=%s\tfilled=%s\tprice=%s\t%s",
		o.OrderID, o.Symbol, o.Side, o.Type, o.OrigQty, o.ExecutedQty, price, o.Status)
	if !o.StopPrice.IsZero() {
		row += "\tstop=" + o.StopPrice.String()
	}
	return row
}
