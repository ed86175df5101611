package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/betbot/futurebot/internal/cli"
	"github.com/betbot/futurebot/internal/services"
	"github.com/betbot/futurebot/pkg/config"
	"github.com/betbot/futurebot/pkg/logger"
	"github.com/betbot/futurebot/pkg/ratelimit"
	"github.com/betbot/futurebot/pkg/sdk/binance"
	"github.com/betbot/futurebot/pkg/secretstore"
)

type options struct {
	configPath string
	envPath    string
	live       bool
	dryRun     bool
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	flag.StringVar(&opts.envPath, "env", ".env", ".env 文件路径（不存在则忽略）")
	flag.BoolVar(&opts.live, "live", false, "使用实盘地址（默认测试网）")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "只调用 /fapi/v1/order/test，不真实下单")
	flag.StringVar(&opts.logLevel, "log-level", "", "日志级别: debug, info, warn, error")
	flag.Usage = usage
	flag.Parse()

	if err := run(opts, flag.Args()); err != nil {
		if errors.Is(err, cli.ErrInterrupted) {
			return
		}
		logger.Errorf("Fatal error: %v", err)
		_ = logger.Close()
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: futurebot [flags] [command] [command flags]\n\n")
	fmt.Fprintf(out, "Commands (no command starts the interactive menu):\n")
	fmt.Fprintf(out, "  order        place one order (-symbol -side -type -quantity [-price] [-stop-price])\n")
	fmt.Fprintf(out, "  open-orders  list open orders (-symbol optional)\n")
	fmt.Fprintf(out, "  cancel       cancel an order (-symbol -id)\n")
	fmt.Fprintf(out, "  status       query an order (-symbol -id)\n")
	fmt.Fprintf(out, "  account      show wallet balance\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func run(opts options, args []string) error {
	if err := config.LoadEnvFile(opts.envPath); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.live {
		cfg.Exchange.Testnet = false
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		PerSession: cfg.Log.PerSession,
	}); err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer logger.Close()
	if f := logger.GetCurrentLogFile(); f != "" {
		logger.Infof("Logging to %s", f)
	}

	if err := resolveCredentials(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := binance.NewClient(binance.Options{
		BaseURL:    cfg.Exchange.ResolvedBaseURL(),
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		RecvWindow: cfg.Exchange.RecvWindow,
		Timeout:    cfg.Exchange.Timeout,
		RetryCount: 2,
		Limiter:    ratelimit.NewManager(cfg.Exchange.RequestsPerSecond),
	})
	defer client.Close()

	if offset, err := client.SyncTime(ctx); err != nil {
		logger.Warnf("Server time sync failed, using local clock: %v", err)
	} else {
		logger.Debugf("Server time offset: %s", offset)
	}

	ts, err := services.NewTradingService(ctx, client, services.Options{
		Testnet: cfg.Exchange.Testnet,
		DryRun:  cfg.DryRun,
	})
	if err != nil {
		return err
	}

	if len(args) > 0 {
		return runCommand(ctx, ts, args[0], args[1:])
	}
	return runMenu(ctx, ts)
}

// resolveCredentials falls back to the encrypted store when env and config
// file left the key pair incomplete.
func resolveCredentials(cfg *config.Config) error {
	if cfg.HasCredentials() {
		return nil
	}
	path := strings.TrimSpace(cfg.SecretStore.Path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	key, err := secretstore.ParseKey(cfg.SecretStore.Key)
	if err != nil {
		return errors.Wrap(err, "parse FUTUREBOT_SECRET_KEY")
	}
	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          path,
		EncryptionKey: key,
		ReadOnly:      true,
	})
	if err != nil {
		return err
	}
	defer ss.Close()

	creds, err := ss.LoadCredentials()
	if err != nil {
		return err
	}
	cfg.ApplyCredentials(creds)
	logger.Infof("API credentials loaded from %s", path)
	return nil
}

func runMenu(ctx context.Context, ts *services.TradingService) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("interactive menu needs a terminal; pass a command instead (see -h)")
	}
	// 菜单运行期间日志只写文件，避免覆盖界面
	logger.SetConsole(io.Discard)
	defer logger.SetConsole(os.Stdout)
	return cli.Run(ctx, ts)
}
