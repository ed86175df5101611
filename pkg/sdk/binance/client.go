package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/futurebot/pkg/ratelimit"
	sdkhttp "github.com/betbot/futurebot/pkg/sdk/http"
)

var clientLog = logrus.WithField("component", "binance_futures")

const (
	TestnetURL = "https://testnet.binancefuture.com"
	MainnetURL = "https://fapi.binance.com"

	headerAPIKey = "X-MBX-APIKEY"
)

// REST paths.
const (
	EndpointPing         = "/fapi/v1/ping"
	EndpointTime         = "/fapi/v1/time"
	EndpointExchangeInfo = "/fapi/v1/exchangeInfo"
	EndpointAccount      = "/fapi/v2/account"
	EndpointOrder        = "/fapi/v1/order"
	EndpointTestOrder    = "/fapi/v1/order/test"
	EndpointOpenOrders   = "/fapi/v1/openOrders"
)

// Options configures a futures session.
type Options struct {
	BaseURL    string // defaults to TestnetURL
	APIKey     string
	APISecret  string
	RecvWindow int // milliseconds
	Timeout    time.Duration
	RetryCount int
	Limiter    *ratelimit.Manager
}

// Client is one authenticated session against the USDⓈ-M futures REST API.
// Each method issues exactly one HTTP request.
type Client struct {
	baseURL    string
	http       *sdkhttp.Client
	apiKey     string
	signer     *Signer
	recvWindow int
	limiter    *ratelimit.Manager

	// timeOffset is serverTime - localTime in ms, set by SyncTime.
	timeOffset atomic.Int64
	now        func() time.Time
}

func NewClient(opts Options) *Client {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = TestnetURL
	}
	if opts.RecvWindow <= 0 {
		opts.RecvWindow = 5000
	}
	return &Client{
		baseURL: base,
		http: sdkhttp.NewClient(base, sdkhttp.Options{
			Timeout:    opts.Timeout,
			RetryCount: opts.RetryCount,
			UserAgent:  "futurebot/1.0",
		}),
		apiKey:     opts.APIKey,
		signer:     NewSigner(opts.APISecret),
		recvWindow: opts.RecvWindow,
		limiter:    opts.Limiter,
		now:        time.Now,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Close wipes the secret. The client must not be used afterwards.
func (c *Client) Close() {
	c.signer.Wipe()
}

func (c *Client) timestamp() int64 {
	return c.now().UnixMilli() + c.timeOffset.Load()
}

func (c *Client) wait(ctx context.Context, groups ...string) error {
	if err := c.limiter.Wait(ctx, groups...); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	return nil
}

// public sends an unsigned request.
func (c *Client) public(ctx context.Context, method, path string, params url.Values, out any) error {
	if err := c.wait(ctx, ratelimit.GroupRequest); err != nil {
		return err
	}
	opt := &sdkhttp.RequestOptions{}
	if len(params) > 0 {
		opt.RawQuery = params.Encode()
	}
	_, err := c.http.DoRequest(ctx, method, path, opt, out)
	return toAPIError(err)
}

// signed sends a request carrying timestamp, recvWindow and signature. The
// signature covers the query string exactly as it goes on the wire.
func (c *Client) signed(ctx context.Context, method, path string, params url.Values, out any, groups ...string) error {
	if err := c.wait(ctx, append([]string{ratelimit.GroupRequest}, groups...)...); err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("recvWindow", strconv.Itoa(c.recvWindow))
	params.Set("timestamp", strconv.FormatInt(c.timestamp(), 10))

	query := params.Encode()
	query += "&signature=" + c.signer.Sign(query)

	clientLog.WithFields(logrus.Fields{"method": method, "path": path}).Debug("signed request")
	_, err := c.http.DoRequest(ctx, method, path, &sdkhttp.RequestOptions{
		Headers:  map[string]string{headerAPIKey: c.apiKey},
		RawQuery: query,
	}, out)
	return toAPIError(err)
}

// Ping tests connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.public(ctx, http.MethodGet, EndpointPing, nil, nil)
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var resp serverTimeResponse
	if err := c.public(ctx, http.MethodGet, EndpointTime, nil, &resp); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.ServerTime), nil
}

// SyncTime measures the offset to the exchange clock so signed requests are
// not rejected with -1021 on machines whose clock drifts.
func (c *Client) SyncTime(ctx context.Context) (time.Duration, error) {
	server, err := c.ServerTime(ctx)
	if err != nil {
		return 0, err
	}
	offset := server.UnixMilli() - c.now().UnixMilli()
	c.timeOffset.Store(offset)
	return time.Duration(offset) * time.Millisecond, nil
}

// ExchangeInfo returns trading rules and the symbol list.
func (c *Client) ExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	var info ExchangeInfo
	if err := c.public(ctx, http.MethodGet, EndpointExchangeInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Account returns balances for the authenticated account.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.signed(ctx, http.MethodGet, EndpointAccount, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
