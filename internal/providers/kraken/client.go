// Package kraken is a minimal public-klines client for Kraken's REST
// API, adapted from cryptorun's internal/providers/kraken/client.go:
// the same rate-limited http.Client, the same MetricsCallback hook,
// and a websocket liveness probe — narrowed to the single read-only
// operation the OHLCV fetcher needs ("give me the last N closed bars").
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sawpanic/papertick/internal/providers"
)

// MetricsCallback is invoked after every request so the observability
// layer can wire provider latency/error counters into its registry.
type MetricsCallback func(metric string, value float64, tags map[string]string)

// Client implements providers.Provider against Kraken's public OHLC endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	wsURL      string
	limiter    *rate.Limiter
	metrics    MetricsCallback
}

type Config struct {
	BaseURL        string
	WebSocketURL   string
	RequestTimeout time.Duration
	RateLimitRPS   float64
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.kraken.com"
	}
	if cfg.WebSocketURL == "" {
		cfg.WebSocketURL = "wss://ws.kraken.com"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 3 * time.Second // HTTP deadline
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 1.0
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: cfg.BaseURL,
		wsURL: cfg.WebSocketURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
	}
}

func (c *Client) SetMetricsCallback(cb MetricsCallback) { c.metrics = cb }

func (c *Client) Name() string { return "kraken" }

var intervalMinutes = map[string]int{
	"1m": 1, "5m": 5, "15m": 15, "1h": 60, "4h": 240, "1d": 1440,
}

// klineResponse models the subset of Kraken's OHLC payload this client
// cares about: {"error": [...], "result": {"<pair>": [[ts, open, high,
// low, close, vwap, volume, count],...], "last":...}}.
type klineResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// FetchKlines requests the last `limit` candles for (symbol, timeframe).
func (c *Client) FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]providers.Bar, error) {
	minutes, ok := intervalMinutes[timeframe]
	if !ok {
		return nil, fmt.Errorf("kraken: unsupported timeframe %q", timeframe)
	}

	if !c.limiter.Allow() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("pair", krakenPair(symbol))
	q.Set("interval", strconv.Itoa(minutes))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/0/public/OHLC?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.record("kraken_request_duration_ms", float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("kraken: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.record("kraken_request_errors", 1)
		return nil, providers.NewFetchError(resp.StatusCode, fmt.Errorf("kraken: http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("kraken: read body: %w", err))
	}

	var parsed klineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("kraken: malformed body: %w", err))
	}
	if len(parsed.Error) > 0 {
		return nil, providers.NewFetchError(0, fmt.Errorf("kraken: api error: %s", strings.Join(parsed.Error, ";")))
	}

	bars, err := decodeBars(parsed.Result)
	if err != nil {
		return nil, providers.NewFetchError(0, err)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func decodeBars(result map[string]json.RawMessage) ([]providers.Bar, error) {
	for key, raw := range result {
		if key == "last" {
			continue
		}
		var rows [][]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("kraken: malformed candle rows: %w", err)
		}
		bars := make([]providers.Bar, 0, len(rows))
		for _, row := range rows {
			if len(row) < 7 {
				return nil, fmt.Errorf("kraken: malformed candle row")
			}
			ts, ok := row[0].(float64)
			if !ok {
				return nil, fmt.Errorf("kraken: malformed candle timestamp")
			}
			bar := providers.Bar{
				Ts: time.Unix(int64(ts), 0).UTC(),
				Open: parseFloat(row[1]),
				High: parseFloat(row[2]),
				Low: parseFloat(row[3]),
				Close: parseFloat(row[4]),
				Volume: parseFloat(row[6]),
			}
			bars = append(bars, bar)
		}
		return bars, nil
	}
	return nil, fmt.Errorf("kraken: empty result")
}

func parseFloat(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// krakenPair maps a generic "BTC-USD" style symbol to Kraken's pair
// naming; perpetual-style symbols pass through to the spot pair since
// this client only reads public klines, never trades.
func krakenPair(symbol string) string {
	return strings.ReplaceAll(strings.TrimSuffix(symbol, "-PERP"), "-", "")
}

func (c *Client) record(metric string, value float64) {
	if c.metrics != nil {
		c.metrics(metric, value, map[string]string{"provider": "kraken"})
	}
}

// Health pings Kraken's public websocket endpoint as a liveness probe.
// The fetcher does not call it; provider stickiness and priority do
// not depend on its result.
func (c *Client) Health(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("kraken: websocket health check: %w", err)
	}
	return conn.Close()
}
