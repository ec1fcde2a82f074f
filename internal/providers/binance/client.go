// Package binance is a public klines provider, first in the default
// priority order ahead of Kraken, adapted from cryptorun's
// internal/providers/adapters/binance.go — narrowed to the klines read
// path so the fetcher's fallback chain has two real legs.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sawpanic/papertick/internal/providers"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 3 * time.Second},
		baseURL: "https://api.binance.com/api/v3",
	}
}

func (c *Client) Name() string { return "binance" }

var intervalCode = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "1h": "1h", "4h": "4h", "1d": "1d",
}

// rawKline is one element of Binance's /klines array-of-arrays response:
// [openTime, open, high, low, close, volume, closeTime,...].
type rawKline []json.RawMessage

func (c *Client) FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]providers.Bar, error) {
	code, ok := intervalCode[timeframe]
	if !ok {
		return nil, fmt.Errorf("binance: unsupported timeframe %q", timeframe)
	}

	q := url.Values{}
	q.Set("symbol", binanceSymbol(symbol))
	q.Set("interval", code)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("binance: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.NewFetchError(resp.StatusCode, fmt.Errorf("binance: http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("binance: read body: %w", err))
	}

	var rows []rawKline
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, providers.NewFetchError(0, fmt.Errorf("binance: malformed body: %w", err))
	}

	bars := make([]providers.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, providers.NewFetchError(0, fmt.Errorf("binance: malformed candle row"))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, providers.NewFetchError(0, fmt.Errorf("binance: malformed timestamp: %w", err))
		}
		bars = append(bars, providers.Bar{
			Ts: time.UnixMilli(openMs).UTC(),
			Open: quotedFloat(row[1]),
			High: quotedFloat(row[2]),
			Low: quotedFloat(row[3]),
			Close: quotedFloat(row[4]),
			Volume: quotedFloat(row[5]),
		})
	}
	return bars, nil
}

func quotedFloat(raw json.RawMessage) float64 {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func binanceSymbol(symbol string) string {
	// "BTC-USD" / "BTC-USD-PERP" -> "BTCUSDT" style pairing is
	// exchange-specific; callers configure the universe with
	// exchange-native symbols already, this just strips punctuation.
	out := make([]byte, 0, len(symbol))
	for i := 0; i < len(symbol); i++ {
		if symbol[i] != '-' {
			out = append(out, symbol[i])
		}
	}
	return string(out)
}
