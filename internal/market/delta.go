package market

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ivcrush-trader/internal/errors"
	"ivcrush-trader/internal/logging"
	"ivcrush-trader/internal/models"
	"ivcrush-trader/pkg/utils"
)

// DeltaConfig holds configuration for the Delta Exchange client.
type DeltaConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Symbol     string // underlying ticker symbol, e.g. "BTCUSD"
	ChainLimit int    // max option instruments sampled from the chain
	Timeout    time.Duration
}

// DeltaClient implements Provider against the Delta Exchange REST API.
type DeltaClient struct {
	cfg        DeltaConfig
	httpClient *http.Client
	retry      utils.RetryConfig
	logger     zerolog.Logger
}

// NewDeltaClient creates a new Delta Exchange market data client.
func NewDeltaClient(cfg DeltaConfig, logger zerolog.Logger) *DeltaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ChainLimit == 0 {
		cfg.ChainLimit = 20
	}

	return &DeltaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      utils.DefaultRetryConfig(),
		logger:     logger,
	}
}

// flexFloat decodes Delta's numeric fields, which appear as either JSON
// numbers or quoted strings depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// deltaResponse is the standard Delta Exchange response envelope.
type deltaResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

type deltaTicker struct {
	Symbol    string    `json:"symbol"`
	MarkPrice flexFloat `json:"mark_price"`
	Greeks    struct {
		IV flexFloat `json:"iv"`
	} `json:"greeks"`
}

type deltaCandle struct {
	Time   int64     `json:"time"`
	Open   flexFloat `json:"open"`
	High   flexFloat `json:"high"`
	Low    flexFloat `json:"low"`
	Close  flexFloat `json:"close"`
	Volume flexFloat `json:"volume"`
}

// sign produces the HMAC-SHA256 request signature Delta expects:
// hex(hmac(secret, method + timestamp + path + payload)).
func (c *DeltaClient) sign(method, path, payload string, ts time.Time) (signature, timestamp string) {
	timestamp = strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(method + timestamp + path + payload))
	return hex.EncodeToString(mac.Sum(nil)), timestamp
}

// get performs a GET request and decodes the response envelope.
// Authenticated headers are attached when credentials are configured;
// the public market-data endpoints ignore them.
func (c *DeltaClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if c.cfg.APIKey != "" {
		signature, timestamp := c.sign(http.MethodGet, path, "", time.Now())
		req.Header.Set("api-key", c.cfg.APIKey)
		req.Header.Set("signature", signature)
		req.Header.Set("timestamp", timestamp)
	}

	// Transport failures are retried with backoff; HTTP-level and envelope
	// failures are not, those reflect exchange state rather than flaky pipes.
	var resp *http.Response
	start := time.Now()
	err = utils.Retry(ctx, c.retry, func() error {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		resp = r
		return nil
	})
	logging.LogAPICall(c.logger, http.MethodGet, path, time.Since(start), err)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope deltaResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("exchange reported failure for %s", path)
	}

	return json.Unmarshal(envelope.Result, result)
}

// SpotPrice returns the current mark price of the underlying.
func (c *DeltaClient) SpotPrice(ctx context.Context) (float64, error) {
	var ticker deltaTicker
	if err := c.get(ctx, "/v2/tickers/"+c.cfg.Symbol, nil, &ticker); err != nil {
		return 0, errors.NewMarketDataError("spot", c.cfg.Symbol, err)
	}
	if ticker.MarkPrice <= 0 {
		return 0, errors.NewMarketDataError("spot", c.cfg.Symbol, errors.ErrPriceUnavailable)
	}
	return float64(ticker.MarkPrice), nil
}

// OptionChain returns a snapshot of call option tickers for the underlying.
func (c *DeltaClient) OptionChain(ctx context.Context) ([]models.OptionQuote, error) {
	var tickers []deltaTicker
	if err := c.get(ctx, "/v2/tickers", nil, &tickers); err != nil {
		return nil, errors.NewMarketDataError("chain", c.cfg.Symbol, err)
	}

	underlying := c.underlying()
	quotes := make([]models.OptionQuote, 0, c.cfg.ChainLimit)
	for _, t := range tickers {
		if !strings.HasPrefix(t.Symbol, "C-") || !strings.Contains(t.Symbol, underlying) {
			continue
		}
		quotes = append(quotes, models.OptionQuote{
			Symbol: t.Symbol,
			IV:     float64(t.Greeks.IV),
		})
		if len(quotes) >= c.cfg.ChainLimit {
			break
		}
	}

	return quotes, nil
}

// Candles fetches recent 1-minute candles, newest first.
func (c *DeltaClient) Candles(ctx context.Context, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("resolution", "1m")
	params.Set("symbol", c.cfg.Symbol)
	params.Set("limit", strconv.Itoa(limit))

	var raw []deltaCandle
	if err := c.get(ctx, "/v2/history/candles", params, &raw); err != nil {
		return nil, errors.NewMarketDataError("candles", c.cfg.Symbol, err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, r := range raw {
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(r.Time, 0),
			Open:      float64(r.Open),
			High:      float64(r.High),
			Low:       float64(r.Low),
			Close:     float64(r.Close),
			Volume:    int64(r.Volume),
		})
	}

	return candles, nil
}

// LiquiditySweep applies the wick-rejection heuristic to the latest candles.
// Any fetch failure or short history yields false, never an error.
func (c *DeltaClient) LiquiditySweep(ctx context.Context) bool {
	candles, err := c.Candles(ctx, 10)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Sweep detection unavailable")
		return false
	}
	return SweepFromCandles(candles)
}

// underlying derives the option underlying prefix from the ticker symbol.
func (c *DeltaClient) underlying() string {
	return strings.TrimSuffix(c.cfg.Symbol, "USD")
}

// Ensure DeltaClient implements Provider
var _ Provider = (*DeltaClient)(nil)
