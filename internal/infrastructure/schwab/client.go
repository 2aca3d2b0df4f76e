package schwab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/deepgram/schwab-mcp/pkg/metrics"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTraderURL = "https://api.schwabapi.com/trader/v1"
	DefaultMarketURL = "https://api.schwabapi.com/marketdata/v1"
	DefaultTimeout   = 30 * time.Second

	correlationHeader = "Schwab-Client-CorrelId"
	maxErrorBody      = 64 << 10
)

// TokenSource supplies the bearer token for every request.
type TokenSource interface {
	GetValidToken(ctx context.Context) (auth.Token, error)
}

// Client is a read-only Schwab trader and market data client.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	traderURL  string
	marketURL  string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithBaseURLs(traderURL, marketURL string) Option {
	return func(c *Client) {
		if traderURL != "" {
			c.traderURL = strings.TrimRight(traderURL, "/")
		}
		if marketURL != "" {
			c.marketURL = strings.TrimRight(marketURL, "/")
		}
	}
}

func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		tokens: tokens,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		traderURL: DefaultTraderURL,
		marketURL: DefaultMarketURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccountNumbers lists account numbers with their hash values.
func (c *Client) GetAccountNumbers(ctx context.Context) ([]AccountNumber, error) {
	var out []AccountNumber
	if err := c.get(ctx, "accountNumbers", c.traderURL, "/accounts/accountNumbers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAccount fetches one account by hash. fields may include "positions".
func (c *Client) GetAccount(ctx context.Context, accountHash string, fields ...string) (*SecuritiesAccount, error) {
	var raw json.RawMessage
	path := "/accounts/" + url.PathEscape(accountHash)
	if err := c.get(ctx, "account", c.traderURL, path, fieldsQuery(fields), &raw); err != nil {
		return nil, err
	}

	var envelope AccountEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	if envelope.SecuritiesAccount != nil {
		return envelope.SecuritiesAccount, nil
	}

	// Some responses are not wrapped in securitiesAccount.
	var account SecuritiesAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &account, nil
}

// GetAccounts fetches every linked account.
func (c *Client) GetAccounts(ctx context.Context, fields ...string) ([]SecuritiesAccount, error) {
	var envelopes []AccountEnvelope
	if err := c.get(ctx, "accounts", c.traderURL, "/accounts", fieldsQuery(fields), &envelopes); err != nil {
		return nil, err
	}

	accounts := make([]SecuritiesAccount, 0, len(envelopes))
	for _, e := range envelopes {
		if e.SecuritiesAccount != nil {
			accounts = append(accounts, *e.SecuritiesAccount)
		}
	}
	return accounts, nil
}

// GetQuote fetches a single symbol through the batch quotes endpoint.
func (c *Client) GetQuote(ctx context.Context, symbol string) (QuoteResponse, error) {
	return c.GetQuotes(ctx, []string{symbol})
}

// GetQuotes fetches quotes keyed by upper-case symbol.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (QuoteResponse, error) {
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(upper, ","))

	out := QuoteResponse{}
	if err := c.get(ctx, "quotes", c.marketURL, "/quotes", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOptionChain fetches the option chain for an underlying.
func (c *Client) GetOptionChain(ctx context.Context, p OptionChainParams) (*OptionChain, error) {
	contractType := p.ContractType
	if contractType == "" {
		contractType = "ALL"
	}
	strategy := p.Strategy
	if strategy == "" {
		strategy = "SINGLE"
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(p.Symbol))
	params.Set("contractType", contractType)
	params.Set("includeUnderlyingQuote", strconv.FormatBool(p.IncludeUnderlyingQuote))
	params.Set("strategy", strategy)
	if p.StrikeCount != nil {
		params.Set("strikeCount", strconv.Itoa(*p.StrikeCount))
	}
	if p.FromDate != "" {
		params.Set("fromDate", p.FromDate)
	}
	if p.ToDate != "" {
		params.Set("toDate", p.ToDate)
	}

	var out OptionChain
	if err := c.get(ctx, "chains", c.marketURL, "/chains", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPriceHistory fetches OHLCV candles for a symbol.
func (c *Client) GetPriceHistory(ctx context.Context, p PriceHistoryParams) (*PriceHistory, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(p.Symbol))
	params.Set("periodType", p.PeriodType)
	params.Set("period", strconv.Itoa(p.Period))
	params.Set("frequencyType", p.FrequencyType)
	params.Set("frequency", strconv.Itoa(p.Frequency))
	params.Set("needExtendedHoursData", strconv.FormatBool(p.NeedExtendedHoursData))
	params.Set("needPreviousClose", strconv.FormatBool(p.NeedPreviousClose))
	if p.StartDate != nil {
		params.Set("startDate", strconv.FormatInt(*p.StartDate, 10))
	}
	if p.EndDate != nil {
		params.Set("endDate", strconv.FormatInt(*p.EndDate, 10))
	}

	var out PriceHistory
	if err := c.get(ctx, "pricehistory", c.marketURL, "/pricehistory", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func fieldsQuery(fields []string) url.Values {
	if len(fields) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	return params
}

// get issues an authenticated GET and decodes the JSON body into out. A token
// failure aborts before any request is sent.
func (c *Client) get(ctx context.Context, endpoint, base, path string, params url.Values, out interface{}) error {
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return err
	}

	target := base + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	correlationID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(correlationHeader, correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		logger.Error(logger.CLIENT, "GET %s failed [%s]: %v", path, correlationID, err)
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	logger.Debug(logger.CLIENT, "GET %s -> %d [%s]", path, resp.StatusCode, correlationID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
