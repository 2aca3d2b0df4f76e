package tools

import (
	"context"
	"testing"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuote(t *testing.T) {
	client := &fakeClient{quotes: schwab.QuoteResponse{
		"AAPL": {
			AssetMainType: str("EQUITY"),
			Quote:         &schwab.Quote{LastPrice: f64(190.5), FiftyTwoWeekHigh: f64(200)},
			Reference:     &schwab.Reference{Exchange: str("NASDAQ"), Description: str("Apple Inc")},
		},
	}}
	e := NewToolExecutor(client)

	result, err := e.getQuote(context.Background(), models.QuoteParams{Symbol: " aapl "})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, client.lastSymbols)
	quote, ok := result.(models.Quote)
	require.True(t, ok)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 190.5, *quote.LastPrice)
	assert.Equal(t, 200.0, *quote.FiftyTwoWeekHigh)
	assert.Equal(t, "NASDAQ", *quote.Exchange)
	assert.Nil(t, quote.MarketCap)
}

func TestGetQuoteMissingSymbol(t *testing.T) {
	e := NewToolExecutor(&fakeClient{quotes: schwab.QuoteResponse{}})

	result, err := e.getQuote(context.Background(), models.QuoteParams{Symbol: "zzzz"})
	require.NoError(t, err)
	assert.Equal(t, models.QuoteNotFound{Symbol: "ZZZZ", Error: "Symbol not found"}, result)
}

func TestGetQuoteRequiresSymbol(t *testing.T) {
	client := &fakeClient{}
	e := NewToolExecutor(client)

	_, err := e.getQuote(context.Background(), models.QuoteParams{})
	assert.Equal(t, ErrorTypeInvalidArguments, ErrorType(err))
	assert.Nil(t, client.lastSymbols)
}

func TestGetQuotesKeepsRequestOrder(t *testing.T) {
	client := &fakeClient{quotes: schwab.QuoteResponse{
		"MSFT": {Quote: &schwab.Quote{LastPrice: f64(400)}},
		"AAPL": {Quote: &schwab.Quote{LastPrice: f64(190)}},
	}}
	e := NewToolExecutor(client)

	result, err := e.getQuotes(context.Background(), models.QuotesParams{Symbols: []string{"aapl", "nope", "msft"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "NOPE", "MSFT"}, client.lastSymbols)
	require.Len(t, result.Quotes, 3)
	assert.Equal(t, "AAPL", result.Quotes[0].(models.Quote).Symbol)
	assert.Equal(t, models.QuoteNotFound{Symbol: "NOPE", Error: "Symbol not found"}, result.Quotes[1])
	assert.Equal(t, 400.0, *result.Quotes[2].(models.Quote).LastPrice)
}

func TestGetQuotesValidation(t *testing.T) {
	e := NewToolExecutor(&fakeClient{})

	_, err := e.getQuotes(context.Background(), models.QuotesParams{})
	assert.Equal(t, ErrorTypeInvalidArguments, ErrorType(err))

	_, err = e.getQuotes(context.Background(), models.QuotesParams{Symbols: []string{"AAPL", ""}})
	assert.Equal(t, ErrorTypeInvalidArguments, ErrorType(err))
}
