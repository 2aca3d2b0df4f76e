package tools

import (
	"context"
	"strings"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
)

const symbolNotFound = "Symbol not found"

func (e *ToolExecutor) getQuote(ctx context.Context, params models.QuoteParams) (interface{}, error) {
	symbol, err := normalizeSymbol("symbol", params.Symbol)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	entry, ok := resp[symbol]
	if !ok {
		return models.QuoteNotFound{Symbol: symbol, Error: symbolNotFound}, nil
	}
	return parseQuote(symbol, entry), nil
}

func (e *ToolExecutor) getQuotes(ctx context.Context, params models.QuotesParams) (*models.QuotesResult, error) {
	if len(params.Symbols) == 0 {
		return nil, invalid("symbols", "at least one symbol is required")
	}

	symbols := make([]string, 0, len(params.Symbols))
	for _, s := range params.Symbols {
		symbol, err := normalizeSymbol("symbols", s)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}

	resp, err := e.client.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	quotes := make([]interface{}, 0, len(symbols))
	for _, symbol := range symbols {
		entry, ok := resp[symbol]
		if !ok {
			quotes = append(quotes, models.QuoteNotFound{Symbol: symbol, Error: symbolNotFound})
			continue
		}
		quotes = append(quotes, parseQuote(symbol, entry))
	}
	return &models.QuotesResult{Quotes: quotes}, nil
}

func parseQuote(symbol string, entry schwab.QuoteEntry) models.Quote {
	q := models.Quote{
		Symbol:    symbol,
		AssetType: entry.AssetMainType,
	}

	if quote := entry.Quote; quote != nil {
		q.LastPrice = quote.LastPrice
		q.Bid = quote.BidPrice
		q.Ask = quote.AskPrice
		q.BidSize = quote.BidSize
		q.AskSize = quote.AskSize
		q.Volume = quote.TotalVolume
		q.DayHigh = quote.HighPrice
		q.DayLow = quote.LowPrice
		q.DayOpen = quote.OpenPrice
		q.PrevClose = quote.ClosePrice
		q.DayChange = quote.NetChange
		q.DayChangePercent = quote.NetPercentChange
		q.FiftyTwoWeekHigh = quote.FiftyTwoWeekHigh
		q.FiftyTwoWeekLow = quote.FiftyTwoWeekLow
		q.PERatio = quote.PERatio
		q.DivYield = quote.DivYield
	}

	if ref := entry.Reference; ref != nil {
		q.MarketCap = ref.MarketCap
		q.Exchange = ref.Exchange
		q.Description = ref.Description
	}

	return q
}

func normalizeSymbol(field, symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", invalid(field, "symbol is required")
	}
	return s, nil
}
