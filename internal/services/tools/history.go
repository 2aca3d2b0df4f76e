package tools

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	"github.com/deepgram/schwab-mcp/pkg/logger"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02T15:04:05"
)

func (e *ToolExecutor) getPriceHistory(ctx context.Context, params models.PriceHistoryParams) (*models.PriceHistoryResult, error) {
	symbol, err := normalizeSymbol("symbol", params.Symbol)
	if err != nil {
		return nil, err
	}

	periodType := strings.ToLower(strings.TrimSpace(params.PeriodType))
	if periodType == "" {
		periodType = "year"
	}
	if !oneOf(periodType, periodTypes) {
		return nil, invalid("period_type", "must be one of day, month, year, ytd")
	}

	frequencyType := strings.ToLower(strings.TrimSpace(params.FrequencyType))
	if frequencyType == "" {
		frequencyType = "daily"
	}
	if !oneOf(frequencyType, frequencyTypes) {
		return nil, invalid("frequency_type", "must be one of minute, daily, weekly, monthly")
	}

	period := 1
	if params.Period != nil {
		if *params.Period <= 0 {
			return nil, invalid("period", "must be positive")
		}
		period = *params.Period
	}
	frequency := 1
	if params.Frequency != nil {
		if *params.Frequency <= 0 {
			return nil, invalid("frequency", "must be positive")
		}
		frequency = *params.Frequency
	}

	req := schwab.PriceHistoryParams{
		Symbol:                symbol,
		PeriodType:            periodType,
		Period:                period,
		FrequencyType:         frequencyType,
		Frequency:             frequency,
		NeedExtendedHoursData: params.ExtendedHours != nil && *params.ExtendedHours,
		NeedPreviousClose:     true,
	}
	if params.StartDate != "" {
		t, err := parseDate(params.StartDate, e.location)
		if err != nil {
			return nil, invalid("start_date", "expected YYYY-MM-DD, got %q", params.StartDate)
		}
		req.StartDate = ptr(t.UnixMilli())
	}
	if params.EndDate != "" {
		t, err := parseDate(params.EndDate, e.location)
		if err != nil {
			return nil, invalid("end_date", "expected YYYY-MM-DD, got %q", params.EndDate)
		}
		req.EndDate = ptr(t.UnixMilli())
	}
	if req.StartDate != nil && req.EndDate != nil && *req.StartDate > *req.EndDate {
		return nil, invalid("start_date", "must not be after end_date")
	}

	history, err := e.client.GetPriceHistory(ctx, req)
	if err != nil {
		return nil, err
	}

	candles := e.parseCandles(symbol, history.Candles)
	return &models.PriceHistoryResult{
		Symbol:            symbol,
		PeriodType:        periodType,
		Period:            period,
		FrequencyType:     frequencyType,
		Frequency:         frequency,
		PreviousClose:     history.PreviousClose,
		PreviousCloseDate: history.PreviousCloseDate,
		CandleCount:       len(candles),
		Candles:           candles,
	}, nil
}

// parseCandles orders candles by time and formats each timestamp in the
// executor's zone. Candles without a timestamp are dropped.
func (e *ToolExecutor) parseCandles(symbol string, raw []schwab.Candle) []models.Candle {
	kept := make([]schwab.Candle, 0, len(raw))
	for _, c := range raw {
		if c.Datetime == nil {
			logger.Warn(logger.TOOLS, "Dropping %s candle without datetime", symbol)
			continue
		}
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].Datetime < *kept[j].Datetime
	})

	out := make([]models.Candle, 0, len(kept))
	for _, c := range kept {
		out = append(out, models.Candle{
			Datetime: time.UnixMilli(*c.Datetime).In(e.location).Format(datetimeLayout),
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
		})
	}
	return out
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
}
