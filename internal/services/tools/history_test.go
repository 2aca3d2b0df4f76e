package tools

import (
	"context"
	"testing"
	"time"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) *int64 { return &v }

func TestGetPriceHistoryDefaults(t *testing.T) {
	client := &fakeClient{history: &schwab.PriceHistory{PreviousClose: f64(99)}}
	e := NewToolExecutor(client, WithLocation(time.UTC))

	result, err := e.getPriceHistory(context.Background(), models.PriceHistoryParams{Symbol: "aapl"})
	require.NoError(t, err)

	req := client.lastHistory
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, "year", req.PeriodType)
	assert.Equal(t, 1, req.Period)
	assert.Equal(t, "daily", req.FrequencyType)
	assert.Equal(t, 1, req.Frequency)
	assert.False(t, req.NeedExtendedHoursData)
	assert.True(t, req.NeedPreviousClose)
	assert.Nil(t, req.StartDate)
	assert.Nil(t, req.EndDate)

	assert.Equal(t, 99.0, *result.PreviousClose)
	assert.Equal(t, 0, result.CandleCount)
	assert.NotNil(t, result.Candles)
}

func TestGetPriceHistoryDatesAndCandles(t *testing.T) {
	client := &fakeClient{history: &schwab.PriceHistory{
		Candles: []schwab.Candle{
			{Datetime: ms(1704240000000), Close: f64(2)},
			{Close: f64(99)},
			{Datetime: ms(1704153600000), Close: f64(1)},
		},
	}}
	e := NewToolExecutor(client, WithLocation(time.UTC))
	extended := true
	period := 5

	result, err := e.getPriceHistory(context.Background(), models.PriceHistoryParams{
		Symbol:        "SPY",
		PeriodType:    "DAY",
		Period:        &period,
		FrequencyType: "minute",
		StartDate:     "2024-01-02",
		EndDate:       "2024-01-03",
		ExtendedHours: &extended,
	})
	require.NoError(t, err)

	req := client.lastHistory
	assert.Equal(t, "day", req.PeriodType)
	assert.Equal(t, 5, req.Period)
	assert.True(t, req.NeedExtendedHoursData)
	require.NotNil(t, req.StartDate)
	assert.Equal(t, int64(1704153600000), *req.StartDate)
	assert.Equal(t, int64(1704240000000), *req.EndDate)

	require.Equal(t, 2, result.CandleCount)
	assert.Equal(t, "2024-01-02T00:00:00", result.Candles[0].Datetime)
	assert.Equal(t, 1.0, *result.Candles[0].Close)
	assert.Equal(t, "2024-01-03T00:00:00", result.Candles[1].Datetime)

	first := result.Candles[0]
	assert.Nil(t, first.Open)
	assert.Nil(t, first.High)
	assert.Nil(t, first.Low)
	assert.Nil(t, first.Volume)

	text, isErr := Render(result, nil)
	require.False(t, isErr)
	var rendered struct {
		Candles []map[string]interface{} `json:"candles"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &rendered))
	require.Len(t, rendered.Candles, 2)
	for _, field := range []string{"open", "high", "low", "volume"} {
		value, present := rendered.Candles[0][field]
		assert.True(t, present, field)
		assert.Nil(t, value, field)
	}
	assert.Equal(t, 1.0, rendered.Candles[0]["close"])
}

func TestGetPriceHistoryLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	client := &fakeClient{history: &schwab.PriceHistory{
		Candles: []schwab.Candle{{Datetime: ms(1704153600000)}},
	}}
	e := NewToolExecutor(client, WithLocation(ny))

	result, err := e.getPriceHistory(context.Background(), models.PriceHistoryParams{Symbol: "SPY", StartDate: "2024-01-02"})
	require.NoError(t, err)

	assert.Equal(t, int64(1704171600000), *client.lastHistory.StartDate)
	assert.Equal(t, "2024-01-01T19:00:00", result.Candles[0].Datetime)
}

func TestGetPriceHistoryValidation(t *testing.T) {
	zero := 0
	tests := []struct {
		name   string
		params models.PriceHistoryParams
	}{
		{"missing symbol", models.PriceHistoryParams{}},
		{"bad period type", models.PriceHistoryParams{Symbol: "A", PeriodType: "week"}},
		{"bad frequency type", models.PriceHistoryParams{Symbol: "A", FrequencyType: "hourly"}},
		{"zero period", models.PriceHistoryParams{Symbol: "A", Period: &zero}},
		{"zero frequency", models.PriceHistoryParams{Symbol: "A", Frequency: &zero}},
		{"bad start date", models.PriceHistoryParams{Symbol: "A", StartDate: "yesterday"}},
		{"bad end date", models.PriceHistoryParams{Symbol: "A", EndDate: "2024-1-1"}},
		{"start after end", models.PriceHistoryParams{Symbol: "A", StartDate: "2024-02-01", EndDate: "2024-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			e := NewToolExecutor(client, WithLocation(time.UTC))

			_, err := e.getPriceHistory(context.Background(), tt.params)
			require.Error(t, err)
			assert.Equal(t, ErrorTypeInvalidArguments, ErrorType(err))
			assert.Empty(t, client.lastHistory.Symbol)
		})
	}
}
