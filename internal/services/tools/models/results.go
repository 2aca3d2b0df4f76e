package models

// Tool results. Nullable vendor values stay pointers and are rendered as
// null rather than zero.

type Position struct {
	Symbol           *string  `json:"symbol"`
	Description      *string  `json:"description"`
	AssetType        *string  `json:"asset_type"`
	Quantity         float64  `json:"quantity"`
	MarketValue      float64  `json:"market_value"`
	AveragePrice     *float64 `json:"average_price"`
	CostPerShare     *float64 `json:"cost_per_share"`
	CostBasis        *float64 `json:"cost_basis"`
	DayChange        *float64 `json:"day_change"`
	DayChangePercent *float64 `json:"day_change_percent"`
	GainLoss         *float64 `json:"gain_loss,omitempty"`
	GainLossPercent  *float64 `json:"gain_loss_percent,omitempty"`
}

type PositionsResult struct {
	AccountID string     `json:"account_id"`
	Positions []Position `json:"positions"`
}

type Balances struct {
	CashAvailable *float64 `json:"cash_available"`
	CashBalance   *float64 `json:"cash_balance"`
	MarketValue   *float64 `json:"market_value"`
	TotalValue    *float64 `json:"total_value"`
	BuyingPower   *float64 `json:"buying_power"`
}

type AccountResult struct {
	AccountID   string   `json:"account_id"`
	AccountType string   `json:"account_type"`
	IsTaxable   bool     `json:"is_taxable"`
	Balances    Balances `json:"balances"`
}

type Quote struct {
	Symbol           string   `json:"symbol"`
	AssetType        *string  `json:"asset_type"`
	LastPrice        *float64 `json:"last_price"`
	Bid              *float64 `json:"bid"`
	Ask              *float64 `json:"ask"`
	BidSize          *float64 `json:"bid_size"`
	AskSize          *float64 `json:"ask_size"`
	Volume           *float64 `json:"volume"`
	DayHigh          *float64 `json:"day_high"`
	DayLow           *float64 `json:"day_low"`
	DayOpen          *float64 `json:"day_open"`
	PrevClose        *float64 `json:"prev_close"`
	DayChange        *float64 `json:"day_change"`
	DayChangePercent *float64 `json:"day_change_percent"`
	FiftyTwoWeekHigh *float64 `json:"52_week_high"`
	FiftyTwoWeekLow  *float64 `json:"52_week_low"`
	PERatio          *float64 `json:"pe_ratio"`
	DivYield         *float64 `json:"div_yield"`
	MarketCap        *float64 `json:"market_cap"`
	Exchange         *string  `json:"exchange"`
	Description      *string  `json:"description"`
}

// QuoteNotFound stands in for a symbol missing from a quotes response.
type QuoteNotFound struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// QuotesResult holds Quote or QuoteNotFound values in request order.
type QuotesResult struct {
	Quotes []interface{} `json:"quotes"`
}

type OptionContract struct {
	Symbol           *string  `json:"symbol"`
	Description      *string  `json:"description"`
	Strike           float64  `json:"strike"`
	Expiration       *string  `json:"expiration"`
	DaysToExpiration *float64 `json:"days_to_expiration"`
	Bid              *float64 `json:"bid"`
	Ask              *float64 `json:"ask"`
	Last             *float64 `json:"last"`
	Mark             *float64 `json:"mark"`
	Volume           *float64 `json:"volume"`
	OpenInterest     *float64 `json:"open_interest"`
	ImpliedVol       *float64 `json:"implied_volatility"`
	Delta            *float64 `json:"delta"`
	Gamma            *float64 `json:"gamma"`
	Theta            *float64 `json:"theta"`
	Vega             *float64 `json:"vega"`
	Rho              *float64 `json:"rho"`
	InTheMoney       *bool    `json:"in_the_money"`
	IntrinsicValue   *float64 `json:"intrinsic_value"`
	ExtrinsicValue   *float64 `json:"extrinsic_value"`
	TimeValue        *float64 `json:"time_value"`
}

type UnderlyingSummary struct {
	Last          *float64 `json:"last"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	Change        *float64 `json:"change"`
	PercentChange *float64 `json:"percent_change"`
	Volume        *float64 `json:"volume"`
}

type OptionChainResult struct {
	Symbol            string            `json:"symbol"`
	UnderlyingPrice   *float64          `json:"underlying_price"`
	Underlying        UnderlyingSummary `json:"underlying"`
	Status            *string           `json:"status"`
	IsDelayed         *bool             `json:"is_delayed"`
	NumberOfContracts *float64          `json:"number_of_contracts"`
	Calls             []OptionContract  `json:"calls"`
	Puts              []OptionContract  `json:"puts"`
}

type Candle struct {
	Datetime string   `json:"datetime"`
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    *float64 `json:"close"`
	Volume   *float64 `json:"volume"`
}

type PriceHistoryResult struct {
	Symbol            string   `json:"symbol"`
	PeriodType        string   `json:"period_type"`
	Period            int      `json:"period"`
	FrequencyType     string   `json:"frequency_type"`
	Frequency         int      `json:"frequency"`
	PreviousClose     *float64 `json:"previous_close"`
	PreviousCloseDate *int64   `json:"previous_close_date"`
	CandleCount       int      `json:"candle_count"`
	Candles           []Candle `json:"candles"`
}

// ErrorResult is returned to the host instead of a protocol error.
type ErrorResult struct {
	Error     bool   `json:"error"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}
