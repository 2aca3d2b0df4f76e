package schwab

// Vendor payloads. Optional values are pointers so an absent field stays
// distinguishable from zero all the way to the tool output.

type AccountNumber struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

type AccountEnvelope struct {
	SecuritiesAccount *SecuritiesAccount `json:"securitiesAccount"`
}

type SecuritiesAccount struct {
	Type            *string    `json:"type"`
	AccountNumber   *string    `json:"accountNumber"`
	IsDayTrader     *bool      `json:"isDayTrader"`
	Positions       []Position `json:"positions"`
	InitialBalances *Balances  `json:"initialBalances"`
	CurrentBalances *Balances  `json:"currentBalances"`
}

type Balances struct {
	AvailableFunds   *float64 `json:"availableFunds"`
	CashBalance      *float64 `json:"cashBalance"`
	LongMarketValue  *float64 `json:"longMarketValue"`
	LiquidationValue *float64 `json:"liquidationValue"`
	BuyingPower      *float64 `json:"buyingPower"`
}

// IsEmpty reports whether none of the mapped balance fields were sent.
func (b *Balances) IsEmpty() bool {
	return b == nil ||
		b.AvailableFunds == nil &&
			b.CashBalance == nil &&
			b.LongMarketValue == nil &&
			b.LiquidationValue == nil &&
			b.BuyingPower == nil
}

type Position struct {
	Instrument                     *Instrument `json:"instrument"`
	LongQuantity                   *float64    `json:"longQuantity"`
	ShortQuantity                  *float64    `json:"shortQuantity"`
	MarketValue                    *float64    `json:"marketValue"`
	AveragePrice                   *float64    `json:"averagePrice"`
	AverageCostBasis               *float64    `json:"averageCostBasis"`
	CurrentDayProfitLoss           *float64    `json:"currentDayProfitLoss"`
	CurrentDayProfitLossPercentage *float64    `json:"currentDayProfitLossPercentage"`
}

type Instrument struct {
	Symbol      *string `json:"symbol"`
	Description *string `json:"description"`
	AssetType   *string `json:"assetType"`
	CUSIP       *string `json:"cusip"`
}

// QuoteResponse is keyed by upper-case symbol.
type QuoteResponse map[string]QuoteEntry

type QuoteEntry struct {
	AssetMainType *string    `json:"assetMainType"`
	Symbol        *string    `json:"symbol"`
	Quote         *Quote     `json:"quote"`
	Reference     *Reference `json:"reference"`
}

type Quote struct {
	LastPrice        *float64 `json:"lastPrice"`
	BidPrice         *float64 `json:"bidPrice"`
	AskPrice         *float64 `json:"askPrice"`
	BidSize          *float64 `json:"bidSize"`
	AskSize          *float64 `json:"askSize"`
	TotalVolume      *float64 `json:"totalVolume"`
	HighPrice        *float64 `json:"highPrice"`
	LowPrice         *float64 `json:"lowPrice"`
	OpenPrice        *float64 `json:"openPrice"`
	ClosePrice       *float64 `json:"closePrice"`
	NetChange        *float64 `json:"netChange"`
	NetPercentChange *float64 `json:"netPercentChange"`
	FiftyTwoWeekHigh *float64 `json:"52WeekHigh"`
	FiftyTwoWeekLow  *float64 `json:"52WeekLow"`
	PERatio          *float64 `json:"peRatio"`
	DivYield         *float64 `json:"divYield"`
}

type Reference struct {
	Description *string  `json:"description"`
	Exchange    *string  `json:"exchange"`
	MarketCap   *float64 `json:"marketCap"`
}

// OptionExpirationMap is expiration key -> strike key -> contracts.
type OptionExpirationMap map[string]map[string][]OptionContract

type OptionChain struct {
	Symbol            *string             `json:"symbol"`
	Status            *string             `json:"status"`
	Underlying        *Underlying         `json:"underlying"`
	IsDelayed         *bool               `json:"isDelayed"`
	NumberOfContracts *float64            `json:"numberOfContracts"`
	CallExpDateMap    OptionExpirationMap `json:"callExpDateMap"`
	PutExpDateMap     OptionExpirationMap `json:"putExpDateMap"`
}

type Underlying struct {
	Last          *float64 `json:"last"`
	Mark          *float64 `json:"mark"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	Change        *float64 `json:"change"`
	PercentChange *float64 `json:"percentChange"`
	TotalVolume   *float64 `json:"totalVolume"`
}

type OptionContract struct {
	Symbol           *string  `json:"symbol"`
	Description      *string  `json:"description"`
	ExpirationDate   *string  `json:"expirationDate"`
	DaysToExpiration *float64 `json:"daysToExpiration"`
	Bid              *float64 `json:"bid"`
	Ask              *float64 `json:"ask"`
	Last             *float64 `json:"last"`
	Mark             *float64 `json:"mark"`
	TotalVolume      *float64 `json:"totalVolume"`
	OpenInterest     *float64 `json:"openInterest"`
	Volatility       *float64 `json:"volatility"`
	Delta            *float64 `json:"delta"`
	Gamma            *float64 `json:"gamma"`
	Theta            *float64 `json:"theta"`
	Vega             *float64 `json:"vega"`
	Rho              *float64 `json:"rho"`
	InTheMoney       *bool    `json:"inTheMoney"`
	IntrinsicValue   *float64 `json:"intrinsicValue"`
	ExtrinsicValue   *float64 `json:"extrinsicValue"`
	TimeValue        *float64 `json:"timeValue"`
}

type PriceHistory struct {
	Symbol            *string  `json:"symbol"`
	Empty             *bool    `json:"empty"`
	PreviousClose     *float64 `json:"previousClose"`
	PreviousCloseDate *int64   `json:"previousCloseDate"`
	Candles           []Candle `json:"candles"`
}

type Candle struct {
	Datetime *int64   `json:"datetime"`
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    *float64 `json:"close"`
	Volume   *float64 `json:"volume"`
}

// OptionChainParams are the query parameters of the chains endpoint.
type OptionChainParams struct {
	Symbol                 string
	ContractType           string
	StrikeCount            *int
	IncludeUnderlyingQuote bool
	Strategy               string
	FromDate               string
	ToDate                 string
}

// PriceHistoryParams are the query parameters of the pricehistory endpoint.
// StartDate and EndDate are epoch milliseconds.
type PriceHistoryParams struct {
	Symbol                string
	PeriodType            string
	Period                int
	FrequencyType         string
	Frequency             int
	StartDate             *int64
	EndDate               *int64
	NeedExtendedHoursData bool
	NeedPreviousClose     bool
}
