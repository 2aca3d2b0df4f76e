package models

// Tool arguments. Optional values are pointers so defaults can be applied
// only when the caller left them out.

// AccountParams is shared by get_positions and get_account.
type AccountParams struct {
	AccountID string `json:"account_id"`
}

type QuoteParams struct {
	Symbol string `json:"symbol"`
}

type QuotesParams struct {
	Symbols []string `json:"symbols"`
}

type OptionChainParams struct {
	Symbol       string `json:"symbol"`
	ContractType string `json:"contract_type"`
	StrikeCount  *int   `json:"strike_count"`
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
}

type PriceHistoryParams struct {
	Symbol        string `json:"symbol"`
	PeriodType    string `json:"period_type"`
	Period        *int   `json:"period"`
	FrequencyType string `json:"frequency_type"`
	Frequency     *int   `json:"frequency"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	ExtendedHours *bool  `json:"extended_hours"`
}
