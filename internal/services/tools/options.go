package tools

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	"github.com/deepgram/schwab-mcp/pkg/logger"
)

func (e *ToolExecutor) getOptionChain(ctx context.Context, params models.OptionChainParams) (*models.OptionChainResult, error) {
	symbol, err := normalizeSymbol("symbol", params.Symbol)
	if err != nil {
		return nil, err
	}

	contractType := strings.ToUpper(strings.TrimSpace(params.ContractType))
	if contractType == "" {
		contractType = "ALL"
	}
	if !oneOf(contractType, contractTypes) {
		return nil, invalid("contract_type", "must be one of CALL, PUT, ALL")
	}
	if params.StrikeCount != nil && *params.StrikeCount <= 0 {
		return nil, invalid("strike_count", "must be positive")
	}
	for field, value := range map[string]string{"from_date": params.FromDate, "to_date": params.ToDate} {
		if value == "" {
			continue
		}
		if _, err := parseDate(value, e.location); err != nil {
			return nil, invalid(field, "expected YYYY-MM-DD, got %q", value)
		}
	}

	chain, err := e.client.GetOptionChain(ctx, schwab.OptionChainParams{
		Symbol:                 symbol,
		ContractType:           contractType,
		StrikeCount:            params.StrikeCount,
		IncludeUnderlyingQuote: true,
		Strategy:               "SINGLE",
		FromDate:               params.FromDate,
		ToDate:                 params.ToDate,
	})
	if err != nil {
		return nil, err
	}

	result := &models.OptionChainResult{
		Symbol:            symbol,
		Status:            chain.Status,
		IsDelayed:         chain.IsDelayed,
		NumberOfContracts: chain.NumberOfContracts,
		Calls:             []models.OptionContract{},
		Puts:              []models.OptionContract{},
	}

	if u := chain.Underlying; u != nil {
		result.UnderlyingPrice = underlyingPrice(u)
		result.Underlying = models.UnderlyingSummary{
			Last:          u.Last,
			Bid:           u.Bid,
			Ask:           u.Ask,
			Change:        u.Change,
			PercentChange: u.PercentChange,
			Volume:        u.TotalVolume,
		}
	}

	if contractType == "CALL" || contractType == "ALL" {
		result.Calls = flattenOptionMap(chain.CallExpDateMap)
	}
	if contractType == "PUT" || contractType == "ALL" {
		result.Puts = flattenOptionMap(chain.PutExpDateMap)
	}

	return result, nil
}

// underlyingPrice prefers the last trade and falls back to the mark when the
// last price is missing or zero.
func underlyingPrice(u *schwab.Underlying) *float64 {
	if u.Last != nil && *u.Last != 0 {
		return u.Last
	}
	return u.Mark
}

// flattenOptionMap takes the first contract at each strike, skipping strikes
// with no contracts, ordered by expiration then strike.
func flattenOptionMap(expirations schwab.OptionExpirationMap) []models.OptionContract {
	out := []models.OptionContract{}
	for expiration, strikes := range expirations {
		for strikeKey, contracts := range strikes {
			if len(contracts) == 0 {
				continue
			}
			strike, err := strconv.ParseFloat(strikeKey, 64)
			if err != nil {
				logger.Warn(logger.TOOLS, "Skipping unparseable strike %q at %s", strikeKey, expiration)
				continue
			}
			out = append(out, parseOptionContract(strike, contracts[0]))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := derefString(out[i].Expiration), derefString(out[j].Expiration)
		if ei != ej {
			return ei < ej
		}
		return out[i].Strike < out[j].Strike
	})
	return out
}

func parseOptionContract(strike float64, c schwab.OptionContract) models.OptionContract {
	return models.OptionContract{
		Symbol:           c.Symbol,
		Description:      c.Description,
		Strike:           strike,
		Expiration:       c.ExpirationDate,
		DaysToExpiration: c.DaysToExpiration,
		Bid:              c.Bid,
		Ask:              c.Ask,
		Last:             c.Last,
		Mark:             c.Mark,
		Volume:           c.TotalVolume,
		OpenInterest:     c.OpenInterest,
		ImpliedVol:       c.Volatility,
		Delta:            c.Delta,
		Gamma:            c.Gamma,
		Theta:            c.Theta,
		Vega:             c.Vega,
		Rho:              c.Rho,
		InTheMoney:       c.InTheMoney,
		IntrinsicValue:   c.IntrinsicValue,
		ExtrinsicValue:   c.ExtrinsicValue,
		TimeValue:        c.TimeValue,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func oneOf(value string, allowed []interface{}) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
