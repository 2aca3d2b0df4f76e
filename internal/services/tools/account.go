package tools

import (
	"context"
	"math"
	"strings"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	"github.com/deepgram/schwab-mcp/pkg/logger"
)

var taxableAccountTypes = map[string]bool{
	"INDIVIDUAL": true,
	"JOINT":      true,
	"TRUST":      true,
	"CORPORATE":  true,
}

// resolveAccount picks the explicit account, then the configured default,
// then the first linked account.
func (e *ToolExecutor) resolveAccount(ctx context.Context, accountID string) (string, error) {
	if id := strings.TrimSpace(accountID); id != "" {
		return id, nil
	}
	if e.defaultAccount != "" {
		return e.defaultAccount, nil
	}

	accounts, err := e.client.GetAccountNumbers(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 || accounts[0].HashValue == "" {
		return "", ErrNoAccounts
	}
	logger.Debug(logger.TOOLS, "Defaulting to first of %d accounts", len(accounts))
	return accounts[0].HashValue, nil
}

func (e *ToolExecutor) getPositions(ctx context.Context, params models.AccountParams) (*models.PositionsResult, error) {
	hash, err := e.resolveAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	account, err := e.client.GetAccount(ctx, hash, "positions")
	if err != nil {
		return nil, err
	}

	return &models.PositionsResult{
		AccountID: hash,
		Positions: parsePositions(account.Positions),
	}, nil
}

func parsePositions(positions []schwab.Position) []models.Position {
	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, parsePosition(p))
	}
	return out
}

func parsePosition(p schwab.Position) models.Position {
	quantity := valueOr(p.LongQuantity, 0) - valueOr(p.ShortQuantity, 0)
	marketValue := valueOr(p.MarketValue, 0)

	pos := models.Position{
		Quantity:         quantity,
		MarketValue:      marketValue,
		AveragePrice:     p.AveragePrice,
		CostPerShare:     p.AverageCostBasis,
		DayChange:        p.CurrentDayProfitLoss,
		DayChangePercent: p.CurrentDayProfitLossPercentage,
	}
	if p.Instrument != nil {
		pos.Symbol = p.Instrument.Symbol
		pos.Description = p.Instrument.Description
		pos.AssetType = p.Instrument.AssetType
	}

	if p.AverageCostBasis != nil {
		pos.CostBasis = ptr(*p.AverageCostBasis * math.Abs(quantity))
	}

	if pos.CostBasis != nil && marketValue != 0 {
		costBasis := *pos.CostBasis
		pos.GainLoss = ptr(marketValue - costBasis)
		if costBasis != 0 {
			pos.GainLossPercent = ptr((marketValue - costBasis) / costBasis * 100)
		} else {
			pos.GainLossPercent = ptr(0.0)
		}
	}

	return pos
}

func (e *ToolExecutor) getAccount(ctx context.Context, params models.AccountParams) (*models.AccountResult, error) {
	hash, err := e.resolveAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	account, err := e.client.GetAccount(ctx, hash)
	if err != nil {
		return nil, err
	}

	result := parseAccount(account)
	result.AccountID = hash
	return result, nil
}

func parseAccount(account *schwab.SecuritiesAccount) *models.AccountResult {
	accountType := "UNKNOWN"
	if account.Type != nil && *account.Type != "" {
		accountType = *account.Type
	}

	balances := account.CurrentBalances
	if balances.IsEmpty() {
		balances = account.InitialBalances
	}

	result := &models.AccountResult{
		AccountType: accountType,
		IsTaxable:   taxableAccountTypes[accountType],
	}
	if balances != nil {
		result.Balances = models.Balances{
			CashAvailable: balances.AvailableFunds,
			CashBalance:   balances.CashBalance,
			MarketValue:   balances.LongMarketValue,
			TotalValue:    balances.LiquidationValue,
			BuyingPower:   balances.BuyingPower,
		}
	}
	return result
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func ptr[T any](v T) *T {
	return &v
}
