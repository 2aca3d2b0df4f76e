package tools

import (
	"context"
	"sync"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
)

// fakeClient serves canned payloads and records what was asked for.
type fakeClient struct {
	mu sync.Mutex

	accountNumbers []schwab.AccountNumber
	accounts       map[string]*schwab.SecuritiesAccount
	quotes         schwab.QuoteResponse
	chain          *schwab.OptionChain
	history        *schwab.PriceHistory
	err            error

	accountNumberCalls int
	lastAccountHash    string
	lastFields         []string
	lastSymbols        []string
	lastChain          schwab.OptionChainParams
	lastHistory        schwab.PriceHistoryParams
}

func (f *fakeClient) GetAccountNumbers(ctx context.Context) ([]schwab.AccountNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountNumberCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.accountNumbers, nil
}

func (f *fakeClient) GetAccount(ctx context.Context, accountHash string, fields ...string) (*schwab.SecuritiesAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAccountHash = accountHash
	f.lastFields = fields
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.accounts[accountHash]; ok {
		return a, nil
	}
	return &schwab.SecuritiesAccount{}, nil
}

func (f *fakeClient) GetQuote(ctx context.Context, symbol string) (schwab.QuoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSymbols = []string{symbol}
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *fakeClient) GetQuotes(ctx context.Context, symbols []string) (schwab.QuoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSymbols = symbols
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *fakeClient) GetOptionChain(ctx context.Context, p schwab.OptionChainParams) (*schwab.OptionChain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastChain = p
	if f.err != nil {
		return nil, f.err
	}
	if f.chain == nil {
		return &schwab.OptionChain{}, nil
	}
	return f.chain, nil
}

func (f *fakeClient) GetPriceHistory(ctx context.Context, p schwab.PriceHistoryParams) (*schwab.PriceHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHistory = p
	if f.err != nil {
		return nil, f.err
	}
	if f.history == nil {
		return &schwab.PriceHistory{}, nil
	}
	return f.history, nil
}

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }
