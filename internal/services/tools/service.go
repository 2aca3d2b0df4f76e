package tools

import (
	"sync"

	json "github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/swaggest/jsonschema-go"
)

const (
	GetPositions    = "get_positions"
	GetAccount      = "get_account"
	GetQuote        = "get_quote"
	GetQuotes       = "get_quotes"
	GetOptionChain  = "get_option_chain"
	GetPriceHistory = "get_price_history"
)

var (
	periodTypes    = []interface{}{"day", "month", "year", "ytd"}
	frequencyTypes = []interface{}{"minute", "daily", "weekly", "monthly"}
	contractTypes  = []interface{}{"CALL", "PUT", "ALL"}
)

// Definition describes one tool and its argument schema.
type Definition struct {
	Name        string
	Description string
	Schema      jsonschema.Schema
}

// Parameters renders the argument schema as a plain JSON object.
func (d Definition) Parameters() map[string]interface{} {
	out := map[string]interface{}{}
	data, err := json.Marshal(d.Schema)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

// Properties returns the per-argument schemas keyed by argument name.
func (d Definition) Properties() map[string]map[string]interface{} {
	props := map[string]map[string]interface{}{}
	raw, ok := d.Parameters()["properties"].(map[string]interface{})
	if !ok {
		return props
	}
	for name, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			props[name] = m
		}
	}
	return props
}

type Service struct {
	definitions []Definition
	mu          sync.RWMutex
}

func NewService() *Service {
	return &Service{definitions: buildDefinitions()}
}

// Definitions returns the tools in their listing order.
func (s *Service) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Definition(nil), s.definitions...)
}

// Lookup finds a tool by name.
func (s *Service) Lookup(name string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// GetTools returns the definitions as OpenAI function tools.
func (s *Service) GetTools() []openai.Tool {
	defs := s.Definitions()
	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.Tool{
			Type: "function",
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters(),
			},
		})
	}
	return tools
}

func buildDefinitions() []Definition {
	accountID := property(jsonschema.String, "Account hash (optional, uses the configured default or first account if not provided)")

	return []Definition{
		{
			Name:        GetPositions,
			Description: "Get all positions with cost basis, quantity, market value, and gain/loss for an account",
			Schema:      object(map[string]jsonschema.SchemaOrBool{"account_id": accountID}),
		},
		{
			Name:        GetAccount,
			Description: "Get account information including type (IRA, taxable, etc.) and balances",
			Schema:      object(map[string]jsonschema.SchemaOrBool{"account_id": accountID}),
		},
		{
			Name:        GetQuote,
			Description: "Get real-time quote for a stock symbol including price, bid/ask, volume, and fundamentals",
			Schema: object(map[string]jsonschema.SchemaOrBool{
				"symbol": property(jsonschema.String, "Stock ticker symbol (e.g., 'AAPL', 'CRM')"),
			}, "symbol"),
		},
		{
			Name:        GetQuotes,
			Description: "Get real-time quotes for multiple symbols at once",
			Schema: object(map[string]jsonschema.SchemaOrBool{
				"symbols": property(jsonschema.Array, "List of ticker symbols", withItems(jsonschema.String)),
			}, "symbols"),
		},
		{
			Name:        GetOptionChain,
			Description: "Get options chain with Greeks (delta, gamma, theta, vega) for a symbol",
			Schema: object(map[string]jsonschema.SchemaOrBool{
				"symbol":        property(jsonschema.String, "Underlying stock symbol"),
				"contract_type": property(jsonschema.String, "Type of options to retrieve", withEnum(contractTypes...), withDefault("ALL")),
				"strike_count":  property(jsonschema.Integer, "Number of strikes above and below ATM (default: all strikes)"),
				"from_date":     property(jsonschema.String, "Start date for expirations (YYYY-MM-DD)"),
				"to_date":       property(jsonschema.String, "End date for expirations (YYYY-MM-DD)"),
			}, "symbol"),
		},
		{
			Name:        GetPriceHistory,
			Description: "Get historical OHLCV price data for technical analysis",
			Schema: object(map[string]jsonschema.SchemaOrBool{
				"symbol":         property(jsonschema.String, "Stock ticker symbol"),
				"period_type":    property(jsonschema.String, "Type of period (default: year)", withEnum(periodTypes...), withDefault("year")),
				"period":         property(jsonschema.Integer, "Number of periods (default: 1)", withDefault(1)),
				"frequency_type": property(jsonschema.String, "Frequency of data points (default: daily)", withEnum(frequencyTypes...), withDefault("daily")),
				"frequency":      property(jsonschema.Integer, "Frequency interval (default: 1)", withDefault(1)),
				"start_date":     property(jsonschema.String, "Start date (YYYY-MM-DD), alternative to period"),
				"end_date":       property(jsonschema.String, "End date (YYYY-MM-DD)"),
				"extended_hours": property(jsonschema.Boolean, "Include extended hours data (default: false)", withDefault(false)),
			}, "symbol"),
		},
	}
}

func object(props map[string]jsonschema.SchemaOrBool, required ...string) jsonschema.Schema {
	schema := jsonschema.Schema{}
	schema.AddType(jsonschema.Object)
	schema.WithProperties(props)
	schema.Required = append([]string{}, required...)
	return schema
}

func property(t jsonschema.SimpleType, description string, opts ...func(*jsonschema.Schema)) jsonschema.SchemaOrBool {
	schema := &jsonschema.Schema{}
	schema.AddType(t)
	schema.WithDescription(description)
	for _, opt := range opts {
		opt(schema)
	}
	return jsonschema.SchemaOrBool{TypeObject: schema}
}

func withEnum(values ...interface{}) func(*jsonschema.Schema) {
	return func(s *jsonschema.Schema) { s.WithEnum(values...) }
}

func withDefault(value interface{}) func(*jsonschema.Schema) {
	return func(s *jsonschema.Schema) { s.WithDefault(value) }
}

func withItems(t jsonschema.SimpleType) func(*jsonschema.Schema) {
	return func(s *jsonschema.Schema) {
		item := &jsonschema.Schema{}
		item.AddType(t)
		s.Items = &jsonschema.Items{SchemaOrBool: &jsonschema.SchemaOrBool{TypeObject: item}}
	}
}
