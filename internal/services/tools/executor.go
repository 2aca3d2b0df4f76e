package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/deepgram/schwab-mcp/pkg/metrics"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/deepgram/schwab-mcp/internal/services/tools")

// DataClient is the part of the Schwab client the tools call.
type DataClient interface {
	GetAccountNumbers(ctx context.Context) ([]schwab.AccountNumber, error)
	GetAccount(ctx context.Context, accountHash string, fields ...string) (*schwab.SecuritiesAccount, error)
	GetQuote(ctx context.Context, symbol string) (schwab.QuoteResponse, error)
	GetQuotes(ctx context.Context, symbols []string) (schwab.QuoteResponse, error)
	GetOptionChain(ctx context.Context, p schwab.OptionChainParams) (*schwab.OptionChain, error)
	GetPriceHistory(ctx context.Context, p schwab.PriceHistoryParams) (*schwab.PriceHistory, error)
}

type ToolExecutor struct {
	client         DataClient
	defaultAccount string
	location       *time.Location
}

type ExecutorOption func(*ToolExecutor)

// WithDefaultAccount sets the account hash used when a call names none.
func WithDefaultAccount(hash string) ExecutorOption {
	return func(e *ToolExecutor) { e.defaultAccount = hash }
}

// WithLocation sets the zone used for price history dates and timestamps.
func WithLocation(loc *time.Location) ExecutorOption {
	return func(e *ToolExecutor) {
		if loc != nil {
			e.location = loc
		}
	}
}

func NewToolExecutor(client DataClient, opts ...ExecutorOption) *ToolExecutor {
	e := &ToolExecutor{
		client:   client,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteToolCall runs the named tool with JSON encoded arguments. Every
// failure is returned as an error; use Render to turn it into a host result.
func (e *ToolExecutor) ExecuteToolCall(ctx context.Context, name string, arguments []byte) (result interface{}, err error) {
	ctx, span := tracer.Start(ctx, "tool."+name)
	defer span.End()

	logger.Info(logger.TOOLS, "Executing tool call: %s", name)
	logger.Debug(logger.TOOLS, "Arguments: %s", string(arguments))

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = ErrorType(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logger.Error(logger.TOOLS, "Tool %s failed: %v", name, err)
		}
		span.SetAttributes(attribute.String("tool.result", outcome))
		metrics.ToolCalls.WithLabelValues(name, outcome).Inc()
	}()

	switch name {
	case GetPositions:
		var params models.AccountParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getPositions(ctx, params)

	case GetAccount:
		var params models.AccountParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getAccount(ctx, params)

	case GetQuote:
		var params models.QuoteParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getQuote(ctx, params)

	case GetQuotes:
		var params models.QuotesParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getQuotes(ctx, params)

	case GetOptionChain:
		var params models.OptionChainParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getOptionChain(ctx, params)

	case GetPriceHistory:
		var params models.PriceHistoryParams
		if err := decodeArgs(arguments, &params); err != nil {
			return nil, err
		}
		return e.getPriceHistory(ctx, params)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

// Render encodes a tool outcome as the indented JSON text sent to the host.
func Render(result interface{}, err error) (string, bool) {
	if err != nil {
		data, _ := json.MarshalIndent(NewErrorResult(err), "", "  ")
		return string(data), true
	}

	data, marshalErr := json.MarshalIndent(result, "", "  ")
	if marshalErr != nil {
		logger.Error(logger.TOOLS, "Failed to encode tool result: %v", marshalErr)
		data, _ = json.MarshalIndent(NewErrorResult(marshalErr), "", "  ")
		return string(data), true
	}
	return string(data), false
}

func decodeArgs(arguments []byte, out interface{}) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, out); err != nil {
		logger.Warn(logger.TOOLS, "Failed to parse tool arguments: %v", err)
		return &ArgumentError{Reason: err.Error()}
	}
	return nil
}
