package mcp

import (
	"context"
	"strings"

	"github.com/deepgram/schwab-mcp/internal/services/tools"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	json "github.com/goccy/go-json"
	"github.com/viant/jsonrpc"
	mcpschema "github.com/viant/mcp-protocol/schema"
)

// Executor runs a tool by name with JSON encoded arguments.
type Executor interface {
	ExecuteToolCall(ctx context.Context, name string, arguments []byte) (interface{}, error)
}

// ToolHandler exposes the brokerage tools via MCP tools/list and tools/call.
type ToolHandler struct {
	service  *tools.Service
	executor Executor
}

func NewToolHandler(service *tools.Service, executor Executor) *ToolHandler {
	return &ToolHandler{service: service, executor: executor}
}

func (h *ToolHandler) Initialize(_ context.Context, _ *mcpschema.InitializeRequestParams, _ *mcpschema.InitializeResult) {
	logger.Debug(logger.HANDLER, "MCP session initialised")
}

func (h *ToolHandler) ListResources(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.ListResourcesRequest]) (*mcpschema.ListResourcesResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("resources/list not implemented", nil)
}

func (h *ToolHandler) ListResourceTemplates(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.ListResourceTemplatesRequest]) (*mcpschema.ListResourceTemplatesResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("resources/templates/list not implemented", nil)
}

func (h *ToolHandler) ReadResource(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.ReadResourceRequest]) (*mcpschema.ReadResourceResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("resources/read not implemented", nil)
}

func (h *ToolHandler) Subscribe(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.SubscribeRequest]) (*mcpschema.SubscribeResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("subscribe not implemented", nil)
}

func (h *ToolHandler) Unsubscribe(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.UnsubscribeRequest]) (*mcpschema.UnsubscribeResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("unsubscribe not implemented", nil)
}

func (h *ToolHandler) ListTools(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.ListToolsRequest]) (*mcpschema.ListToolsResult, *jsonrpc.Error) {
	defs := h.service.Definitions()
	out := make([]mcpschema.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, toolFromDefinition(d))
	}
	return &mcpschema.ListToolsResult{Tools: out}, nil
}

// CallTool never returns a protocol error for a known tool: failures come
// back as an error result the model can read.
func (h *ToolHandler) CallTool(ctx context.Context, req *jsonrpc.TypedRequest[*mcpschema.CallToolRequest]) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	if req == nil || req.Request == nil {
		return nil, jsonrpc.NewInvalidRequest("missing request", nil)
	}
	name := strings.TrimSpace(req.Request.Params.Name)
	if name == "" {
		return nil, jsonrpc.NewInvalidRequest("missing tool name", nil)
	}
	if _, ok := h.service.Lookup(name); !ok {
		logger.Warn(logger.HANDLER, "Unknown tool requested: %s", name)
		return nil, mcpschema.NewUnknownTool(name)
	}

	var args []byte
	if len(req.Request.Params.Arguments) > 0 {
		raw, err := json.Marshal(req.Request.Params.Arguments)
		if err != nil {
			return nil, jsonrpc.NewInvalidParamsError("unable to encode tool arguments: "+err.Error(), nil)
		}
		args = raw
	}

	result, err := h.executor.ExecuteToolCall(ctx, name, args)
	text, isError := tools.Render(result, err)

	res := &mcpschema.CallToolResult{
		Content: []mcpschema.CallToolResultContentElem{{Type: "text", Text: text}},
	}
	if isError {
		res.IsError = &isError
		return res, nil
	}

	var structured map[string]interface{}
	if err := json.Unmarshal([]byte(text), &structured); err == nil && structured != nil {
		res.StructuredContent = structured
	}
	return res, nil
}

func (h *ToolHandler) ListPrompts(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.ListPromptsRequest]) (*mcpschema.ListPromptsResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("prompts/list not implemented", nil)
}

func (h *ToolHandler) GetPrompt(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.GetPromptRequest]) (*mcpschema.GetPromptResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("prompts/get not implemented", nil)
}

func (h *ToolHandler) Complete(_ context.Context, _ *jsonrpc.TypedRequest[*mcpschema.CompleteRequest]) (*mcpschema.CompleteResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewMethodNotFound("complete not implemented", nil)
}

func (h *ToolHandler) OnNotification(_ context.Context, _ *jsonrpc.Notification) {}

func (h *ToolHandler) Implements(method string) bool {
	switch method {
	case mcpschema.MethodToolsList, mcpschema.MethodToolsCall:
		return true
	default:
		return false
	}
}

func toolFromDefinition(d tools.Definition) mcpschema.Tool {
	desc := d.Description
	required, _ := d.Parameters()["required"].([]interface{})

	var names []string
	for _, r := range required {
		if s, ok := r.(string); ok {
			names = append(names, s)
		}
	}

	return mcpschema.Tool{
		Name:        d.Name,
		Description: &desc,
		InputSchema: mcpschema.ToolInputSchema{
			Type:       "object",
			Properties: mcpschema.ToolInputSchemaProperties(d.Properties()),
			Required:   names,
		},
	}
}
