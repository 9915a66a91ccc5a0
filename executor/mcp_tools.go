package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/browserwing/locator/models"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPToolRegistry MCP 工具注册表
type MCPToolRegistry struct {
	locator   TextLocator // 为空时只注册 text_match
	matcher   textmatch.Config
	mcpServer *server.MCPServer
}

// NewMCPToolRegistry 创建 MCP 工具注册表
func NewMCPToolRegistry(locator TextLocator, matcher textmatch.Config, mcpServer *server.MCPServer) *MCPToolRegistry {
	return &MCPToolRegistry{
		locator:   locator,
		matcher:   matcher,
		mcpServer: mcpServer,
	}
}

// RegisterAllTools 注册所有工具到 MCP 服务器
func (r *MCPToolRegistry) RegisterAllTools() error {
	r.mcpServer.AddTool(textMatchTool(), r.handleTextMatch)

	if r.locator == nil {
		logger.Warn(context.Background(), "No page locator configured, only text_match is available")
		return nil
	}

	r.mcpServer.AddTool(findByTextTool(), r.handleFindByText)
	r.mcpServer.AddTool(clickByTextTool(), r.handleClickByText)
	r.mcpServer.AddTool(inputByTextTool(), r.handleInputByText)
	r.mcpServer.AddTool(listElementsTool(), r.handleListElements)
	return nil
}

func textMatchTool() mcpgo.Tool {
	return mcpgo.NewTool(
		"text_match",
		mcpgo.WithDescription("Rank candidate texts against a target text using exact, prefix, contains and fuzzy matching. Results are sorted by score, highest first."),
		mcpgo.WithString("target", mcpgo.Required(), mcpgo.Description("The text to look for")),
		mcpgo.WithArray("candidates",
			mcpgo.Required(),
			mcpgo.Description("Candidates as objects with 'id' and 'text'. The id is returned unchanged in the results."),
			mcpgo.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"text": map[string]any{"type": "string"},
				},
			}),
		),
		mcpgo.WithNumber("fuzzy_threshold", mcpgo.Description("Minimum similarity for fuzzy matches, 0 to 1 (default: 0.6)")),
		mcpgo.WithBoolean("case_sensitive", mcpgo.Description("Compare case-sensitively (default: false)")),
	)
}

func findByTextTool() mcpgo.Tool {
	return mcpgo.NewTool(
		"find_by_text",
		mcpgo.WithDescription("Find elements on the current page whose text matches the target. Returns ranked options with their index."),
		mcpgo.WithString("target", mcpgo.Required(), mcpgo.Description("Visible text, label or placeholder of the element")),
		mcpgo.WithString("mode", mcpgo.Description("Element kind: clickable or input (default: clickable)")),
	)
}

func clickByTextTool() mcpgo.Tool {
	return mcpgo.NewTool(
		"click_by_text",
		mcpgo.WithDescription("Click the element whose text best matches the target. If several elements match, the options are returned and index must be set."),
		mcpgo.WithString("target", mcpgo.Required(), mcpgo.Description("Visible text of the element to click")),
		mcpgo.WithNumber("index", mcpgo.Description("Index into the ranked options (default: choose automatically)")),
	)
}

func inputByTextTool() mcpgo.Tool {
	return mcpgo.NewTool(
		"input_by_text",
		mcpgo.WithDescription("Type text into the input whose label or placeholder best matches the target."),
		mcpgo.WithString("target", mcpgo.Required(), mcpgo.Description("Label or placeholder of the input")),
		mcpgo.WithString("text", mcpgo.Required(), mcpgo.Description("Text to type")),
		mcpgo.WithNumber("index", mcpgo.Description("Index into the ranked options (default: choose automatically)")),
		mcpgo.WithBoolean("clear", mcpgo.Description("Clear existing text before typing (default: true)")),
	)
}

func listElementsTool() mcpgo.Tool {
	return mcpgo.NewTool(
		"list_elements",
		mcpgo.WithDescription("List the visible clickable or input elements on the current page with their index and text, to see what text is available before locating."),
		mcpgo.WithString("mode", mcpgo.Description("Element kind: clickable or input (default: clickable)")),
	)
}

func (r *MCPToolRegistry) handleTextMatch(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var req models.MatchRequest
	if err := decodeArguments(request, &req); err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	results, err := textmatch.Match(req.Target, req.MatchCandidates(), req.MatcherConfig(r.matcher))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	return jsonResult(models.MatchResponse{
		Target:  req.Target,
		Results: results,
		Stats:   textmatch.Stats(results),
	})
}

func (r *MCPToolRegistry) handleFindByText(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := arguments(request)
	target, _ := args["target"].(string)
	mode, err := modeArgument(args)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	options, err := r.locator.FindByText(ctx, target, mode)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if len(options) == 0 {
		return mcpgo.NewToolResultText(fmt.Sprintf("No element matches '%s'", target)), nil
	}
	return jsonResult(options)
}

func (r *MCPToolRegistry) handleClickByText(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := arguments(request)
	target, _ := args["target"].(string)
	index, err := indexArgument(args)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	result, err := r.locator.ClickByText(ctx, target, index)
	return operationResult(result, err)
}

func (r *MCPToolRegistry) handleInputByText(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := arguments(request)
	target, _ := args["target"].(string)
	text, _ := args["text"].(string)
	clear := true
	if c, ok := args["clear"].(bool); ok {
		clear = c
	}
	index, err := indexArgument(args)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	result, err := r.locator.InputByText(ctx, target, text, index, clear)
	return operationResult(result, err)
}

func (r *MCPToolRegistry) handleListElements(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	mode, err := modeArgument(arguments(request))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	list, err := r.locator.ListElements(ctx, mode)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func arguments(request mcpgo.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// decodeArguments 通过 JSON 把参数转换为结构体
func decodeArguments(request mcpgo.CallToolRequest, out interface{}) error {
	data, err := json.Marshal(arguments(request))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// modeArgument 缺省为 clickable
func modeArgument(args map[string]interface{}) (ElementMode, error) {
	mode := ElementModeClickable
	if m, ok := args["mode"].(string); ok && m != "" {
		mode = ElementMode(m)
	}
	if mode != ElementModeClickable && mode != ElementModeInput {
		return "", fmt.Errorf("unknown mode: %s", mode)
	}
	return mode, nil
}

// indexArgument JSON 数字解码为 float64，缺省为 -1（自动选择），负数和小数都是错误
func indexArgument(args map[string]interface{}) (int, error) {
	raw, ok := args["index"]
	if !ok || raw == nil {
		return -1, nil
	}
	index, ok := raw.(float64)
	if !ok || index < 0 || index != math.Trunc(index) {
		return -1, fmt.Errorf("index must be a non-negative integer, got %v", raw)
	}
	return int(index), nil
}

func jsonResult(v interface{}) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcpgo.NewToolResultText(string(data)), nil
}

func operationResult(result *OperationResult, err error) (*mcpgo.CallToolResult, error) {
	// 有歧义时错误信息中带有全部候选项及其 index，调用方据此重试
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(result.Message), nil
}
