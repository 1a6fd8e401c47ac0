package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/version"
)

// webhookPath is the JSON-RPC endpoint on the talent success MCP server.
const webhookPath = "/webhook/talent-success/mcp"

// Client speaks JSON-RPC 2.0 over HTTP POST to the tool server.
type Client struct {
	httpClient *http.Client
	endpoint   string
	authToken  string
	nextID     atomic.Int64
	logger     *slog.Logger
}

// NewClient creates a tool server client from resolved configuration.
func NewClient(cfg config.MCPConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + webhookPath,
		authToken:  cfg.AuthToken,
		logger:     slog.Default().With("component", "mcp-client"),
	}
}

// Tool is one entry of the server's tool catalog.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ContentBlock is one item of a tool call result.
type ContentBlock struct {
	Type string `json:"type"` // "text" or "image"
	Text string `json:"text,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// ListTools fetches the tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes one tool and returns its content blocks.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) ([]ContentBlock, error) {
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}
	var result struct {
		Content []ContentBlock `json:"content"`
	}
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return nil, fmt.Errorf("call tool %s: %w", name, err)
	}
	return result.Content, nil
}

// call performs one JSON-RPC exchange and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("MCP server returned HTTP %d for %s: %s",
			resp.StatusCode, method, strings.TrimSpace(string(detail)))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response for %s: %w", method, err)
	}
	if rpcResp.Error != nil {
		c.logger.Error("MCP request failed",
			"method", method,
			"code", rpcResp.Error.Code,
			"message", rpcResp.Error.Message)
		return rpcResp.Error
	}

	if out == nil || rpcResp.Result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode result for %s: %w", method, err)
	}
	return nil
}
