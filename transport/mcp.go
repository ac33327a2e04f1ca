package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/types"
)

// Defaults for the MCP chat tool contract.
const (
	DefaultMCPToolName   = "chat"
	DefaultMCPMessageArg = "message"
	DefaultMCPSessionArg = "session_id"
)

// MCPOptions configures the Model Context Protocol transport.
type MCPOptions struct {
	// URL is the MCP server endpoint.
	URL string

	// Transport selects the wire variant: sse or streamable_http
	// (default streamable_http).
	Transport string

	// ToolName is the tool invoked per turn (default "chat").
	ToolName string

	// MessageArg and SessionArg name the tool arguments carrying the user
	// message and session ID.
	MessageArg string
	SessionArg string

	// AuthType and Credentials configure request authentication.
	AuthType    types.AuthType
	Credentials string
}

// MCP dispatches turns by calling a chat tool on an MCP server. The
// connection is established and initialized lazily on first send.
type MCP struct {
	opts MCPOptions

	mu     sync.Mutex
	client *mcpclient.Client
}

// NewMCP creates the MCP transport.
func NewMCP(opts MCPOptions) (*MCP, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("target URL is required")
	}
	switch opts.Transport {
	case "", TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unknown mcp transport %q", opts.Transport)
	}
	if opts.ToolName == "" {
		opts.ToolName = DefaultMCPToolName
	}
	if opts.MessageArg == "" {
		opts.MessageArg = DefaultMCPMessageArg
	}
	if opts.SessionArg == "" {
		opts.SessionArg = DefaultMCPSessionArg
	}
	return &MCP{opts: opts}, nil
}

func (t *MCP) connect(ctx context.Context) (*mcpclient.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	headers, err := authHeaders(t.opts.AuthType, t.opts.Credentials)
	if err != nil {
		return nil, err
	}

	var client *mcpclient.Client
	if t.opts.Transport == TransportSSE {
		client, err = mcpclient.NewSSEMCPClient(t.opts.URL, mcptransport.WithHeaders(headers))
	} else {
		client, err = mcpclient.NewStreamableHttpClient(t.opts.URL, mcptransport.WithHTTPHeaders(headers))
	}
	if err != nil {
		return nil, fmt.Errorf("creating mcp client: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "rogue",
		Version: rogue.Version,
	}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	t.client = client
	return client, nil
}

// Send invokes the chat tool with the message and session ID.
func (t *MCP) Send(ctx context.Context, message, sessionID string) (Reply, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return Reply{}, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.opts.ToolName
	req.Params.Arguments = map[string]any{
		t.opts.MessageArg: message,
		t.opts.SessionArg: sessionID,
	}

	resp, err := client.CallTool(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("mcp tool call: %w", err)
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if text, ok := content.(mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}

	status := StatusComplete
	if resp.IsError {
		status = StatusError
	}
	return Reply{Text: sb.String(), Status: status}, nil
}

// Close shuts down the MCP connection.
func (t *MCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
