package transport

import (
	"context"
	"fmt"

	"github.com/qualifire-dev/rogue/types"
)

// Status is the coarse outcome of one dispatch.
type Status string

const (
	// StatusComplete indicates the agent produced a final reply.
	StatusComplete Status = "complete"

	// StatusNeedsInput indicates the agent is waiting for more input.
	StatusNeedsInput Status = "needs_input"

	// StatusError indicates the agent reported a failure for this turn.
	StatusError Status = "error"
)

// Reply is the agent's response to one dispatched message.
type Reply struct {
	// Text is the agent's reply text.
	Text string

	// Status classifies the outcome of the turn.
	Status Status
}

// Transport delivers messages to the agent under test. Implementations
// must be safe for concurrent use across sessions; turns within one
// session are sequential.
type Transport interface {
	// Send delivers message within the given session and returns the
	// agent's reply. The session ID is opaque and preserved across the
	// turns of one scenario. An error return means the message could not
	// be delivered or the reply could not be read; protocol-level agent
	// failures surface as StatusError instead.
	Send(ctx context.Context, message, sessionID string) (Reply, error)

	// Close releases any connections held by the transport.
	Close() error
}

// Protocol identifiers accepted in agent configuration.
const (
	ProtocolA2A    = "a2a"
	ProtocolMCP    = "mcp"
	ProtocolOpenAI = "openai"
	ProtocolPython = "python"
)

// Transport identifiers for protocols with more than one wire variant.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable_http"
)

// New builds the transport described by the agent configuration. The
// python protocol has no network transport; callers embed the target via
// NewInProcess instead.
func New(cfg types.AgentConfig) (Transport, error) {
	switch cfg.Protocol {
	case ProtocolOpenAI, "":
		return NewHTTPChat(HTTPChatOptions{
			URL:         cfg.EvaluatedAgentURL,
			AuthType:    cfg.AuthType,
			Credentials: cfg.Credentials,
		})
	case ProtocolA2A:
		return NewA2A(A2AOptions{
			URL:         cfg.EvaluatedAgentURL,
			AuthType:    cfg.AuthType,
			Credentials: cfg.Credentials,
		})
	case ProtocolMCP:
		return NewMCP(MCPOptions{
			URL:         cfg.EvaluatedAgentURL,
			Transport:   cfg.Transport,
			AuthType:    cfg.AuthType,
			Credentials: cfg.Credentials,
		})
	case ProtocolPython:
		return nil, fmt.Errorf("python protocol targets run in-process; construct the transport with NewInProcess")
	default:
		return nil, fmt.Errorf("unknown protocol %q", cfg.Protocol)
	}
}
