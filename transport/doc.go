// Package transport dispatches conversation turns to the agent under test.
//
// Every variant implements the same contract: Send delivers one user
// message within an opaque session and returns the agent's reply text plus
// a coarse status (complete, needs_input, error). The session ID is
// preserved across the turns of one scenario; how it maps onto the wire
// protocol is the variant's business.
//
// Variants:
//   - HTTPChat: OpenAI-style chat-completions endpoint.
//   - A2A: Agent-to-Agent protocol over HTTP (a2a-go).
//   - MCP: Model Context Protocol over SSE or streamable HTTP (mcp-go),
//     invoking a configured chat tool.
//   - InProcess: a Go callable, used for tests and embedded targets.
//
// Authentication is injected at the HTTP layer: api_key becomes an
// X-API-Key header, bearer_token and basic become Authorization headers.
package transport
