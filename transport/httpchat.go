package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/types"
)

const maxChatResponseBytes = 10 << 20

// HTTPChatOptions configures the chat-completions transport.
type HTTPChatOptions struct {
	// URL is the target endpoint. A bare base URL gets /chat/completions
	// appended.
	URL string

	// Model is an optional model field sent with each request; some
	// gateways require one.
	Model string

	// AuthType and Credentials configure request authentication.
	AuthType    types.AuthType
	Credentials string

	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

// HTTPChat talks to an OpenAI-style chat-completions endpoint. Because the
// wire protocol is stateless, the transport replays the session's
// transcript with every turn.
type HTTPChat struct {
	url    string
	model  string
	client *http.Client

	mu       sync.Mutex
	closed   bool
	sessions map[string][]chatWireMessage
}

type chatWireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string            `json:"model,omitempty"`
	Messages []chatWireMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatWireMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHTTPChat creates the chat-completions transport.
func NewHTTPChat(opts HTTPChatOptions) (*HTTPChat, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	url := strings.TrimSuffix(opts.URL, "/")
	if !strings.HasSuffix(url, "/chat/completions") {
		url += "/chat/completions"
	}

	client := opts.Client
	if client == nil {
		var err error
		client, err = newHTTPClient(opts.AuthType, opts.Credentials)
		if err != nil {
			return nil, err
		}
	}

	return &HTTPChat{
		url:      url,
		model:    opts.Model,
		client:   client,
		sessions: make(map[string][]chatWireMessage),
	}, nil
}

// Send dispatches one turn, replaying the session transcript.
func (t *HTTPChat) Send(ctx context.Context, message, sessionID string) (Reply, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Reply{}, rogue.E("HTTPChat.Send", rogue.KindTransport, rogue.ErrTransportClosed)
	}
	history := append([]chatWireMessage(nil), t.sessions[sessionID]...)
	t.mu.Unlock()

	messages := append(history, chatWireMessage{Role: "user", Content: message})

	body, err := json.Marshal(chatRequest{Model: t.model, Messages: messages})
	if err != nil {
		return Reply{}, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("dispatching to target agent: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponseBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("reading target agent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("target agent returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Reply{}, fmt.Errorf("parsing target agent response: %w", err)
	}
	if parsed.Error != nil {
		return Reply{Status: StatusError, Text: parsed.Error.Message}, nil
	}
	if len(parsed.Choices) == 0 {
		return Reply{}, fmt.Errorf("target agent response has no choices")
	}

	reply := parsed.Choices[0].Message.Content

	t.mu.Lock()
	t.sessions[sessionID] = append(t.sessions[sessionID],
		chatWireMessage{Role: "user", Content: message},
		chatWireMessage{Role: "assistant", Content: reply},
	)
	t.mu.Unlock()

	return Reply{Text: reply, Status: StatusComplete}, nil
}

// Close drops all session transcripts. Subsequent sends fail with
// rogue.ErrTransportClosed.
func (t *HTTPChat) Close() error {
	t.mu.Lock()
	t.closed = true
	t.sessions = make(map[string][]chatWireMessage)
	t.mu.Unlock()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
