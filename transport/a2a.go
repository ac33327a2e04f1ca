package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"

	"github.com/qualifire-dev/rogue/types"
)

// A2AOptions configures the Agent-to-Agent transport.
type A2AOptions struct {
	// URL is the base URL of the target A2A server; the agent card is
	// resolved from its well-known location.
	URL string

	// AuthType and Credentials configure request authentication.
	AuthType    types.AuthType
	Credentials string
}

// A2A dispatches turns over the Agent-to-Agent protocol. The client is
// created lazily on first send so construction never touches the network.
type A2A struct {
	opts A2AOptions

	mu       sync.Mutex
	client   *a2aclient.Client
	contexts map[string]string
}

// NewA2A creates the A2A transport.
func NewA2A(opts A2AOptions) (*A2A, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("target URL is required")
	}
	return &A2A{opts: opts, contexts: make(map[string]string)}, nil
}

func (t *A2A) connect(ctx context.Context) (*a2aclient.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	httpClient, err := newHTTPClient(t.opts.AuthType, t.opts.Credentials)
	if err != nil {
		return nil, err
	}

	resolver := agentcard.NewResolver(httpClient)
	card, err := resolver.Resolve(ctx, strings.TrimSuffix(t.opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("resolving agent card: %w", err)
	}

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("creating a2a client: %w", err)
	}

	t.client = client
	return client, nil
}

// Send delivers one turn. The first turn of a session establishes an A2A
// context; later turns reuse it so the remote agent sees one conversation.
func (t *A2A) Send(ctx context.Context, message, sessionID string) (Reply, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return Reply{}, err
	}

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: message})
	t.mu.Lock()
	msg.ContextID = t.contexts[sessionID]
	t.mu.Unlock()

	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return Reply{}, fmt.Errorf("a2a send: %w", err)
	}

	reply, contextID := t.interpret(result)
	if contextID != "" {
		t.mu.Lock()
		t.contexts[sessionID] = contextID
		t.mu.Unlock()
	}
	return reply, nil
}

// interpret extracts reply text, status, and the context ID from a send
// result, which may be a direct message or a task.
func (t *A2A) interpret(result any) (Reply, string) {
	switch r := result.(type) {
	case *a2a.Message:
		return Reply{Text: partsText(r.Parts), Status: StatusComplete}, r.ContextID

	case *a2a.Task:
		var sb strings.Builder
		for _, artifact := range r.Artifacts {
			sb.WriteString(partsText(artifact.Parts))
		}
		if r.Status.Message != nil {
			sb.WriteString(partsText(r.Status.Message.Parts))
		}

		status := StatusComplete
		switch r.Status.State {
		case a2a.TaskStateInputRequired:
			status = StatusNeedsInput
		case a2a.TaskStateFailed, a2a.TaskStateRejected:
			status = StatusError
		}
		return Reply{Text: sb.String(), Status: status}, r.ContextID

	default:
		return Reply{Status: StatusError}, ""
	}
}

func partsText(parts []a2a.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// Close destroys the underlying client.
func (t *A2A) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Destroy()
	t.client = nil
	return err
}
