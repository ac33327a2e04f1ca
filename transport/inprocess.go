package transport

import (
	"context"
	"sync/atomic"

	"github.com/qualifire-dev/rogue"
)

// InProcessFunc is a target agent embedded in the evaluating process. It
// receives the user message and session ID and returns the reply.
type InProcessFunc func(ctx context.Context, message, sessionID string) (string, error)

// InProcess adapts a Go callable to the Transport contract. Used for
// python-protocol targets bridged into the process and for tests.
type InProcess struct {
	fn     InProcessFunc
	closed atomic.Bool
}

// NewInProcess creates an in-process transport around fn.
func NewInProcess(fn InProcessFunc) *InProcess {
	return &InProcess{fn: fn}
}

// Send invokes the callable. A callable error is reported as a transport
// error, matching how remote variants report delivery failures.
func (t *InProcess) Send(ctx context.Context, message, sessionID string) (Reply, error) {
	if t.closed.Load() {
		return Reply{}, rogue.E("InProcess.Send", rogue.KindTransport, rogue.ErrTransportClosed)
	}
	text, err := t.fn(ctx, message, sessionID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Status: StatusComplete}, nil
}

// Close marks the transport closed; subsequent sends fail with
// rogue.ErrTransportClosed.
func (t *InProcess) Close() error {
	t.closed.Store(true)
	return nil
}
