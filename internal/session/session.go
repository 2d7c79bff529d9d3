// Package session implements the conversation lifecycle: connect,
// context injection, tool registration, greeting, the live turn loop,
// and the end-of-session memory flush.
package session

import (
	"context"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/memstore"
	"github.com/roymercy27-cyber/jarvis-agent/internal/realtime"
)

// State tracks where a session is in its lifecycle. Transitions only
// move forward; there is no recovery path back to an earlier state.
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateContextLoading
	StateToolsReady
	StateLive
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateContextLoading:
		return "context_loading"
	case StateToolsReady:
		return "tools_ready"
	case StateLive:
		return "live"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one utterance in the conversation. Turns are appended in
// arrival order and never mutated afterwards.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Transport is the realtime connection the controller drives. The
// production implementation is realtime.Client.
type Transport interface {
	Connect(ctx context.Context) error
	ConfigureSession(opts realtime.SessionOptions) error
	InjectMessage(role, text string) error
	CreateResponse(instructions string) error
	SendFunctionResult(callID, output string) error
	Events() <-chan realtime.Event
	Close() error
}

// MemoryStore is the remote long-term memory service.
type MemoryStore interface {
	FetchAll(ctx context.Context, ownerID string) ([]memstore.Record, error)
	Append(ctx context.Context, ownerID string, messages []memstore.Message) error
}

// Archiver persists a completed session transcript locally.
type Archiver interface {
	SaveSession(ctx context.Context, id, ownerID string, startedAt, endedAt time.Time, turns []Turn) error
}
