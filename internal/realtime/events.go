package realtime

// EventType distinguishes the session events surfaced to callers.
type EventType string

const (
	// EventTranscript carries speech transcription, either a completed
	// user utterance or an assistant transcript fragment.
	EventTranscript EventType = "transcript"

	// EventTurnDone marks the end of an assistant response.
	EventTurnDone EventType = "turn_done"

	// EventFunctionCall asks the caller to execute a tool.
	EventFunctionCall EventType = "function_call"

	// EventInterrupted fires when the user starts speaking over the
	// assistant.
	EventInterrupted EventType = "interrupted"

	// EventError carries a server-reported error. The connection is
	// still usable.
	EventError EventType = "error"

	// EventDisconnect is the final event before the channel closes.
	EventDisconnect EventType = "disconnect"
)

// Event is a single occurrence on the realtime session.
type Event struct {
	Type EventType

	// Transcript fields.
	Role  string
	Text  string
	Final bool

	// Function call fields.
	CallID   string
	Name     string
	ArgsJSON string

	// Error and disconnect detail.
	Err error
}
