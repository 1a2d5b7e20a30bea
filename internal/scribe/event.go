package scribe

import "fmt"

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRecording  State = "recording"
	StateStopped    State = "stopped"
	StateError      State = "error"
)

type EventKind int

const (
	EventOpened EventKind = iota
	EventFragment
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventFragment:
		return "fragment"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event - сигнал от транскрипции или микрофона.
// Text и Final заполнены для EventFragment, Err для EventError.
type Event struct {
	Kind  EventKind
	Text  string
	Final bool
	Err   error
}

// Snapshot - состояние для клиента
type Snapshot struct {
	State      State  `json:"state"`
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}
