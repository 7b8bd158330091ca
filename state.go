package a2dp

import (
	"sync"

	"github.com/hastur-dev/bluetooth-a2dp/hci"
	"github.com/sirupsen/logrus"
)

// State is the session state. Disconnected is both initial and
// terminal; Streaming is the only state in which media packets are
// transmitted.
type State uint8

const (
	StateDisconnected State = iota
	StateDiscoverable
	StateConnecting
	StateConnected
	StateConfiguring
	StateOpen
	StateStreaming
	StateSuspended
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateDiscoverable:
		return "Discoverable"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateConfiguring:
		return "Configuring"
	case StateOpen:
		return "Open"
	case StateStreaming:
		return "Streaming"
	case StateSuspended:
		return "Suspended"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// EventKind enumerates the inputs the state machine reacts to.
type EventKind uint8

const (
	// User-initiated events.
	EventMakeDiscoverable EventKind = iota
	EventConnect
	EventStartStream
	EventPauseStream
	EventDisconnect

	// Link and channel events.
	EventConnectionComplete
	EventConnectionFailed
	EventSignalingChannelOpen
	EventLinkLost

	// Signaling procedure outcomes.
	EventConfigAccepted
	EventConfigRejected
	EventStreamOpened
	EventStreamStarted
	EventStreamSuspended
	EventStreamClosed
	EventSignalingFailed
	EventDisconnected

	// EventRenegotiate requests a fresh configuration episode from
	// Connected after an earlier one exhausted its attempts.
	EventRenegotiate
)

// Event is one state machine input with its payload fields. Unused
// fields are zero.
type Event struct {
	Kind   EventKind
	Addr   hci.BdAddr
	Handle hci.ConnectionHandle
}

// ActionKind enumerates the side effects a transition requests. The
// Manager executes actions; the state machine itself is pure
// bookkeeping and therefore directly testable.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionEnableDiscovery
	ActionInitiateConnection
	ActionOpenSignalingChannel
	ActionStartDiscovery
	ActionRetryConfiguration
	ActionSendStart
	ActionSendSuspend
	ActionSendClose
	ActionDisconnectLink
	ActionTeardown
	// ActionReconnect tears down per-connection resources and then
	// re-enters discovery; requested on unexpected link loss with
	// auto-reconnect enabled.
	ActionReconnect
	// ActionConfigFailed reports that the configuration attempt budget
	// is spent; the session stays in Connected awaiting an explicit
	// renegotiation or disconnect.
	ActionConfigFailed
)

// Action is the side effect requested by a transition.
type Action struct {
	Kind ActionKind
	Addr hci.BdAddr
	// Attempt carries the configuration attempt number for
	// ActionStartDiscovery and ActionRetryConfiguration.
	Attempt int
}

// StateMachine owns the session state and its transition rules. It is
// deliberately free of I/O: every transition returns the action the
// caller must execute. Safe for concurrent use; the coordinator reads
// State while the manager processes events.
type StateMachine struct {
	mu sync.RWMutex

	state          State
	remoteAddr     hci.BdAddr
	aclHandle      hci.ConnectionHandle
	configAttempts int

	autoReconnect bool
	maxAttempts   int
}

// NewStateMachine creates a machine in Disconnected.
func NewStateMachine(autoReconnect bool, maxConfigAttempts int) *StateMachine {
	return &StateMachine{
		state:         StateDisconnected,
		autoReconnect: autoReconnect,
		maxAttempts:   maxConfigAttempts,
	}
}

// State returns the current session state.
func (m *StateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// RemoteAddr returns the peer address, zero when disconnected.
func (m *StateMachine) RemoteAddr() hci.BdAddr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remoteAddr
}

// Handle returns the ACL connection handle.
func (m *StateMachine) Handle() hci.ConnectionHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aclHandle
}

// ConfigAttempts returns the attempt count of the current Configuring
// episode.
func (m *StateMachine) ConfigAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configAttempts
}

// Process applies one event and returns the resulting state plus the
// action to execute. Unhandled state/event pairs are no-ops: redundant
// SUSPEND or CLOSE notifications in particular are idempotent, never
// errors.
func (m *StateMachine) Process(ev Event) (State, Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	action := m.transition(ev)

	if m.state != prev {
		logrus.WithFields(logrus.Fields{
			"function": "StateMachine.Process",
			"from":     prev.String(),
			"to":       m.state.String(),
			"event":    ev.Kind,
		}).Info("Session state transition")
	}

	return m.state, action
}

func (m *StateMachine) transition(ev Event) Action {
	switch m.state {
	case StateDisconnected:
		switch ev.Kind {
		case EventMakeDiscoverable:
			m.state = StateDiscoverable
			return Action{Kind: ActionEnableDiscovery}
		case EventConnect:
			m.remoteAddr = ev.Addr
			m.state = StateConnecting
			return Action{Kind: ActionInitiateConnection, Addr: ev.Addr}
		}

	case StateDiscoverable:
		switch ev.Kind {
		case EventConnectionComplete:
			m.remoteAddr = ev.Addr
			m.aclHandle = ev.Handle
			m.state = StateConnected
			return Action{Kind: ActionOpenSignalingChannel}
		case EventConnect:
			m.remoteAddr = ev.Addr
			m.state = StateConnecting
			return Action{Kind: ActionInitiateConnection, Addr: ev.Addr}
		case EventDisconnect:
			m.state = StateDisconnected
			return Action{Kind: ActionNone}
		}

	case StateConnecting:
		switch ev.Kind {
		case EventConnectionComplete:
			m.aclHandle = ev.Handle
			m.state = StateConnected
			return Action{Kind: ActionOpenSignalingChannel}
		case EventConnectionFailed, EventSignalingFailed:
			return m.dropLink(false)
		}

	case StateConnected:
		switch ev.Kind {
		case EventSignalingChannelOpen, EventRenegotiate:
			m.configAttempts = 1
			m.state = StateConfiguring
			return Action{Kind: ActionStartDiscovery, Attempt: 1}
		case EventDisconnect:
			m.state = StateClosing
			return Action{Kind: ActionDisconnectLink}
		}

	case StateConfiguring:
		switch ev.Kind {
		case EventStreamOpened:
			m.state = StateOpen
			return Action{Kind: ActionNone}
		case EventConfigRejected, EventSignalingFailed:
			// Re-entrant with a bounded attempt counter: retry with
			// adjusted parameters, then fall back to Connected for a
			// later renegotiation rather than tearing the link down.
			if m.configAttempts < m.maxAttempts {
				m.configAttempts++
				return Action{Kind: ActionRetryConfiguration, Attempt: m.configAttempts}
			}
			m.state = StateConnected
			m.configAttempts = 0
			return Action{Kind: ActionConfigFailed}
		case EventDisconnect:
			m.state = StateClosing
			return Action{Kind: ActionDisconnectLink}
		}

	case StateOpen:
		switch ev.Kind {
		case EventStartStream:
			return Action{Kind: ActionSendStart}
		case EventStreamStarted:
			m.state = StateStreaming
			return Action{Kind: ActionNone}
		case EventStreamClosed:
			m.state = StateClosing
			return Action{Kind: ActionDisconnectLink}
		case EventDisconnect:
			m.state = StateClosing
			return Action{Kind: ActionSendClose}
		case EventSignalingFailed:
			m.state = StateConnected
			return Action{Kind: ActionNone}
		}

	case StateStreaming:
		switch ev.Kind {
		case EventPauseStream:
			return Action{Kind: ActionSendSuspend}
		case EventStreamSuspended:
			m.state = StateSuspended
			return Action{Kind: ActionNone}
		case EventStreamStarted:
			// Duplicate START response, already streaming.
			return Action{Kind: ActionNone}
		case EventStreamClosed:
			m.state = StateClosing
			return Action{Kind: ActionDisconnectLink}
		case EventDisconnect:
			m.state = StateClosing
			return Action{Kind: ActionSendClose}
		case EventSignalingFailed:
			m.state = StateConnected
			return Action{Kind: ActionNone}
		}

	case StateSuspended:
		switch ev.Kind {
		case EventStartStream:
			return Action{Kind: ActionSendStart}
		case EventStreamStarted:
			m.state = StateStreaming
			return Action{Kind: ActionNone}
		case EventStreamSuspended:
			// Duplicate SUSPEND, already suspended.
			return Action{Kind: ActionNone}
		case EventStreamClosed:
			m.state = StateClosing
			return Action{Kind: ActionDisconnectLink}
		case EventDisconnect:
			m.state = StateClosing
			return Action{Kind: ActionSendClose}
		case EventSignalingFailed:
			m.state = StateConnected
			return Action{Kind: ActionNone}
		}

	case StateClosing:
		switch ev.Kind {
		case EventStreamClosed:
			return Action{Kind: ActionDisconnectLink}
		case EventDisconnected, EventLinkLost:
			// The link going away is the outcome Closing was waiting
			// for, so it never triggers auto-reconnect.
			return m.dropLink(false)
		}
	}

	// Link loss is fatal to the connection from any state.
	if ev.Kind == EventLinkLost || ev.Kind == EventConnectionFailed ||
		ev.Kind == EventDisconnected {
		return m.dropLink(ev.Kind == EventLinkLost)
	}

	return Action{Kind: ActionNone}
}

// dropLink resets connection state. An unexpected loss re-enters
// Discoverable when auto-reconnect is on, but per-connection resources
// are released either way: in-flight procedures, channels, and the
// published configuration never survive the link.
func (m *StateMachine) dropLink(unexpected bool) Action {
	m.remoteAddr = hci.BdAddr{}
	m.aclHandle = 0
	m.configAttempts = 0

	if unexpected && m.autoReconnect {
		m.state = StateDiscoverable
		return Action{Kind: ActionReconnect}
	}
	m.state = StateDisconnected
	return Action{Kind: ActionTeardown}
}

// Reset forces the machine back to Disconnected, clearing connection
// state. Used on source shutdown.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
	m.remoteAddr = hci.BdAddr{}
	m.aclHandle = 0
	m.configAttempts = 0
}
