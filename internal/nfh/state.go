package nfh

import "errors"

var (
	ErrSessionFailed     = errors.New("nfh: session failed")
	ErrStateNotAdvanced  = errors.New("nfh: handler did not advance state")
	ErrNoTransfer        = errors.New("nfh: no transfer bound")
	ErrNoPrompter        = errors.New("nfh: no prompter configured")
	ErrOverwriteDeclined = errors.New("nfh: overwrite declined")
)

// State is one FSM phase.
type State int

const (
	StateInit State = iota
	StateHandshake
	StateModeSwitch
	StateDataExchange
	StateQuit
	StateDie
	StateStop
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateHandshake:
		return "HANDSHAKE"
	case StateModeSwitch:
		return "MODE_SWITCH"
	case StateDataExchange:
		return "DATA_EXCHANGE"
	case StateQuit:
		return "QUIT"
	case StateDie:
		return "DIE"
	case StateStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}
