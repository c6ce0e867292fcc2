package bot

import "sync"

type State int

const (
	StateMenu State = iota
	StateInfo
	StateAddress
	StateContacts
	StateActiveList
	StateAwaitingPayment
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateMenu:
		return "menu"
	case StateInfo:
		return "info"
	case StateAddress:
		return "address"
	case StateContacts:
		return "contacts"
	case StateActiveList:
		return "active_list"
	case StateAwaitingPayment:
		return "awaiting_payment"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// commandStates maps bot commands to the state they open.
var commandStates = map[string]State{
	"start":  StateMenu,
	"main":   StateMenu,
	"info":   StateInfo,
	"active": StateActiveList,
}

func (a Action) State() State {
	switch a.Kind {
	case ActionInfo:
		return StateInfo
	case ActionAddress:
		return StateAddress
	case ActionContacts:
		return StateContacts
	case ActionActive, ActionActiveNav:
		return StateActiveList
	default:
		return StateMenu
	}
}

// stateStore keeps each user's current screen. Users never seen are in
// StateMenu.
type stateStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[int64]State)}
}

func (s *stateStore) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID]
}

func (s *stateStore) Set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StateMenu {
		delete(s.states, userID)
		return
	}
	s.states[userID] = st
}
