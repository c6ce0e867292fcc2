package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownAction = errors.New("unknown callback action")

type ActionKind int

const (
	ActionMenu ActionKind = iota + 1
	ActionInfo
	ActionAddress
	ActionContacts
	ActionActive
	ActionActiveNav
)

type NavDirection string

const (
	NavPrev NavDirection = "prev"
	NavNext NavDirection = "next"
)

// Action is parsed callback data. Direction and Page are set for
// ActionActiveNav only; Page is the page the button was rendered on.
type Action struct {
	Kind      ActionKind
	Direction NavDirection
	Page      int
}

var simpleActions = map[string]ActionKind{
	"menu":     ActionMenu,
	"info":     ActionInfo,
	"address":  ActionAddress,
	"contacts": ActionContacts,
	"active":   ActionActive,
}

func ParseAction(data string) (Action, error) {
	if kind, ok := simpleActions[data]; ok {
		return Action{Kind: kind}, nil
	}

	fields := strings.Fields(data)
	if len(fields) != 3 || fields[0] != "active_nav" {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	dir := NavDirection(fields[1])
	if dir != NavPrev && dir != NavNext {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	page, err := strconv.Atoi(fields[2])
	if err != nil || page < 0 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	return Action{Kind: ActionActiveNav, Direction: dir, Page: page}, nil
}

// Data encodes the action as callback data.
func (a Action) Data() string {
	switch a.Kind {
	case ActionMenu:
		return "menu"
	case ActionInfo:
		return "info"
	case ActionAddress:
		return "address"
	case ActionContacts:
		return "contacts"
	case ActionActive:
		return "active"
	case ActionActiveNav:
		return fmt.Sprintf("active_nav %s %d", a.Direction, a.Page)
	}
	return ""
}

// TargetPage is the page an active_nav button leads to.
func (a Action) TargetPage() int {
	if a.Direction == NavPrev {
		return a.Page - 1
	}
	return a.Page + 1
}
