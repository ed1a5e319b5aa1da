package domain

import (
	"encoding/json"
	"sort"
)

// Role is the actor's position relative to a relationship request.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleRecipient Role = "recipient"
	RoleUnrelated Role = "unrelated"
)

// Action is an operation the actor may currently perform.
type Action string

const (
	ActionAttach             Action = "attach"
	ActionProposePartnership Action = "propose_partnership"
	ActionJoin               Action = "join"
	ActionAccept             Action = "accept"
	ActionReject             Action = "reject"
	ActionCancel             Action = "cancel"
)

// ActionSet is the set of eligible actions for one entity and actor.
type ActionSet map[Action]struct{}

func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

func (s ActionSet) Add(a Action) {
	s[a] = struct{}{}
}

// List returns the actions in stable sorted order.
func (s ActionSet) List() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// Classification is the classifier output for one entity.
type Classification struct {
	Role    Role      `json:"role"`
	Actions ActionSet `json:"eligible_actions"`
}

// Unrelated is the neutral classification used when the actor context is
// missing or malformed. The classifier never fails.
func Unrelated() Classification {
	return Classification{Role: RoleUnrelated, Actions: NewActionSet()}
}
