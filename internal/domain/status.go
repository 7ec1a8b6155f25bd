package domain

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusServed:    3,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) Terminal() bool { return s == StatusServed }

// ParseStatus accepts the lowercase wire names only.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", Invalid("status", fmt.Sprintf("unknown status %q", v))
	}
	return s, nil
}

// TransitionPolicy decides which status writes the repository accepts.
type TransitionPolicy string

const (
	// PolicyForward allows moves towards served only, skips included.
	PolicyForward TransitionPolicy = "forward"
	// PolicyPermissive allows any-to-any writes.
	PolicyPermissive TransitionPolicy = "permissive"
)

func ParsePolicy(v string) (TransitionPolicy, error) {
	switch TransitionPolicy(v) {
	case "", PolicyForward:
		return PolicyForward, nil
	case PolicyPermissive:
		return PolicyPermissive, nil
	}
	return "", fmt.Errorf("unknown transition policy %q", v)
}

// Check returns a *ValidationError when from -> to is not allowed.
func (p TransitionPolicy) Check(from, to Status) error {
	if !to.Valid() {
		return Invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	if p == PolicyPermissive {
		return nil
	}
	if from.Terminal() {
		return Invalid("status", fmt.Sprintf("order is already %s", from))
	}
	if statusRank[to] <= statusRank[from] {
		return Invalid("status", fmt.Sprintf("cannot move from %s to %s", from, to))
	}
	return nil
}
