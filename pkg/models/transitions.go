package models

// ActorClass collapses user roles into the two permission classes the
// transition tables distinguish between.
type ActorClass string

const (
	ActorSOC    ActorClass = "soc"
	ActorClient ActorClass = "client"
)

// Allowed status transitions, per actor class. The tables are the single
// source of truth for transition legality; nothing else grants or denies an
// edge. Neither table defines an edge leaving closed or false_positive, so
// terminal incidents cannot be reopened.
var clientTransitions = map[Status][]Status{
	StatusNew:              {StatusInProgress},
	StatusInProgress:       {StatusAwaitingSOC, StatusResolved},
	StatusAwaitingCustomer: {StatusInProgress},
	StatusResolved:         {StatusClosed},
}

var socTransitions = map[Status][]Status{
	StatusNew:              {StatusInProgress},
	StatusInProgress:       {StatusAwaitingCustomer, StatusResolved, StatusFalsePositive},
	StatusAwaitingSOC:      {StatusInProgress, StatusResolved},
	StatusAwaitingCustomer: {StatusInProgress},
	StatusResolved:         {StatusClosed, StatusInProgress},
}

// TransitionsFor returns the transition table for an actor class
func TransitionsFor(class ActorClass) map[Status][]Status {
	if class == ActorSOC {
		return socTransitions
	}
	return clientTransitions
}

// AllowedNext returns the statuses an actor class may move to from `from`.
// The returned slice is a copy; callers may keep it.
func AllowedNext(class ActorClass, from Status) []Status {
	allowed := TransitionsFor(class)[from]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether the actor class has the edge from → to
func CanTransition(class ActorClass, from, to Status) bool {
	for _, next := range TransitionsFor(class)[from] {
		if next == to {
			return true
		}
	}
	return false
}
