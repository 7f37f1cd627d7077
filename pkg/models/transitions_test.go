package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// edge is a single (from, to) pair for table assertions
type edge struct {
	from Status
	to   Status
}

var clientEdges = []edge{
	{StatusNew, StatusInProgress},
	{StatusInProgress, StatusAwaitingSOC},
	{StatusInProgress, StatusResolved},
	{StatusAwaitingCustomer, StatusInProgress},
	{StatusResolved, StatusClosed},
}

var socEdges = []edge{
	{StatusNew, StatusInProgress},
	{StatusInProgress, StatusAwaitingCustomer},
	{StatusInProgress, StatusResolved},
	{StatusInProgress, StatusFalsePositive},
	{StatusAwaitingSOC, StatusInProgress},
	{StatusAwaitingSOC, StatusResolved},
	{StatusAwaitingCustomer, StatusInProgress},
	{StatusResolved, StatusClosed},
	{StatusResolved, StatusInProgress},
}

func hasEdge(edges []edge, from, to Status) bool {
	for _, e := range edges {
		if e.from == from && e.to == to {
			return true
		}
	}
	return false
}

// TestTransitionLegalityGrid checks every (status, status) pair for both
// actor classes: CanTransition must agree exactly with the expected edge
// sets, so nothing outside the tables is ever permitted.
func TestTransitionLegalityGrid(t *testing.T) {
	cases := []struct {
		class ActorClass
		edges []edge
	}{
		{ActorClient, clientEdges},
		{ActorSOC, socEdges},
	}

	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			for _, from := range Statuses {
				for _, to := range Statuses {
					want := hasEdge(tc.edges, from, to)
					got := CanTransition(tc.class, from, to)
					assert.Equal(t, want, got, "%s: %s -> %s", tc.class, from, to)
				}
			}
		})
	}
}

func TestNoSelfLoops(t *testing.T) {
	for _, class := range []ActorClass{ActorClient, ActorSOC} {
		for _, s := range Statuses {
			assert.False(t, CanTransition(class, s, s), "%s: self loop on %s", class, s)
		}
	}
}

// Closed and false_positive incidents stay closed; not even SOC can reopen
// them (SOC may only reopen from resolved).
func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, class := range []ActorClass{ActorClient, ActorSOC} {
		assert.Empty(t, AllowedNext(class, StatusClosed))
		assert.Empty(t, AllowedNext(class, StatusFalsePositive))
	}
	assert.True(t, StatusClosed.Terminal())
	assert.True(t, StatusFalsePositive.Terminal())
	assert.False(t, StatusResolved.Terminal())
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	first := AllowedNext(ActorClient, StatusInProgress)
	first[0] = StatusClosed
	second := AllowedNext(ActorClient, StatusInProgress)
	assert.Equal(t, StatusAwaitingSOC, second[0])
}

func TestRoleClassMapping(t *testing.T) {
	assert.Equal(t, ActorSOC, RoleSOCAdmin.Class())
	assert.Equal(t, ActorSOC, RoleSOCAnalyst.Class())
	assert.Equal(t, ActorClient, RoleClientAdmin.Class())
	assert.Equal(t, ActorClient, RoleClientReadOnly.Class())

	assert.True(t, RoleClientSecurity.CanEditIncidents())
	assert.False(t, RoleClientAuditor.CanEditIncidents())
	assert.False(t, RoleClientReadOnly.CanEditIncidents())
}
