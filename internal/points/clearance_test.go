package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregateClearanceEmpty(t *testing.T) {
	status := AggregateClearance(nil, "emp-1", "term-1", 10)
	assert.Equal(t, 0.0, status.ValidPoints)
	assert.False(t, status.IsCleared)

	status = AggregateClearance(nil, "emp-1", "term-1", 0)
	assert.True(t, status.IsCleared)
}

func TestAggregateClearanceCountsOnlyApproved(t *testing.T) {
	records := []Record{
		{TermID: "term-1", Points: 4, Status: StatusApproved},
		{TermID: "term-1", Points: 10, Status: StatusPending},
		{TermID: "term-1", Points: 10, Status: StatusRejected},
		{TermID: "term-2", Points: 50, Status: StatusApproved}, // other term
	}
	status := AggregateClearance(records, "emp-1", "term-1", 10)
	assert.Equal(t, 4.0, status.ValidPoints)
	assert.Equal(t, 10.0, status.PendingPoints)
	assert.False(t, status.IsCleared)
}

func TestAggregateClearanceQuotaMet(t *testing.T) {
	records := []Record{
		{TermID: "term-1", Points: 6, Status: StatusApproved},
		{TermID: "term-1", Points: 4, Status: StatusApproved},
	}
	status := AggregateClearance(records, "emp-1", "term-1", 10)
	assert.Equal(t, 10.0, status.ValidPoints)
	assert.True(t, status.IsCleared)
}

func TestAggregateClearanceIdempotent(t *testing.T) {
	records := []Record{{TermID: "term-1", Points: 3.5, Status: StatusApproved}}
	first := AggregateClearance(records, "emp-1", "term-1", 5)
	second := AggregateClearance(records, "emp-1", "term-1", 5)
	assert.Equal(t, first, second)
}

func TestDecisionOverridePrecedence(t *testing.T) {
	computed := AggregateClearance(nil, "emp-1", "term-1", 10)
	assert.False(t, computed.IsCleared)

	// no override: computed verdict stands
	decision := Decide(computed, nil)
	assert.False(t, decision.Cleared())

	// admin grant beats insufficient points
	granted := &Override{Cleared: true, GrantedBy: "admin-1", GrantedAt: time.Now().UTC()}
	decision = Decide(computed, granted)
	assert.True(t, decision.Cleared())
	assert.False(t, decision.Computed.IsCleared)

	// admin revoke beats sufficient points
	cleared := AggregateClearance([]Record{{TermID: "term-1", Points: 20, Status: StatusApproved}}, "emp-1", "term-1", 10)
	revoked := &Override{Cleared: false, GrantedBy: "admin-1", GrantedAt: time.Now().UTC()}
	decision = Decide(cleared, revoked)
	assert.False(t, decision.Cleared())
	assert.True(t, decision.Computed.IsCleared)
}
