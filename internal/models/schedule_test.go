package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var scheduleNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestProject_Phase(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		deadline string
		want     ProjectPhase
	}{
		{"before start", "2025-04-01", "2025-05-01", PhaseNotStarted},
		{"running", "2025-03-01", "2025-05-01", PhaseInProgress},
		{"past deadline", "2025-01-01", "2025-03-09", PhaseOverdue},
		{"deadline earlier today", "2025-01-01", "2025-03-10T08:00:00Z", PhaseOverdue},
		{"overdue wins over not started", "2025-04-01", "2025-03-01", PhaseOverdue},
		{"no dates", "", "", PhaseInProgress},
		{"unreadable dates", "soon", "later", PhaseInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project{StartDate: tt.start, Deadline: tt.deadline}
			assert.Equal(t, tt.want, p.Phase(scheduleNow))
		})
	}
}

func TestProject_Urgency(t *testing.T) {
	tests := []struct {
		deadline string
		want     Priority
	}{
		{"2025-03-08T12:00:00Z", PriorityCritical},
		{"2025-03-09T23:00:00Z", PriorityHigh}, // part of a day late rounds to zero days
		{"2025-03-17T12:00:00Z", PriorityHigh},
		{"2025-03-17T13:00:00Z", PriorityMedium},
		{"2025-04-09T12:00:00Z", PriorityMedium},
		{"2025-04-10", PriorityLow},
		{"", PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.deadline, func(t *testing.T) {
			assert.Equal(t, tt.want, Project{Deadline: tt.deadline}.Urgency(scheduleNow))
		})
	}
}

func TestParsePhase(t *testing.T) {
	for _, in := range []string{"not started", "Not-Started", "NOT_STARTED", " not started "} {
		got, ok := ParsePhase(in)
		assert.True(t, ok, in)
		assert.Equal(t, PhaseNotStarted, got)
	}
	_, ok := ParsePhase("Planning")
	assert.False(t, ok)
}

func TestProjectFilter_Match(t *testing.T) {
	p := Project{Name: "Apollo", Description: "Lunar landing", StartDate: "2025-03-01", Deadline: "2025-03-15"}

	assert.True(t, ProjectFilter{}.Match(p, scheduleNow))
	assert.True(t, ProjectFilter{Search: "LUNAR"}.Match(p, scheduleNow))
	assert.False(t, ProjectFilter{Search: "mars"}.Match(p, scheduleNow))
	assert.True(t, ProjectFilter{Phase: PhaseInProgress, Urgency: PriorityHigh}.Match(p, scheduleNow))
	assert.False(t, ProjectFilter{Phase: PhaseOverdue}.Match(p, scheduleNow))
	assert.False(t, ProjectFilter{Search: "apollo", Urgency: PriorityLow}.Match(p, scheduleNow))
}
