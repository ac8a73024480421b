package models

import (
	"strings"
	"time"
)

// ProjectPhase is where a project sits relative to its start date and
// deadline.
type ProjectPhase string

const (
	PhaseNotStarted ProjectPhase = "Not Started"
	PhaseInProgress ProjectPhase = "In Progress"
	PhaseOverdue    ProjectPhase = "Overdue"
)

// AllPhases lists the phases in display order.
var AllPhases = []ProjectPhase{PhaseNotStarted, PhaseInProgress, PhaseOverdue}

// ParsePhase accepts a phase in any case, with spaces, dashes or
// underscores between words.
func ParsePhase(s string) (ProjectPhase, bool) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range AllPhases {
		if strings.ToLower(string(p)) == norm {
			return p, true
		}
	}
	return "", false
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate reads the date formats the API uses. Date-only values are
// midnight UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Phase derives the project's phase at now. A date that cannot be read
// never moves the project out of In Progress.
func (p Project) Phase(now time.Time) ProjectPhase {
	if deadline, ok := parseDate(p.Deadline); ok && now.After(deadline) {
		return PhaseOverdue
	}
	if start, ok := parseDate(p.StartDate); ok && now.Before(start) {
		return PhaseNotStarted
	}
	return PhaseInProgress
}

// Urgency ranks the project by days left until its deadline: past due is
// CRITICAL, a week or less HIGH, a month or less MEDIUM, otherwise LOW.
// Part days count as a whole day.
func (p Project) Urgency(now time.Time) Priority {
	deadline, ok := parseDate(p.Deadline)
	if !ok {
		return PriorityLow
	}
	left := deadline.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) > 0 {
		days++
	}
	switch {
	case days < 0:
		return PriorityCritical
	case days <= 7:
		return PriorityHigh
	case days <= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ProjectFilter narrows a project list. Zero fields match everything.
type ProjectFilter struct {
	Search  string
	Phase   ProjectPhase
	Urgency Priority
}

// Match reports whether p passes f at now. Search is a case-insensitive
// substring of the name or description.
func (f ProjectFilter) Match(p Project, now time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" &&
		!strings.Contains(strings.ToLower(p.Name), q) &&
		!strings.Contains(strings.ToLower(p.Description), q) {
		return false
	}
	if f.Phase != "" && p.Phase(now) != f.Phase {
		return false
	}
	if f.Urgency != "" && p.Urgency(now) != f.Urgency {
		return false
	}
	return true
}
