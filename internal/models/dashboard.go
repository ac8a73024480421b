package models

// DashboardStats are the headline counters on the dashboard.
type DashboardStats struct {
	OngoingProjectCount int `json:"ongoingProjectCount" yaml:"ongoingProjectCount"`
	ActiveTaskCount     int `json:"activeTaskCount" yaml:"activeTaskCount"`
	TotalTeamMembers    int `json:"totalTeamMembers" yaml:"totalTeamMembers"`
}

// OngoingProject summarises a project that has not reached its deadline.
type OngoingProject struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Deadline    string `json:"deadline" yaml:"deadline"`
	MemberCount int    `json:"memberCount" yaml:"memberCount"`
}

// TaskStatusCounts counts tasks per board column.
type TaskStatusCounts struct {
	Todo       int `json:"TODO" yaml:"TODO"`
	InProgress int `json:"IN_PROGRESS" yaml:"IN_PROGRESS"`
	Review     int `json:"REVIEW" yaml:"REVIEW"`
	Done       int `json:"DONE" yaml:"DONE"`
}

// Get returns the count for s.
func (c TaskStatusCounts) Get(s TaskStatus) int {
	switch s {
	case StatusTodo:
		return c.Todo
	case StatusInProgress:
		return c.InProgress
	case StatusReview:
		return c.Review
	case StatusDone:
		return c.Done
	}
	return 0
}

// Total is the number of tasks across all columns.
func (c TaskStatusCounts) Total() int {
	return c.Todo + c.InProgress + c.Review + c.Done
}

// DashboardSnapshot is the data of GET /dashboard/overview. It is replaced
// wholesale on every fetch.
type DashboardSnapshot struct {
	Stats            DashboardStats   `json:"stats" yaml:"stats"`
	OngoingProjects  []OngoingProject `json:"ongoingProjects" yaml:"ongoingProjects"`
	TaskStatusCounts TaskStatusCounts `json:"taskStatusCounts" yaml:"taskStatusCounts"`
}

// Clone returns a deep copy of d.
func (d DashboardSnapshot) Clone() DashboardSnapshot {
	if d.OngoingProjects != nil {
		d.OngoingProjects = append([]OngoingProject(nil), d.OngoingProjects...)
	}
	return d
}
