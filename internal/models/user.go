package models

// ProjectRef is the short project reference embedded in memberships.
type ProjectRef struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ProjectMembership is one role a member holds across projects.
type ProjectMembership struct {
	Role    string       `json:"role" yaml:"role"`
	Project []ProjectRef `json:"project" yaml:"project"`
}

// Member is an entry of GET /user/get-all-members.
type Member struct {
	ID                 string              `json:"id" yaml:"id"`
	Name               string              `json:"name" yaml:"name"`
	Email              string              `json:"email" yaml:"email"`
	ShortName          string              `json:"shortName" yaml:"shortName"`
	RegisteredAt       string              `json:"registeredAt" yaml:"registeredAt"`
	ProjectMemberships []ProjectMembership `json:"projectMemberships" yaml:"projectMemberships"`
}

// Clone returns a deep copy of m.
func (m Member) Clone() Member {
	if m.ProjectMemberships != nil {
		ms := make([]ProjectMembership, len(m.ProjectMemberships))
		for i, pm := range m.ProjectMemberships {
			pm.Project = append([]ProjectRef(nil), pm.Project...)
			ms[i] = pm
		}
		m.ProjectMemberships = ms
	}
	return m
}
