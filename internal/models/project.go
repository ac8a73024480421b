package models

import (
	"encoding/json"
	"strings"

	"github.com/p-blackswan/taskboard/internal/apierr"
)

// ProjectMember is a user annotated with their role inside one project.
type ProjectMember struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ShortName   string `json:"shortName" yaml:"shortName"`
	Email       string `json:"email" yaml:"email"`
	Role        string `json:"role" yaml:"role"`
	UserRole    string `json:"userRole,omitempty" yaml:"userRole,omitempty"`
	ProjectRole string `json:"projectRole,omitempty" yaml:"projectRole,omitempty"`
}

// Project is a project as listed by GET /project.
type Project struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Description  string          `json:"description" yaml:"description"`
	TotalMembers int             `json:"totalMembers" yaml:"totalMembers"`
	StartDate    string          `json:"startDate" yaml:"startDate"`
	Deadline     string          `json:"deadline" yaml:"deadline"`
	CreatedAt    string          `json:"createAt" yaml:"createdAt"`
	UpdatedAt    string          `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	Members      []ProjectMember `json:"members" yaml:"members"`
}

// UnmarshalJSON accepts both createAt (what the API sends) and createdAt.
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		CreatedAtAlt string `json:"createdAt"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.CreatedAt == "" {
		p.CreatedAt = aux.CreatedAtAlt
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Project) Clone() Project {
	if p.Members != nil {
		p.Members = append([]ProjectMember(nil), p.Members...)
	}
	return p
}

// Member returns the project member with the given user id.
func (p Project) Member(userID string) (ProjectMember, bool) {
	for _, m := range p.Members {
		if m.ID == userID {
			return m, true
		}
	}
	return ProjectMember{}, false
}

// MemberAssignment adds a user to a project being created.
type MemberAssignment struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// CreateProjectDto is the body of POST /project.
type CreateProjectDto struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	StartDate   string             `json:"startDate,omitempty"`
	Deadline    string             `json:"deadline,omitempty"`
	Members     []MemberAssignment `json:"members"`
}

// Validate checks the project form before it is sent.
func (d CreateProjectDto) Validate() error {
	var v apierr.ValidationErrors
	if strings.TrimSpace(d.Name) == "" {
		v.Add("name", "Project name is required")
	}
	for _, m := range d.Members {
		if m.UserID == "" {
			v.Add("members", "Member user id is required")
			break
		}
		if !m.Role.Valid() {
			v.Add("members", "Member role must be ADMIN or MEMBER")
			break
		}
	}
	return v.Err("project.create")
}

// ProjectPatch is a partial project for PUT /project/{id}. Nil fields are
// left out of the request.
type ProjectPatch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	StartDate   *string            `json:"startDate,omitempty"`
	Deadline    *string            `json:"deadline,omitempty"`
	Members     []MemberAssignment `json:"members,omitempty"`
}

// Validate rejects patches that would blank the project name.
func (p ProjectPatch) Validate() error {
	var v apierr.ValidationErrors
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		v.Add("name", "Project name is required")
	}
	return v.Err("project.update")
}

// ProjectDetail is the data of GET /project/{id}.
type ProjectDetail struct {
	Project Project `json:"project" yaml:"project"`
	Tasks   []Task  `json:"tasks" yaml:"tasks"`
}
