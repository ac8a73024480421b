package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/state"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// sessionOutput is the Session as printed: tokens are never shown.
type sessionOutput struct {
	User            *models.Profile `json:"user" yaml:"user"`
	IsAuthenticated bool            `json:"isAuthenticated" yaml:"isAuthenticated"`
	Error           string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func sessionOf(s state.Session) sessionOutput {
	return sessionOutput{User: s.User, IsAuthenticated: s.IsAuthenticated, Error: s.Error}
}

type boardOutput struct {
	Project *models.Project `json:"project" yaml:"project"`
	Columns []state.Column  `json:"columns" yaml:"columns"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// projectRow is a project with the phase and urgency derived from its dates.
type projectRow struct {
	models.Project `yaml:",inline"`
	Phase          models.ProjectPhase `json:"phase" yaml:"phase"`
	Urgency        models.Priority     `json:"urgency" yaml:"urgency"`
}

type projectsOutput struct {
	Projects []projectRow `json:"projects" yaml:"projects"`
}

func projectsOf(projects []models.Project, now time.Time) projectsOutput {
	out := projectsOutput{Projects: make([]projectRow, 0, len(projects))}
	for _, p := range projects {
		out.Projects = append(out.Projects, projectRow{Project: p, Phase: p.Phase(now), Urgency: p.Urgency(now)})
	}
	return out
}

// render writes v in the requested format. Table output is chosen per type.
func render(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		renderTable(tw, v)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func renderTable(w io.Writer, v any) {
	switch v := v.(type) {
	case sessionOutput:
		if v.User == nil {
			fmt.Fprintln(w, "Not signed in.")
			return
		}
		fmt.Fprintf(w, "ID\tNAME\tEMAIL\tROLE\n")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.User.ID, v.User.Name, v.User.Email, v.User.Role)
	case models.Profile:
		fmt.Fprintf(w, "Registered %s <%s>. Sign in with `taskboard login`.\n", v.Name, v.Email)
	case projectsOutput:
		if len(v.Projects) == 0 {
			fmt.Fprintln(w, "No projects match.")
			return
		}
		fmt.Fprintf(w, "ID\tNAME\tSTATUS\tPRIORITY\tMEMBERS\tSTART\tDEADLINE\n")
		for _, p := range v.Projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				p.ID, p.Name, p.Phase, p.Urgency, p.TotalMembers, dash(p.StartDate), dash(p.Deadline))
		}
	case boardOutput:
		if v.Project != nil {
			fmt.Fprintf(w, "%s\n\n", v.Project.Name)
		}
		for _, col := range v.Columns {
			fmt.Fprintf(w, "%s (%d)\n", strings.ToUpper(col.Title), len(col.Tasks))
			for _, t := range col.Tasks {
				due := "-"
				if t.DueDate != nil {
					due = *t.DueDate
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Priority, dash(t.Assignee.Name), due)
			}
		}
	case state.UserState:
		fmt.Fprintf(w, "ID\tNAME\tEMAIL\tPROJECTS\n")
		for _, m := range v.Members {
			n := 0
			for _, pm := range m.ProjectMemberships {
				n += len(pm.Project)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.ID, m.Name, m.Email, n)
		}
	case state.DashboardState:
		if v.Data == nil {
			fmt.Fprintln(w, "No dashboard data.")
			return
		}
		s := v.Data.Stats
		fmt.Fprintf(w, "Ongoing projects\t%d\n", s.OngoingProjectCount)
		fmt.Fprintf(w, "Active tasks\t%d\n", s.ActiveTaskCount)
		fmt.Fprintf(w, "Team members\t%d\n", s.TotalTeamMembers)
		for _, status := range models.AllStatuses {
			fmt.Fprintf(w, "%s\t%d\n", status.Title(), v.Data.TaskStatusCounts.Get(status))
		}
		if len(v.Data.OngoingProjects) > 0 {
			fmt.Fprintf(w, "\nPROJECT\tMEMBERS\tDEADLINE\n")
			for _, p := range v.Data.OngoingProjects {
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.MemberCount, dash(p.Deadline))
			}
		}
	default:
		fmt.Fprintf(w, "%v\n", v)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
