package view

import (
	"slices"
	"strings"

	"ledger/internal/theme"
)

// FilterAll is the filter value that shows every project.
const FilterAll = "all"

type Project struct {
	Title       string
	Description string
	// Tech tags drive the project filter buttons.
	Tech []string
	URL  string
}

// DataTech is the space-separated value of the card's data-tech attribute.
func (p Project) DataTech() string {
	return strings.Join(p.Tech, " ")
}

// Uses reports whether the project is tagged with tech.
func (p Project) Uses(tech string) bool {
	return slices.Contains(p.Tech, tech)
}

type ProjectCard struct {
	Project
	Hidden bool
}

type Portfolio struct {
	Theme     theme.Theme
	ThemeIcon string
	Year      int
	Filter    string
	Filters   []string
	Projects  []ProjectCard
}

func DefaultProjects() []Project {
	return []Project{
		{
			Title:       "Finance Dashboard",
			Description: "Income, expenses and balance at a glance with a spending breakdown by category.",
			Tech:        []string{"go", "htmx", "chartjs"},
			URL:         "/",
		},
		{
			Title:       "Contact Relay",
			Description: "Contact form delivery over SMTP or a RabbitMQ queue drained by a worker.",
			Tech:        []string{"go", "rabbitmq"},
		},
		{
			Title:       "Sheets Ledger",
			Description: "Transactions kept in a Google Sheet and read through the Sheets API.",
			Tech:        []string{"go", "google-sheets"},
		},
		{
			Title:       "Portfolio Site",
			Description: "Responsive personal site with a theme switch and project filters.",
			Tech:        []string{"html", "css", "javascript"},
		},
	}
}

// FilterTags returns every tech tag in first-seen order, preceded by FilterAll.
func FilterTags(projects []Project) []string {
	tags := []string{FilterAll}
	for _, p := range projects {
		for _, t := range p.Tech {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// BuildPortfolio marks the cards that do not match filter as hidden. An
// empty or unknown filter shows everything.
func BuildPortfolio(projects []Project, filter string, t theme.Theme, year int) Portfolio {
	tags := FilterTags(projects)
	filter = strings.ToLower(strings.TrimSpace(filter))
	if !slices.Contains(tags, filter) {
		filter = FilterAll
	}

	cards := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		cards = append(cards, ProjectCard{
			Project: p,
			Hidden:  filter != FilterAll && !p.Uses(filter),
		})
	}
	return Portfolio{
		Theme:     t,
		ThemeIcon: t.Icon(),
		Year:      year,
		Filter:    filter,
		Filters:   tags,
		Projects:  cards,
	}
}
