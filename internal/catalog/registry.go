package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for unknown project ids.
var ErrNotFound = errors.New("project not found")

// Registry is the immutable, ordered collection of loaded projects plus the
// site profile. It is safe for concurrent use without locking because
// nothing mutates it after construction.
type Registry struct {
	profile  Profile
	projects []Project
	index    map[string]int
}

// NewRegistry creates a registry from an already validated project list.
// The inputs are copied.
func NewRegistry(profile Profile, projects []Project) *Registry {
	r := &Registry{
		profile:  profile.clone(),
		projects: make([]Project, len(projects)),
		index:    make(map[string]int, len(projects)),
	}
	for i, p := range projects {
		r.projects[i] = p.clone()
		r.index[p.ID] = i
	}
	return r
}

// Default returns a registry holding the built-in profile and projects.
func Default() *Registry {
	return NewRegistry(DefaultProfile(), DefaultProjects())
}

// Profile returns a copy of the site profile.
func (r *Registry) Profile() Profile {
	return r.profile.clone()
}

// All returns a copy of every project in catalog order.
func (r *Registry) All() []Project {
	out := make([]Project, len(r.projects))
	for i, p := range r.projects {
		out[i] = p.clone()
	}
	return out
}

// Get retrieves a project by id
func (r *Registry) Get(id string) (Project, error) {
	i, ok := r.index[id]
	if !ok {
		return Project{}, fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	return r.projects[i].clone(), nil
}

// Count returns the number of projects
func (r *Registry) Count() int {
	return len(r.projects)
}

// Categories returns the distinct categories in order of first appearance.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.projects {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// Filter returns the projects in category, compared case-insensitively.
// An empty category or "all" returns every project.
func (r *Registry) Filter(category string) []Project {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return r.All()
	}

	out := []Project{}
	for _, p := range r.projects {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p.clone())
		}
	}
	return out
}
