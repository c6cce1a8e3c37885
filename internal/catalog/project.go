package catalog

import "slices"

// Project is a single portfolio entry. Field names double as the JSON wire
// format served by /api/projects and embedded in the HTML shell.
type Project struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Category string   `json:"category" yaml:"category"`
	Impact   string   `json:"impact" yaml:"impact"`
	Stack    []string `json:"stack" yaml:"stack"`
	Summary  string   `json:"summary" yaml:"summary"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Link     string   `json:"link,omitempty" yaml:"link,omitempty"`
	Repo     string   `json:"repo,omitempty" yaml:"repo,omitempty"` // owner/name on GitHub
	Stars    int      `json:"stars,omitempty" yaml:"stars,omitempty"`
	Topics   []string `json:"topics,omitempty" yaml:"topics,omitempty"`
}

// clone returns a deep copy so slices are never shared with callers.
func (p Project) clone() Project {
	p.Stack = slices.Clone(p.Stack)
	p.Topics = slices.Clone(p.Topics)
	return p
}

// Link is a labelled contact channel shown on the site.
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Profile describes the site owner.
type Profile struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title" yaml:"title"`
	Lead        string   `json:"lead" yaml:"lead"`
	Description string   `json:"description" yaml:"description"`
	Skills      []string `json:"skills" yaml:"skills"`
	Links       []Link   `json:"links" yaml:"links"`
}

func (p Profile) clone() Profile {
	p.Skills = slices.Clone(p.Skills)
	p.Links = slices.Clone(p.Links)
	return p
}

// DefaultProjects returns the built-in project list used when no catalog
// file is configured.
func DefaultProjects() []Project {
	return []Project{
		{
			ID:       "shoghlana",
			Title:    "Shoghlana AI Recruitment",
			Category: "SaaS",
			Impact:   "20+ flows automated",
			Stack:    []string{"n8n", "LLMs", "Telegram"},
			Summary:  "Omni-channel recruitment automation with smart matching and lead routing.",
		},
		{
			ID:       "meta-support",
			Title:    "Meta Customer Support AI",
			Category: "Automation",
			Impact:   "Multi-modal triage",
			Stack:    []string{"Telegram", "Google Sheets", "Gmail"},
			Summary:  "AI dispatches support requests to specialist bots with identity verification workflow.",
		},
		{
			ID:       "my-doctor",
			Title:    "My Doctor Booking AI",
			Category: "HealthTech",
			Impact:   "Faster booking ops",
			Stack:    []string{"AI Agents", "n8n", "Sheets"},
			Summary:  "Booking and follow-up orchestration for clinics and patients.",
		},
		{
			ID:       "koshary",
			Title:    "Koshary Abu Tarek Ordering",
			Category: "FoodTech",
			Impact:   "Upsell automation",
			Stack:    []string{"Multi-modal AI", "Telegram"},
			Summary:  "Order intelligence, upsell scoring, and operational automation.",
		},
	}
}

// DefaultProfile returns the built-in site owner profile.
func DefaultProfile() Profile {
	return Profile{
		Name:        "Omar Maher",
		Title:       "AI & Automation Engineer",
		Lead:        "Building SaaS AI Agents, Multi-Agent Orchestration, and Automated Workflows for businesses with Python, n8n, and full-stack engineering.",
		Description: "AI & Automation Engineer | SaaS AI Agents & Automated Workflows",
		Skills:      []string{"AI Agents", "Workflow Automation", "n8n", "Python", "LLMs", "Full-Stack"},
		Links: []Link{
			{Label: "LinkedIn", URL: "https://www.linkedin.com/in/omarmaher23941"},
			{Label: "Facebook", URL: "https://www.facebook.com/share/1aaHdsW9oo/?mibextid=wwXIfr"},
			{Label: "omarmaher23942@gmail.com", URL: "mailto:omarmaher23942@gmail.com"},
			{Label: "Mostaql", URL: "https://mostaql.com/u/omarmaher_23942"},
			{Label: "Behance", URL: "https://www.behance.net/omarmaher23942"},
			{Label: "WhatsApp", URL: "https://wa.me/201094321957"},
		},
	}
}
