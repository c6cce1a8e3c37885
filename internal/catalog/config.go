package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"portfolioos/internal/security"
)

// File is the on-disk catalog layout.
//
//	profile:
//	  name: Jane Doe
//	  links:
//	    - label: GitHub
//	      url: https://github.com/jane
//	projects:
//	  - id: tracker
//	    title: Habit Tracker
//	    ...
type File struct {
	Profile  *Profile  `yaml:"profile,omitempty"`
	Projects []Project `yaml:"projects"`
}

// Load reads, validates and returns a registry from a YAML catalog file.
// A file without a profile section uses DefaultProfile.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return Parse(data)
}

// Parse validates raw YAML catalog data.
func Parse(data []byte) (*Registry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}

	profile := DefaultProfile()
	if file.Profile != nil {
		profile = *file.Profile
	}

	errs := ValidateProfile(profile)
	errs = append(errs, ValidateProjects(file.Projects)...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog:\n%s", strings.Join(errs, "\n"))
	}

	for i := range file.Projects {
		normalize(&file.Projects[i])
	}

	return NewRegistry(profile, file.Projects), nil
}

// Write encodes a profile and project list in the catalog file layout.
func Write(w io.Writer, profile Profile, projects []Project) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Profile: &profile, Projects: projects}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

// ValidateProfile checks the site profile and returns every problem found.
func ValidateProfile(p Profile) []string {
	var errors []string

	if strings.TrimSpace(p.Name) == "" {
		errors = append(errors, "  - Profile: missing required 'name' field")
	}

	for i, link := range p.Links {
		if strings.TrimSpace(link.Label) == "" {
			errors = append(errors, fmt.Sprintf("  - Profile: links[%d] missing 'label'", i))
		}
		if err := validateLinkURL(link.URL); err != nil {
			errors = append(errors, fmt.Sprintf("  - Profile: links[%d] %v", i, err))
		}
	}

	return errors
}

// ValidateProjects checks a project list and returns every problem found.
func ValidateProjects(projects []Project) []string {
	var errors []string

	if len(projects) == 0 {
		return append(errors, "  - Catalog: at least one project is required")
	}

	seen := make(map[string]int)
	for i, p := range projects {
		name := p.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}

		if err := security.ValidateProjectID(p.ID); err != nil {
			errors = append(errors, fmt.Sprintf("  - Project '%s': %v", name, err))
		} else if first, dup := seen[p.ID]; dup {
			errors = append(errors, fmt.Sprintf("  - Project '%s': duplicate id (first defined at position %d)", name, first))
		} else {
			seen[p.ID] = i
		}

		if strings.TrimSpace(p.Title) == "" {
			errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'title' field", name))
		}
		if strings.TrimSpace(p.Category) == "" {
			errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'category' field", name))
		}
		if strings.TrimSpace(p.Summary) == "" {
			errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'summary' field", name))
		}

		for j, tech := range p.Stack {
			if strings.TrimSpace(tech) == "" {
				errors = append(errors, fmt.Sprintf("  - Project '%s': stack[%d] is empty", name, j))
			}
		}

		if p.Year != 0 && (p.Year < 1990 || p.Year > 2100) {
			errors = append(errors, fmt.Sprintf("  - Project '%s': year out of range, got %d", name, p.Year))
		}

		if p.Link != "" {
			if err := security.ValidateHTTPURL(p.Link); err != nil {
				errors = append(errors, fmt.Sprintf("  - Project '%s': link %v", name, err))
			}
		}

		if p.Repo != "" {
			if err := security.ValidateRepoSlug(p.Repo); err != nil {
				errors = append(errors, fmt.Sprintf("  - Project '%s': %v", name, err))
			}
		}

		if p.Stars < 0 {
			errors = append(errors, fmt.Sprintf("  - Project '%s': stars must not be negative, got %d", name, p.Stars))
		}
	}

	return errors
}

func validateLinkURL(raw string) error {
	if addr, ok := strings.CutPrefix(raw, "mailto:"); ok {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("mailto link must contain an address, got '%s'", raw)
		}
		return nil
	}
	return security.ValidateHTTPURL(raw)
}

// normalize trims whitespace and guarantees a non-nil stack so the JSON
// form always carries an array.
func normalize(p *Project) {
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)
	p.Impact = strings.TrimSpace(p.Impact)
	p.Summary = strings.TrimSpace(p.Summary)
	for i := range p.Stack {
		p.Stack[i] = strings.TrimSpace(p.Stack[i])
	}
	if p.Stack == nil {
		p.Stack = []string{}
	}
}
