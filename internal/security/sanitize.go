package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	projectIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	repoSlugPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+$`)
	adminIDPattern   = regexp.MustCompile(`^-?[0-9]+$`)
)

// ValidateProjectID ensures a project id is safe for use in URLs, HTML
// attributes and bot replies.
func ValidateProjectID(id string) error {
	if id == "" {
		return fmt.Errorf("project id cannot be empty")
	}
	if strings.HasPrefix(id, "-") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("project id cannot start with '-' or '.'")
	}
	if len(id) > 64 {
		return fmt.Errorf("project id too long (maximum 64 characters)")
	}
	if !projectIDPattern.MatchString(id) {
		return fmt.Errorf("project id contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}

// ValidateRepoSlug ensures a GitHub repository reference has the form
// owner/name.
func ValidateRepoSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if strings.Contains(slug, "..") {
		return fmt.Errorf("repository contains traversal elements: %s", slug)
	}
	if !repoSlugPattern.MatchString(slug) {
		return fmt.Errorf("repository must be in owner/name format, got '%s'", slug)
	}
	return nil
}

// SplitRepoSlug returns the owner and name of a validated slug.
func SplitRepoSlug(slug string) (owner, name string, err error) {
	if err := ValidateRepoSlug(slug); err != nil {
		return "", "", err
	}
	owner, name, _ = strings.Cut(slug, "/")
	return owner, name, nil
}

// ValidateHTTPURL ensures rawURL is an absolute http or https URL without
// embedded credentials. Used for outbound API bases and project links.
func ValidateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only http and https URLs allowed, got scheme '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	if u.User != nil {
		return fmt.Errorf("URL must not include credentials")
	}

	return nil
}

// ValidateAdminID ensures an admin identifier is a Telegram numeric user id.
func ValidateAdminID(id string) error {
	if !adminIDPattern.MatchString(id) {
		return fmt.Errorf("admin id must be numeric, got '%s'", id)
	}
	return nil
}
