package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"portfolioos/internal/security"
)

// RepoGetter is the subset of the GitHub repositories API used by Sync.
// *github.RepositoriesService satisfies it.
type RepoGetter interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
}

// NewGitHubClient creates a GitHub client. An empty token gives an
// unauthenticated client, which is subject to the lower anonymous rate limit.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// SyncResult reports what Sync did to a single project.
type SyncResult struct {
	ID      string
	Repo    string
	Updated bool
	Err     error
}

// Sync refreshes repository metadata for every project with a repo. Stars
// and topics are always overwritten; link and summary only when empty.
// Projects without a repo are returned unchanged. Failures for one project
// do not stop the others; they are joined into the returned error.
func Sync(ctx context.Context, repos RepoGetter, projects []Project) ([]Project, []SyncResult, error) {
	out := make([]Project, len(projects))
	var results []SyncResult
	var errs []error

	for i, p := range projects {
		out[i] = p.clone()
		if p.Repo == "" {
			continue
		}

		result := SyncResult{ID: p.ID, Repo: p.Repo}
		if err := syncProject(ctx, repos, &out[i]); err != nil {
			result.Err = err
			errs = append(errs, fmt.Errorf("project '%s': %w", p.ID, err))
		} else {
			result.Updated = true
		}
		results = append(results, result)

		if ctx.Err() != nil {
			break
		}
	}

	return out, results, errors.Join(errs...)
}

func syncProject(ctx context.Context, repos RepoGetter, p *Project) error {
	owner, name, err := security.SplitRepoSlug(p.Repo)
	if err != nil {
		return err
	}

	repo, resp, err := repos.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("repository %s not found", p.Repo)
		}
		return fmt.Errorf("fetching repository %s: %w", p.Repo, err)
	}

	p.Stars = repo.GetStargazersCount()
	p.Topics = repo.Topics
	if p.Link == "" {
		p.Link = repo.GetHTMLURL()
	}
	if p.Summary == "" {
		p.Summary = repo.GetDescription()
	}

	return nil
}
