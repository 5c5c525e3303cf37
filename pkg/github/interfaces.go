package github

import (
	"context"
	"net/http"

	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

// HTTPDoer provides an interface for making HTTP requests.
// This allows us to mock HTTP calls in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// API defines the GitHub operations the assignment pipeline depends on.
type API interface {
	// PullRequest fetches the current state of a pull request.
	PullRequest(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error)

	// Collaborators lists logins holding the given permission on the repository.
	Collaborators(ctx context.Context, owner, repo, permission string) ([]string, error)

	// FileContent fetches a file from a repository at the given ref, decoded to UTF-8.
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)

	// AddAssignees adds the given logins as assignees on a pull request.
	AddAssignees(ctx context.Context, owner, repo string, prNumber int, assignees []string) error
}
