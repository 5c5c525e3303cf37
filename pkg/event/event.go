// Package event loads and gates the pull_request trigger payload.
package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

// Actions that may lead to an assignment. Draft PRs are excluded separately:
// a draft that later becomes ready arrives as ready_for_review.
var processableActions = map[string]bool{
	"opened":           true,
	"reopened":         true,
	"ready_for_review": true,
}

// Payload is the subset of the pull_request webhook payload the assigner reads.
type Payload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Title string `json:"title"`
		State string `json:"state"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
		Assignees []struct {
			Login string `json:"login"`
		} `json:"assignees"`
		Number int  `json:"number"`
		Draft  bool `json:"draft"`
	} `json:"pull_request"`
}

// Load reads a pull_request event payload from the file at path
// (GITHUB_EVENT_PATH on a hosted runner).
func Load(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}
	return Parse(data)
}

// Parse decodes a pull_request event payload.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}
	if p.PullRequest.Number == 0 {
		return nil, fmt.Errorf("event payload has no pull request number (action %q)", p.Action)
	}
	return &p, nil
}

// ShouldProcess reports whether this event is one the assigner acts on:
// an opened, reopened, or ready_for_review action on a non-draft PR.
func (p *Payload) ShouldProcess() bool {
	return processableActions[p.Action] && !p.PullRequest.Draft
}

// Snapshot converts the event's pull request data into a PullRequest using
// the repository coordinates the run was triggered for.
func (p *Payload) Snapshot(owner, repo string) *types.PullRequest {
	var assignees []string
	for _, a := range p.PullRequest.Assignees {
		assignees = append(assignees, a.Login)
	}

	return &types.PullRequest{
		Title:      p.PullRequest.Title,
		State:      p.PullRequest.State,
		Author:     p.PullRequest.User.Login,
		Owner:      owner,
		Repository: repo,
		Assignees:  assignees,
		Number:     p.PullRequest.Number,
		Draft:      p.PullRequest.Draft,
	}
}

// ParseRepository splits a GITHUB_REPOSITORY-style "owner/repo" value.
func ParseRepository(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/repo)", s)
	}
	return parts[0], parts[1], nil
}
