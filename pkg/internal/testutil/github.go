// Package testutil provides mock implementations and testing utilities for the auto-assign project.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

// MockGitHubClient implements github.API for testing. It's a programmable
// mock: configure responses with the Set* methods and inspect recorded calls
// afterwards.
type MockGitHubClient struct {
	pullRequests     map[string]*types.PullRequest
	collaborators    map[string][]string
	fileContents     map[string]string
	errors           map[string]error
	addAssigneeCalls []AddAssigneesCall
	mu               sync.RWMutex
	dropAssignments  bool
}

// AddAssigneesCall records a call to AddAssignees.
type AddAssigneesCall struct {
	Owner     string
	Repo      string
	Assignees []string
	PRNumber  int
}

// NewMockGitHubClient creates a new MockGitHubClient.
func NewMockGitHubClient() *MockGitHubClient {
	return &MockGitHubClient{
		pullRequests:  make(map[string]*types.PullRequest),
		collaborators: make(map[string][]string),
		fileContents:  make(map[string]string),
		errors:        make(map[string]error),
	}
}

// PullRequest returns a configured pull request.
func (m *MockGitHubClient) PullRequest(_ context.Context, owner, repo string, number int) (*types.PullRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := fmt.Sprintf("%s/%s/%d", owner, repo, number)
	if err := m.errors["PullRequest:"+key]; err != nil {
		return nil, err
	}

	pr, ok := m.pullRequests[key]
	if !ok {
		return nil, fmt.Errorf("PR not found: %s", key)
	}
	// Copy so callers can't mutate configured state
	clone := *pr
	clone.Assignees = append([]string(nil), pr.Assignees...)
	return &clone, nil
}

// Collaborators returns configured collaborators for a repo and permission.
func (m *MockGitHubClient) Collaborators(_ context.Context, owner, repo, permission string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := fmt.Sprintf("%s/%s/%s", owner, repo, permission)
	if err := m.errors["Collaborators:"+key]; err != nil {
		return nil, err
	}
	return m.collaborators[key], nil
}

// FileContent returns configured file content.
func (m *MockGitHubClient) FileContent(_ context.Context, owner, repo, path, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := fmt.Sprintf("%s/%s/%s/%s", owner, repo, path, ref)
	if err := m.errors["FileContent:"+key]; err != nil {
		return "", err
	}

	content, ok := m.fileContents[key]
	if !ok {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return content, nil
}

// AddAssignees records the call and, unless DropAssignments was set, applies
// the assignment to the stored pull request so a later re-fetch observes it.
func (m *MockGitHubClient) AddAssignees(_ context.Context, owner, repo string, prNumber int, assignees []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s/%s/%d", owner, repo, prNumber)
	if err := m.errors["AddAssignees:"+key]; err != nil {
		return err
	}

	m.addAssigneeCalls = append(m.addAssigneeCalls, AddAssigneesCall{
		Owner:     owner,
		Repo:      repo,
		PRNumber:  prNumber,
		Assignees: assignees,
	})

	if !m.dropAssignments {
		if pr, ok := m.pullRequests[key]; ok {
			pr.Assignees = append(pr.Assignees, assignees...)
		}
	}
	return nil
}

// Configuration methods for testing.

// SetPullRequest configures a pull request response.
func (m *MockGitHubClient) SetPullRequest(pr *types.PullRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s/%s/%d", pr.Owner, pr.Repository, pr.Number)
	m.pullRequests[key] = pr
}

// SetCollaborators configures collaborator logins for a repo and permission level.
func (m *MockGitHubClient) SetCollaborators(owner, repo, permission string, logins []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s/%s/%s", owner, repo, permission)
	m.collaborators[key] = logins
}

// SetFileContent configures file content for a repo path and ref.
func (m *MockGitHubClient) SetFileContent(owner, repo, path, ref, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s/%s/%s/%s", owner, repo, path, ref)
	m.fileContents[key] = content
}

// SetError configures an error for a specific method and parameters, keyed
// like "PullRequest:owner/repo/1".
func (m *MockGitHubClient) SetError(methodWithParams string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors[methodWithParams] = err
}

// DropAssignments makes AddAssignees record calls without applying them, so
// verification re-fetches observe an unchanged assignee list.
func (m *MockGitHubClient) DropAssignments() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropAssignments = true
}

// AddAssigneesCalls returns all recorded AddAssignees calls.
func (m *MockGitHubClient) AddAssigneesCalls() []AddAssigneesCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]AddAssigneesCall, len(m.addAssigneeCalls))
	copy(calls, m.addAssigneeCalls)
	return calls
}
