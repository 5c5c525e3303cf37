package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

// PR-related constants.
const (
	perPageLimit = 100 // GitHub API per_page limit
)

// PullRequest fetches a single pull request.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, prNumber int) (*types.PullRequest, error) {
	slog.Info("Fetching PR details to get title, state, author, and assignees", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d", owner, repo, prNumber)
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get PR (status %d)", resp.StatusCode)
	}

	var prData struct {
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
	}

	if err := json.NewDecoder(resp.Body).Decode(&prData); err != nil {
		return nil, fmt.Errorf("failed to decode pull request: %w", err)
	}

	var assignees []string
	for _, assignee := range prData.Assignees {
		assignees = append(assignees, assignee.Login)
	}

	return &types.PullRequest{
		Title:      prData.Title,
		State:      prData.State,
		Author:     prData.User.Login,
		Owner:      owner,
		Repository: repo,
		Assignees:  assignees,
		Number:     prData.Number,
		Draft:      prData.Draft,
	}, nil
}

// Collaborators lists the logins of users holding the given permission level
// on the repository, paging through the full collaborator list.
func (c *Client) Collaborators(ctx context.Context, owner, repo, permission string) ([]string, error) {
	slog.Info("Fetching collaborators by permission", "component", "api", "owner", owner, "repo", repo, "permission", permission)
	var logins []string
	page := 1

	for {
		apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/collaborators?permission=%s&per_page=%d&page=%d",
			owner, repo, permission, perPageLimit, page)

		// Extract API call to avoid defer in loop
		pageLogins, lastPage, err := func() ([]string, bool, error) {
			resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
			if err != nil {
				return nil, false, err
			}
			defer drainAndCloseBody(resp.Body)

			if resp.StatusCode != http.StatusOK {
				return nil, false, fmt.Errorf("failed to list collaborators (status %d)", resp.StatusCode)
			}

			var collaborators []struct {
				Login string `json:"login"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&collaborators); err != nil {
				return nil, false, fmt.Errorf("failed to decode collaborators response: %w", err)
			}

			pageLogins := make([]string, 0, len(collaborators))
			for _, collab := range collaborators {
				pageLogins = append(pageLogins, collab.Login)
			}
			return pageLogins, len(collaborators) < perPageLimit, nil
		}()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s collaborators: %w", permission, err)
		}

		logins = append(logins, pageLogins...)
		if lastPage {
			break
		}
		page++
	}

	slog.Info("Fetched collaborators", "owner", owner, "repo", repo, "permission", permission, "count", len(logins))
	return logins, nil
}

// FileContent fetches a file from a repository at the given ref via the
// contents API and returns it decoded to UTF-8.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	slog.Info("Fetching repository file content", "component", "api", "owner", owner, "repo", repo, "path", path, "ref", ref)
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s?ref=%s", owner, repo, path, ref)
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get file content (status %d)", resp.StatusCode)
	}

	var fileData struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fileData); err != nil {
		return "", fmt.Errorf("failed to decode file content response: %w", err)
	}

	if fileData.Encoding != "base64" {
		return fileData.Content, nil
	}

	decoded, err := decodeBase64Content(fileData.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return decoded, nil
}

// decodeBase64Content decodes a contents-API payload. GitHub wraps the base64
// text with newlines, which the standard decoder rejects.
func decodeBase64Content(content string) (string, error) {
	compact := strings.Join(strings.Fields(content), "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// AddAssignees adds the given logins as assignees on a pull request.
func (c *Client) AddAssignees(ctx context.Context, owner, repo string, prNumber int, assignees []string) error {
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%d/assignees", owner, repo, prNumber)

	payload := map[string]any{
		"assignees": assignees,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, apiURL, payload) //nolint:bodyclose // body is closed via defer drainAndCloseBody
	if err != nil {
		return fmt.Errorf("failed to add assignees: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to add assignees: status %d (could not read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to add assignees: status %d: %s", resp.StatusCode, string(body))
	}

	slog.Info("Added assignees to PR", "owner", owner, "repo", repo, "pr", prNumber, "assignees", assignees)
	return nil
}
