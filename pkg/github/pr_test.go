package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/auto-assign/pkg/internal/testutil"
)

func newTestClient(doer HTTPDoer) *Client {
	return &Client{
		httpClient: doer,
		token:      "test-token",
		isAppAuth:  false,
	}
}

func TestPullRequest(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()
	doer.SetResponse("GET", "https://api.github.com/repos/acme/widgets/pulls/7", http.StatusOK, map[string]any{
		"number": 7,
		"title":  "Add widget",
		"state":  "open",
		"draft":  false,
		"user":   map[string]string{"login": "octocat"},
		"assignees": []map[string]string{
			{"login": "alice"},
			{"login": "bob"},
		},
	})
	c := newTestClient(doer)

	pr, err := c.PullRequest(ctx, "acme", "widgets", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pr.Number != 7 || pr.Title != "Add widget" || pr.State != "open" {
		t.Errorf("unexpected PR: %+v", pr)
	}
	if pr.Author != "octocat" {
		t.Errorf("Author = %q, want octocat", pr.Author)
	}
	if !reflect.DeepEqual(pr.Assignees, []string{"alice", "bob"}) {
		t.Errorf("Assignees = %v, want [alice bob]", pr.Assignees)
	}
	if pr.Owner != "acme" || pr.Repository != "widgets" {
		t.Errorf("coordinates = %s/%s, want acme/widgets", pr.Owner, pr.Repository)
	}
}

func TestPullRequest_NotFound(t *testing.T) {
	ctx := context.Background()
	// MockHTTPDoer answers 404 for anything unconfigured; the client must
	// surface that as a terminal error without retrying.
	doer := testutil.NewMockHTTPDoer()
	c := newTestClient(doer)

	_, err := c.PullRequest(ctx, "acme", "widgets", 404)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found", err)
	}
	if calls := doer.Calls(); len(calls) != 1 {
		t.Errorf("made %d HTTP calls, want 1 (no retries on 404)", len(calls))
	}
}

func collaboratorPage(logins ...string) []map[string]string {
	page := make([]map[string]string, 0, len(logins))
	for _, l := range logins {
		page = append(page, map[string]string{"login": l})
	}
	return page
}

func TestCollaborators(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()
	doer.SetResponse("GET",
		"https://api.github.com/repos/acme/widgets/collaborators?permission=push&per_page=100&page=1",
		http.StatusOK, collaboratorPage("alice", "bob"))
	c := newTestClient(doer)

	logins, err := c.Collaborators(ctx, "acme", "widgets", "push")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(logins, []string{"alice", "bob"}) {
		t.Errorf("logins = %v, want [alice bob]", logins)
	}
}

func TestCollaborators_Pagination(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()

	fullPage := make([]string, perPageLimit)
	for i := range fullPage {
		fullPage[i] = fmt.Sprintf("user%d", i)
	}
	doer.SetResponse("GET",
		"https://api.github.com/repos/acme/widgets/collaborators?permission=admin&per_page=100&page=1",
		http.StatusOK, collaboratorPage(fullPage...))
	doer.SetResponse("GET",
		"https://api.github.com/repos/acme/widgets/collaborators?permission=admin&per_page=100&page=2",
		http.StatusOK, collaboratorPage("zara"))
	c := newTestClient(doer)

	logins, err := c.Collaborators(ctx, "acme", "widgets", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logins) != perPageLimit+1 {
		t.Fatalf("got %d logins, want %d", len(logins), perPageLimit+1)
	}
	if logins[perPageLimit] != "zara" {
		t.Errorf("last login = %q, want zara", logins[perPageLimit])
	}
}

func TestFileContent_Base64(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()

	// GitHub wraps base64 content with newlines
	raw := base64.StdEncoding.EncodeToString([]byte("@alice\n@bob # backend\n"))
	wrapped := raw[:8] + "\n" + raw[8:]
	doer.SetResponse("GET",
		"https://api.github.com/repos/acme/community/contents/users.txt?ref=main",
		http.StatusOK, map[string]string{
			"content":  wrapped,
			"encoding": "base64",
		})
	c := newTestClient(doer)

	content, err := c.FileContent(ctx, "acme", "community", "users.txt", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "@alice\n@bob # backend\n" {
		t.Errorf("content = %q", content)
	}
}

func TestFileContent_NotFound(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()
	c := newTestClient(doer)

	_, err := c.FileContent(ctx, "acme", "community", "gone.txt", "main")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found", err)
	}
}

func TestAddAssignees(t *testing.T) {
	ctx := context.Background()
	doer := testutil.NewMockHTTPDoer()
	doer.SetResponse("POST",
		"https://api.github.com/repos/acme/widgets/issues/7/assignees",
		http.StatusCreated, map[string]any{"number": 7})
	c := newTestClient(doer)

	if err := c.AddAssignees(ctx, "acme", "widgets", 7, []string{"alice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := doer.Calls()
	if len(calls) != 1 {
		t.Fatalf("made %d HTTP calls, want 1", len(calls))
	}
	if !strings.Contains(string(calls[0].Body), `"assignees":["alice"]`) {
		t.Errorf("request body = %s, want assignees [alice]", calls[0].Body)
	}
}

func TestDecodeBase64Content(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", base64.StdEncoding.EncodeToString([]byte("hello")), "hello", false},
		{"with newlines", "aGVs\nbG8=\n", "hello", false},
		{"empty", "", "", false},
		{"garbage", "!!!not base64!!!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64Content(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("decodeBase64Content(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
