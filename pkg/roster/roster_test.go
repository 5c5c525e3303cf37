package roster

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single candidate", "@alice", []string{"alice"}},
		{"hyphen and comment", "@bob-2 # reviewer note", []string{"bob-2"}},
		{"comment without space", "@carol#oncall", []string{"carol"}},
		{"trailing whitespace", "@dave   ", []string{"dave"}},
		{"leading whitespace", "   @erin", []string{"erin"}},
		{"plain text line ignored", "not-a-user", nil},
		{"bare at-sign ignored", "@", nil},
		{"missing at-sign ignored", "alice", nil},
		{"underscore rejected", "@not_a_user", nil},
		{"empty content", "", nil},
		{"blank lines and comments", "\n# header comment\n\n@alice\n", []string{"alice"}},
		{
			"mixed file",
			"# reviewers\n@alice\n@bob-2 # backend\nnot-a-user\n@\n@carol\n",
			[]string{"alice", "bob-2", "carol"},
		},
		{"windows line endings", "@alice\r\n@bob\r\n", []string{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

// fakeFetcher serves fixed content for the allow-list coordinates.
type fakeFetcher struct {
	content string
	err     error
}

func (f *fakeFetcher) FileContent(_ context.Context, owner, repo, path, ref string) (string, error) {
	if owner != Owner || repo != Repo || path != Path || ref != Ref {
		return "", fmt.Errorf("unexpected coordinates %s/%s/%s@%s", owner, repo, path, ref)
	}
	return f.content, f.err
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	got, err := Fetch(ctx, &fakeFetcher{content: "@alice\n@bob\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("Fetch = %v, want [alice bob]", got)
	}
}

func TestFetch_EmptyList(t *testing.T) {
	ctx := context.Background()

	_, err := Fetch(ctx, &fakeFetcher{content: "# no users here\nnot-a-user\n"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("error = %v, want ErrNoCandidates", err)
	}
}

func TestFetch_FetchError(t *testing.T) {
	ctx := context.Background()
	fetchErr := errors.New("http 404: not found")

	_, err := Fetch(ctx, &fakeFetcher{err: fetchErr})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("error = %v, want wrapped %v", err, fetchErr)
	}
	if errors.Is(err, ErrNoCandidates) {
		t.Error("fetch failure must be distinct from the empty-list configuration error")
	}
}
