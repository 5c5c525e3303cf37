// Package roster loads and parses the reviewer allow-list.
//
// The allow-list is a newline-delimited text file maintained in a separate,
// trusted repository. Each line names one candidate as "@login", optionally
// followed by whitespace and a "#" comment. Anything else is ignored.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Fixed coordinates of the allow-list file.
const (
	Owner = "codeGROOVE-dev"
	Repo  = "community"
	Path  = "users.txt"
	Ref   = "main"
)

// ErrNoCandidates indicates the allow-list parsed to zero usernames. This is
// a configuration error, not a transient one.
var ErrNoCandidates = errors.New("allow-list contains no candidates")

// candidateLine matches "@login" with an optional trailing comment.
// Logins are letters, digits, and hyphens.
var candidateLine = regexp.MustCompile(`^@([A-Za-z0-9-]+)\s*(?:#.*)?$`)

// ContentFetcher fetches a file from a GitHub repository.
type ContentFetcher interface {
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// Parse extracts candidate logins from allow-list text, preserving file
// order. Lines that do not match the candidate format are dropped.
func Parse(content string) []string {
	var candidates []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		m := candidateLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		candidates = append(candidates, m[1])
	}
	return candidates
}

// Fetch retrieves the allow-list from its fixed location and parses it.
// An allow-list with no valid candidates is an error.
func Fetch(ctx context.Context, fetcher ContentFetcher) ([]string, error) {
	content, err := fetcher.FileContent(ctx, Owner, Repo, Path, Ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allow-list %s/%s/%s@%s: %w", Owner, Repo, Path, Ref, err)
	}

	candidates := Parse(content)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w (%s/%s/%s@%s)", ErrNoCandidates, Owner, Repo, Path, Ref)
	}

	slog.Info("Parsed allow-list", "component", "roster", "candidates", len(candidates))
	return candidates, nil
}
