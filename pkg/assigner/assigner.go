// Package assigner implements the reviewer auto-assignment pipeline: a linear
// decision chain that either exits early with a logged reason or assigns one
// randomly chosen candidate from the allow-list and verifies the result.
package assigner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/auto-assign/pkg/github"
	"github.com/codeGROOVE-dev/auto-assign/pkg/roster"
	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

// DebugEnvVar is the environment variable that bypasses the trusted-author
// gate, for testing the rest of the pipeline.
const DebugEnvVar = "ASSIGNER_DEBUG"

// ErrVerificationFailed indicates the add-assignee call appeared to succeed
// but the login was absent when the pull request was re-fetched. A run only
// counts as successful when the assignment is independently re-observed.
var ErrVerificationFailed = errors.New("assignment not observed on re-fetch")

// trustedPermissions are the permission levels whose holders count as trusted
// authors. Triage is deliberately excluded; add it here to widen the set.
var trustedPermissions = []string{"push", "maintain", "admin"}

// botLogins are always treated as trusted authors regardless of their actual
// collaborator status, so their PRs never get a reviewer auto-assigned.
var botLogins = []string{"dependabot[bot]", "github-actions[bot]"}

// Skip reasons reported on early, successful no-op exits.
const (
	ReasonAlreadyAssigned = "already-assigned"
	ReasonTrustedAuthor   = "trusted-author"
)

// Config holds configuration for an Assigner.
type Config struct {
	// IntN overrides the random source for candidate selection; nil uses
	// math/rand. Selection needs no cryptographic strength.
	IntN func(n int) int

	// Debug continues past the trusted-author gate.
	Debug bool

	// DryRun logs the candidate that would be assigned without mutating the
	// pull request. Verification is skipped since there is nothing to verify.
	DryRun bool
}

// Assigner decides whether a pull request needs a reviewer assigned, and if
// so, performs the assignment and verifies it.
type Assigner struct {
	client github.API
	cfg    Config
}

// New creates an Assigner backed by the given GitHub client.
func New(client github.API, cfg Config) *Assigner {
	if cfg.IntN == nil {
		cfg.IntN = rand.Intn //nolint:gosec // uniform pick, not security-sensitive
	}
	return &Assigner{client: client, cfg: cfg}
}

// Outcome describes how a run ended.
type Outcome struct {
	Assigned string // login that was assigned; empty when a gate skipped the run
	Reason   string // skip reason for no-op runs; empty when an assignment was made
}

// Run executes the pipeline for one pull request. The assignee list on pr is
// the event snapshot; it is deliberately not re-fetched before the
// already-assigned gate.
func (a *Assigner) Run(ctx context.Context, pr *types.PullRequest) (*Outcome, error) {
	// Never overwrite or add to an existing assignment decision.
	if len(pr.Assignees) > 0 {
		slog.Info("PR already has assignees, nothing to do",
			"owner", pr.Owner, "repo", pr.Repository, "pr", pr.Number, "assignees", pr.Assignees)
		return &Outcome{Reason: ReasonAlreadyAssigned}, nil
	}

	trusted, err := a.trustedLogins(ctx, pr.Owner, pr.Repository)
	if err != nil {
		return nil, err
	}

	if trusted[pr.Author] {
		if !a.cfg.Debug {
			slog.Info("PR author is a trusted collaborator, nothing to do",
				"owner", pr.Owner, "repo", pr.Repository, "pr", pr.Number, "author", pr.Author)
			return &Outcome{Reason: ReasonTrustedAuthor}, nil
		}
		slog.Warn("Debug override set, continuing despite trusted author",
			"owner", pr.Owner, "repo", pr.Repository, "pr", pr.Number, "author", pr.Author)
	}

	candidates, err := roster.Fetch(ctx, a.client)
	if err != nil {
		return nil, err
	}

	pick := candidates[a.cfg.IntN(len(candidates))]
	slog.Info("Selected candidate", "owner", pr.Owner, "repo", pr.Repository, "pr", pr.Number,
		"candidate", pick, "pool", len(candidates))

	if a.cfg.DryRun {
		slog.Info("Dry run, skipping assignment", "candidate", pick, "pr", pr.Number)
		return &Outcome{Assigned: pick}, nil
	}

	if err := a.client.AddAssignees(ctx, pr.Owner, pr.Repository, pr.Number, []string{pick}); err != nil {
		return nil, fmt.Errorf("failed to assign %s to PR #%d: %w", pick, pr.Number, err)
	}

	// The add call reports success without a reliable payload; trust only a
	// fresh read of the pull request.
	fresh, err := a.client.PullRequest(ctx, pr.Owner, pr.Repository, pr.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch PR #%d for verification: %w", pr.Number, err)
	}
	if !slices.Contains(fresh.Assignees, pick) {
		return nil, fmt.Errorf("%w: %s not in assignees %v of PR #%d",
			ErrVerificationFailed, pick, fresh.Assignees, pr.Number)
	}

	slog.Info("Verified assignment", "owner", pr.Owner, "repo", pr.Repository, "pr", pr.Number, "assignee", pick)
	return &Outcome{Assigned: pick}, nil
}

// trustedLogins unions the collaborator logins across the trusted permission
// levels, plus the fixed bot logins.
func (a *Assigner) trustedLogins(ctx context.Context, owner, repo string) (map[string]bool, error) {
	set := make(map[string]bool)
	for _, permission := range trustedPermissions {
		logins, err := a.client.Collaborators(ctx, owner, repo, permission)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s collaborators: %w", permission, err)
		}
		for _, login := range logins {
			set[login] = true
		}
	}
	for _, login := range botLogins {
		set[login] = true
	}
	return set, nil
}

// DebugEnabled interprets the debug override environment value. Only "true"
// and "1" (case-insensitive, after trimming) enable it; anything else,
// including unset or empty, is false.
func DebugEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true
	default:
		return false
	}
}
