// Package main implements a one-shot CI hook that assigns a random eligible
// reviewer from an external allow-list to a newly opened pull request.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/codeGROOVE-dev/auto-assign/pkg/assigner"
	"github.com/codeGROOVE-dev/auto-assign/pkg/event"
	"github.com/codeGROOVE-dev/auto-assign/pkg/github"
)

var (
	eventPath = flag.String("event", "", "Path to the pull_request event payload (default: $GITHUB_EVENT_PATH)")
	repoSlug  = flag.String("repo", "", "Repository as owner/repo (default: $GITHUB_REPOSITORY)")
	dryRun    = flag.Bool("dry-run", false, "Select a candidate but perform no assignment")
	verbose   = flag.Bool("v", false, "Verbose output with detailed diagnostics")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Assigns a random reviewer from the allow-list to the pull request that\n")
		fmt.Fprintf(os.Stderr, "triggered this run, unless it already has an assignee or its author is a\n")
		fmt.Fprintf(os.Stderr, "repository collaborator.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_EVENT_PATH  - Path to the triggering event payload\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_REPOSITORY  - Repository as owner/repo\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_TOKEN       - API token (falls back to: gh auth token)\n")
		fmt.Fprintf(os.Stderr, "  %s     - Bypass the trusted-author gate (true/1)\n", assigner.DebugEnvVar)
	}
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := *eventPath
	if path == "" {
		path = os.Getenv("GITHUB_EVENT_PATH")
	}
	if path == "" {
		return fmt.Errorf("no event payload: set -event or GITHUB_EVENT_PATH")
	}

	slug := *repoSlug
	if slug == "" {
		slug = os.Getenv("GITHUB_REPOSITORY")
	}
	owner, repo, err := event.ParseRepository(slug)
	if err != nil {
		return err
	}

	payload, err := event.Load(path)
	if err != nil {
		return err
	}

	if !payload.ShouldProcess() {
		slog.Info("Event does not require assignment, nothing to do",
			"action", payload.Action, "draft", payload.PullRequest.Draft)
		return nil
	}

	client, err := github.New(ctx, github.Config{
		Token:       os.Getenv("GITHUB_TOKEN"),
		HTTPTimeout: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	debug := assigner.DebugEnabled(os.Getenv(assigner.DebugEnvVar))
	if debug {
		slog.Warn("Debug override enabled", "env", assigner.DebugEnvVar)
	}

	a := assigner.New(client, assigner.Config{
		Debug:  debug,
		DryRun: *dryRun,
	})

	pr := payload.Snapshot(owner, repo)
	slog.Info("Processing pull request", "owner", owner, "repo", repo, "pr", pr.Number,
		"author", pr.Author, "action", payload.Action)

	outcome, err := a.Run(ctx, pr)
	if err != nil {
		return err
	}

	if outcome.Assigned != "" {
		slog.Info("Assignment complete", "pr", pr.Number, "assignee", outcome.Assigned, "dry_run", *dryRun)
	} else {
		slog.Info("No assignment needed", "pr", pr.Number, "reason", outcome.Reason)
	}
	return nil
}
