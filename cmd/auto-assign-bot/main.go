// Package main implements a GitHub App bot that auto-assigns reviewers to
// newly opened pull requests across all installed organizations, driven by
// live pull_request events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/auto-assign/pkg/assigner"
	"github.com/codeGROOVE-dev/auto-assign/pkg/github"
	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

var (
	// GitHub App authentication flags.
	appID      = flag.String("app-id", "", "GitHub App ID for authentication")
	appKeyPath = flag.String("app-key-path", "", "Path to GitHub App private key file")

	// Behavior flags.
	dryRun = flag.Bool("dry-run", false, "Run in dry-run mode (no actual assignments)")
)

const (
	serverReadTimeout = 10 * time.Second
	serverIdleTimeout = 60 * time.Second
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "GitHub App bot that assigns allow-list reviewers to new PRs across all installed organizations.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_ID        - GitHub App ID\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_KEY       - GitHub App private key content\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_KEY_PATH  - Path to GitHub App private key file\n")
		fmt.Fprintf(os.Stderr, "  PORT                 - HTTP server port (default: 8080)\n")
		fmt.Fprintf(os.Stderr, "  %s       - Bypass the trusted-author gate (true/1)\n", assigner.DebugEnvVar)
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := github.New(ctx, github.Config{
		UseAppAuth:  true,
		AppID:       *appID,
		AppKeyPath:  *appKeyPath,
		HTTPTimeout: 30 * time.Second,
	})
	if err != nil {
		slog.Error("Failed to create GitHub client", "error", err)
		os.Exit(1)
	}

	bot := &Bot{
		client:   client,
		metrics:  NewMetricsCollector(),
		monitors: make(map[string]*sprinklerMonitor),
		assignerCfg: assigner.Config{
			Debug:  assigner.DebugEnabled(os.Getenv(assigner.DebugEnvVar)),
			DryRun: *dryRun,
		},
	}

	go bot.startHealthServer()

	if err := bot.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

// Bot manages reviewer auto-assignment across all installed organizations.
type Bot struct {
	client      *github.Client
	metrics     *MetricsCollector
	monitors    map[string]*sprinklerMonitor
	assignerCfg assigner.Config
	monitorsMu  sync.Mutex
}

// run starts one event monitor per installed organization and blocks until
// the context is cancelled.
func (b *Bot) run(ctx context.Context) error {
	orgs, err := b.client.ListAppInstallations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list app installations: %w", err)
	}
	if len(orgs) == 0 {
		return errors.New("no installations found (is the app installed anywhere?)")
	}

	slog.Info("Starting event monitors", "orgs", len(orgs))
	for _, org := range orgs {
		monitor := newSprinklerMonitor(b, org)
		b.monitorsMu.Lock()
		b.monitors[org] = monitor
		b.monitorsMu.Unlock()
		monitor.start(ctx)
	}

	<-ctx.Done()
	return ctx.Err()
}

// processPullRequest handles one pull_request event for a single PR.
func (b *Bot) processPullRequest(ctx context.Context, org, owner, repo string, prNumber int) error {
	b.client.SetCurrentOrg(org)
	defer b.client.SetCurrentOrg("")

	b.metrics.RecordPRSeen(owner, repo, prNumber)

	// Fetch fresh state; the event stream only carries the PR URL.
	pr, err := b.client.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR %s/%s#%d: %w", owner, repo, prNumber, err)
	}

	if !shouldAssign(pr) {
		slog.Info("PR not eligible for assignment", "owner", owner, "repo", repo, "pr", prNumber,
			"state", pr.State, "draft", pr.Draft)
		return nil
	}

	a := assigner.New(b.client, b.assignerCfg)
	outcome, err := a.Run(ctx, pr)
	if err != nil {
		return err
	}

	if outcome.Assigned != "" {
		b.metrics.RecordPRAssigned(owner, repo, prNumber)
	}
	b.metrics.RecordRunComplete()
	return nil
}

// shouldAssign mirrors the trigger condition of the one-shot hook: only open,
// non-draft pull requests proceed.
func shouldAssign(pr *types.PullRequest) bool {
	return pr.State == "open" && !pr.Draft
}

// startHealthServer starts the HTTP server for health checks.
func (b *Bot) startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		stats := b.metrics.Stats()
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "ok\nruns: %d\nprs_seen: %d\nprs_assigned: %d\nlast_run: %s\n",
			stats.TotalRuns, stats.PRsSeen, stats.PRsAssigned, stats.LastRun.Format(time.RFC3339))
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: serverReadTimeout,
		IdleTimeout: serverIdleTimeout,
	}

	slog.Info("Starting health server", "port", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Health server stopped", "error", err)
	}
}
