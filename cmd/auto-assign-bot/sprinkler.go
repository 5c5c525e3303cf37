package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/sprinkler/pkg/client"
)

const (
	eventChannelSize     = 100             // Buffer size for event channel
	eventDedupWindow     = 5 * time.Second // Time window for deduplicating events
	eventMapMaxSize      = 1000            // Maximum entries in event dedup map
	maxReconnectAttempts = 100             // Max restarts of the WebSocket client
	reconnectBackoff     = 30 * time.Second
	maxReconnectBackoff  = 5 * time.Minute
	processTimeout       = 2 * time.Minute // Per-PR processing deadline
)

// sprinklerMonitor manages WebSocket event subscriptions for a single org.
type sprinklerMonitor struct {
	lastEventMap      map[string]time.Time // Track last event per URL to dedupe
	bot               *Bot
	eventChan         chan string // Channel for PR URLs that need processing
	org               string
	mu                sync.Mutex
	reconnectAttempts int
}

// newSprinklerMonitor creates a new sprinkler monitor for a specific org.
func newSprinklerMonitor(bot *Bot, org string) *sprinklerMonitor {
	return &sprinklerMonitor{
		bot:          bot,
		org:          org,
		eventChan:    make(chan string, eventChannelSize),
		lastEventMap: make(map[string]time.Time),
	}
}

// start begins monitoring pull_request events for this org.
func (sm *sprinklerMonitor) start(ctx context.Context) {
	slog.Info("Starting event monitor", "component", "sprinkler", "org", sm.org)
	go sm.processEvents(ctx)
	go sm.manageConnection(ctx)
}

// manageConnection restarts the WebSocket client when it gives up. The
// sprinkler client handles transient reconnects internally with its own
// backoff; this loop only covers fatal exits.
func (sm *sprinklerMonitor) manageConnection(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := sm.connectWebSocket(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}

		sm.mu.Lock()
		sm.reconnectAttempts++
		attempts := sm.reconnectAttempts
		sm.mu.Unlock()

		if attempts >= maxReconnectAttempts {
			slog.Error("Max reconnection attempts reached, giving up", "component", "sprinkler", "org", sm.org, "attempts", attempts)
			return
		}

		backoff := reconnectBackoff * time.Duration(attempts)
		if backoff > maxReconnectBackoff {
			backoff = maxReconnectBackoff
		}
		slog.Warn("WebSocket client stopped, restarting after backoff",
			"component", "sprinkler", "org", sm.org, "attempt", attempts, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// connectWebSocket runs the WebSocket client until it stops.
func (sm *sprinklerMonitor) connectWebSocket(ctx context.Context) error {
	config := client.Config{
		ServerURL:    "wss://" + client.DefaultServerAddress + "/ws",
		Organization: sm.org,
		// TokenProvider picks up installation token refreshes
		TokenProvider: func() (string, error) {
			sm.bot.client.SetCurrentOrg(sm.org)
			token, err := sm.bot.client.Token(ctx)
			sm.bot.client.SetCurrentOrg("")
			if err != nil {
				return "", fmt.Errorf("failed to get token: %w", err)
			}
			return token, nil
		},
		EventTypes:     []string{"pull_request"},
		UserEventsOnly: false,
		OnConnect: func() {
			sm.mu.Lock()
			sm.reconnectAttempts = 0
			sm.mu.Unlock()
			slog.Info("WebSocket connected", "component", "sprinkler", "org", sm.org)
		},
		OnDisconnect: func(err error) {
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("WebSocket disconnected", "component", "sprinkler", "org", sm.org, "error", err)
			}
		},
		OnEvent: func(event client.Event) {
			sm.handleEvent(event)
		},
	}

	wsClient, err := client.New(config)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if err := wsClient.Start(ctx); err != nil {
		return err
	}
	return nil
}

// handleEvent queues an incoming PR event for processing, deduplicating
// bursts of events for the same URL.
func (sm *sprinklerMonitor) handleEvent(event client.Event) {
	if event.Type != "pull_request" {
		return
	}
	if event.URL == "" {
		slog.Warn("Received PR event with empty URL", "component", "sprinkler", "org", sm.org)
		return
	}

	sm.mu.Lock()
	now := time.Now()
	if last, ok := sm.lastEventMap[event.URL]; ok && now.Sub(last) < eventDedupWindow {
		sm.mu.Unlock()
		return
	}
	sm.lastEventMap[event.URL] = now
	if len(sm.lastEventMap) > eventMapMaxSize {
		for url, seen := range sm.lastEventMap {
			if now.Sub(seen) > time.Hour {
				delete(sm.lastEventMap, url)
			}
		}
	}
	sm.mu.Unlock()

	select {
	case sm.eventChan <- event.URL:
	default:
		slog.Warn("Event channel full, dropping event", "component", "sprinkler", "org", sm.org, "url", event.URL)
	}
}

// processEvents drains the event channel, processing one PR at a time.
func (sm *sprinklerMonitor) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case url := <-sm.eventChan:
			owner, repo, prNumber, err := parsePRURL(url)
			if err != nil {
				slog.Warn("Failed to parse PR URL from event", "component", "sprinkler", "org", sm.org, "url", url, "error", err)
				continue
			}

			processCtx, cancel := context.WithTimeout(ctx, processTimeout)
			if err := sm.bot.processPullRequest(processCtx, sm.org, owner, repo, prNumber); err != nil {
				slog.Error("Failed to process PR", "component", "sprinkler", "org", sm.org,
					"owner", owner, "repo", repo, "pr", prNumber, "error", err)
			}
			cancel()
		}
	}
}

// parsePRURL extracts owner, repo, and number from a PR URL of the form
// https://github.com/owner/repo/pull/123.
func parsePRURL(url string) (owner, repo string, prNumber int, err error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	parts := strings.Split(trimmed, "/")
	const wantParts = 5 // github.com/owner/repo/pull/123
	if len(parts) != wantParts || parts[0] != "github.com" || parts[3] != "pull" {
		return "", "", 0, fmt.Errorf("unexpected PR URL format: %s", url)
	}
	prNumber, err = strconv.Atoi(parts[4])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number in URL %s: %w", url, err)
	}
	return parts[1], parts[2], prNumber, nil
}
