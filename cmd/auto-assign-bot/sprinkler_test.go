package main

import (
	"testing"

	"github.com/codeGROOVE-dev/auto-assign/pkg/types"
)

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		url       string
		wantOwner string
		wantRepo  string
		wantNum   int
		wantErr   bool
	}{
		{"https://github.com/acme/widgets/pull/123", "acme", "widgets", 123, false},
		{"http://github.com/acme/widgets/pull/1", "acme", "widgets", 1, false},
		{"https://github.com/acme/widgets/issues/123", "", "", 0, true},
		{"https://gitlab.com/acme/widgets/pull/123", "", "", 0, true},
		{"https://github.com/acme/widgets/pull/abc", "", "", 0, true},
		{"https://github.com/acme/widgets/pull/123/files", "", "", 0, true},
		{"", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, num, err := parsePRURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePRURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo || num != tt.wantNum {
				t.Errorf("parsePRURL(%q) = %q, %q, %d, want %q, %q, %d",
					tt.url, owner, repo, num, tt.wantOwner, tt.wantRepo, tt.wantNum)
			}
		})
	}
}

func TestShouldAssign(t *testing.T) {
	tests := []struct {
		name  string
		state string
		draft bool
		want  bool
	}{
		{"open non-draft", "open", false, true},
		{"open draft", "open", true, false},
		{"closed", "closed", false, false},
		{"merged state string", "merged", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := &types.PullRequest{State: tt.state, Draft: tt.draft}
			if got := shouldAssign(pr); got != tt.want {
				t.Errorf("shouldAssign(state=%q, draft=%v) = %v, want %v", tt.state, tt.draft, got, tt.want)
			}
		})
	}
}

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordPRSeen("acme", "widgets", 1)
	m.RecordPRSeen("acme", "widgets", 1) // dedupe
	m.RecordPRSeen("acme", "widgets", 2)
	m.RecordPRAssigned("acme", "widgets", 2)
	m.RecordRunComplete()

	stats := m.Stats()
	if stats.PRsSeen != 2 {
		t.Errorf("PRsSeen = %d, want 2", stats.PRsSeen)
	}
	if stats.PRsAssigned != 1 {
		t.Errorf("PRsAssigned = %d, want 1", stats.PRsAssigned)
	}
	if stats.TotalRuns != 1 {
		t.Errorf("TotalRuns = %d, want 1", stats.TotalRuns)
	}
	if stats.LastRun.IsZero() {
		t.Error("LastRun is zero, want recorded time")
	}
}
