package main

import (
	"fmt"
	"sync"
	"time"
)

// MetricsCollector tracks counters for the health endpoint.
type MetricsCollector struct {
	lastRun     time.Time
	prsSeen     map[string]bool
	prsAssigned map[string]bool
	mu          sync.RWMutex
	totalRuns   int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		prsSeen:     make(map[string]bool),
		prsAssigned: make(map[string]bool),
	}
}

// RecordPRSeen records a PR that was seen.
func (m *MetricsCollector) RecordPRSeen(owner, repo string, prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prsSeen[fmt.Sprintf("%s/%s#%d", owner, repo, prNumber)] = true
}

// RecordPRAssigned records a PR that received an assignee.
func (m *MetricsCollector) RecordPRAssigned(owner, repo string, prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prsAssigned[fmt.Sprintf("%s/%s#%d", owner, repo, prNumber)] = true
}

// RecordRunComplete records that a pipeline run has completed.
func (m *MetricsCollector) RecordRunComplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = time.Now()
	m.totalRuns++
}

// Stats represents collected metrics.
type Stats struct {
	LastRun     time.Time
	PRsSeen     int
	PRsAssigned int
	TotalRuns   int64
}

// Stats returns the current statistics.
func (m *MetricsCollector) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		LastRun:     m.lastRun,
		PRsSeen:     len(m.prsSeen),
		PRsAssigned: len(m.prsAssigned),
		TotalRuns:   m.totalRuns,
	}
}
