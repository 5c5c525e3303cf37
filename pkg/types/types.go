// Package types contains shared data structures used across the assigner.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	Title      string
	State      string
	Author     string
	Owner      string
	Repository string
	Assignees  []string
	Number     int
	Draft      bool
}
