// Package codehost opens and updates pull requests on the hosting
// platform for remediation branches.
package codehost

import (
	"context"

	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

// OpenRequest asks for a pull request from a remediation branch.
type OpenRequest struct {
	Org                 string              `json:"org"`
	Repo                string              `json:"repo"`
	Branch              string              `json:"branch"`
	BaseBranch          string              `json:"base_branch,omitempty"`
	Repository          plan.RepositoryPlan `json:"repository"`
	MajorVersionUpdates []string            `json:"major_version_updates,omitempty"`
	AutoReview          bool                `json:"auto_review,omitempty"`
	IdempotencyKey      string              `json:"idempotency_key,omitempty"`
}

// RequestResult identifies an open pull request.
type RequestResult struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
}

// UpdateRequest edits an existing pull request in place.
type UpdateRequest struct {
	Org    string `json:"org"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Adapter is the pull request boundary. OpenRequest must be safe to
// retry: calling it again for the same branch returns the existing
// request instead of opening a duplicate.
type Adapter interface {
	OpenRequest(ctx context.Context, req OpenRequest) (*RequestResult, error)
	UpdateRequest(ctx context.Context, req UpdateRequest) error
}
