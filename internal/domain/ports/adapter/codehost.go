// File: internal/domain/ports/adapter/codehost.go
package adapter

import (
	"context"

	"sprint-estimator/internal/domain/model"
)

// CodeHostSource reads pull request metadata and diffs from the code host.
type CodeHostSource interface {
	GetPullRequestsFromURLs(ctx context.Context, urls []string) ([]model.PullRequest, error)
	GetPullRequestWithFiles(ctx context.Context, url string) (*model.PullRequestWithFiles, error)
	SearchPullRequests(ctx context.Context, query string) ([]model.PullRequest, error)
	ListRecentPullRequests(ctx context.Context, owner, repo string, limit int) ([]model.PullRequest, error)
}
