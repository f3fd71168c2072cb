// File: internal/infra/adapters/github/client.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
)

var _ adapter.CodeHostSource = (*Client)(nil)

var prURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

// Client talks to the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zerolog.Logger
}

func NewClient(token string, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.github.com",
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github api %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type apiPR struct {
	Number       int    `json:"number"`
	HTMLURL      string `json:"html_url"`
	Title        string `json:"title"`
	State        string `json:"state"`
	ChangedFiles int    `json:"changed_files"`
	Commits      int    `json:"commits"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	CreatedAt    string `json:"created_at"`
	MergedAt     string `json:"merged_at"`
}

func mapPR(pr apiPR) model.PullRequest {
	return model.PullRequest{
		Number:       pr.Number,
		URL:          pr.HTMLURL,
		Title:        pr.Title,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		Commits:      pr.Commits,
		CreatedAt:    pr.CreatedAt,
		MergedAt:     pr.MergedAt,
	}
}

// ParsePRURL splits a PR web URL into owner, repo and number.
func ParsePRURL(prURL string) (owner, repo string, number int, ok bool) {
	m := prURLPattern.FindStringSubmatch(prURL)
	if m == nil {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, false
	}
	return m[1], m[2], n, true
}

func (c *Client) getPullRequest(ctx context.Context, owner, repo string, number int) (*model.PullRequest, error) {
	var pr apiPR
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), &pr); err != nil {
		return nil, err
	}
	out := mapPR(pr)
	return &out, nil
}

// GetPullRequestsFromURLs fetches PR details for each parseable URL.
// Individual fetch failures are logged and skipped, not fatal.
func (c *Client) GetPullRequestsFromURLs(ctx context.Context, urls []string) ([]model.PullRequest, error) {
	var out []model.PullRequest
	for _, u := range urls {
		owner, repo, number, ok := ParsePRURL(u)
		if !ok {
			continue
		}
		pr, err := c.getPullRequest(ctx, owner, repo, number)
		if err != nil {
			c.log.Warn().Str("url", u).Err(err).Msg("failed to fetch PR")
			continue
		}
		out = append(out, *pr)
	}
	return out, nil
}

func (c *Client) GetPullRequestWithFiles(ctx context.Context, prURL string) (*model.PullRequestWithFiles, error) {
	owner, repo, number, ok := ParsePRURL(prURL)
	if !ok {
		return nil, fmt.Errorf("invalid PR url: %s", prURL)
	}

	var pr apiPR
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), &pr); err != nil {
		return nil, err
	}

	var files []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
		Patch     string `json:"patch"`
	}
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=100", owner, repo, number), &files); err != nil {
		return nil, err
	}

	out := &model.PullRequestWithFiles{
		Number:       pr.Number,
		URL:          pr.HTMLURL,
		Title:        pr.Title,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
	}
	for _, f := range files {
		out.Files = append(out.Files, model.PRFile{
			Filename:  f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     f.Patch,
		})
	}
	return out, nil
}

// SearchPullRequests runs a search query and resolves each hit to full PR
// details. The search API alone does not return change counts.
func (c *Client) SearchPullRequests(ctx context.Context, query string) ([]model.PullRequest, error) {
	var result struct {
		Items []struct {
			HTMLURL string `json:"html_url"`
		} `json:"items"`
	}
	endpoint := "/search/issues?q=" + url.QueryEscape(query) + "+type:pr&per_page=20"
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	var out []model.PullRequest
	for _, item := range result.Items {
		owner, repo, number, ok := ParsePRURL(item.HTMLURL)
		if !ok {
			continue
		}
		pr, err := c.getPullRequest(ctx, owner, repo, number)
		if err != nil {
			c.log.Warn().Str("url", item.HTMLURL).Err(err).Msg("failed to resolve search hit")
			continue
		}
		out = append(out, *pr)
	}
	return out, nil
}

// ListRecentPullRequests returns recently updated merged PRs for a repo.
func (c *Client) ListRecentPullRequests(ctx context.Context, owner, repo string, limit int) ([]model.PullRequest, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls?state=closed&per_page=%d&sort=updated&direction=desc", owner, repo, limit)
	var prs []apiPR
	if err := c.get(ctx, endpoint, &prs); err != nil {
		return nil, err
	}

	var out []model.PullRequest
	for _, pr := range prs {
		if pr.MergedAt == "" {
			continue
		}
		out = append(out, mapPR(pr))
	}
	return out, nil
}
