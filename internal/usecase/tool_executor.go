// File: internal/usecase/tool_executor.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
)

// Truncation caps applied to diff payloads before they reach the model.
const (
	maxPatchFiles   = 15
	maxPatchChars   = 500
	maxDescChars    = 2000
	maxSearchPRs    = 10
	maxRecentPRs    = 50
	defaultRecentPR = 20
)

// ToolExecutor dispatches model-requested tool calls to the tracker and
// code host ports. The code host may be nil; tools that need it then
// return empty results instead of failing the run.
type ToolExecutor struct {
	tickets adapter.TicketSource
	code    adapter.CodeHostSource
	log     *zerolog.Logger
}

func NewToolExecutor(tickets adapter.TicketSource, code adapter.CodeHostSource, logger *zerolog.Logger) *ToolExecutor {
	return &ToolExecutor{tickets: tickets, code: code, log: logger}
}

type jiraTicketResult struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	StoryPoints *float64 `json:"storyPoints,omitempty"`
	Status      string   `json:"status,omitempty"`
	IssueType   string   `json:"issueType,omitempty"`
}

type prInfo struct {
	Number       int    `json:"number"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changedFiles"`
	MergedAt     string `json:"mergedAt,omitempty"`
}

type prFileInfo struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

type prFilesResult struct {
	PRNumber       int          `json:"prNumber"`
	PRTitle        string       `json:"prTitle"`
	TotalAdditions int          `json:"totalAdditions"`
	TotalDeletions int          `json:"totalDeletions"`
	Files          []prFileInfo `json:"files"`
}

type codeAnalysisResult struct {
	PRNumber        int            `json:"prNumber"`
	Summary         string         `json:"summary"`
	Complexity      string         `json:"complexity"`
	AffectedModules []string       `json:"affectedModules"`
	FileTypes       map[string]int `json:"fileTypes"`
	Patterns        []string       `json:"patterns"`
	EstimatedEffort string         `json:"estimatedEffort"`
}

type searchPRsResult struct {
	Query        string   `json:"query"`
	Count        int      `json:"count"`
	PullRequests []prInfo `json:"pullRequests"`
}

type recentPRsResult struct {
	Repo         string   `json:"repo"`
	Count        int      `json:"count"`
	PullRequests []prInfo `json:"pullRequests"`
}

// Execute runs one tool call. Errors returned here are folded in-band into
// the tool result by the caller; they never abort the conversation.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	e.log.Debug().Str("tool", name).Interface("args", args).Msg("executing tool")

	switch name {
	case ToolGetJiraTicket:
		return e.getJiraTicket(ctx, stringArg(args, "ticketKey"))
	case ToolGetTicketPullRequests:
		return e.getTicketPullRequests(ctx, stringArg(args, "ticketKey"))
	case ToolGetPullRequestFiles:
		return e.getPullRequestFiles(ctx, stringArg(args, "prUrl"))
	case ToolAnalyzeCodeChanges:
		return e.analyzeCodeChanges(ctx, stringArg(args, "prUrl"))
	case ToolSearchPullRequests:
		return e.searchPullRequests(ctx, stringArg(args, "keywords"), stringArg(args, "repo"))
	case ToolListRecentPRs:
		return e.listRecentPRs(ctx, stringArg(args, "repo"), numberArg(args, "count"))
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
}

func (e *ToolExecutor) getJiraTicket(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: ticketKey is required", domain.ErrInvalidArgument)
	}
	t, err := e.tickets.GetIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	desc := t.Description
	if len(desc) > maxDescChars {
		desc = desc[:maxDescChars]
	}
	return jiraTicketResult{
		Key:         t.Key,
		Summary:     t.Summary,
		Description: desc,
		StoryPoints: t.StoryPoints,
		Status:      t.Status,
		IssueType:   t.IssueType,
	}, nil
}

func (e *ToolExecutor) getTicketPullRequests(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: ticketKey is required", domain.ErrInvalidArgument)
	}
	if e.code == nil {
		return []prInfo{}, nil
	}
	urls, err := e.tickets.GetDevPanelLinks(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return []prInfo{}, nil
	}
	prs, err := e.code.GetPullRequestsFromURLs(ctx, urls)
	if err != nil {
		return nil, err
	}
	out := make([]prInfo, 0, len(prs))
	for _, pr := range prs {
		out = append(out, mapPRInfo(pr))
	}
	return out, nil
}

func (e *ToolExecutor) getPullRequestFiles(ctx context.Context, prURL string) (*prFilesResult, error) {
	if e.code == nil {
		return nil, nil
	}
	pr, err := e.code.GetPullRequestWithFiles(ctx, prURL)
	if err != nil {
		return nil, err
	}

	files := pr.Files
	if len(files) > maxPatchFiles {
		files = files[:maxPatchFiles]
	}
	out := &prFilesResult{
		PRNumber:       pr.Number,
		PRTitle:        pr.Title,
		TotalAdditions: pr.Additions,
		TotalDeletions: pr.Deletions,
	}
	for _, f := range files {
		patch := f.Patch
		if len(patch) > maxPatchChars {
			patch = patch[:maxPatchChars] + "\n... (truncated)"
		}
		out.Files = append(out.Files, prFileInfo{
			Filename:  f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     patch,
		})
	}
	return out, nil
}

func (e *ToolExecutor) analyzeCodeChanges(ctx context.Context, prURL string) (any, error) {
	files, err := e.getPullRequestFiles(ctx, prURL)
	if err != nil || files == nil {
		return nil, err
	}

	fileTypes := map[string]int{}
	modules := map[string]struct{}{}
	patternSet := map[string]struct{}{}

	for _, f := range files.Files {
		ext := "other"
		if i := strings.LastIndex(f.Filename, "."); i >= 0 && i < len(f.Filename)-1 {
			ext = f.Filename[i+1:]
		}
		fileTypes[ext]++

		parts := strings.Split(f.Filename, "/")
		if len(parts) > 1 {
			modules[parts[0]] = struct{}{}
			if len(parts) > 2 {
				modules[parts[0]+"/"+parts[1]] = struct{}{}
			}
		}

		if f.Patch == "" {
			continue
		}
		for marker, label := range patchMarkers {
			if strings.Contains(f.Patch, marker) {
				patternSet[label] = struct{}{}
			}
		}
	}

	totalChanges := files.TotalAdditions + files.TotalDeletions
	fileCount := len(files.Files)

	complexity := "low"
	effort := "small (0.5-1pt range)"
	switch {
	case totalChanges > 500 || fileCount > 10 || len(modules) > 3:
		complexity = "high"
		effort = "large (5-8pt range)"
	case totalChanges > 100 || fileCount > 5 || len(modules) > 2:
		complexity = "medium"
		effort = "medium (2-3pt range)"
	}

	return codeAnalysisResult{
		PRNumber:        files.PRNumber,
		Summary:         fmt.Sprintf("%d files changed, +%d/-%d lines", fileCount, files.TotalAdditions, files.TotalDeletions),
		Complexity:      complexity,
		AffectedModules: sortedKeys(modules, 5),
		FileTypes:       fileTypes,
		Patterns:        sortedKeys(patternSet, 5),
		EstimatedEffort: effort,
	}, nil
}

// patchMarkers map diff content hints to pattern labels.
var patchMarkers = map[string]string{
	"interface ": "type definitions",
	"type ":      "type definitions",
	"async ":     "async handling",
	"await ":     "async handling",
	"try {":      "error handling",
	"catch (":    "error handling",
	"test(":      "test code",
	"describe(":  "test code",
	"SELECT ":    "database access",
	"INSERT ":    "database access",
}

func (e *ToolExecutor) searchPullRequests(ctx context.Context, keywords, repo string) (any, error) {
	query := keywords + " type:pr is:merged"
	if repo != "" {
		query += " repo:" + repo
	}
	if e.code == nil {
		return searchPRsResult{Query: query, PullRequests: []prInfo{}}, nil
	}

	prs, err := e.code.SearchPullRequests(ctx, query)
	if err != nil {
		return nil, err
	}
	out := searchPRsResult{Query: query, Count: len(prs), PullRequests: []prInfo{}}
	for _, pr := range prs {
		if len(out.PullRequests) == maxSearchPRs {
			break
		}
		out.PullRequests = append(out.PullRequests, mapPRInfo(pr))
	}
	return out, nil
}

func (e *ToolExecutor) listRecentPRs(ctx context.Context, repo string, count int) (any, error) {
	if e.code == nil {
		return recentPRsResult{Repo: repo, PullRequests: []prInfo{}}, nil
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("%w: repo must be owner/repo, got %q", domain.ErrInvalidArgument, repo)
	}
	limit := count
	if limit <= 0 {
		limit = defaultRecentPR
	}
	if limit > maxRecentPRs {
		limit = maxRecentPRs
	}

	prs, err := e.code.ListRecentPullRequests(ctx, owner, name, limit)
	if err != nil {
		return nil, err
	}
	out := recentPRsResult{Repo: repo, Count: len(prs), PullRequests: []prInfo{}}
	for _, pr := range prs {
		out.PullRequests = append(out.PullRequests, mapPRInfo(pr))
	}
	return out, nil
}

func mapPRInfo(pr model.PullRequest) prInfo {
	return prInfo{
		Number:       pr.Number,
		URL:          pr.URL,
		Title:        pr.Title,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		MergedAt:     pr.MergedAt,
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func numberArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func sortedKeys(set map[string]struct{}, limit int) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
