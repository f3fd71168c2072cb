// File: internal/usecase/tool_executor_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
)

type fakeCodeHost struct {
	withFiles  *model.PullRequestWithFiles
	searched   []string
	listCalls  []int
	recentPRs  []model.PullRequest
	searchPRs  []model.PullRequest
	urlPRs     []model.PullRequest
	urlsLookup [][]string
}

func (f *fakeCodeHost) GetPullRequestsFromURLs(ctx context.Context, urls []string) ([]model.PullRequest, error) {
	f.urlsLookup = append(f.urlsLookup, urls)
	return f.urlPRs, nil
}

func (f *fakeCodeHost) GetPullRequestWithFiles(ctx context.Context, url string) (*model.PullRequestWithFiles, error) {
	if f.withFiles == nil {
		return nil, errors.New("pr not found")
	}
	return f.withFiles, nil
}

func (f *fakeCodeHost) SearchPullRequests(ctx context.Context, query string) ([]model.PullRequest, error) {
	f.searched = append(f.searched, query)
	return f.searchPRs, nil
}

func (f *fakeCodeHost) ListRecentPullRequests(ctx context.Context, owner, repo string, limit int) ([]model.PullRequest, error) {
	f.listCalls = append(f.listCalls, limit)
	return f.recentPRs, nil
}

type fakeTracker struct {
	ticket *model.Ticket
	links  []string
}

func (f *fakeTracker) GetIssue(ctx context.Context, key string) (*model.Ticket, error) {
	if f.ticket == nil {
		return nil, errors.New("issue not found")
	}
	return f.ticket, nil
}

func (f *fakeTracker) GetDevPanelLinks(ctx context.Context, key string) ([]string, error) {
	return f.links, nil
}

func (f *fakeTracker) GetSprintsWithTickets(ctx context.Context, boardID, count int) ([]model.Sprint, error) {
	return nil, nil
}

func newExecutor(tracker *fakeTracker, code *fakeCodeHost) *ToolExecutor {
	log := zerolog.Nop()
	if code == nil {
		return NewToolExecutor(tracker, nil, &log)
	}
	return NewToolExecutor(tracker, code, &log)
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newExecutor(&fakeTracker{}, nil)
	_, err := e.Execute(context.Background(), "drop_tables", nil)
	if !errors.Is(err, domain.ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestGetJiraTicketTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", maxDescChars+500)
	e := newExecutor(&fakeTracker{ticket: &model.Ticket{Key: "LIST-1", Summary: "s", Description: long}}, nil)

	out, err := e.Execute(context.Background(), ToolGetJiraTicket, map[string]any{"ticketKey": "LIST-1"})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(jiraTicketResult)
	if len(res.Description) != maxDescChars {
		t.Errorf("description length = %d, want %d", len(res.Description), maxDescChars)
	}
}

func TestGetJiraTicketRequiresKey(t *testing.T) {
	e := newExecutor(&fakeTracker{}, nil)
	_, err := e.Execute(context.Background(), ToolGetJiraTicket, map[string]any{})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestTicketPullRequestsWithoutCodeHost(t *testing.T) {
	e := newExecutor(&fakeTracker{links: []string{"https://github.com/acme/api/pull/1"}}, nil)
	out, err := e.Execute(context.Background(), ToolGetTicketPullRequests, map[string]any{"ticketKey": "LIST-1"})
	if err != nil {
		t.Fatal(err)
	}
	if prs := out.([]prInfo); len(prs) != 0 {
		t.Errorf("got %d PRs, want empty result without a code host", len(prs))
	}
}

func TestTicketPullRequestsResolvesDevPanel(t *testing.T) {
	code := &fakeCodeHost{urlPRs: []model.PullRequest{{Number: 12, Title: "fix"}}}
	tracker := &fakeTracker{links: []string{"https://github.com/acme/api/pull/12"}}
	e := newExecutor(tracker, code)

	out, err := e.Execute(context.Background(), ToolGetTicketPullRequests, map[string]any{"ticketKey": "LIST-1"})
	if err != nil {
		t.Fatal(err)
	}
	prs := out.([]prInfo)
	if len(prs) != 1 || prs[0].Number != 12 {
		t.Fatalf("prs = %+v", prs)
	}
	if len(code.urlsLookup) != 1 || code.urlsLookup[0][0] != tracker.links[0] {
		t.Errorf("dev panel URLs not forwarded: %+v", code.urlsLookup)
	}
}

func TestPullRequestFilesTruncation(t *testing.T) {
	files := make([]model.PRFile, maxPatchFiles+5)
	for i := range files {
		files[i] = model.PRFile{
			Filename: fmt.Sprintf("src/file%02d.go", i),
			Status:   "modified",
			Patch:    strings.Repeat("+", maxPatchChars+100),
		}
	}
	code := &fakeCodeHost{withFiles: &model.PullRequestWithFiles{
		Number: 7, Title: "big change", Additions: 900, Deletions: 100, Files: files,
	}}
	e := newExecutor(&fakeTracker{}, code)

	out, err := e.Execute(context.Background(), ToolGetPullRequestFiles,
		map[string]any{"prUrl": "https://github.com/acme/api/pull/7"})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(*prFilesResult)
	if len(res.Files) != maxPatchFiles {
		t.Fatalf("files = %d, want %d", len(res.Files), maxPatchFiles)
	}
	patch := res.Files[0].Patch
	if !strings.HasSuffix(patch, "\n... (truncated)") {
		t.Errorf("patch not marked truncated: %q", patch[len(patch)-30:])
	}
	if len(patch) != maxPatchChars+len("\n... (truncated)") {
		t.Errorf("patch length = %d", len(patch))
	}
}

func TestAnalyzeCodeChangesComplexity(t *testing.T) {
	cases := []struct {
		name       string
		pr         *model.PullRequestWithFiles
		complexity string
	}{
		{
			name: "low",
			pr: &model.PullRequestWithFiles{Number: 1, Additions: 20, Deletions: 5, Files: []model.PRFile{
				{Filename: "src/api/handler.go"},
			}},
			complexity: "low",
		},
		{
			name: "medium by changes",
			pr: &model.PullRequestWithFiles{Number: 2, Additions: 150, Deletions: 10, Files: []model.PRFile{
				{Filename: "src/api/handler.go"},
			}},
			complexity: "medium",
		},
		{
			name: "high by files",
			pr: &model.PullRequestWithFiles{Number: 3, Additions: 10, Deletions: 1, Files: func() []model.PRFile {
				var fs []model.PRFile
				for i := 0; i < 11; i++ {
					fs = append(fs, model.PRFile{Filename: fmt.Sprintf("src/f%d.ts", i)})
				}
				return fs
			}()},
			complexity: "high",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newExecutor(&fakeTracker{}, &fakeCodeHost{withFiles: c.pr})
			out, err := e.Execute(context.Background(), ToolAnalyzeCodeChanges,
				map[string]any{"prUrl": "https://github.com/acme/api/pull/1"})
			if err != nil {
				t.Fatal(err)
			}
			res := out.(codeAnalysisResult)
			if res.Complexity != c.complexity {
				t.Errorf("complexity = %s, want %s", res.Complexity, c.complexity)
			}
		})
	}
}

func TestAnalyzeCodeChangesPatterns(t *testing.T) {
	pr := &model.PullRequestWithFiles{Number: 4, Additions: 30, Files: []model.PRFile{
		{Filename: "src/db/query.ts", Patch: "+ SELECT * FROM users\n+ await pool.query(q)"},
		{Filename: "src/db/query.test.ts", Patch: "+ describe('query', () => {"},
	}}
	e := newExecutor(&fakeTracker{}, &fakeCodeHost{withFiles: pr})
	out, err := e.Execute(context.Background(), ToolAnalyzeCodeChanges,
		map[string]any{"prUrl": "https://github.com/acme/api/pull/4"})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(codeAnalysisResult)

	got := strings.Join(res.Patterns, ",")
	for _, want := range []string{"database access", "async handling", "test code"} {
		if !strings.Contains(got, want) {
			t.Errorf("patterns = %v, missing %q", res.Patterns, want)
		}
	}
	if res.FileTypes["ts"] != 2 {
		t.Errorf("fileTypes = %v", res.FileTypes)
	}
}

func TestSearchPullRequestsBuildsQuery(t *testing.T) {
	code := &fakeCodeHost{searchPRs: []model.PullRequest{{Number: 1}}}
	e := newExecutor(&fakeTracker{}, code)

	_, err := e.Execute(context.Background(), ToolSearchPullRequests,
		map[string]any{"keywords": "pagination cursor", "repo": "acme/list-api"})
	if err != nil {
		t.Fatal(err)
	}
	want := "pagination cursor type:pr is:merged repo:acme/list-api"
	if code.searched[0] != want {
		t.Errorf("query = %q, want %q", code.searched[0], want)
	}
}

func TestListRecentPRsClampsCount(t *testing.T) {
	code := &fakeCodeHost{}
	e := newExecutor(&fakeTracker{}, code)

	cases := []struct {
		count any
		want  int
	}{
		{nil, defaultRecentPR},
		{float64(500), maxRecentPRs},
		{float64(5), 5},
	}
	for _, c := range cases {
		args := map[string]any{"repo": "acme/list-api"}
		if c.count != nil {
			args["count"] = c.count
		}
		if _, err := e.Execute(context.Background(), ToolListRecentPRs, args); err != nil {
			t.Fatal(err)
		}
	}
	for i, c := range cases {
		if code.listCalls[i] != c.want {
			t.Errorf("limit[%d] = %d, want %d", i, code.listCalls[i], c.want)
		}
	}
}

func TestListRecentPRsRejectsBadRepo(t *testing.T) {
	e := newExecutor(&fakeTracker{}, &fakeCodeHost{})
	_, err := e.Execute(context.Background(), ToolListRecentPRs, map[string]any{"repo": "justaname"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}
