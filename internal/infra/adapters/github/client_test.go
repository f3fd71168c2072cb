package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sprint-estimator/internal/config"
	"sprint-estimator/internal/infra/logging"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("token", logging.New(config.LogConfig{Level: "error", Format: "console"}, true))
	c.baseURL = srv.URL
	return c
}

func TestParsePRURL(t *testing.T) {
	owner, repo, n, ok := ParsePRURL("https://github.com/acme/api/pull/123")
	if !ok || owner != "acme" || repo != "api" || n != 123 {
		t.Fatalf("parsed %q %q %d ok=%v", owner, repo, n, ok)
	}
	if _, _, _, ok := ParsePRURL("https://example.com/not/a/pr"); ok {
		t.Fatal("parsed a non-PR url")
	}
}

func TestGetPullRequestWithFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":5,"html_url":"https://github.com/acme/api/pull/5","title":"Fix cache",
			"additions":40,"deletions":12,"changed_files":2,"commits":3,"merged_at":"2026-02-10T12:00:00Z"}`))
	})
	mux.HandleFunc("/repos/acme/api/pulls/5/files", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"filename":"cache.go","status":"modified","additions":30,"deletions":10,"patch":"@@ -1 +1 @@"},
			{"filename":"cache_test.go","status":"modified","additions":10,"deletions":2}
		]`))
	})
	c := testClient(t, mux)

	pr, err := c.GetPullRequestWithFiles(context.Background(), "https://github.com/acme/api/pull/5")
	if err != nil {
		t.Fatalf("GetPullRequestWithFiles: %v", err)
	}
	if pr.Number != 5 || len(pr.Files) != 2 {
		t.Fatalf("pr = %+v", pr)
	}
	if pr.Files[0].Patch == "" {
		t.Error("patch missing")
	}
}

func TestGetPullRequestsFromURLs_SkipsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":1,"html_url":"https://github.com/acme/api/pull/1","title":"ok"}`))
	})
	mux.HandleFunc("/repos/acme/api/pulls/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	c := testClient(t, mux)

	prs, err := c.GetPullRequestsFromURLs(context.Background(), []string{
		"https://github.com/acme/api/pull/1",
		"https://github.com/acme/api/pull/2",
		"not a url",
	})
	if err != nil {
		t.Fatalf("GetPullRequestsFromURLs: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 1 {
		t.Fatalf("prs = %+v", prs)
	}
}

func TestListRecentPullRequests_FiltersUnmerged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != "closed" || q.Get("sort") != "updated" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte(`[
			{"number":9,"title":"merged","merged_at":"2026-02-01T00:00:00Z"},
			{"number":10,"title":"closed only","merged_at":null}
		]`))
	})
	c := testClient(t, mux)

	prs, err := c.ListRecentPullRequests(context.Background(), "acme", "api", 20)
	if err != nil {
		t.Fatalf("ListRecentPullRequests: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 9 {
		t.Fatalf("prs = %+v", prs)
	}
}

func TestSearchPullRequests_ResolvesHits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"html_url":"https://github.com/acme/api/pull/3"}]}`))
	})
	mux.HandleFunc("/repos/acme/api/pulls/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":3,"html_url":"https://github.com/acme/api/pull/3","title":"search hit","additions":7}`))
	})
	c := testClient(t, mux)

	prs, err := c.SearchPullRequests(context.Background(), `cache type:pr is:merged repo:acme/api`)
	if err != nil {
		t.Fatalf("SearchPullRequests: %v", err)
	}
	if len(prs) != 1 || prs[0].Title != "search hit" {
		t.Fatalf("prs = %+v", prs)
	}
}
