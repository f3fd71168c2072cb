// File: internal/domain/model/ticket.go
package model

// Ticket is an issue fetched from the tracker.
type Ticket struct {
	Key            string   `json:"key"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description,omitempty"`
	StoryPoints    *float64 `json:"storyPoints,omitempty"`
	Status         string   `json:"status,omitempty"`
	IssueType      string   `json:"issueType,omitempty"`
	DaysToComplete *float64 `json:"daysToComplete,omitempty"`
}

// Sprint is a closed sprint with the tickets completed in it.
type Sprint struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	EndDate string   `json:"endDate,omitempty"`
	Tickets []Ticket `json:"tickets"`
}

// PullRequest is summary-level PR metadata from the code host.
type PullRequest struct {
	Number       int    `json:"number"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changedFiles"`
	Commits      int    `json:"commits,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	MergedAt     string `json:"mergedAt,omitempty"`
}

// PRFile is one changed file in a pull request, patch included.
type PRFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// PullRequestWithFiles carries a PR together with its file-level diffs.
type PullRequestWithFiles struct {
	Number       int      `json:"number"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	ChangedFiles int      `json:"changedFiles"`
	Files        []PRFile `json:"files"`
}
