// File: internal/usecase/tools.go
package usecase

import "sprint-estimator/internal/domain/ports/adapter"

// Tool names exposed to the model. The executor dispatches on these.
const (
	ToolGetJiraTicket         = "get_jira_ticket"
	ToolGetTicketPullRequests = "get_ticket_pull_requests"
	ToolGetPullRequestFiles   = "get_pull_request_files"
	ToolAnalyzeCodeChanges    = "analyze_code_changes"
	ToolSearchPullRequests    = "search_pull_requests"
	ToolListRecentPRs         = "list_recent_prs"
)

// DefaultToolCatalog is the fixed set of functions offered to the model.
func DefaultToolCatalog() []adapter.ToolDefinition {
	return []adapter.ToolDefinition{
		{
			Name:        ToolGetJiraTicket,
			Description: "Fetch details of a Jira ticket",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"ticketKey": {Type: "string", Description: "Jira ticket key"},
				},
				Required: []string{"ticketKey"},
			},
		},
		{
			Name:        ToolGetTicketPullRequests,
			Description: "List pull requests linked to a Jira ticket",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"ticketKey": {Type: "string", Description: "Jira ticket key"},
				},
				Required: []string{"ticketKey"},
			},
		},
		{
			Name:        ToolGetPullRequestFiles,
			Description: "Fetch the changed files and diffs of a pull request",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"prUrl": {Type: "string", Description: "GitHub PR URL"},
				},
				Required: []string{"prUrl"},
			},
		},
		{
			Name:        ToolAnalyzeCodeChanges,
			Description: "Analyze the changes of a pull request",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"prUrl": {Type: "string", Description: "GitHub PR URL"},
				},
				Required: []string{"prUrl"},
			},
		},
		{
			Name:        ToolSearchPullRequests,
			Description: "Search GitHub pull requests by keywords; use it to find PRs related to the ticket content",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"keywords": {Type: "string", Description: "Search keywords"},
					"repo":     {Type: "string", Description: "Repository name (e.g. acme/list-api)"},
				},
				Required: []string{"keywords"},
			},
		},
		{
			Name:        ToolListRecentPRs,
			Description: "List recently merged pull requests of a repository; use it when keyword search finds nothing",
			Schema: adapter.ToolSchema{
				Properties: map[string]adapter.Property{
					"repo":  {Type: "string", Description: "Repository in owner/repo form"},
					"count": {Type: "number", Description: "Number of PRs to fetch (max 50)"},
				},
				Required: []string{"repo"},
			},
		},
	}
}
