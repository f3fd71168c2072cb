// File: internal/infra/adapters/jira/client.go
package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sprint-estimator/internal/config"
	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
)

var _ adapter.TicketSource = (*Client)(nil)

// Client talks to the Jira Cloud REST v3 and agile APIs with basic auth.
type Client struct {
	baseURL    string
	authHeader string
	pointField string
	client     *http.Client
	log        *zerolog.Logger
}

func NewClient(cfg config.JiraConfig, logger *zerolog.Logger) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.APIToken))
	return &Client{
		baseURL:    "https://" + cfg.Host,
		authHeader: "Basic " + token,
		pointField: cfg.StoryPointField,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        logger,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jira api %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type apiIssue struct {
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

func (c *Client) issueFields() string {
	return "summary,description,status,issuetype,created,resolutiondate," + c.pointField
}

func (c *Client) GetIssue(ctx context.Context, key string) (*model.Ticket, error) {
	var issue apiIssue
	endpoint := fmt.Sprintf("/rest/api/3/issue/%s?fields=%s", url.PathEscape(key), c.issueFields())
	if err := c.get(ctx, endpoint, &issue); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	t := c.ticketFromIssue(issue)
	return &t, nil
}

func (c *Client) GetSprintsWithTickets(ctx context.Context, boardID, count int) ([]model.Sprint, error) {
	var sprints struct {
		Values []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			EndDate string `json:"endDate"`
		} `json:"values"`
	}
	endpoint := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint?state=closed&maxResults=%d", boardID, count)
	if err := c.get(ctx, endpoint, &sprints); err != nil {
		return nil, fmt.Errorf("get sprints for board %d: %w", boardID, err)
	}

	out := make([]model.Sprint, 0, len(sprints.Values))
	for _, s := range sprints.Values {
		var issues struct {
			Issues []apiIssue `json:"issues"`
		}
		ep := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue?fields=%s&maxResults=100", s.ID, c.issueFields())
		if err := c.get(ctx, ep, &issues); err != nil {
			return nil, fmt.Errorf("get issues for sprint %d: %w", s.ID, err)
		}
		sprint := model.Sprint{ID: s.ID, Name: s.Name, EndDate: s.EndDate}
		for _, it := range issues.Issues {
			sprint.Tickets = append(sprint.Tickets, c.ticketFromIssue(it))
		}
		out = append(out, sprint)
	}
	return out, nil
}

// GetDevPanelLinks returns PR URLs from the issue's development panel.
// Dev info is not available for every issue; that case yields no links.
func (c *Client) GetDevPanelLinks(ctx context.Context, key string) ([]string, error) {
	var detail struct {
		Detail []struct {
			Repositories []struct {
				PullRequests []struct {
					URL string `json:"url"`
				} `json:"pullRequests"`
			} `json:"repositories"`
		} `json:"detail"`
	}
	endpoint := fmt.Sprintf("/rest/dev-status/1.0/issue/detail?issueId=%s&applicationType=GitHub&dataType=pullrequest", url.QueryEscape(key))
	if err := c.get(ctx, endpoint, &detail); err != nil {
		c.log.Debug().Str("issue", key).Err(err).Msg("no dev panel info")
		return nil, nil
	}

	var urls []string
	for _, d := range detail.Detail {
		for _, repo := range d.Repositories {
			for _, pr := range repo.PullRequests {
				urls = append(urls, pr.URL)
			}
		}
	}
	return urls, nil
}

func (c *Client) ticketFromIssue(it apiIssue) model.Ticket {
	t := model.Ticket{Key: it.Key}
	t.Summary = rawString(it.Fields["summary"])
	t.Description = adfText(it.Fields["description"])

	var named struct {
		Name string `json:"name"`
	}
	if raw := it.Fields["status"]; raw != nil && json.Unmarshal(raw, &named) == nil {
		t.Status = named.Name
	}
	named.Name = ""
	if raw := it.Fields["issuetype"]; raw != nil && json.Unmarshal(raw, &named) == nil {
		t.IssueType = named.Name
	}

	if raw := it.Fields[c.pointField]; raw != nil {
		var pts float64
		if json.Unmarshal(raw, &pts) == nil && pts > 0 {
			t.StoryPoints = &pts
		}
	}

	created := rawString(it.Fields["created"])
	resolved := rawString(it.Fields["resolutiondate"])
	if created != "" && resolved != "" {
		if d, ok := daysBetween(created, resolved); ok {
			t.DaysToComplete = &d
		}
	}
	return t
}

func rawString(raw json.RawMessage) string {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// daysBetween returns elapsed days between two Jira timestamps, one decimal.
func daysBetween(from, to string) (float64, bool) {
	const jiraTime = "2006-01-02T15:04:05.000-0700"
	a, err := time.Parse(jiraTime, from)
	if err != nil {
		a, err = time.Parse(time.RFC3339, from)
		if err != nil {
			return 0, false
		}
	}
	b, err := time.Parse(jiraTime, to)
	if err != nil {
		b, err = time.Parse(time.RFC3339, to)
		if err != nil {
			return 0, false
		}
	}
	days := b.Sub(a).Hours() / 24
	if days < 0 {
		return 0, false
	}
	return float64(int(days*10+0.5)) / 10, true
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// adfText flattens a REST v3 Atlassian Document Format description to plain
// text. Plain string descriptions (v2 style) pass through unchanged.
func adfText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var node adfNode
	if json.Unmarshal(raw, &node) != nil {
		return ""
	}
	var b strings.Builder
	flattenADF(&node, &b)
	return strings.TrimSpace(b.String())
}

func flattenADF(n *adfNode, b *strings.Builder) {
	if n.Text != "" {
		b.WriteString(n.Text)
	}
	for i := range n.Content {
		flattenADF(&n.Content[i], b)
	}
	switch n.Type {
	case "paragraph", "heading", "listItem":
		b.WriteString("\n")
	}
}
