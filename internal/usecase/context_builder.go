// File: internal/usecase/context_builder.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
)

// MaxPromptTickets caps the sprint history embedded into the prompt.
const MaxPromptTickets = 100

// SprintCache is an optional read-through cache for sprint history.
type SprintCache interface {
	Get(ctx context.Context, boardID, count int) ([]model.Sprint, bool)
	Store(ctx context.Context, boardID, count int, sprints []model.Sprint) error
}

// ContextBuilder assembles the initial estimation prompt: target ticket,
// compacted sprint history and tool instructions.
type ContextBuilder struct {
	tickets adapter.TicketSource
	cache   SprintCache
	log     *zerolog.Logger
}

func NewContextBuilder(tickets adapter.TicketSource, cache SprintCache, logger *zerolog.Logger) *ContextBuilder {
	return &ContextBuilder{tickets: tickets, cache: cache, log: logger}
}

type promptTicket struct {
	Key            string   `json:"key"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description,omitempty"`
	StoryPoints    float64  `json:"storyPoints"`
	DaysToComplete *float64 `json:"daysToComplete,omitempty"`
}

type promptSprint struct {
	SprintName string         `json:"sprintName"`
	Tickets    []promptTicket `json:"tickets"`
}

// Build fetches the data the prompt needs and renders it. The target issue
// fetch only enriches the request; its failure is tolerated because the
// request already carries summary and description.
func (b *ContextBuilder) Build(ctx context.Context, req model.EstimationRequest, progress func(string)) (string, error) {
	var sprints []model.Sprint
	var target *model.Ticket

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sprints, err = b.fetchSprints(gctx, req.BoardID, req.SprintCount)
		return err
	})
	g.Go(func() error {
		t, err := b.tickets.GetIssue(gctx, req.TicketKey)
		if err != nil {
			b.log.Debug().Str("ticket", req.TicketKey).Err(err).Msg("target issue fetch failed, using request fields")
			return nil
		}
		target = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("build estimation context: %w", err)
	}

	if target != nil && req.TicketDescription == "" {
		req.TicketDescription = target.Description
	}

	compact, before, after := CompactSprintData(sprints, req.TicketKey, MaxPromptTickets)
	progress(fmt.Sprintf("using %d of %d historical tickets (cap %d)", after, before, MaxPromptTickets))

	prompt := RenderPrompt(req, compact)
	b.log.Info().
		Int("sprints", len(compact)).
		Int("tickets", after).
		Int("token_estimate", EstimateTokens(prompt)).
		Msg("estimation context built")
	return prompt, nil
}

func (b *ContextBuilder) fetchSprints(ctx context.Context, boardID, count int) ([]model.Sprint, error) {
	if count <= 0 {
		count = 10
	}
	if b.cache != nil {
		if sprints, ok := b.cache.Get(ctx, boardID, count); ok {
			b.log.Debug().Int("board", boardID).Msg("sprint history from cache")
			return sprints, nil
		}
	}
	sprints, err := b.tickets.GetSprintsWithTickets(ctx, boardID, count)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		if err := b.cache.Store(ctx, boardID, count, sprints); err != nil {
			b.log.Warn().Err(err).Msg("sprint cache store failed")
		}
	}
	return sprints, nil
}

// CompactSprintData reduces sprint history to at most maxTickets
// point-bearing tickets, distributed evenly across sprints. Leftover slots
// go to the most recent sprints, which come first in the slice. The target
// ticket is excluded so it cannot become its own baseline.
// Returns the compacted data plus the ticket counts before and after.
func CompactSprintData(sprints []model.Sprint, excludeKey string, maxTickets int) ([]promptSprint, int, int) {
	filtered := make([]promptSprint, 0, len(sprints))
	before := 0
	for _, s := range sprints {
		before += len(s.Tickets)
		ps := promptSprint{SprintName: s.Name, Tickets: []promptTicket{}}
		for _, t := range s.Tickets {
			if t.Key == excludeKey || t.StoryPoints == nil || *t.StoryPoints <= 0 {
				continue
			}
			ps.Tickets = append(ps.Tickets, promptTicket{
				Key:            t.Key,
				Summary:        t.Summary,
				Description:    t.Description,
				StoryPoints:    *t.StoryPoints,
				DaysToComplete: t.DaysToComplete,
			})
		}
		filtered = append(filtered, ps)
	}

	n := len(filtered)
	if n == 0 {
		return filtered, before, 0
	}
	basePerSprint := maxTickets / n
	extra := maxTickets % n

	after := 0
	for i := range filtered {
		limit := basePerSprint
		if i < extra {
			limit++
		}
		if len(filtered[i].Tickets) > limit {
			filtered[i].Tickets = filtered[i].Tickets[:limit]
		}
		after += len(filtered[i].Tickets)
	}
	return filtered, before, after
}

// RenderPrompt fills the tool and estimation templates with request data.
func RenderPrompt(req model.EstimationRequest, sprints []promptSprint) string {
	toolDocs := renderToolDocs()

	repositories := NoRepositoriesConfigured
	if len(req.Repositories) > 0 {
		lines := make([]string, 0, len(req.Repositories))
		for _, r := range req.Repositories {
			lines = append(lines, "- "+r)
		}
		repositories = strings.Join(lines, "\n")
	}

	toolTemplate := req.ToolPrompt
	if toolTemplate == "" {
		toolTemplate = DefaultToolPrompt
	}
	toolPart := strings.Replace(toolTemplate, "{toolDocs}", toolDocs, 1)
	toolPart = strings.ReplaceAll(toolPart, "{targetTicketKey}", req.TicketKey)
	toolPart = strings.Replace(toolPart, "{repositories}", repositories, 1)

	description := req.TicketDescription
	if description == "" {
		description = "(no description)"
	}
	sprintJSON, err := json.MarshalIndent(sprints, "", "  ")
	if err != nil {
		sprintJSON = []byte("[]")
	}

	baseTemplate := req.CustomPrompt
	if baseTemplate == "" {
		baseTemplate = DefaultPrompt
	}
	basePart := strings.Replace(baseTemplate, "{ticketSummary}", req.TicketSummary, 1)
	basePart = strings.Replace(basePart, "{ticketDescription}", description, 1)
	basePart = strings.Replace(basePart, "{sprintData}", string(sprintJSON), 1)

	return toolPart + basePart
}

func renderToolDocs() string {
	var b strings.Builder
	for i, t := range DefaultToolCatalog() {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, t.Name, t.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// EstimateTokens is a best-effort prompt size estimate. When the encoding
// is unavailable offline it falls back to a bytes/4 heuristic.
func EstimateTokens(s string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}
