// File: internal/usecase/estimate_uc_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
	"sprint-estimator/internal/infra/adapters/ai"
	"sprint-estimator/internal/infra/jobs"
)

const finalResultText = "Here is the estimate.\n```json\n" +
	`{"estimatedPoints": 3, "reasoning": "similar to LIST-10", "shouldSplit": false,
	  "baseline": {"key": "LIST-10", "summary": "old ticket", "points": 3,
	    "workloadSimilarityScore": 7.5}}` + "\n```"

// scriptedSession replays a fixed sequence of model turns.
type scriptedSession struct {
	replies []*adapter.ModelReply
	errs    []error
	turn    int

	texts  []string
	bursts [][]adapter.ToolResult
}

func (s *scriptedSession) next() (*adapter.ModelReply, error) {
	if s.turn >= len(s.replies) {
		return nil, fmt.Errorf("unscripted turn %d", s.turn)
	}
	r, err := s.replies[s.turn], error(nil)
	if s.turn < len(s.errs) {
		err = s.errs[s.turn]
	}
	s.turn++
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *scriptedSession) SendText(ctx context.Context, text string) (*adapter.ModelReply, error) {
	s.texts = append(s.texts, text)
	return s.next()
}

func (s *scriptedSession) SendToolResults(ctx context.Context, results []adapter.ToolResult) (*adapter.ModelReply, error) {
	s.bursts = append(s.bursts, results)
	return s.next()
}

type scriptedAI struct {
	session *scriptedSession
}

func (a *scriptedAI) StartChat(ctx context.Context, model string, tools []adapter.ToolDefinition) (adapter.ChatSession, error) {
	return a.session, nil
}

func (a *scriptedAI) Provider() string { return "fake" }

type fakeTickets struct {
	sprints      []model.Sprint
	calls        []string
	sprintCounts []int
}

func (f *fakeTickets) GetIssue(ctx context.Context, key string) (*model.Ticket, error) {
	f.calls = append(f.calls, key)
	return &model.Ticket{Key: key, Summary: "summary of " + key}, nil
}

func (f *fakeTickets) GetDevPanelLinks(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}

func (f *fakeTickets) GetSprintsWithTickets(ctx context.Context, boardID, count int) ([]model.Sprint, error) {
	f.sprintCounts = append(f.sprintCounts, count)
	return f.sprints, nil
}

func points(v float64) *float64 { return &v }

func historySprints() []model.Sprint {
	return []model.Sprint{
		{ID: 2, Name: "Sprint 2", Tickets: []model.Ticket{
			{Key: "LIST-10", Summary: "old ticket", StoryPoints: points(3)},
		}},
	}
}

type ucFixture struct {
	uc      *EstimateUseCase
	store   *jobs.MemoryStore
	session *scriptedSession
	tickets *fakeTickets
	slept   []time.Duration
}

func newUCFixture(t *testing.T, session *scriptedSession, budgets Budgets) *ucFixture {
	t.Helper()
	log := zerolog.Nop()
	tickets := &fakeTickets{sprints: historySprints()}
	store := jobs.NewMemoryStore(10 * time.Minute)
	f := &ucFixture{store: store, session: session, tickets: tickets}

	uc := NewEstimateUseCase(
		&scriptedAI{session: session},
		NewToolExecutor(tickets, nil, &log),
		store,
		NewContextBuilder(tickets, nil, &log),
		budgets,
		"gemini-2.0-flash",
		6,
		&log,
	)
	uc.sleep = func(ctx context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	f.uc = uc
	return f
}

func startJob(t *testing.T, f *ucFixture) (string, model.EstimationRequest) {
	t.Helper()
	id := jobs.NewJobID()
	if _, err := f.store.Create(context.Background(), id); err != nil {
		t.Fatalf("create job: %v", err)
	}
	req := model.EstimationRequest{
		TicketKey:     "LIST-42",
		TicketSummary: "add pagination",
		BoardID:       7,
		SprintCount:   2,
	}
	return id, req
}

func toolCall(id, key string) adapter.ToolCall {
	return adapter.ToolCall{ID: id, Name: ToolGetJiraTicket, Args: map[string]any{"ticketKey": key}}
}

func TestRunCompletesWithToolCalls(t *testing.T) {
	session := &scriptedSession{replies: []*adapter.ModelReply{
		{ToolCalls: []adapter.ToolCall{toolCall("c1", "LIST-10"), toolCall("c2", "LIST-11")}},
		{Text: finalResultText},
	}}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", job.Status, job.Error)
	}
	if job.Result == nil || job.Result.EstimatedPoints != 3 {
		t.Fatalf("result = %+v, want 3 points", job.Result)
	}
	if len(job.Logs) == 0 {
		t.Error("expected progress log lines")
	}

	if len(session.bursts) != 1 || len(session.bursts[0]) != 2 {
		t.Fatalf("tool result bursts = %+v, want one burst of two", session.bursts)
	}
	if session.bursts[0][0].ID != "c1" || session.bursts[0][1].ID != "c2" {
		t.Errorf("tool result order = %s, %s", session.bursts[0][0].ID, session.bursts[0][1].ID)
	}
}

func TestRunTruncatesToolBurstAtTotalBudget(t *testing.T) {
	var burst []adapter.ToolCall
	for i := 0; i < 8; i++ {
		burst = append(burst, toolCall(fmt.Sprintf("c%d", i), fmt.Sprintf("LIST-%d", 100+i)))
	}
	session := &scriptedSession{replies: []*adapter.ModelReply{
		{ToolCalls: burst},
		{Text: finalResultText},
	}}
	budgets := DefaultBudgets()
	budgets.MaxTotalCalls = 3
	f := newUCFixture(t, session, budgets)
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(session.bursts) != 1 || len(session.bursts[0]) != 3 {
		t.Fatalf("executed %d tool calls, want 3", len(session.bursts[0]))
	}
	// The first three requested calls run, in order.
	executed := f.tickets.calls[len(f.tickets.calls)-3:]
	want := []string{"LIST-100", "LIST-101", "LIST-102"}
	for i, k := range want {
		if executed[i] != k {
			t.Errorf("call %d = %s, want %s", i, executed[i], k)
		}
	}
}

func TestRunRecoversWhenFinalTurnLacksJSON(t *testing.T) {
	session := &scriptedSession{replies: []*adapter.ModelReply{
		{ToolCalls: []adapter.ToolCall{toolCall("c1", "LIST-10")}},
		{Text: "I believe this is a 3 point ticket."},
		{Text: finalResultText},
	}}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := f.store.Get(context.Background(), id)
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", job.Status, job.Error)
	}
	last := session.texts[len(session.texts)-1]
	if last != JSONRecoveryPrompt {
		t.Errorf("last prompt = %q, want recovery prompt", last)
	}
}

func TestRunStopsAtIterationBudget(t *testing.T) {
	call := []adapter.ToolCall{toolCall("c", "LIST-10")}
	session := &scriptedSession{replies: []*adapter.ModelReply{
		{ToolCalls: call},
		{ToolCalls: call},
		{ToolCalls: call},
		{Text: finalResultText},
	}}
	budgets := DefaultBudgets()
	budgets.MaxIterations = 2
	f := newUCFixture(t, session, budgets)
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(session.bursts) != 2 {
		t.Fatalf("tool iterations = %d, want 2", len(session.bursts))
	}
	// Iterations exhausted with tool calls still pending, so the final
	// answer must come from the recovery prompt.
	if last := session.texts[len(session.texts)-1]; last != JSONRecoveryPrompt {
		t.Errorf("last prompt = %q, want recovery prompt", last)
	}
}

func TestRunAppliesConfiguredSprintDefault(t *testing.T) {
	session := &scriptedSession{replies: []*adapter.ModelReply{{Text: finalResultText}}}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)
	req.SprintCount = 0

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The fixture configures a default of 6 sprints.
	if len(f.tickets.sprintCounts) != 1 || f.tickets.sprintCounts[0] != 6 {
		t.Errorf("sprint counts = %v, want [6]", f.tickets.sprintCounts)
	}
}

func TestRunKeepsExplicitSprintCount(t *testing.T) {
	session := &scriptedSession{replies: []*adapter.ModelReply{{Text: finalResultText}}}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)
	req.SprintCount = 3

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.tickets.sprintCounts) != 1 || f.tickets.sprintCounts[0] != 3 {
		t.Errorf("sprint counts = %v, want [3]", f.tickets.sprintCounts)
	}
}

func TestRunQuotaFailureMarksJobError(t *testing.T) {
	quotaErr := &ai.APIError{Kind: ai.KindQuota, Message: "You exceeded your current quota"}
	session := &scriptedSession{
		replies: []*adapter.ModelReply{nil},
		errs:    []error{quotaErr},
	}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := f.store.Get(context.Background(), id)
	if job.Status != model.JobError {
		t.Fatalf("status = %s, want error", job.Status)
	}
	if !strings.Contains(job.Error, "quota") {
		t.Errorf("job error = %q, want quota mention", job.Error)
	}
	if len(f.slept) != 0 {
		t.Errorf("slept %v, quota failures must not retry", f.slept)
	}
}

func TestRunToolFailureStaysInBand(t *testing.T) {
	session := &scriptedSession{replies: []*adapter.ModelReply{
		{ToolCalls: []adapter.ToolCall{
			{ID: "bad", Name: "no_such_tool", Args: map[string]any{}},
		}},
		{Text: finalResultText},
	}}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := f.store.Get(context.Background(), id)
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, want completed despite tool failure", job.Status)
	}
	res := session.bursts[0][0]
	if res.Err == "" || !strings.Contains(res.Err, "unknown tool") {
		t.Errorf("tool result err = %q, want unknown tool message", res.Err)
	}
}

func TestRunRetriesTransientModelFailure(t *testing.T) {
	transient := errors.New("503 Service Unavailable")
	session := &scriptedSession{
		replies: []*adapter.ModelReply{nil, {Text: finalResultText}},
		errs:    []error{transient, nil},
	}
	f := newUCFixture(t, session, DefaultBudgets())
	id, req := startJob(t, f)

	if err := f.uc.Run(context.Background(), id, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job, _ := f.store.Get(context.Background(), id)
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, want completed after retry", job.Status)
	}
	if len(f.slept) != 1 || f.slept[0] != 5*time.Second {
		t.Errorf("backoff sleeps = %v, want one 5s wait", f.slept)
	}
}
