// File: internal/usecase/estimate_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/adapter"
	"sprint-estimator/internal/domain/ports/repository"
	"sprint-estimator/internal/infra/adapters/ai"
	"sprint-estimator/internal/infra/logging"
	"sprint-estimator/internal/infra/metrics"
)

// Budgets bound the tool-calling conversation. The three counters are
// independent: the loop stops at whichever limit is hit first.
type Budgets struct {
	MaxIterations        int
	MaxCallsPerIteration int
	MaxTotalCalls        int
	ToolCallDelay        time.Duration
	RetryAttempts        int
	RetryBaseDelay       time.Duration
}

func DefaultBudgets() Budgets {
	return Budgets{
		MaxIterations:        10,
		MaxCallsPerIteration: 5,
		MaxTotalCalls:        12,
		ToolCallDelay:        time.Second,
		RetryAttempts:        5,
		RetryBaseDelay:       5 * time.Second,
	}
}

// EstimateUseCase runs one estimation job: builds the context prompt,
// drives the tool-calling conversation and stores the normalized result.
type EstimateUseCase struct {
	aiAdapter    adapter.ConversationalAI
	exec         *ToolExecutor
	jobs         repository.JobStore
	builder      *ContextBuilder
	budgets        Budgets
	defaultModel   string
	defaultSprints int
	log            *zerolog.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewEstimateUseCase(
	aiAdapter adapter.ConversationalAI,
	exec *ToolExecutor,
	jobs repository.JobStore,
	builder *ContextBuilder,
	budgets Budgets,
	defaultModel string,
	defaultSprints int,
	logger *zerolog.Logger,
) *EstimateUseCase {
	if defaultSprints <= 0 {
		defaultSprints = 10
	}
	return &EstimateUseCase{
		aiAdapter:      aiAdapter,
		exec:           exec,
		jobs:           jobs,
		builder:        builder,
		budgets:        budgets,
		defaultModel:   defaultModel,
		defaultSprints: defaultSprints,
		log:            logger,
		sleep:          defaultSleep,
	}
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes the job to completion and records the outcome on the job.
// It only returns an error when the job record itself cannot be updated.
func (u *EstimateUseCase) Run(ctx context.Context, jobID string, req model.EstimationRequest) error {
	ctx = logging.WithTraceID(logging.WithJobID(ctx, jobID), uuid.NewString())
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "EstimateUC.Run")()
	start := time.Now()

	u.setStatus(ctx, jobID, model.JobProcessing, "building estimation context")

	modelID := req.Model
	if modelID == "" {
		modelID = u.defaultModel
	}
	if req.SprintCount <= 0 {
		req.SprintCount = u.defaultSprints
	}
	u.progress(ctx, jobID, "model: "+modelID)

	prompt, err := u.builder.Build(ctx, req, func(msg string) { u.progress(ctx, jobID, msg) })
	if err != nil {
		return u.failJob(ctx, jobID, err)
	}

	u.progress(ctx, jobID, "estimating with tool calls")
	result, err := u.converse(ctx, jobID, modelID, prompt)
	if err != nil {
		return u.failJob(ctx, jobID, err)
	}

	status := model.JobCompleted
	done := "done"
	if _, err := u.jobs.Update(ctx, jobID, repository.JobPatch{
		Status:   &status,
		Progress: &done,
		Result:   result,
	}); err != nil {
		return err
	}
	metrics.JobStatus(string(model.JobCompleted))
	metrics.ObserveJobDuration(time.Since(start).Seconds())
	log.Info().Float64("points", float64(result.EstimatedPoints)).Msg("estimation completed")
	return nil
}

// converse drives the bounded tool-calling loop.
func (u *EstimateUseCase) converse(ctx context.Context, jobID, modelID, prompt string) (*model.EstimationResult, error) {
	session, err := u.aiAdapter.StartChat(ctx, modelID, DefaultToolCatalog())
	if err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}

	provider := u.aiAdapter.Provider()
	policy := ai.Policy{
		MaxAttempts: u.budgets.RetryAttempts,
		BaseDelay:   u.budgets.RetryBaseDelay,
		OnWait: func(attempt int, delay time.Duration) {
			metrics.RetryWait(provider, modelID)
			u.progress(ctx, jobID, fmt.Sprintf("rate limited, retrying in %ds (attempt %d/%d)",
				int(delay.Seconds()+0.5), attempt, u.budgets.RetryAttempts))
		},
		Sleep: u.sleep,
	}

	send := func(fn func(ctx context.Context) (*adapter.ModelReply, error)) (*adapter.ModelReply, error) {
		callStart := time.Now()
		reply, err := ai.WithRetry(ctx, policy, fn)
		metrics.ObserveModelCall(provider, modelID, int(time.Since(callStart).Milliseconds()), err == nil)
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaFailure(provider, modelID)
		}
		return reply, err
	}

	reply, err := send(func(ctx context.Context) (*adapter.ModelReply, error) {
		return session.SendText(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	iterations := 0
	totalCalls := 0

	for iterations < u.budgets.MaxIterations {
		requested := reply.ToolCalls
		if len(requested) == 0 {
			break
		}
		if totalCalls >= u.budgets.MaxTotalCalls {
			u.progress(ctx, jobID, fmt.Sprintf("tool call limit reached (%d)", u.budgets.MaxTotalCalls))
			break
		}

		limit := u.budgets.MaxCallsPerIteration
		if remaining := u.budgets.MaxTotalCalls - totalCalls; remaining < limit {
			limit = remaining
		}
		calls := requested
		if len(calls) > limit {
			calls = calls[:limit]
			u.log.Debug().Int("requested", len(requested)).Int("executed", len(calls)).Msg("truncating tool call burst")
		}

		u.progress(ctx, jobID, "running tools: "+joinToolNames(calls))

		results := make([]adapter.ToolResult, 0, len(calls))
		for i, call := range calls {
			totalCalls++
			if i > 0 {
				if err := u.sleep(ctx, u.budgets.ToolCallDelay); err != nil {
					return nil, err
				}
			}

			payload, execErr := u.exec.Execute(ctx, call.Name, call.Args)
			res := adapter.ToolResult{ID: call.ID, Name: call.Name, Payload: payload}
			if execErr != nil {
				// Tool failures stay in-band; the model decides how to adapt.
				res.Err = execErr.Error()
				u.log.Warn().Str("tool", call.Name).Err(execErr).Msg("tool execution failed")
			}
			metrics.ToolExecuted(call.Name, execErr == nil)
			results = append(results, res)
		}

		if err := u.sleep(ctx, u.budgets.ToolCallDelay); err != nil {
			return nil, err
		}
		reply, err = send(func(ctx context.Context) (*adapter.ModelReply, error) {
			return session.SendToolResults(ctx, results)
		})
		if err != nil {
			return nil, err
		}
		iterations++
	}

	text := reply.Text
	if !HasResultJSON(text) && iterations > 0 {
		// One-shot recovery: ask explicitly for the JSON payload.
		u.progress(ctx, jobID, "requesting final result as JSON")
		if err := u.sleep(ctx, u.budgets.ToolCallDelay); err != nil {
			return nil, err
		}
		reply, err = send(func(ctx context.Context) (*adapter.ModelReply, error) {
			return session.SendText(ctx, JSONRecoveryPrompt)
		})
		if err != nil {
			return nil, err
		}
		text = reply.Text
	}

	return ParseEstimationResult(text)
}

func (u *EstimateUseCase) setStatus(ctx context.Context, jobID string, status model.JobStatus, progress string) {
	if _, err := u.jobs.Update(ctx, jobID, repository.JobPatch{
		Status:    &status,
		Progress:  &progress,
		AppendLog: progress,
	}); err != nil {
		u.log.Warn().Str("job_id", jobID).Err(err).Msg("job status update failed")
	}
}

func (u *EstimateUseCase) progress(ctx context.Context, jobID, msg string) {
	if _, err := u.jobs.Update(ctx, jobID, repository.JobPatch{
		Progress:  &msg,
		AppendLog: msg,
	}); err != nil {
		u.log.Warn().Str("job_id", jobID).Err(err).Msg("job progress update failed")
	}
}

func (u *EstimateUseCase) failJob(ctx context.Context, jobID string, cause error) error {
	status := model.JobError
	msg := cause.Error()
	metrics.JobStatus(string(model.JobError))
	u.log.Error().Str("job_id", jobID).Err(cause).Msg("estimation job failed")
	_, err := u.jobs.Update(ctx, jobID, repository.JobPatch{
		Status:    &status,
		Error:     &msg,
		AppendLog: "failed: " + msg,
	})
	return err
}

func joinToolNames(calls []adapter.ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
