// File: internal/infra/web/handlers.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/repository"
	"sprint-estimator/internal/infra/jobs"
	"sprint-estimator/internal/infra/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

type startResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// statusResponse is the poll envelope. The completed result travels under
// data; error jobs flip success to false and carry the message.
type statusResponse struct {
	Success  bool                    `json:"success"`
	Status   model.JobStatus         `json:"status"`
	Progress string                  `json:"progress,omitempty"`
	Logs     []model.LogLine         `json:"logs,omitempty"`
	Data     *model.EstimationResult `json:"data,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

func statusEnvelope(job *model.Job) statusResponse {
	out := statusResponse{
		Success:  job.Status != model.JobError,
		Status:   job.Status,
		Progress: job.Progress,
		Logs:     job.Logs,
	}
	switch job.Status {
	case model.JobCompleted:
		out.Data = job.Result
	case model.JobError:
		out.Error = job.Error
	}
	return out
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		writeJSON(w, http.StatusOK, loginResponse{Success: true})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if s.password == "" || req.Password != s.password {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid password"})
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("session mint failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

// handleStart accepts the estimation request and answers immediately with a
// job id. Validation and queue failures are reported through the job record,
// not the HTTP status; clients learn about them when they poll.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	var req model.EstimationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	jobID := jobs.NewJobID()
	if _, err := s.jobs.Create(ctx, jobID); err != nil {
		log.Error().Err(err).Msg("job create failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create job"})
		return
	}
	log.Info().Str("job_id", jobID).Str("ticket", req.TicketKey).Msg("estimation job accepted")

	if err := validateRequest(req); err != nil {
		s.markFailed(ctx, jobID, err)
	} else if err := s.pool.Submit(func(taskCtx context.Context) error {
		return s.estimator.Run(taskCtx, jobID, req)
	}); err != nil {
		s.markFailed(ctx, jobID, err)
	}

	writeJSON(w, http.StatusOK, startResponse{Success: true, JobID: jobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get job"})
		return
	}

	writeJSON(w, http.StatusOK, statusEnvelope(job))

	// Terminal results are delivered at most once; the record is gone on
	// the next poll.
	if job.Status.Terminal() {
		if err := s.jobs.Delete(ctx, jobID); err != nil {
			s.log.Warn().Str("job_id", jobID).Err(err).Msg("job delete failed")
		}
	}
}

func (s *Server) markFailed(ctx context.Context, jobID string, cause error) {
	status := model.JobError
	msg := cause.Error()
	if _, err := s.jobs.Update(ctx, jobID, repository.JobPatch{
		Status:    &status,
		Error:     &msg,
		AppendLog: "failed: " + msg,
	}); err != nil {
		s.log.Error().Str("job_id", jobID).Err(err).Msg("job failure update failed")
	}
}

func validateRequest(req model.EstimationRequest) error {
	if req.TicketKey == "" {
		return fmt.Errorf("%w: ticketKey is required", domain.ErrInvalidArgument)
	}
	if req.TicketSummary == "" {
		return fmt.Errorf("%w: ticketSummary is required", domain.ErrInvalidArgument)
	}
	if req.BoardID <= 0 {
		return fmt.Errorf("%w: boardId is required", domain.ErrInvalidArgument)
	}
	return nil
}
