package domain

import "errors"

var (
	// Common domain errors
	ErrJobNotFound     = errors.New("job not found")
	ErrQuotaExceeded   = errors.New("api quota exceeded")
	ErrNoResultJSON    = errors.New("no result json in model response")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrPollTimeout     = errors.New("polling attempts exhausted")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrJobQueueFull    = errors.New("job queue full")
)
