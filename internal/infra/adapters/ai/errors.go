// File: internal/infra/adapters/ai/errors.go
package ai

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindRateLimit
	KindServerFault
	KindQuota
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindServerFault:
		return "server_fault"
	case KindQuota:
		return "quota"
	default:
		return "other"
	}
}

// APIError is the single tagged representation of a provider failure.
// Classification happens once, at the first catch point; retry logic and
// callers consume only this type.
type APIError struct {
	Kind           ErrorKind
	Message        string
	SuggestedDelay time.Duration // 0 when the provider gave no hint
	Err            error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Status codes appear as text because some SDK layers fold the HTTP status
// into the message.
var serverFaultMarkers = []string{
	"500", "Internal Server Error",
	"502", "Bad Gateway",
	"503", "Service Unavailable",
	"504", "Gateway Timeout",
}

// Substrings that mark a billing or plan quota exhaustion. Per-minute quotas
// are rate limits in disguise and are carved out before this list is checked.
var quotaMarkers = []string{
	"exceeded your current quota",
	"Quota exceeded",
	"QuotaFailure",
}

var perMinuteMarkers = []string{
	"PerMinute",
	"per minute",
}

var (
	delayMsPattern   = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*ms`)
	delaySecPattern  = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s(?:ec)?`)
	delayBarePattern = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)`)
)

// Classify inspects a raw provider error and returns its tagged form.
// Already-classified errors pass through unchanged.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var tagged *APIError
	if errors.As(err, &tagged) {
		return tagged
	}

	msg := err.Error()
	out := &APIError{Kind: KindOther, Message: msg, Err: err}

	if d, ok := parseSuggestedDelay(msg); ok {
		out.SuggestedDelay = d
	}

	if isQuotaMessage(msg) {
		out.Kind = KindQuota
		return out
	}
	if containsAny(msg, "429", "Too Many Requests") {
		out.Kind = KindRateLimit
		return out
	}
	if containsAny(msg, serverFaultMarkers...) {
		out.Kind = KindServerFault
		return out
	}
	return out
}

// IsRetriable reports whether the error is a transient rate limit or a
// server-side fault worth retrying.
func IsRetriable(err error) bool {
	e := Classify(err)
	if e == nil {
		return false
	}
	return e.Kind == KindRateLimit || e.Kind == KindServerFault
}

// IsQuotaExceeded reports whether the error is a non-retriable billing or
// plan quota exhaustion. Per-minute quota messages are rate limits and
// return false here.
func IsQuotaExceeded(err error) bool {
	e := Classify(err)
	if e == nil {
		return false
	}
	return e.Kind == KindQuota
}

// SuggestedDelay returns the provider-suggested retry delay, when present.
func SuggestedDelay(err error) (time.Duration, bool) {
	e := Classify(err)
	if e == nil || e.SuggestedDelay <= 0 {
		return 0, false
	}
	return e.SuggestedDelay, true
}

func isQuotaMessage(msg string) bool {
	if containsAny(msg, perMinuteMarkers...) {
		return false
	}
	return containsAny(msg, quotaMarkers...)
}

// parseSuggestedDelay extracts "retry in N ms" / "retry in N s" hints.
// A unitless value above 1000 is taken as milliseconds, otherwise seconds.
func parseSuggestedDelay(msg string) (time.Duration, bool) {
	if m := delayMsPattern.FindStringSubmatch(msg); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(math.Ceil(v)) * time.Millisecond, true
	}
	if m := delaySecPattern.FindStringSubmatch(msg); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(math.Ceil(v*1000)) * time.Millisecond, true
	}
	if m := delayBarePattern.FindStringSubmatch(msg); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		if v > 1000 {
			return time.Duration(math.Ceil(v)) * time.Millisecond, true
		}
		return time.Duration(math.Ceil(v*1000)) * time.Millisecond, true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
