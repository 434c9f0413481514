package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeResolved
	OutcomeNotFound
	OutcomeNoURL
	OutcomeRequestError
	OutcomeHTTPError
)

// Persisted sentinel text. The dashboard reads these verbatim.
const (
	SentinelNotFound     = "Not Found"
	SentinelNoURL        = "No URL"
	SentinelRequestError = "Request Error"
	sentinelHTTPPrefix   = "Scrape Failed ("
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeNoURL:
		return "no_url"
	case OutcomeRequestError:
		return "request_error"
	case OutcomeHTTPError:
		return "http_error"
	default:
		return "unknown"
	}
}

// AgentOutcome is the result of enriching one transfer with its player's agent.
// The zero value means enrichment was never attempted.
type AgentOutcome struct {
	Kind   OutcomeKind
	Name   string
	Status int
}

// RetryPolicy decides which failed outcomes a later pass picks up again.
type RetryPolicy struct {
	RetryFailed bool
}

func Resolved(name string) AgentOutcome { return AgentOutcome{Kind: OutcomeResolved, Name: name} }
func NotFound() AgentOutcome            { return AgentOutcome{Kind: OutcomeNotFound} }
func NoURL() AgentOutcome               { return AgentOutcome{Kind: OutcomeNoURL} }
func RequestError() AgentOutcome        { return AgentOutcome{Kind: OutcomeRequestError} }
func HTTPError(status int) AgentOutcome {
	return AgentOutcome{Kind: OutcomeHTTPError, Status: status}
}

// String returns the text stored in agent_name. Pending encodes to "".
func (o AgentOutcome) String() string {
	switch o.Kind {
	case OutcomeResolved:
		return o.Name
	case OutcomeNotFound:
		return SentinelNotFound
	case OutcomeNoURL:
		return SentinelNoURL
	case OutcomeRequestError:
		return SentinelRequestError
	case OutcomeHTTPError:
		return fmt.Sprintf("%s%d)", sentinelHTTPPrefix, o.Status)
	default:
		return ""
	}
}

// NullString encodes the outcome for a nullable agent_name column.
func (o AgentOutcome) NullString() sql.NullString {
	if o.Kind == OutcomePending {
		return sql.NullString{}
	}
	return sql.NullString{String: o.String(), Valid: true}
}

// ParseAgentOutcome decodes a stored agent_name value.
func ParseAgentOutcome(v sql.NullString) AgentOutcome {
	if !v.Valid {
		return AgentOutcome{}
	}
	// Spaces only, the same set SQL TRIM() removes.
	s := strings.Trim(v.String, " ")
	switch s {
	case "":
		return AgentOutcome{}
	case SentinelNotFound:
		return NotFound()
	case SentinelNoURL:
		return NoURL()
	case SentinelRequestError:
		return RequestError()
	}
	if strings.HasPrefix(s, sentinelHTTPPrefix) && strings.HasSuffix(s, ")") {
		digits := s[len(sentinelHTTPPrefix) : len(s)-1]
		if isDigits(digits) {
			if code, err := strconv.Atoi(digits); err == nil {
				return HTTPError(code)
			}
		}
	}
	return Resolved(s)
}

// IsSentinel reports whether the outcome is anything other than a resolved name.
func (o AgentOutcome) IsSentinel() bool {
	return o.Kind != OutcomeResolved
}

// Retryable reports whether a row holding this outcome is selected by the next pass.
func (o AgentOutcome) Retryable(p RetryPolicy) bool {
	switch o.Kind {
	case OutcomePending, OutcomeNotFound, OutcomeNoURL:
		return true
	case OutcomeRequestError, OutcomeHTTPError:
		return p.RetryFailed
	default:
		return false
	}
}

// RetryableSentinels lists the stored values (besides NULL and "") that the
// policy re-selects. HTTP failures are matched by prefix, see FailedPrefix.
func (p RetryPolicy) RetryableSentinels() []string {
	values := []string{SentinelNotFound, SentinelNoURL}
	if p.RetryFailed {
		values = append(values, SentinelRequestError)
	}
	return values
}

// FailedPrefix is the LIKE prefix for HTTP failure sentinels.
func FailedPrefix() string {
	return sentinelHTTPPrefix
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
