package core

import "fmt"

type Unit struct{}

// Error codes carried on CommandError so callers can tell apart failure
// kinds without parsing status codes or messages.
const (
	CodeInvalidInput        = "invalid_input"
	CodeNotFound            = "not_found"
	CodeForbidden           = "forbidden"
	CodeInvalidState        = "invalid_state"
	CodeInvalidJoinCode     = "invalid_join_code"
	CodeSelfJoin            = "self_join"
	CodeSessionFull         = "session_full"
	CodeAlreadyJoined       = "already_joined"
	CodeInvalidPlace        = "invalid_place"
	CodeDuplicateSwipe      = "duplicate_swipe"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeNoResultsFound      = "no_results_found"
)

type CommandError struct {
	Payload    interface{} `json:"payload,omitempty"`
	StatusCode int         `json:"-"`
	Code       string      `json:"code,omitempty"`
	Reason     *string     `json:"reason,omitempty"`
}

type CommandErrorOption func(*CommandError)

func WithReason(reason string) CommandErrorOption {
	return func(e *CommandError) {
		e.Reason = &reason
	}
}

func WithCode(code string) CommandErrorOption {
	return func(e *CommandError) {
		e.Code = code
	}
}

func WithPayload(payload interface{}) CommandErrorOption {
	return func(e *CommandError) {
		e.Payload = payload
	}
}

func NewCommandError(statusCode int, payload interface{}, opts ...CommandErrorOption) CommandError {
	e := CommandError{
		StatusCode: statusCode,
		Payload:    payload,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

func (r CommandError) Error() string {
	var values struct {
		Payload    interface{}
		StatusCode int
		Code       string
		Reason     string
	}

	values.Payload = r.Payload
	values.StatusCode = r.StatusCode
	values.Code = r.Code

	if r.Reason != nil {
		values.Reason = *r.Reason
	}

	return fmt.Sprintf("%+v", values)
}
