package powerbi

import (
	"errors"
	"fmt"
)

// Stages of the embed flow. Every failure is an *ExternalServiceError whose
// Stage is one of these, so callers can branch with errors.Is.
var (
	ErrUpstreamAuth            = errors.New("power bi authentication failed")
	ErrUpstreamMetadata        = errors.New("failed to fetch report details")
	ErrUpstreamTokenGeneration = errors.New("failed to generate embed token")
)

const maxErrorBody = 4 << 10

// ExternalServiceError carries the upstream status and response body of a
// failed call to the identity provider or the reporting API.
type ExternalServiceError struct {
	Stage      error
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	msg := e.Stage.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	switch {
	case e.Body != "":
		return msg + ": " + e.Body
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Stage}
	}
	return []error{e.Stage, e.Err}
}

func newExternalError(stage error, status int, body []byte, err error) *ExternalServiceError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &ExternalServiceError{
		Stage:      stage,
		StatusCode: status,
		Body:       string(body),
		Err:        err,
	}
}
