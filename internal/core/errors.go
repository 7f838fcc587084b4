package core

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies request-level failures.
type FailureKind string

const (
	FailureConfiguration FailureKind = "configuration"
	FailureUpstream      FailureKind = "upstream"
	FailureBadRequest    FailureKind = "bad_request"
	FailureInternal      FailureKind = "internal"
)

// Failure is the single structured error a request can end with.
// Record-level problems never become a Failure.
type Failure struct {
	Kind    FailureKind
	Reason  string
	Detail  string
	Missing []string
	// Status is the upstream HTTP status, 0 when the call never got an answer.
	Status int
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	b.WriteString(": ")
	b.WriteString(f.Reason)
	if f.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", f.Status)
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	if len(f.Missing) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(f.Missing, ", "))
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// MissingConfiguration reports absent identifiers or credentials.
func MissingConfiguration(missing []string) *Failure {
	return &Failure{
		Kind:    FailureConfiguration,
		Reason:  "Missing environment variables",
		Missing: append([]string(nil), missing...),
	}
}

// Upstream wraps a transport or non-success answer from a collaborator.
func Upstream(service string, status int, detail string, err error) *Failure {
	return &Failure{
		Kind:   FailureUpstream,
		Reason: service + " request failed",
		Status: status,
		Detail: detail,
		Err:    err,
	}
}

func BadRequest(reason, detail string) *Failure {
	return &Failure{Kind: FailureBadRequest, Reason: reason, Detail: detail}
}

// AsFailure returns err as a Failure, classifying unknown errors as internal.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailureInternal, Reason: "internal error", Detail: err.Error(), Err: err}
}
