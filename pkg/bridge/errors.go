package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FailureKind classifies an InvocationError.
type FailureKind string

// KindProcessError means the process could not be started or exited abnormally.
const KindProcessError FailureKind = "ProcessError"

// InvocationError is returned when an invocation fails before result extraction.
type InvocationError struct {
	Kind FailureKind
	// Message is the captured stderr, or the launch diagnostic when stderr is empty.
	Message  string
	ExitCode int
	Outcome  Outcome
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("gateway process error: %s", strings.TrimSpace(e.Message))
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func launchError(err error, elapsed time.Duration) *InvocationError {
	return &InvocationError{
		Kind:     KindProcessError,
		Message:  err.Error(),
		ExitCode: -1,
		Outcome:  Outcome{ExitCode: -1, Duration: elapsed},
		Err:      err,
	}
}

func processError(ctx context.Context, outcome Outcome, runErr error) *InvocationError {
	err := runErr
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(runErr, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, runErr)
	}

	message := outcome.Stderr
	if message == "" {
		message = err.Error()
	}

	return &InvocationError{
		Kind:     KindProcessError,
		Message:  message,
		ExitCode: outcome.ExitCode,
		Outcome:  outcome,
		Err:      err,
	}
}
