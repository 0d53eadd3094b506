package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks API errors that will not resolve on retry: authentication,
// billing, and quota problems. Callers use IsFatal to distinguish them from
// transient failures, which the pipeline absorbs by dropping the affected
// unit of work. Rate limits and network errors count as transient.
var ErrFatalAPI = errors.New("fatal API error")

// IsFatal reports whether err carries the ErrFatalAPI classification.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalAPI)
}

// fatalPatterns are lowercase substrings that identify non-retryable API errors.
var fatalPatterns = []string{
	"credit balance",
	"quota",
	"billing",
	"api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err is an account-level failure rather than
// a transient one.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError tags fatal API errors with ErrFatalAPI; other errors pass
// through unchanged.
func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
