package http

import nethttp "net/http"

// Outcome is the classification of a single attempt's status.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeTerminal
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// retryableStatuses is closed. A status absent from it is never retried.
var retryableStatuses = map[int]struct{}{
	nethttp.StatusInternalServerError: {},
	nethttp.StatusServiceUnavailable:  {},
	nethttp.StatusTooManyRequests:     {},
}

// Classify maps a status code to the outcome that drives the retry loop.
func Classify(statusCode int) Outcome {
	switch {
	case statusCode < 100 || statusCode > 599:
		return OutcomeMalformed
	case IsSuccessStatus(statusCode):
		return OutcomeSuccess
	}
	if _, ok := retryableStatuses[statusCode]; ok {
		return OutcomeRetryable
	}
	return OutcomeTerminal
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
