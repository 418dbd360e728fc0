package extractor

import (
	"context"
	"errors"
	"strings"

	"medidown/internal/model"
)

// upstreamMarkers indicate the source platform rejected, throttled, or
// dropped the request. These failures are retried with backoff.
var upstreamMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"service unavailable",
	"502",
	"503",
	"network",
}

// invalidMarkers indicate the request itself can never succeed.
var invalidMarkers = []string{
	"unsupported url",
	"not a valid url",
	"is not a valid url",
	"no video formats",
	"requested format is not available",
}

// Classify normalizes a raw tool failure into the error taxonomy. Already
// classified errors pass through unchanged.
func Classify(err error) *model.TaskError {
	var te *model.TaskError
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewTaskError(model.KindCanceled, "download canceled", err)
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range invalidMarkers {
		if strings.Contains(msg, marker) {
			return model.NewTaskError(model.KindInvalidRequest, "source URL cannot be processed", err)
		}
	}
	for _, marker := range upstreamMarkers {
		if strings.Contains(msg, marker) {
			return model.NewTaskError(model.KindUpstreamUnavailable, "source platform is unavailable or rate-limiting", err)
		}
	}

	return model.NewTaskError(model.KindProcessingFailure, "download or merge failed", err)
}

// Retryable reports whether the classified failure should be retried.
func Retryable(err error) bool {
	return model.KindOf(err) == model.KindUpstreamUnavailable
}
