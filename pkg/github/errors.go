package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Common errors returned by the client.
var (
	// ErrTimeout is returned when a request exceeds its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("decode response")
)

// StatusPageURL is pointed to when GitHub stops answering.
const StatusPageURL = "https://www.githubstatus.com/"

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 403/429 answers with an exhausted quota.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents requests that exceeded their deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents requests whose caller went away.
	ErrorClassCanceled ErrorClass = "canceled"

	// ErrorClassDecode represents unreadable response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is a non-success answer from the GitHub API.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Header     http.Header
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("GitHub %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("GitHub %s error (status %d)", e.ErrorClass, e.StatusCode)
}

// Classify returns the class of an error returned by the client.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.ErrorClass
	case errors.Is(err, ErrTimeout):
		return ErrorClassTimeout
	case errors.Is(err, ErrDecode):
		return ErrorClassDecode
	case errors.Is(err, context.Canceled):
		return ErrorClassCanceled
	default:
		return ErrorClassNetwork
	}
}

// Describe turns an error into a user-visible title and description.
func Describe(err error) (title, description string) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrTimeout):
		return "API Request timed out", "Please check " + StatusPageURL
	case errors.As(err, &apiErr) && apiErr.ErrorClass == ErrorClassRateLimit:
		desc := "GitHub refused the request: " + apiErr.Message
		if reset := apiErr.Header.Get("X-RateLimit-Reset"); reset != "" {
			desc += " (quota resets at epoch " + reset + ")"
		}
		return "API rate limit exceeded", desc
	case errors.As(err, &apiErr):
		return "API Request failed", fmt.Sprintf("GitHub answered %d: %s", apiErr.StatusCode, apiErr.Message)
	case errors.Is(err, ErrDecode):
		return "Unexpected API response", err.Error()
	default:
		return "API Request failed", err.Error()
	}
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(resp *http.Response) ErrorClass {
	switch {
	case (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) &&
		resp.Header.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// isTimeout reports whether err stems from an exceeded deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// timeoutError wraps err as ErrTimeout.
func timeoutError(endpoint string, after time.Duration, err error) error {
	return fmt.Errorf("%w: %s after %s: %v", ErrTimeout, endpoint, after, err)
}
