package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var (
	// ErrInvalidRepo is returned for a repository that is not owner/repo[@ref].
	ErrInvalidRepo = errors.New("github: invalid repository")

	// ErrRepoNotFound is returned when the repository does not exist or the
	// token cannot see it.
	ErrRepoNotFound = errors.New("github: repository not found")
)

// RateLimitError reports a spent quota. It matches domain.ErrRateLimited.
type RateLimitError struct {
	ResetAt time.Time
	Limit   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: %d call quota spent until %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return domain.ErrRateLimited }

// APIError is any other non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s answered %d: %s", e.URL, e.StatusCode, e.Message)
}

// statusOf returns the HTTP status behind err, or 0.
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// describe turns a failed repository call into a caller-facing error.
func describe(name string, err error) error {
	switch statusOf(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	case http.StatusUnauthorized:
		return fmt.Errorf("github: %s: invalid token: %w", name, err)
	}
	return fmt.Errorf("github: %s: %w", name, err)
}
