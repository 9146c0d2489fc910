package unopim

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

// errorBody is the shape the backend uses for failure responses; both the
// top-level message and per-field errors are optional.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// classifyStatus maps a non-2xx response onto the closed error taxonomy.
// The mapping is total: every status lands on exactly one kind.
func classifyStatus(status int, body []byte) *domain.APIError {
	msg := responseMessage(body, http.StatusText(status))

	var kind domain.ErrorKind
	switch {
	case status == http.StatusUnauthorized:
		kind = domain.ErrTokenExpired
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case status == http.StatusConflict:
		kind = domain.ErrDuplicateCode
	case status == http.StatusTooManyRequests:
		kind = domain.ErrRateLimited
	case status >= 500:
		kind = domain.ErrServer
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		kind = domain.ErrValidation
		if mentionsMissingDependency(msg) {
			kind = domain.ErrDependencyMissing
		} else if mentionsDuplicate(msg) {
			kind = domain.ErrDuplicateCode
		}
	default:
		// Remaining 4xx (403, 405, ...) are terminal client errors.
		kind = domain.ErrValidation
	}

	return domain.NewAPIError(kind, status, msg)
}

// responseMessage extracts a human-readable message from a failure body,
// falling back to the supplied default.
func responseMessage(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || strings.HasPrefix(trimmed, "<") {
		// HTML error pages add nothing over the status text.
		return fallback
	}
	if len(trimmed) > 300 {
		trimmed = trimmed[:300]
	}
	return trimmed
}

func mentionsMissingDependency(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "invalid reference")
}

func mentionsDuplicate(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "already been taken") ||
		strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "duplicate")
}
