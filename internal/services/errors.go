package services

import domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"

// IsRetryable reports whether err may succeed on a later attempt. Client
// errors (validation, not found, conflicts, mismatches, auth) never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeRetryable, domainagg.CodeInternal:
		return true
	default:
		return false
	}
}
