package domain

import (
	perr "threadmirror/internal/platform/errors"
	pstrings "threadmirror/internal/platform/strings"
)

// quotaNeedles are the message fragments that mark a destination refusal
// as quota shaped. Deliberately permissive: pausing on a false positive
// beats hammering a service that has cut the caller off
var quotaNeedles = []string{"quota", "limit", "plan", "upgrade", "allowance"}

// IsQuotaExceeded reports whether err signals the destination will not
// accept further writes until an operator intervenes.
// True when the error code maps to HTTP 429 or 402, or when the message
// contains any quota needle case insensitively
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeTooManyRequests, perr.ErrorCodeQuotaExceeded:
		return true
	}
	msg := err.Error()
	for _, needle := range quotaNeedles {
		if pstrings.ContainsFold(msg, needle) {
			return true
		}
	}
	return false
}
