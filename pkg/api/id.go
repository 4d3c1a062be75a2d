package api

import (
	"regexp"

	"github.com/google/uuid"
)

const (
	sessionIDPrefix = "sess_"
	callIDPrefix    = "call_"
	fileIDPrefix    = "file_"
)

var sessionIDPattern = regexp.MustCompile(`^sess_[a-f0-9-]{36}$`)

// NewSessionID generates a session key for callers that do not supply
// their own. Session keys supplied by callers are treated as opaque; the
// "sess_" form is only what werkbank mints itself.
func NewSessionID() string {
	return sessionIDPrefix + uuid.NewString()
}

// NewCallID generates a correlation ID for a tool invocation.
func NewCallID() string {
	return callIDPrefix + uuid.NewString()
}

// NewFileID generates an ID for an uploaded file.
func NewFileID() string {
	return fileIDPrefix + uuid.NewString()
}

// IsGeneratedSessionID reports whether the given key was minted by
// NewSessionID, as opposed to being a caller-chosen opaque key.
func IsGeneratedSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
