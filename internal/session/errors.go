package session

import "errors"

// ErrNotFound indicates the conversation does not exist.
// Used by: api/conversations.go for HTTP status mapping
var ErrNotFound = errors.New("conversation not found")
