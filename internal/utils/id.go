package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier used to tag connection sessions in logs.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first block of id, for compact log lines.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
