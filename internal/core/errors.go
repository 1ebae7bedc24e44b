package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfUnknown is returned by actions issued before the own user is known.
	ErrSelfUnknown = errors.New("own user is not known yet")
	// ErrMissingPermission is wrapped by every PermissionError.
	ErrMissingPermission = errors.New("missing permission")
	// ErrOwnerProtected refuses moderation of the server owner.
	ErrOwnerProtected = errors.New("action not allowed on the server owner")
	// ErrUnexpectedResult is returned when a mutation answers with a non-data result.
	ErrUnexpectedResult = errors.New("unexpected result type")
	// ErrInvalidEmoji rejects an empty or malformed reaction.
	ErrInvalidEmoji = errors.New("invalid emoji")
	// ErrMissingID is returned for payloads without an entity id.
	ErrMissingID = errors.New("payload has no id")
)

// PermissionError reports which permission an action needed.
type PermissionError struct {
	Permission Permission
	Action     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("missing %s permission to %s", e.Permission, e.Action)
}

func (e *PermissionError) Unwrap() error {
	return ErrMissingPermission
}
