package dialog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed TurnInput. The conversation state is
	// left untouched when this is returned.
	ErrInvalidInput = errors.New("dialog: invalid turn input")

	// ErrUnknownDialog marks a stack frame referencing a dialog id that was
	// never registered.
	ErrUnknownDialog = errors.New("dialog: unknown dialog id")

	// ErrDialogDepthExceeded marks a push beyond the configured stack depth.
	ErrDialogDepthExceeded = errors.New("dialog: dialog depth exceeded")

	// ErrStoreUnavailable marks a conversation store failure. Fatal for the
	// turn; nothing is persisted.
	ErrStoreUnavailable = errors.New("dialog: conversation store unavailable")
)

func errInvalid(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, detail)
}
