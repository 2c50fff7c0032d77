package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C) or declined
	// to send.
	ErrAborted = errors.New("tui: aborted")
	// ErrNoProgress is returned when a submit keeps failing validation
	// without the flow being able to re-prompt anything.
	ErrNoProgress = errors.New("tui: validation failed with nothing to re-prompt")
)
