package submission

import (
	"errors"
	"fmt"
)

// State is a step of the submit flow.
type State int

const (
	Idle State = iota
	Validating
	Invalid
	Valid
	Sending
	Sent
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	case Valid:
		return "valid"
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition is reported to hooks on every state change.
type Transition struct {
	SessionID string
	From      State
	To        State
	Err       error
}

// Hook observes transitions. Hooks run synchronously on the submitting
// goroutine and must not call back into the orchestrator.
type Hook func(Transition)

// Form errors for a failed submit.
const (
	// MsgSendFailed is shown when the message could not be sent.
	MsgSendFailed = "送信に失敗しました。"
	// MsgCheckFailed is shown when the request could not be checked or
	// composed; nothing was sent.
	MsgCheckFailed = "入力内容を確認できませんでした。時間をおいて再度お試しください。"
)

// ErrBusy is returned when Submit is called while a submit is in progress.
var ErrBusy = errors.New("submission: submit already in progress")

// DispatchError wraps a failed message send.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	if e == nil || e.Err == nil {
		return "submission: dispatch failed"
	}
	return "submission: dispatch failed: " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
