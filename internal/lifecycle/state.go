package lifecycle

import (
	"errors"

	"github.com/dmorgan81/qrgen/internal/blob"
)

type Phase int

const (
	Idle Phase = iota
	Validating
	Requesting
	Succeeded
	Failed
)

var phaseNames = [...]string{"idle", "validating", "requesting", "succeeded", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Cause says why a cycle ended in Failed.
type Cause int

const (
	CauseNone Cause = iota
	CauseEmptyInput
	CauseRemoteRejected
	CauseTransportUnreachable
	CauseInternal
)

var causeNames = [...]string{"none", "empty_input", "remote_rejected", "transport_unreachable", "internal"}

func (c Cause) String() string {
	if c < 0 || int(c) >= len(causeNames) {
		return "unknown"
	}
	return causeNames[c]
}

const EmptyInputMessage = "Please enter text or URL"

var (
	ErrEmptyInput       = errors.New("lifecycle: empty input")
	ErrBusy             = errors.New("lifecycle: generation already in progress")
	ErrNoImageAvailable = errors.New("lifecycle: no image available")
	ErrClosed           = errors.New("lifecycle: session closed")
	ErrSuperseded       = errors.New("lifecycle: result superseded by a newer cycle")
)

// State is an immutable snapshot of the session. Handle is set only in
// Succeeded; Message, Cause and Err only in Failed.
type State struct {
	Phase   Phase
	Cycle   uint64
	Text    string
	Handle  *blob.Handle
	Message string
	Cause   Cause
	Err     error
}

// Busy reports whether a cycle is in flight.
func (s State) Busy() bool {
	return s.Phase == Validating || s.Phase == Requesting
}

type Observer func(State)
