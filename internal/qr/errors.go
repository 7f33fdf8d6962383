package qr

import "fmt"

type Kind int

const (
	// RemoteRejected means the service answered with a non-2xx status.
	RemoteRejected Kind = iota + 1
	// TransportUnreachable covers DNS, dial, timeout and body read faults.
	TransportUnreachable
)

func (k Kind) String() string {
	switch k {
	case RemoteRejected:
		return "remote_rejected"
	case TransportUnreachable:
		return "transport_unreachable"
	default:
		return "unknown"
	}
}

const RejectedMessage = "Failed to generate QR code"

var (
	ErrRemoteRejected       = &Error{Kind: RemoteRejected}
	ErrTransportUnreachable = &Error{Kind: TransportUnreachable}
)

// Error is a generation failure. Message is safe to show to users; Status and
// Err are kept for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s: status %d", e.Kind, e.Message, e.Status)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any Error of the same Kind, so errors.Is(err, ErrRemoteRejected) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func rejected(status int) *Error {
	return &Error{Kind: RemoteRejected, Message: RejectedMessage, Status: status}
}

func unreachable(hostPort string, err error) *Error {
	return &Error{
		Kind:    TransportUnreachable,
		Message: fmt.Sprintf("Error generating QR code. Make sure the backend is running on %s.", hostPort),
		Err:     err,
	}
}
