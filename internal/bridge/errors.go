package bridge

import "fmt"

// ErrorKind classifies why dispatching a webhook stopped.
type ErrorKind int

const (
	// KindInvalidSignature: the body was not signed with the channel secret.
	KindInvalidSignature ErrorKind = iota + 1
	// KindPayload: a verified body could not be decoded.
	KindPayload
	// KindGeneration: the generation call failed.
	KindGeneration
	// KindReplySend: the platform refused the reply.
	KindReplySend
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidSignature:
		return "invalid_signature"
	case KindPayload:
		return "payload"
	case KindGeneration:
		return "generation"
	case KindReplySend:
		return "reply_send"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a dispatch failure tagged with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
