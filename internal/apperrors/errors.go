package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// KindTransport covers network and HTTP-layer failures with no usable body.
	KindTransport Kind = "transport"
	// KindRejection is an HTTP error answered with a detail message.
	KindRejection Kind = "rejection"
	KindDecode    Kind = "decode"
	KindNotFound  Kind = "not_found"
	// KindInvariant marks a programming or catalog-construction bug rather
	// than a remote failure. It must not be folded into user-facing status text.
	KindInvariant Kind = "invariant"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Status is the HTTP status code when one was received, 0 otherwise.
	Status int
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransport:
		return "Could not reach the timelapse service."
	case KindRejection:
		return "Request rejected by the timelapse service."
	case KindDecode:
		return "Unexpected response from the timelapse service."
	case KindNotFound:
		return "Timelapse not found."
	case KindInvariant:
		return "Internal configuration error."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

// Transport wraps a failure that happened before any HTTP response was read.
// The transport's own message is kept as the public message, matching what a
// user would see from the HTTP stack.
func Transport(err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return New(KindTransport, msg, err)
}

// HTTPFailure is a non-2xx answer that carried no detail. It is still a
// transport-level failure: there is nothing structured to show the user.
func HTTPFailure(status int, msg string, cause error) error {
	return &Error{
		Kind:        KindTransport,
		SafeMessage: firstNonEmpty(msg, defaultSafeMessage(KindTransport)),
		Status:      status,
		Cause:       cause,
	}
}

// Rejection builds a RemoteRejection from a status code and the service's detail text.
func Rejection(status int, detail string, cause error) error {
	return &Error{
		Kind:        KindRejection,
		SafeMessage: firstNonEmpty(detail, defaultSafeMessage(KindRejection)),
		Status:      status,
		Cause:       cause,
	}
}

func NotFound(detail string, cause error) error {
	return &Error{
		Kind:        KindNotFound,
		SafeMessage: firstNonEmpty(detail, defaultSafeMessage(KindNotFound)),
		Status:      404,
		Cause:       cause,
	}
}

func Decode(err error) error {
	return New(KindDecode, "", err)
}

func Invariant(msg string) error {
	return New(KindInvariant, msg, nil)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	return e.Status
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

func IsInvariant(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindInvariant
}

func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
