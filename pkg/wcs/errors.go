package wcs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the client reports.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindConfiguration: invalid model feed, service or version at construction.
	KindConfiguration
	// KindTransport: the HTTP exchange failed or returned a status other than 200.
	KindTransport
	// KindProtocol: the server answered with a well-formed exception document.
	KindProtocol
	// KindMalformedResponse: XML that is neither a known success nor error shape.
	KindMalformedResponse
	// KindValidation: a caller supplied parameter failed structural validation.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindMalformedResponse:
		return "malformed response"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on kind.
var (
	ErrConfiguration     = errors.New("wcs: configuration error")
	ErrTransport         = errors.New("wcs: transport error")
	ErrProtocol          = errors.New("wcs: protocol error")
	ErrMalformedResponse = errors.New("wcs: malformed response")
	ErrValidation        = errors.New("wcs: validation error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	case KindProtocol:
		return ErrProtocol
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error is the single error type returned by this package.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "DescribeCoverage" or "bbox".
	Op  string
	Msg string

	// URL is the request URL with the API key redacted (transport and
	// protocol errors).
	URL string
	// StatusCode is set for transport errors caused by an HTTP status.
	StatusCode int
	// Code is the exceptionCode of a protocol error document, if any.
	Code string
	// Payload holds the raw response body for malformed responses.
	Payload []byte

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("wcs: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, "\nHere's the url that was sent:\n%s", e.URL)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func validationErr(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func configErr(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func malformedErr(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Msg: fmt.Sprintf(format, args...)}
}
