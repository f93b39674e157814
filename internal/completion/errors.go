package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	openai "github.com/sashabaranov/go-openai"
)

// Error kinds carried by *Error. Their text is the user-visible prefix.
var (
	ErrTransport         = errors.New("request error")
	ErrMalformedResponse = errors.New("no response field in API result")
	ErrUnexpected        = errors.New("unexpected error")
)

// Error is a failed completion. Its message is safe to show to the user.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps an error from the SDK call to a completion error kind.
// HTTP status failures and network failures are transport errors;
// anything else (e.g. an undecodable body) is unexpected.
func classify(err error) *Error {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		urlErr *url.Error
		netErr net.Error
	)

	switch {
	case errors.As(err, &apiErr),
		errors.As(err, &reqErr),
		errors.As(err, &urlErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return &Error{Kind: ErrTransport, Err: err}
	default:
		return &Error{Kind: ErrUnexpected, Err: err}
	}
}
