package brokererr

import "fmt"

// Context carries the optional (endpoint_info, description) pair spec
// §7 attaches to an error. Either field may be absent.
type Context struct {
	Endpoint    string // endpoint_info as a plain identifier; "" means absent
	Description string
}

// Error is a kind-tagged error with an embedded message payload, per
// Design Note "Error as value".
type Error struct {
	Kind     Kind
	Category string
	Context  *Context
}

func New(kind Kind) *Error {
	return &Error{Kind: kind, Category: kind.Category()}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Category: kind.Category(),
		Context:  &Context{Description: fmt.Sprintf(format, args...)},
	}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil broker error>"
	}
	if e.Context == nil {
		return fmt.Sprintf("broker: %s", e.Kind)
	}
	if e.Context.Endpoint == "" {
		return fmt.Sprintf("broker: %s: %s", e.Kind, e.Context.Description)
	}
	return fmt.Sprintf("broker: %s (%s): %s", e.Kind, e.Context.Endpoint, e.Context.Description)
}

func (e *Error) Is(kind Kind) bool {
	return e != nil && e.Kind == kind
}
