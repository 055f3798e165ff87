package brokererr

// Expected is the generic result type spec.md calls expected<data>:
// either a successful Value or a failure Err, never both meaningfully
// populated at once.
type Expected[T any] struct {
	Value T
	Err   *Error
}

func Ok[T any](v T) Expected[T] {
	return Expected[T]{Value: v}
}

func Fail[T any](err *Error) Expected[T] {
	return Expected[T]{Err: err}
}

func (e Expected[T]) IsOk() bool {
	return e.Err == nil
}
