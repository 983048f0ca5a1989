package core

// Status values the ledger services in this repository emit. Other
// backends may use any string; callers treat Status as opaque.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope wrapping every backend payload.
type Response[T any] struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
	Data    T       `json:"data"`
}

// OK builds a success envelope without a message.
func OK[T any](data T) Response[T] {
	return Response[T]{Status: StatusSuccess, Data: data}
}

// Fail builds an error envelope carrying msg.
func Fail[T any](msg string) Response[T] {
	return Response[T]{Status: StatusError, Message: &msg}
}

// Succeeded follows the envelope convention: no message means success.
func (r Response[T]) Succeeded() bool {
	return r.Message == nil
}

// MessageText returns the message or "" when absent.
func (r Response[T]) MessageText() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}
