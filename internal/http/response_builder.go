// Package http provides the UI server and its page handlers.
//
// This file implements the Builder Pattern for view responses. Form posts
// answer with a See Other redirect carrying a one-shot notice in the query
// string; failures render an escaped HTML fragment.

package http

import (
	"html/template"
	"net/http"
	"net/url"
)

// NoticeKind represents the type of notice to display.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a flash message shown once after a redirect.
type Notice struct {
	Kind    NoticeKind
	Message string
}

const (
	noticeParam = "notice"
	kindParam   = "kind"
)

// NoticeFromQuery reads a notice left by Redirect. It returns nil when the
// query carries none.
func NoticeFromQuery(q url.Values) *Notice {
	msg := sanitizeInput(q.Get(noticeParam))
	if msg == "" {
		return nil
	}
	kind := NoticeKind(q.Get(kindParam))
	switch kind {
	case NoticeSuccess, NoticeError, NoticeInfo:
	default:
		kind = NoticeInfo
	}
	return &Notice{Kind: kind, Message: msg}
}

// ResponseBuilder provides a fluent API for building view responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyString sets the response body as a string.
func (b *ResponseBuilder) BodyString(content string) *ResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Redirect answers 303 See Other to path, attaching n when non-nil.
func (b *ResponseBuilder) Redirect(path string, n *Notice) *ResponseBuilder {
	target := path
	if n != nil {
		q := url.Values{}
		q.Set(noticeParam, n.Message)
		q.Set(kindParam, string(n.Kind))
		target += "?" + q.Encode()
	}
	b.statusCode = http.StatusSeeOther
	b.headers["Location"] = target
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + escapedMsg + `</div>`)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// TooManyRequestsError creates a 429 response with a retry hint.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		Header("Retry-After", "60")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}
