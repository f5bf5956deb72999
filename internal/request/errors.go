package request

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind 是错误分类，调用方据此选择重试提示或简短提示。
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindClientError
	KindServerError
	KindServerErrorRange
	KindDecoding
	KindTimeout
	KindTransport
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown_error",
	KindInvalidRequest:   "invalid_request",
	KindBadRequest:       "bad_request",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindNotFound:         "not_found",
	KindClientError:      "client_error",
	KindServerError:      "server_error",
	KindServerErrorRange: "server_error_range",
	KindDecoding:         "decoding_error",
	KindTimeout:          "timeout",
	KindTransport:        "transport_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error 是管道返回的唯一错误类型。按值传递，构造后不再修改。
type Error struct {
	Kind        Kind
	StatusCode  int
	Description string
	Cause       error
}

// 便于 errors.Is 按类别匹配的哨兵值。
var (
	ErrInvalidRequest = Error{Kind: KindInvalidRequest}
	ErrBadRequest     = Error{Kind: KindBadRequest}
	ErrUnauthorized   = Error{Kind: KindUnauthorized}
	ErrForbidden      = Error{Kind: KindForbidden}
	ErrNotFound       = Error{Kind: KindNotFound}
	ErrServerError    = Error{Kind: KindServerError}
	ErrDecoding       = Error{Kind: KindDecoding}
	ErrTimeout        = Error{Kind: KindTimeout}
	ErrTransport      = Error{Kind: KindTransport}
)

func (e Error) Error() string {
	switch e.Kind {
	case KindInvalidRequest:
		if e.Cause != nil {
			return fmt.Sprintf("cannot build request: %v", e.Cause)
		}
		return "cannot build request"
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindClientError, KindServerErrorRange:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	case KindServerError:
		return "internal server error"
	case KindDecoding:
		return fmt.Sprintf("decode response: %s", e.Description)
	case KindTimeout:
		return "request timed out"
	case KindTransport:
		return fmt.Sprintf("transport failure: %v", e.Cause)
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("unexpected error (status %d)", e.StatusCode)
		}
		return "unexpected error"
	}
}

func (e Error) Unwrap() error {
	return e.Cause
}

// Is 按 Kind 匹配；target 带状态码时还要求状态码一致。
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Retryable 表示该错误是否值得提示用户重试。
func (e Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport, KindServerError, KindServerErrorRange:
		return true
	default:
		return false
	}
}

// KindOf 提取 err 的分类，非管道错误返回 KindUnknown。
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusError 按状态码分类。2xx 返回 ok=false。
func StatusError(code int) (Error, bool) {
	switch {
	case code >= 200 && code <= 299:
		return Error{}, false
	case code == 400:
		return Error{Kind: KindBadRequest, StatusCode: code}, true
	case code == 401:
		return Error{Kind: KindUnauthorized, StatusCode: code}, true
	case code == 403:
		return Error{Kind: KindForbidden, StatusCode: code}, true
	case code == 404:
		return Error{Kind: KindNotFound, StatusCode: code}, true
	case code == 402, code >= 405 && code <= 499:
		return Error{Kind: KindClientError, StatusCode: code}, true
	case code == 500:
		return Error{Kind: KindServerError, StatusCode: code}, true
	case code >= 501 && code <= 599:
		return Error{Kind: KindServerErrorRange, StatusCode: code}, true
	default:
		return Error{Kind: KindUnknown, StatusCode: code}, true
	}
}

// transportError 区分超时与其它传输失败。
func transportError(err error) Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Error{Kind: KindTimeout, Cause: err}
	}
	return Error{Kind: KindTransport, Cause: err}
}

func invalidRequest(err error) Error {
	return Error{Kind: KindInvalidRequest, Cause: err}
}

func decodingError(err error) Error {
	return Error{Kind: KindDecoding, Description: err.Error(), Cause: err}
}
