package core

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Machine error codes surfaced on every failure. These match the codes the
// connect API itself declares in 400 bodies, so callers can branch on a single
// vocabulary regardless of whether a failure originated in TLS validation,
// the transport, or JSON decoding.
const (
	ErrorCodeSSL                = "ssl_error"
	ErrorCodeSocket             = "socket_error"
	ErrorCodeTimeout            = "timeout"
	ErrorCodeJSON               = "json_error"
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeMethodNotAllowed   = "method_not_allowed"
	ErrorCodeServiceUnavailable = "service_unavailable"
	ErrorCodeInternal           = "internal_server_error"
	ErrorCodeSDK                = "sdk_error"
)

// ErrorCode returns the machine code carried by a client error, or "" when the
// error did not originate in this module.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return strings.TrimSpace(richErr.TextCode)
	}
	return ""
}

func IsErrorCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == strings.TrimSpace(code)
}

// IsAuthFailure reports whether the error means the access token is missing,
// invalid, or expired, or the granted permissions are insufficient.
func IsAuthFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return true
	}
	return false
}

// IsRetryable reports whether a caller may reasonably reissue the request.
// The transport itself never retries.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case ErrorCodeSocket, ErrorCodeTimeout, ErrorCodeServiceUnavailable:
		return true
	}
	return false
}
