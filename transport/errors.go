package transport

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-bankconnect/core"
)

func clientError(
	message string,
	category goerrors.Category,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func clientWrapError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return clientError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func errFingerprintMismatch(fingerprint string) error {
	metadata := map[string]any{}
	if strings.TrimSpace(fingerprint) != "" {
		metadata["peer_fingerprint"] = fingerprint
	}
	return clientError(
		"SSL/TLS certificate fingerprint mismatch.",
		goerrors.CategoryExternal,
		core.ErrorCodeSSL,
		metadata,
	)
}

func errSocket(source error) error {
	message := "Connection failed."
	if source != nil {
		message = source.Error()
	}
	return clientWrapError(
		source,
		goerrors.CategoryExternal,
		message,
		core.ErrorCodeSocket,
		nil,
	)
}

func errTimeout() error {
	return clientError(
		"Server connection timed out.",
		goerrors.CategoryOperation,
		core.ErrorCodeTimeout,
		nil,
	)
}

func errJSONDecode(source error) error {
	message := "Invalid JSON payload."
	if source != nil {
		message = source.Error()
	}
	return clientWrapError(
		source,
		goerrors.CategoryExternal,
		message,
		core.ErrorCodeJSON,
		nil,
	)
}

func errAPI(code string, description string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		code = core.ErrorCodeInternal
	}
	return clientError(description, goerrors.CategoryBadInput, code, nil)
}

func errUnauthorized() error {
	return clientError(
		"Missing, invalid or expired access token.",
		goerrors.CategoryAuth,
		core.ErrorCodeUnauthorized,
		nil,
	)
}

func errForbidden() error {
	return clientError(
		"Insufficient permission.",
		goerrors.CategoryAuthz,
		core.ErrorCodeForbidden,
		nil,
	)
}

func errMethodNotAllowed() error {
	return clientError(
		"Unexpected request method.",
		goerrors.CategoryOperation,
		core.ErrorCodeMethodNotAllowed,
		nil,
	)
}

func errServiceUnavailable() error {
	return clientError(
		"Exceeded rate limit.",
		goerrors.CategoryRateLimit,
		core.ErrorCodeServiceUnavailable,
		nil,
	)
}

func errInternal() error {
	return clientError(
		"We are very sorry, but something went wrong.",
		goerrors.CategoryInternal,
		core.ErrorCodeInternal,
		nil,
	)
}

func errConcurrentRequest(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Channel"
	}
	return clientError(
		"Each `"+label+"` object can only send one API request at the same time.",
		goerrors.CategoryConflict,
		core.ErrorCodeSDK,
		map[string]any{"label": label},
	)
}

func errChannelMisconfigured(message string) error {
	return clientError(message, goerrors.CategoryInternal, core.ErrorCodeSDK, nil)
}
