package client

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/core"
)

func errInvalidArgument(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(core.ErrorCodeSDK)
}

func errMissingTaskToken() error {
	return goerrors.New(
		"client: response carries no task token",
		goerrors.CategoryExternal,
	).WithTextCode(core.ErrorCodeJSON)
}
