package models

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/core"
)

// errDetachedEntity reports a navigation call on an entity that was built
// without a session back reference, typically by decoding JSON by hand
// instead of going through a session method.
func errDetachedEntity(kind string) error {
	return goerrors.New(
		"models: "+kind+" is not attached to a session",
		goerrors.CategoryOperation,
	).WithTextCode(core.ErrorCodeSDK)
}
